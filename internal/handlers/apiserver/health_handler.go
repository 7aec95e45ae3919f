package apiserver

import "net/http"

// Health handles GET /
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSONResponse(w, http.StatusOK, MessageResponse{Message: "API is working"})
}
