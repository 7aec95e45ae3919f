package services

import (
	"context"
	"fmt"

	"cheers-go/internal/storage"
)

// authorizeOwnerOrAdmin allows callerID to act on a resource owned by ownerID
// when it is the owner or an admin.
func authorizeOwnerOrAdmin(ctx context.Context, users storage.UserRepository, callerID, ownerID uint) error {
	if callerID == 0 {
		return ErrAuthenticationRequired
	}
	if callerID == ownerID {
		return nil
	}
	caller, err := users.GetByID(ctx, callerID)
	if err != nil {
		if storage.IsNotFound(err) {
			// 令牌有效但用户已被删除
			return ErrAuthenticationRequired
		}
		return fmt.Errorf("load caller %d: %w", callerID, err)
	}
	if !caller.IsAdmin {
		return ErrForbidden
	}
	return nil
}
