package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"cheers-go/internal/apptypes"
	"cheers-go/internal/models"
)

// memStore backs the in-memory repositories with one shared state so that
// cascades behave like the SQL implementation.
type memStore struct {
	mu       sync.Mutex
	nextID   uint
	clock    time.Time
	users    map[uint]models.User
	links    map[[2]uint]time.Time
	reviews  map[uint]models.Review
	cheers   map[[2]uint]struct{} // {reviewID, userID}
	comments map[uint]models.Comment
}

func newMemStore() *memStore {
	return &memStore{
		clock:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		users:    map[uint]models.User{},
		links:    map[[2]uint]time.Time{},
		reviews:  map[uint]models.Review{},
		cheers:   map[[2]uint]struct{}{},
		comments: map[uint]models.Comment{},
	}
}

func (m *memStore) newID() uint {
	m.nextID++
	return m.nextID
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) basicInfo(id uint) models.UserBasicInfo {
	u := m.users[id]
	return u.BasicInfo()
}

// unreferenced keeps the urls no stored review or user points at. Callers hold mu.
func (m *memStore) unreferenced(urls []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, u := range urls {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		if !m.imageInUse(u) {
			out = append(out, u)
		}
	}
	return out
}

func (m *memStore) imageInUse(url string) bool {
	for _, rv := range m.reviews {
		if rv.ImageURL == url {
			return true
		}
	}
	for _, u := range m.users {
		if u.ProfilePicURL == url {
			return true
		}
	}
	return false
}

func sortByUsername(infos []models.UserBasicInfo) {
	sort.Slice(infos, func(i, j int) bool { return infos[i].Username < infos[j].Username })
}

// ---- users ----

type memUserRepo struct{ s *memStore }

func (r memUserRepo) Create(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Username == user.Username || strings.EqualFold(u.Email, user.Email) {
			return gorm.ErrDuplicatedKey
		}
	}
	user.ID = r.s.newID()
	user.CreatedAt = r.s.tick()
	user.UpdatedAt = user.CreatedAt
	r.s.users[user.ID] = *user
	return nil
}

func (r memUserRepo) GetByID(_ context.Context, id uint) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r memUserRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r memUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r memUserRepo) Update(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	old, ok := r.s.users[user.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	user.IsAdmin = old.IsAdmin
	user.UpdatedAt = r.s.tick()
	r.s.users[user.ID] = *user
	return nil
}

func (r memUserRepo) List(context.Context) ([]models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	users := []models.User{}
	for _, u := range r.s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r memUserRepo) GetBasicInfoByID(_ context.Context, id uint) (*models.UserBasicInfo, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return nil, gorm.ErrRecordNotFound
	}
	info := r.s.basicInfo(id)
	return &info, nil
}

func (r memUserRepo) SetAdmin(_ context.Context, id uint, isAdmin bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.IsAdmin = isAdmin
	r.s.users[id] = u
	return nil
}

func (r memUserRepo) DeleteCascade(ctx context.Context, id uint) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}

	for key := range r.s.cheers {
		if key[1] == id {
			rv := r.s.reviews[key[0]]
			rv.Cheers--
			r.s.reviews[key[0]] = rv
			delete(r.s.cheers, key)
		}
	}

	var images []string
	for rid, rv := range r.s.reviews {
		if rv.UserID != id {
			continue
		}
		if rv.ImageURL != "" {
			images = append(images, rv.ImageURL)
		}
		for key := range r.s.cheers {
			if key[0] == rid {
				delete(r.s.cheers, key)
			}
		}
		for cid, c := range r.s.comments {
			if c.ReviewID == rid {
				delete(r.s.comments, cid)
			}
		}
		delete(r.s.reviews, rid)
	}

	for key := range r.s.links {
		if key[0] == id || key[1] == id {
			delete(r.s.links, key)
		}
	}
	delete(r.s.users, id)
	images = append(images, user.ProfilePicURL)
	return r.s.unreferenced(images), nil
}

// ---- friendships ----

type memFriendshipRepo struct{ s *memStore }

func (r memFriendshipRepo) AddPair(ctx context.Context, a, b uint) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	created := false
	now := r.s.tick()
	for _, key := range [][2]uint{{a, b}, {b, a}} {
		if _, ok := r.s.links[key]; !ok {
			r.s.links[key] = now
			created = true
		}
	}
	return created, nil
}

func (r memFriendshipRepo) RemovePair(ctx context.Context, a, b uint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.links, [2]uint{a, b})
	delete(r.s.links, [2]uint{b, a})
	return nil
}

func (r memFriendshipRepo) ListFriends(_ context.Context, userID uint) ([]models.UserBasicInfo, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	friends := []models.UserBasicInfo{}
	for key := range r.s.links {
		if key[0] == userID {
			friends = append(friends, r.s.basicInfo(key[1]))
		}
	}
	sortByUsername(friends)
	return friends, nil
}

func (r memFriendshipRepo) RepairAsymmetric(context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for key, at := range r.s.links {
		mirror := [2]uint{key[1], key[0]}
		if _, ok := r.s.links[mirror]; !ok {
			r.s.links[mirror] = at
			n++
		}
	}
	return n, nil
}

// ---- reviews ----

type memReviewRepo struct{ s *memStore }

func (r memReviewRepo) Create(ctx context.Context, review *models.Review) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	review.ID = r.s.newID()
	review.CreatedAt = r.s.tick()
	review.UpdatedAt = review.CreatedAt
	r.s.reviews[review.ID] = *review
	return nil
}

func (r memReviewRepo) GetByID(_ context.Context, id uint) (*models.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rv, ok := r.s.reviews[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &rv, nil
}

func (r memReviewRepo) List(context.Context) ([]models.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	reviews := []models.Review{}
	for _, rv := range r.s.reviews {
		reviews = append(reviews, rv)
	}
	sort.Slice(reviews, func(i, j int) bool { return reviews[i].CreatedAt.After(reviews[j].CreatedAt) })
	return reviews, nil
}

func (r memReviewRepo) Update(ctx context.Context, review *models.Review) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	old, ok := r.s.reviews[review.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	review.UserID = old.UserID
	review.Cheers = old.Cheers
	review.UpdatedAt = r.s.tick()
	r.s.reviews[review.ID] = *review
	return nil
}

func (r memReviewRepo) Delete(ctx context.Context, id uint) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rv, ok := r.s.reviews[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	for key := range r.s.cheers {
		if key[0] == id {
			delete(r.s.cheers, key)
		}
	}
	for cid, c := range r.s.comments {
		if c.ReviewID == id {
			delete(r.s.comments, cid)
		}
	}
	delete(r.s.reviews, id)
	return r.s.unreferenced([]string{rv.ImageURL}), nil
}

func (r memReviewRepo) IsImageReferenced(_ context.Context, url string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.imageInUse(url), nil
}

func (r memReviewRepo) ToggleCheer(ctx context.Context, reviewID, userID uint) (*models.Review, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rv, ok := r.s.reviews[reviewID]
	if !ok {
		return nil, false, gorm.ErrRecordNotFound
	}
	key := [2]uint{reviewID, userID}
	cheered := false
	if _, ok := r.s.cheers[key]; ok {
		delete(r.s.cheers, key)
		rv.Cheers--
	} else {
		r.s.cheers[key] = struct{}{}
		rv.Cheers++
		cheered = true
	}
	r.s.reviews[reviewID] = rv
	return &rv, cheered, nil
}

func (r memReviewRepo) HasCheered(_ context.Context, reviewID, userID uint) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.cheers[[2]uint{reviewID, userID}]
	return ok, nil
}

func (r memReviewRepo) ListCheerers(_ context.Context, reviewID uint) ([]models.UserBasicInfo, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cheerers := []models.UserBasicInfo{}
	for key := range r.s.cheers {
		if key[0] == reviewID {
			cheerers = append(cheerers, r.s.basicInfo(key[1]))
		}
	}
	sortByUsername(cheerers)
	return cheerers, nil
}

func (r memReviewRepo) RecountCheers(context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := map[uint]int{}
	for key := range r.s.cheers {
		counts[key[0]]++
	}
	var n int64
	for id, rv := range r.s.reviews {
		if rv.Cheers != counts[id] {
			rv.Cheers = counts[id]
			r.s.reviews[id] = rv
			n++
		}
	}
	return n, nil
}

// ---- comments ----

type memCommentRepo struct{ s *memStore }

func (r memCommentRepo) Create(ctx context.Context, comment *models.Comment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	comment.ID = r.s.newID()
	comment.CreatedAt = r.s.tick()
	comment.UpdatedAt = comment.CreatedAt
	r.s.comments[comment.ID] = *comment
	return nil
}

func (r memCommentRepo) GetByID(_ context.Context, id uint) (*models.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.comments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (r memCommentRepo) ListByReview(_ context.Context, reviewID uint) ([]models.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	comments := []models.Comment{}
	for _, c := range r.s.comments {
		if c.ReviewID == reviewID {
			comments = append(comments, c)
		}
	}
	sort.Slice(comments, func(i, j int) bool { return comments[i].CreatedAt.After(comments[j].CreatedAt) })
	return comments, nil
}

func (r memCommentRepo) Delete(ctx context.Context, id uint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.comments[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.s.comments, id)
	return nil
}

// ---- activity ----

type recordingPublisher struct {
	mu     sync.Mutex
	events []apptypes.ActivityEvent
}

func (p *recordingPublisher) Publish(_ context.Context, evt apptypes.ActivityEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

func (p *recordingPublisher) ofType(t apptypes.ActivityType) []apptypes.ActivityEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []apptypes.ActivityEvent
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
