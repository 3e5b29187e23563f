package service

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/chirp/internal/apperror"
	"github.com/sakif/chirp/internal/model"
	"github.com/sakif/chirp/internal/repository"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// memStore is an in-memory implementation of every repository interface.
// It keeps the same one-record-per-relationship shape as the real store
// (edges and likes are set keys, not per-user arrays), so the service tests
// exercise the same invariants.
type memStore struct {
	mu        sync.Mutex
	users     map[string]*model.User
	posts     map[string]*model.Post
	postOrder []string
	follows   map[[2]string]time.Time // {follower, followee}
	likes     map[[2]string]time.Time // {user, post}
	notes     []model.Notification

	// set to a non-nil error to simulate a store failure
	retractErr error
	followErr  error
}

var (
	_ repository.UserRepository         = (*memStore)(nil)
	_ repository.PostRepository         = (*memStore)(nil)
	_ repository.FollowRepository       = (*memStore)(nil)
	_ repository.LikeRepository         = (*memStore)(nil)
	_ repository.NotificationRepository = (*memStore)(nil)
)

func newMemStore() *memStore {
	return &memStore{
		users:   make(map[string]*model.User),
		posts:   make(map[string]*model.Post),
		follows: make(map[[2]string]time.Time),
		likes:   make(map[[2]string]time.Time),
	}
}

// --- users ---

func (m *memStore) CreateUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Handle, u.Handle) {
			return apperror.Conflict("handle", u.Handle)
		}
		if u.Email != "" && strings.EqualFold(existing.Email, u.Email) {
			return apperror.Conflict("email", u.Email)
		}
	}
	u.ID = xid.New().String()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	copied := *u
	m.users[u.ID] = &copied
	return nil
}

func (m *memStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (m *memStore) UpsertGitHubUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.GitHubID != nil && *existing.GitHubID == *u.GitHubID {
			*u = *existing
			return nil
		}
	}
	u.ID = xid.New().String()
	copied := *u
	m.users[u.ID] = &copied
	return nil
}

func (m *memStore) UpdateProfile(_ context.Context, id string, upd model.ProfileUpdate) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	if upd.Bio != nil {
		u.Bio = *upd.Bio
	}
	if upd.ProfileImg != nil {
		u.ProfileImg = *upd.ProfileImg
	}
	if upd.CoverImg != nil {
		u.CoverImg = *upd.CoverImg
	}
	copied := *u
	return &copied, nil
}

func (m *memStore) UserSummaries(_ context.Context, ids []string) (map[string]model.UserSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]model.UserSummary)
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out[id] = u.Summary()
		}
	}
	return out, nil
}

// --- posts ---

func (m *memStore) CreatePost(_ context.Context, p *model.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[p.OwnerID]; !ok {
		return apperror.NotFound("user", p.OwnerID)
	}
	p.ID = xid.New().String()
	p.CreatedAt = time.Now()
	copied := *p
	m.posts[p.ID] = &copied
	m.postOrder = append(m.postOrder, p.ID)
	return nil
}

// postView is called with mu held.
func (m *memStore) postView(id, viewer string) model.Post {
	p := *m.posts[id]
	owner := m.users[p.OwnerID].Summary()
	p.Owner = &owner
	for k := range m.likes {
		if k[1] == id {
			p.LikeCount++
			if k[0] == viewer {
				p.LikedByMe = true
			}
		}
	}
	return p
}

func (m *memStore) GetPostByID(_ context.Context, id string) (*model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return nil, apperror.NotFound("post", id)
	}
	p := m.postView(id, "")
	return &p, nil
}

func (m *memStore) newestFirst(keep func(*model.Post) bool, viewer string) []model.Post {
	out := []model.Post{}
	for i := len(m.postOrder) - 1; i >= 0; i-- {
		id := m.postOrder[i]
		p, ok := m.posts[id]
		if !ok || !keep(p) {
			continue
		}
		out = append(out, m.postView(id, viewer))
	}
	return out
}

func page(posts []model.Post, opts repository.ListOptions) []model.Post {
	if opts.Offset >= len(posts) {
		return []model.Post{}
	}
	posts = posts[opts.Offset:]
	if opts.Limit < len(posts) {
		posts = posts[:opts.Limit]
	}
	return posts
}

func (m *memStore) ListPosts(_ context.Context, viewer string, opts repository.ListOptions) ([]model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return page(m.newestFirst(func(*model.Post) bool { return true }, viewer), opts), nil
}

func (m *memStore) PostsByUser(_ context.Context, userID string) ([]model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.newestFirst(func(p *model.Post) bool { return p.OwnerID == userID }, ""), nil
}

func (m *memStore) LikedPosts(_ context.Context, userID string) ([]model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.newestFirst(func(p *model.Post) bool {
		_, ok := m.likes[[2]string{userID, p.ID}]
		return ok
	}, userID), nil
}

func (m *memStore) SearchPosts(_ context.Context, q string, opts repository.ListOptions) ([]model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q = strings.ToLower(q)
	return page(m.newestFirst(func(p *model.Post) bool {
		return strings.Contains(strings.ToLower(p.Content), q)
	}, ""), opts), nil
}

func (m *memStore) DeletePost(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return apperror.NotFound("post", id)
	}
	delete(m.posts, id)
	for k := range m.likes {
		if k[1] == id {
			delete(m.likes, k)
		}
	}
	return nil
}

// --- follows ---

func (m *memStore) Follow(_ context.Context, follower, followee string) (*model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.followErr != nil {
		return nil, m.followErr
	}
	for _, id := range []string{follower, followee} {
		if _, ok := m.users[id]; !ok {
			return nil, apperror.NotFound("user", id)
		}
	}
	key := [2]string{follower, followee}
	if _, ok := m.follows[key]; ok {
		return nil, apperror.AlreadyFollowing(followee)
	}
	m.follows[key] = time.Now()
	n := m.appendLocked(model.Notification{UserID: followee, Kind: model.KindFollow, OriginID: follower})
	return &n, nil
}

func (m *memStore) Unfollow(_ context.Context, follower, followee string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range []string{follower, followee} {
		if _, ok := m.users[id]; !ok {
			return apperror.NotFound("user", id)
		}
	}
	key := [2]string{follower, followee}
	if _, ok := m.follows[key]; !ok {
		return apperror.NotFollowing(followee)
	}
	delete(m.follows, key)
	return nil
}

func (m *memStore) IsFollowing(_ context.Context, follower, followee string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.follows[[2]string{follower, followee}]
	return ok, nil
}

func (m *memStore) edges(match func(k [2]string) (string, bool)) []model.UserSummary {
	out := []model.UserSummary{}
	for k := range m.follows {
		if id, ok := match(k); ok {
			out = append(out, m.users[id].Summary())
		}
	}
	slices.SortFunc(out, func(a, b model.UserSummary) int { return strings.Compare(a.Handle, b.Handle) })
	return out
}

func (m *memStore) Following(_ context.Context, userID string) ([]model.UserSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.edges(func(k [2]string) (string, bool) { return k[1], k[0] == userID }), nil
}

func (m *memStore) Followers(_ context.Context, userID string) ([]model.UserSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.edges(func(k [2]string) (string, bool) { return k[0], k[1] == userID }), nil
}

// --- likes ---

func (m *memStore) ToggleLike(_ context.Context, userID, postID string) (*repository.LikeOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[postID]
	if !ok {
		return nil, apperror.NotFound("post", postID)
	}
	if _, ok := m.users[userID]; !ok {
		return nil, apperror.NotFound("user", userID)
	}
	out := &repository.LikeOutcome{OwnerID: p.OwnerID}
	key := [2]string{userID, postID}
	if _, liked := m.likes[key]; liked {
		delete(m.likes, key)
	} else {
		m.likes[key] = time.Now()
		out.Liked = true
	}
	for k := range m.likes {
		if k[1] == postID {
			out.Count++
		}
	}
	if out.Liked && p.OwnerID != userID {
		n := m.appendLocked(model.Notification{UserID: p.OwnerID, Kind: model.KindLike, OriginID: userID})
		out.Notification = &n
	}
	return out, nil
}

func (m *memStore) likesOn(postID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.likes {
		if k[1] == postID {
			n++
		}
	}
	return n
}

// --- notifications ---

func (m *memStore) appendLocked(n model.Notification) model.Notification {
	n.ID = xid.New().String()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	m.notes = append(m.notes, n)
	return n
}

func (m *memStore) AppendNotification(_ context.Context, n *model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[n.UserID]; !ok {
		return apperror.NotFound("user", n.UserID)
	}
	*n = m.appendLocked(*n)
	return nil
}

func (m *memStore) RetractNotification(_ context.Context, userID string, kind model.NotificationKind, originID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.retractErr != nil {
		return m.retractErr
	}
	for i := len(m.notes) - 1; i >= 0; i-- {
		n := m.notes[i]
		if n.UserID == userID && n.Kind == kind && n.OriginID == originID {
			m.notes = append(m.notes[:i], m.notes[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memStore) ListNotifications(_ context.Context, userID string, limit int) ([]model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var mine []model.Notification
	for _, n := range m.notes {
		if n.UserID == userID {
			mine = append(mine, n)
		}
	}
	if len(mine) > limit {
		mine = mine[len(mine)-limit:]
	}
	return mine, nil
}

// mustUser creates a user directly in the store.
func (m *memStore) mustUser(t *testing.T, handle string) *model.User {
	t.Helper()
	u := &model.User{Handle: handle, Email: handle + "@example.com"}
	if err := m.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("creating user %q: %v", handle, err)
	}
	return u
}

func (m *memStore) mustPost(t *testing.T, owner *model.User, content string) *model.Post {
	t.Helper()
	p := &model.Post{OwnerID: owner.ID, Content: content}
	if err := m.CreatePost(context.Background(), p); err != nil {
		t.Fatalf("creating post: %v", err)
	}
	return p
}

// published is one call to Notifier.Publish.
type published struct {
	to string
	n  model.Notification
}

// recordingNotifier captures every Publish call.
type recordingNotifier struct {
	mu    sync.Mutex
	calls []published
}

func (r *recordingNotifier) Publish(_ context.Context, to string, n *model.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, published{to: to, n: *n})
}

func (r *recordingNotifier) all() []published {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
