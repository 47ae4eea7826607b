package auth

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/fitness-api/internal/storage"
	"github.com/redmonkez12/fitness-api/internal/user"
)

// inlineTx runs the unit of work without a database
type inlineTx struct{}

func (inlineTx) RunInTx(ctx context.Context, fn func(ctx context.Context, db bun.IDB) error) error {
	return fn(ctx, nil)
}

// memStore is an in-memory Store. Every repository it hands out shares the
// same maps regardless of the bun handle.
type memStore struct {
	mu      sync.Mutex
	users   map[uuid.UUID]*user.User
	auths   map[uuid.UUID]*AuthRecord
	invalid *memInvalidTokens
}

func newMemStore(invalid *memInvalidTokens) *memStore {
	return &memStore{
		users:   map[uuid.UUID]*user.User{},
		auths:   map[uuid.UUID]*AuthRecord{},
		invalid: invalid,
	}
}

func (m *memStore) Users(bun.IDB) UserRepository            { return memUsers{m} }
func (m *memStore) Auths(bun.IDB) AuthRepository            { return memAuths{m} }
func (m *memStore) InvalidTokens(bun.IDB) InvalidTokenStore { return m.invalid }

func (m *memStore) user(id uuid.UUID) *user.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil
	}
	cp := *u
	return &cp
}

func (m *memStore) auth(id uuid.UUID) *AuthRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.auths[id]
	if !ok {
		return nil
	}
	cp := *rec
	return &cp
}

type memUsers struct{ m *memStore }

func (r memUsers) Create(_ context.Context, u *user.User) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, existing := range r.m.users {
		if existing.Email == u.Email {
			return 0, user.ErrDuplicateEmail
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	cp := *u
	r.m.users[u.ID] = &cp
	return 1, nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*user.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrNotFound
}

func (r memUsers) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	if u := r.m.user(id); u != nil {
		return u, nil
	}
	return nil, user.ErrNotFound
}

func (r memUsers) Update(_ context.Context, u *user.User) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	current, ok := r.m.users[u.ID]
	if !ok {
		return 0, nil
	}
	cp := *u
	cp.PasswordHash = current.PasswordHash
	r.m.users[u.ID] = &cp
	return 1, nil
}

func (r memUsers) UpdatePassword(_ context.Context, userID uuid.UUID, hash string) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[userID]
	if !ok {
		return 0, nil
	}
	u.PasswordHash = hash
	return 1, nil
}

func (r memUsers) Delete(_ context.Context, userID uuid.UUID) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.users[userID]; !ok {
		return 0, nil
	}
	delete(r.m.users, userID)
	return 1, nil
}

type memAuths struct{ m *memStore }

func (r memAuths) Create(_ context.Context, rec *AuthRecord) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	cp := *rec
	r.m.auths[rec.UserID] = &cp
	return 1, nil
}

func (r memAuths) GetByUserID(_ context.Context, userID uuid.UUID) (*AuthRecord, error) {
	if rec := r.m.auth(userID); rec != nil {
		return rec, nil
	}
	return nil, ErrAuthRecordNotFound
}

func (r memAuths) Update(_ context.Context, rec *AuthRecord) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.auths[rec.UserID]; !ok {
		return 0, nil
	}
	cp := *rec
	r.m.auths[rec.UserID] = &cp
	return 1, nil
}

func (r memAuths) SetRefreshToken(_ context.Context, userID uuid.UUID, token *string) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	rec, ok := r.m.auths[userID]
	if !ok {
		return 0, nil
	}
	if token == nil {
		rec.RefreshToken = nil
	} else {
		v := *token
		rec.RefreshToken = &v
	}
	return 1, nil
}

func (r memAuths) SetResetToken(_ context.Context, userID uuid.UUID, token string, expiresAt time.Time) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	rec, ok := r.m.auths[userID]
	if !ok {
		return 0, nil
	}
	rec.ResetPasswordToken = &token
	rec.ResetPasswordTokenExpiration = &expiresAt
	return 1, nil
}

func (r memAuths) DeleteByUserID(_ context.Context, userID uuid.UUID) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.auths[userID]; !ok {
		return 0, nil
	}
	delete(r.m.auths, userID)
	return 1, nil
}

// memMailer hands every reset token to the test through a channel
type memMailer struct {
	sent chan string
}

func newMemMailer() *memMailer {
	return &memMailer{sent: make(chan string, 8)}
}

func (m *memMailer) SendPasswordResetEmail(_ context.Context, _ string, token string) error {
	m.sent <- token
	return nil
}

func (m *memMailer) wait(t *testing.T) string {
	t.Helper()
	select {
	case token := <-m.sent:
		return token
	case <-time.After(2 * time.Second):
		t.Fatal("no reset email sent")
		return ""
	}
}

type memImages struct {
	mu      sync.Mutex
	stored  map[string]bool
	deleted []string
}

func newMemImages() *memImages {
	return &memImages{stored: map[string]bool{}}
}

func (m *memImages) Upload(_ context.Context, filename, _ string, body io.Reader) (*storage.Image, error) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := "profile/" + uuid.NewString() + "-" + strings.ToLower(filename)
	m.stored[id] = true
	return &storage.Image{PublicID: id, URL: "http://images.test/" + id}, nil
}

func (m *memImages) Delete(_ context.Context, publicID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stored, publicID)
	m.deleted = append(m.deleted, publicID)
	return nil
}

func (m *memImages) deletedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}

type memIdentityProvider struct {
	ident *ExternalIdentity
}

func (p *memIdentityProvider) AuthCodeURL(state string) string {
	return "https://accounts.test/auth?state=" + state
}

func (p *memIdentityProvider) Identify(_ context.Context, code string) (*ExternalIdentity, error) {
	if code != "good-code" {
		return nil, ErrOAuthExchange
	}
	return p.ident, nil
}

const (
	testDefaultPhotoID  = "default_profile_photo"
	testDefaultPhotoURL = "http://images.test/default.png"
)

type serviceFixture struct {
	svc     *Service
	store   *memStore
	invalid *memInvalidTokens
	tokens  *TokenService
	ledger  *Ledger
	mail    *memMailer
	images  *memImages
	cleaned []uuid.UUID
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		invalid: newMemInvalidTokens(),
		tokens:  newTestTokenService(t, "jwt"),
		mail:    newMemMailer(),
		images:  newMemImages(),
	}
	f.store = newMemStore(f.invalid)
	f.ledger = NewLedger(f.invalid, nil, discardLogger())

	cleaner := func(_ context.Context, _ bun.IDB, userID uuid.UUID) error {
		f.cleaned = append(f.cleaned, userID)
		return nil
	}

	f.svc = NewService(nil, inlineTx{}, f.store, f.tokens, f.ledger, f.mail, f.images, discardLogger(), Options{
		DefaultPhotoID:  testDefaultPhotoID,
		DefaultPhotoURL: testDefaultPhotoURL,
		Argon2:          testArgon2Params,
		Cleaners:        []UserDataCleaner{cleaner},
	})
	return f
}

func (f *serviceFixture) register(t *testing.T, email, password string) *AuthResult {
	t.Helper()
	res, err := f.svc.Register(context.Background(), RegisterInput{Email: email, Password: password, Name: "Ana"})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return res
}
