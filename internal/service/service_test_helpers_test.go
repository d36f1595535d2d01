package service

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Hryurt/dezztech-backend/internal/domain"
	"github.com/Hryurt/dezztech-backend/internal/repository"
	"github.com/Hryurt/dezztech-backend/internal/security"
)

// fakeStore is an in-memory stand-in for the repository registry. It backs
// both the direct read path and the transactor, which is enough because the
// services under test never rely on rollback semantics for assertions.
type fakeStore struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]*domain.User
	codes  map[uint]*domain.VerificationCode
	tokens map[uint]*domain.PasswordResetToken
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID: 1,
		users:  map[uint]*domain.User{},
		codes:  map[uint]*domain.VerificationCode{},
		tokens: map[uint]*domain.PasswordResetToken{},
	}
}

func (f *fakeStore) registry() *repository.Registry {
	return &repository.Registry{
		Users:       &fakeUserRepo{store: f},
		Codes:       &fakeCodeRepo{store: f},
		ResetTokens: &fakeTokenRepo{store: f},
	}
}

func (f *fakeStore) allocateID() uint {
	id := f.nextID
	f.nextID++
	return id
}

func (f *fakeStore) addUser(u *domain.User) *domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID == 0 {
		u.ID = f.allocateID()
	}
	clone := *u
	f.users[u.ID] = &clone
	return u
}

func (f *fakeStore) user(id uint) *domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *f.users[id]
	return &clone
}

func (f *fakeStore) latestCode(userID uint) *domain.VerificationCode {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *domain.VerificationCode
	for _, c := range f.codes {
		if c.UserID != userID || c.IsUsed {
			continue
		}
		if latest == nil || c.ID > latest.ID {
			latest = c
		}
	}
	if latest == nil {
		return nil
	}
	clone := *latest
	return &clone
}

func (f *fakeStore) activeTokens(userID uint) []*domain.PasswordResetToken {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.PasswordResetToken
	for _, t := range f.tokens {
		if t.UserID == userID && !t.IsUsed {
			clone := *t
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type fakeUserRepo struct{ store *fakeStore }

func (r *fakeUserRepo) Create(user *domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	user.ID = r.store.allocateID()
	clone := *user
	r.store.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) FindByID(id uint) (*domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	u, ok := r.store.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *fakeUserRepo) FindByEmail(email string) (*domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, u := range r.store.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) Update(user *domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.users[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	clone := *user
	r.store.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) EmailOrPendingExists(email string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, u := range r.store.users {
		if u.Email == email {
			return true, nil
		}
		if u.PendingEmail != nil && *u.PendingEmail == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUserRepo) CountActiveByRole(role domain.Role) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var count int64
	for _, u := range r.store.users {
		if u.Role == role && u.IsActive {
			count++
		}
	}
	return count, nil
}

func (r *fakeUserRepo) ListActivePaged(page repository.PageRequest) (repository.PageResult[domain.User], error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var active []domain.User
	for _, u := range r.store.users {
		if u.IsActive {
			active = append(active, *u)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })
	return repository.PageResult[domain.User]{
		Items:    active,
		Page:     1,
		PageSize: len(active),
		Total:    int64(len(active)),
	}, nil
}

type fakeCodeRepo struct{ store *fakeStore }

func (r *fakeCodeRepo) Create(code *domain.VerificationCode) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	code.ID = r.store.allocateID()
	clone := *code
	r.store.codes[code.ID] = &clone
	return nil
}

func (r *fakeCodeRepo) FindLatestUnusedByUserID(userID uint) (*domain.VerificationCode, error) {
	if latest := r.store.latestCode(userID); latest != nil {
		return latest, nil
	}
	return nil, repository.ErrVerificationCodeNotFound
}

func (r *fakeCodeRepo) Update(code *domain.VerificationCode) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.codes[code.ID]; !ok {
		return repository.ErrVerificationCodeNotFound
	}
	clone := *code
	r.store.codes[code.ID] = &clone
	return nil
}

type fakeTokenRepo struct{ store *fakeStore }

func (r *fakeTokenRepo) Create(token *domain.PasswordResetToken) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	token.ID = r.store.allocateID()
	clone := *token
	r.store.tokens[token.ID] = &clone
	return nil
}

func (r *fakeTokenRepo) FindActiveByHash(hash string) (*domain.PasswordResetToken, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, t := range r.store.tokens {
		if t.TokenHash == hash && !t.IsUsed {
			clone := *t
			return &clone, nil
		}
	}
	return nil, repository.ErrResetTokenNotFound
}

func (r *fakeTokenRepo) MarkUsed(id uint) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.tokens[id]
	if !ok || t.IsUsed {
		return repository.ErrResetTokenNotFound
	}
	t.IsUsed = true
	return nil
}

func (r *fakeTokenRepo) InvalidateActiveByUserID(userID uint, _ time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, t := range r.store.tokens {
		if t.UserID == userID && !t.IsUsed {
			t.IsUsed = true
		}
	}
	return nil
}

type fakeTransactor struct{ reg *repository.Registry }

func (t *fakeTransactor) InTx(_ context.Context, fn func(reg *repository.Registry) error) error {
	return fn(t.reg)
}

type capturedNotifications struct {
	mu              sync.Mutex
	codes           []VerificationCodeNotification
	resets          []PasswordResetNotification
	passwordChanged []uint
}

type captureNotifier struct{ captured *capturedNotifications }

func (n *captureNotifier) SendVerificationCode(_ context.Context, note VerificationCodeNotification) error {
	n.captured.mu.Lock()
	defer n.captured.mu.Unlock()
	n.captured.codes = append(n.captured.codes, note)
	return nil
}

func (n *captureNotifier) SendPasswordReset(_ context.Context, note PasswordResetNotification) error {
	n.captured.mu.Lock()
	defer n.captured.mu.Unlock()
	n.captured.resets = append(n.captured.resets, note)
	return nil
}

func (n *captureNotifier) SendPasswordChanged(_ context.Context, userID uint, _ string) error {
	n.captured.mu.Lock()
	defer n.captured.mu.Unlock()
	n.captured.passwordChanged = append(n.captured.passwordChanged, userID)
	return nil
}

func testPolicy() CredentialPolicy {
	return CredentialPolicy{
		OTPTTL:            10 * time.Minute,
		OTPResendCooldown: 60 * time.Second,
		OTPMaxAttempts:    5,
		ResetTokenTTL:     15 * time.Minute,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

type authFixture struct {
	store    *fakeStore
	svc      *AuthService
	captured *capturedNotifications
	hasher   *security.PasswordHasher
	codec    *security.TokenCodec
}

func newAuthFixture(now time.Time) *authFixture {
	store := newFakeStore()
	reg := store.registry()
	captured := &capturedNotifications{}
	hasher := security.NewPasswordHasher(4)
	codec := security.NewTokenCodec("dezztech", "dezztech-api", "0123456789abcdef0123456789abcdef", 15*time.Minute)
	svc := NewAuthService(reg, &fakeTransactor{reg: reg}, hasher, codec, &captureNotifier{captured: captured}, testPolicy(), testLogger())
	svc.now = func() time.Time { return now }
	return &authFixture{store: store, svc: svc, captured: captured, hasher: hasher, codec: codec}
}

type profileFixture struct {
	store    *fakeStore
	svc      *ProfileService
	captured *capturedNotifications
	hasher   *security.PasswordHasher
}

func newProfileFixture(now time.Time) *profileFixture {
	store := newFakeStore()
	reg := store.registry()
	captured := &capturedNotifications{}
	hasher := security.NewPasswordHasher(4)
	svc := NewProfileService(reg, &fakeTransactor{reg: reg}, hasher, &captureNotifier{captured: captured}, testPolicy(), testLogger())
	svc.now = func() time.Time { return now }
	return &profileFixture{store: store, svc: svc, captured: captured, hasher: hasher}
}

func mustHash(h *security.PasswordHasher, plain string) string {
	hash, err := h.Hash(plain)
	if err != nil {
		panic(err)
	}
	return hash
}
