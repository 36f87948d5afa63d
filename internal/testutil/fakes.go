package testutil

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"medimate-be/internal/apperror"
	"medimate-be/internal/entity"
	"medimate-be/internal/pkg/logger"
	"medimate-be/pkg/backend"
	"medimate-be/pkg/feed"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type fakeAccount struct {
	identity backend.Identity
	password string
}

// FakeAuth is an in-memory auth provider. Failures are injected per
// operation name with FailOn.
type FakeAuth struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*fakeAccount
	failures map[string]error
	calls    []string

	// ReauthRequired makes UpdatePassword fail until a successful
	// Reauthenticate.
	ReauthRequired bool
	Feed           feed.Feed
}

func NewFakeAuth() *FakeAuth {
	return &FakeAuth{
		accounts: make(map[uuid.UUID]*fakeAccount),
		failures: make(map[string]error),
	}
}

func (f *FakeAuth) FailOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = err
}

func (f *FakeAuth) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Add registers an account directly and returns its identity.
func (f *FakeAuth) Add(email, password, displayName string, verified bool) backend.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := backend.Identity{
		UID:           uuid.New(),
		Email:         email,
		DisplayName:   displayName,
		EmailVerified: verified,
		Provider:      entity.AuthProviderPassword,
	}
	f.accounts[id.UID] = &fakeAccount{identity: id, password: password}
	return id
}

func (f *FakeAuth) SetVerified(ctx context.Context, uid uuid.UUID, verified bool) {
	f.mu.Lock()
	if acc, ok := f.accounts[uid]; ok {
		acc.identity.EmailVerified = verified
	}
	f.mu.Unlock()
	f.notify(ctx, uid)
}

func (f *FakeAuth) Password(uid uuid.UUID) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if acc, ok := f.accounts[uid]; ok {
		return acc.password
	}
	return ""
}

func (f *FakeAuth) begin(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	return f.failures[op]
}

func (f *FakeAuth) notify(ctx context.Context, uid uuid.UUID) {
	if f.Feed != nil {
		_ = f.Feed.Publish(ctx, feed.IdentityTopic(uid))
	}
}

func (f *FakeAuth) byEmail(email string) *fakeAccount {
	for _, acc := range f.accounts {
		if strings.EqualFold(acc.identity.Email, email) {
			return acc
		}
	}
	return nil
}

func (f *FakeAuth) SignIn(ctx context.Context, email, password string) (*backend.Identity, error) {
	if err := f.begin("SignIn"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	acc := f.byEmail(email)
	f.mu.Unlock()
	if acc == nil || acc.password != password {
		return nil, apperror.New(apperror.KindAuthInvalidCredential, "Invalid email or password")
	}
	f.notify(ctx, acc.identity.UID)
	id := acc.identity
	return &id, nil
}

func (f *FakeAuth) SignInFederated(ctx context.Context, profile backend.FederatedProfile) (*backend.Identity, bool, error) {
	if err := f.begin("SignInFederated"); err != nil {
		return nil, false, err
	}
	f.mu.Lock()
	acc := f.byEmail(profile.Email)
	created := false
	if acc == nil {
		photo := profile.PhotoURL
		acc = &fakeAccount{identity: backend.Identity{
			UID:           uuid.New(),
			Email:         profile.Email,
			DisplayName:   profile.DisplayName,
			PhotoURL:      &photo,
			EmailVerified: true,
			Provider:      profile.Provider,
		}}
		f.accounts[acc.identity.UID] = acc
		created = true
	}
	id := acc.identity
	f.mu.Unlock()
	f.notify(ctx, id.UID)
	return &id, created, nil
}

func (f *FakeAuth) SignUp(ctx context.Context, email, password string) (*backend.Identity, error) {
	if err := f.begin("SignUp"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	if f.byEmail(email) != nil {
		f.mu.Unlock()
		return nil, apperror.FieldError(apperror.KindAuthEmailInUse, "email", "This email is already registered.")
	}
	f.mu.Unlock()
	id := f.Add(email, password, "", false)
	f.notify(ctx, id.UID)
	return &id, nil
}

func (f *FakeAuth) SignOut(ctx context.Context, uid uuid.UUID) error {
	if err := f.begin("SignOut"); err != nil {
		return err
	}
	f.notify(ctx, uid)
	return nil
}

func (f *FakeAuth) SendVerificationEmail(ctx context.Context, uid uuid.UUID) error {
	return f.begin("SendVerificationEmail")
}

func (f *FakeAuth) Reauthenticate(ctx context.Context, uid uuid.UUID, password string) error {
	if err := f.begin("Reauthenticate"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.accounts[uid]
	if !ok || acc.password != password {
		return apperror.New(apperror.KindAuthInvalidCredential, "Incorrect password")
	}
	f.ReauthRequired = false
	return nil
}

func (f *FakeAuth) UpdateProfileFields(ctx context.Context, uid uuid.UUID, fields backend.ProfileFields) error {
	if err := f.begin("UpdateProfileFields"); err != nil {
		return err
	}
	f.mu.Lock()
	acc, ok := f.accounts[uid]
	if ok {
		if fields.DisplayName != nil {
			acc.identity.DisplayName = *fields.DisplayName
		}
		if fields.PhotoURL != nil {
			photo := *fields.PhotoURL
			acc.identity.PhotoURL = &photo
		}
	}
	f.mu.Unlock()
	if !ok {
		return apperror.New(apperror.KindNotFound, "Account not found")
	}
	f.notify(ctx, uid)
	return nil
}

func (f *FakeAuth) UpdatePassword(ctx context.Context, uid uuid.UUID, newPassword string) error {
	if err := f.begin("UpdatePassword"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReauthRequired {
		return apperror.New(apperror.KindReauthRequired, "Recent sign-in required")
	}
	acc, ok := f.accounts[uid]
	if !ok {
		return apperror.New(apperror.KindNotFound, "Account not found")
	}
	acc.password = newPassword
	return nil
}

func (f *FakeAuth) Reload(ctx context.Context, uid uuid.UUID) (*backend.Identity, error) {
	if err := f.begin("Reload"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.accounts[uid]
	if !ok {
		return nil, apperror.New(apperror.KindNotFound, "Account not found")
	}
	id := acc.identity
	return &id, nil
}

func (f *FakeAuth) Delete(ctx context.Context, uid uuid.UUID) error {
	if err := f.begin("Delete"); err != nil {
		return err
	}
	f.mu.Lock()
	delete(f.accounts, uid)
	f.mu.Unlock()
	return nil
}

type Upload struct {
	Path        string
	ContentType string
	Body        []byte
}

// FakeStorage keeps uploads in memory and reports progress at half and
// full.
type FakeStorage struct {
	mu      sync.Mutex
	Err     error
	uploads []Upload
}

func (s *FakeStorage) Upload(ctx context.Context, path string, body io.Reader, size int64, contentType string, onProgress backend.ProgressFunc) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return "", err
	}
	if onProgress != nil {
		onProgress(0.5)
		onProgress(1)
	}
	s.mu.Lock()
	s.uploads = append(s.uploads, Upload{Path: path, ContentType: contentType, Body: buf.Bytes()})
	s.mu.Unlock()
	return "https://storage.test/" + path, nil
}

func (s *FakeStorage) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Upload(nil), s.uploads...)
}

// FakeAnswerer answers "Answer: <question>" unless Func is set. With Hold
// set, every call waits for Hold to close.
type FakeAnswerer struct {
	mu        sync.Mutex
	Func      func(question string) (*backend.Answer, error)
	Hold      chan struct{}
	questions []string
}

func (a *FakeAnswerer) Answer(ctx context.Context, question string) (*backend.Answer, error) {
	a.mu.Lock()
	a.questions = append(a.questions, question)
	fn, hold := a.Func, a.Hold
	a.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fn != nil {
		return fn(question)
	}
	return &backend.Answer{Text: "Answer: " + question}, nil
}

func (a *FakeAnswerer) Questions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.questions...)
}

// Backend is a fully in-memory backend client. Its Auth, Storage and
// Answerer fields shadow the client's interfaces with the concrete fakes.
type Backend struct {
	*backend.Client
	DB       *gorm.DB
	Auth     *FakeAuth
	Storage  *FakeStorage
	Answerer *FakeAnswerer
	Bus      *feed.Bus
}

var fixedNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// NewBackend wires a backend client to SQLite, an in-process feed and the
// fakes above. The clock starts at a fixed instant and advances a
// millisecond per call.
func NewBackend(t testing.TB) *Backend {
	t.Helper()
	db, store := NewStore(t)
	bus := feed.NewBus(logger.NewNopLogger())
	t.Cleanup(func() { _ = bus.Close() })

	auth := NewFakeAuth()
	auth.Feed = bus
	storage := &FakeStorage{}
	answerer := &FakeAnswerer{}

	var clockMu sync.Mutex
	now := fixedNow
	client := &backend.Client{
		Auth:     auth,
		Store:    store,
		Feed:     bus,
		Storage:  storage,
		Answerer: answerer,
		Now: func() time.Time {
			clockMu.Lock()
			defer clockMu.Unlock()
			now = now.Add(time.Millisecond)
			return now
		},
	}
	return &Backend{Client: client, DB: db, Auth: auth, Storage: storage, Answerer: answerer, Bus: bus}
}
