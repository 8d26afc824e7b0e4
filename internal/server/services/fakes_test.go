package services

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"database/sql"
	"errors"
	"regexp"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/keyexchange"
	"github.com/dmitrijs2005/gophauth/internal/server/mail"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/emailverifications"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/passwordrecovers"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
	"github.com/dmitrijs2005/gophauth/internal/server/validation"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

var testKey = sync.OnceValue(func() *rsa.PrivateKey {
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	return k
})

// --- in-memory store ---

type memStore struct {
	mu            sync.Mutex
	users         []*models.User
	verifications []models.EmailVerification
	recovers      []models.PasswordRecover
	nonces        map[string]bool

	// failure injection
	lookupErr error
	createErr error
	nonceErr  error
}

func (s *memStore) find(pred func(*models.User) bool) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	for _, u := range s.users {
		if pred(u) {
			c := *u
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

type memUsers struct{ s *memStore }

func (r memUsers) Create(ctx context.Context, u *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.createErr != nil {
		return nil, r.s.createErr
	}
	for _, x := range r.s.users {
		if x.Login == u.Login {
			return nil, common.ErrLoginTaken
		}
		if x.Email == u.Email {
			return nil, common.ErrEmailTaken
		}
	}
	c := *u
	r.s.users = append(r.s.users, &c)
	return u, nil
}

func (r memUsers) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return r.s.find(func(u *models.User) bool { return u.ID == id })
}

func (r memUsers) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	return r.s.find(func(u *models.User) bool { return u.Login == login })
}

func (r memUsers) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.s.find(func(u *models.User) bool { return u.Email == email })
}

func (r memUsers) ListCredentials(ctx context.Context) ([]models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.lookupErr != nil {
		return nil, r.s.lookupErr
	}
	out := make([]models.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		out = append(out, models.User{ID: u.ID, Login: u.Login, Verifier: u.Verifier, State: u.State})
	}
	return out, nil
}

func (r memUsers) MarkVerified(ctx context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.ID == id {
			if u.State == models.Verified {
				return false, nil
			}
			u.State = models.Verified
			return true, nil
		}
	}
	return false, nil
}

func (r memUsers) UpdateVerifier(ctx context.Context, id string, verifier string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.ID == id {
			u.Verifier = verifier
			return nil
		}
	}
	return common.ErrorNotFound
}

func (r memUsers) ClaimNonce(ctx context.Context, id, scope, nonce string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.nonceErr != nil {
		return false, r.s.nonceErr
	}
	if r.s.nonces == nil {
		r.s.nonces = map[string]bool{}
	}
	key := id + "|" + scope + "|" + nonce
	if r.s.nonces[key] {
		return false, nil
	}
	r.s.nonces[key] = true
	return true, nil
}

type memVerifications struct{ s *memStore }

func (r memVerifications) Create(ctx context.Context, v *models.EmailVerification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.verifications = append(r.s.verifications, *v)
	return nil
}

func (r memVerifications) GetByToken(ctx context.Context, token string) (*models.EmailVerification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, v := range r.s.verifications {
		if v.Token == token {
			c := v
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

type memRecovers struct{ s *memStore }

func (r memRecovers) Create(ctx context.Context, p *models.PasswordRecover) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.recovers = append(r.s.recovers, *p)
	return nil
}

func (r memRecovers) FindActiveByCode(ctx context.Context, code int, notBefore time.Time, limit int) ([]models.PasswordRecover, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.PasswordRecover
	for i := len(r.s.recovers) - 1; i >= 0 && len(out) < limit; i-- {
		p := r.s.recovers[i]
		if p.AccessCode == code && !p.CreatedAt.Before(notBefore) && p.ConsumedAt == nil {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r memRecovers) MarkConsumed(ctx context.Context, id string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.recovers {
		if r.s.recovers[i].ID == id {
			if r.s.recovers[i].ConsumedAt != nil {
				return false, nil
			}
			r.s.recovers[i].ConsumedAt = &at
			return true, nil
		}
	}
	return false, nil
}

type fakeRepoManager struct{ s *memStore }

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository        { return memUsers{m.s} }
func (m *fakeRepoManager) EmailVerifications(db dbx.DBTX) emailverifications.Repository {
	return memVerifications{m.s}
}
func (m *fakeRepoManager) PasswordRecovers(db dbx.DBTX) passwordrecovers.Repository {
	return memRecovers{m.s}
}

// --- mail and guard ---

type fakeMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (f *fakeMailer) Send(ctx context.Context, m mail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m)
	return nil
}

func (f *fakeMailer) last() mail.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return mail.Message{}
	}
	return f.sent[len(f.sent)-1]
}

type fakeGuard struct {
	seen map[string]bool
	err  error
}

func (g *fakeGuard) Claim(ctx context.Context, scope, nonce string) error {
	if g.err != nil {
		return g.err
	}
	if g.seen == nil {
		g.seen = map[string]bool{}
	}
	if g.seen[scope+"|"+nonce] {
		return common.ErrNonceReused
	}
	g.seen[scope+"|"+nonce] = true
	return nil
}

// --- environment ---

type testEnv struct {
	t      *testing.T
	db     *sql.DB
	mock   sqlmock.Sqlmock
	store  *memStore
	keys   *keyexchange.Service
	tokens *auth.TokenIssuer
	mailer *fakeMailer
	guard  *fakeGuard
	cfg    *config.Config
	now    time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	keys, err := keyexchange.New(testKey())
	require.NoError(t, err)

	e := &testEnv{
		t:      t,
		db:     db,
		mock:   mock,
		store:  &memStore{},
		keys:   keys,
		mailer: &fakeMailer{},
		guard:  &fakeGuard{},
		cfg: &config.Config{
			LoginTokenValidityDuration: time.Hour,
			EmailTokenValidityDuration: 24 * time.Hour,
			AccessCodeValidityDuration: 15 * time.Minute,
		},
		now: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	tokens, err := auth.NewTokenIssuer([]byte("test-signing-key"), "gophauth", "gophauth-clients")
	require.NoError(t, err)
	e.tokens = tokens.WithClock(e.clock)

	return e
}

func (e *testEnv) clock() time.Time { return e.now }

func (e *testEnv) deps() Deps {
	return Deps{
		DB:        e.db,
		Repos:     &fakeRepoManager{s: e.store},
		Keys:      e.keys,
		Tokens:    e.tokens,
		Guard:     e.guard,
		Mailer:    e.mailer,
		Messages:  mail.NewBuilder("gophauth", "https://auth.example/verify?token="),
		Validator: validation.New(),
		Logger:    logging.NewNopLogger(),
	}
}

func (e *testEnv) authService() *AuthService {
	s, err := NewAuthService(e.deps(), e.cfg)
	require.NoError(e.t, err)
	return s
}

func (e *testEnv) registration() *RegistrationService {
	s, err := NewRegistrationService(e.deps(), e.cfg)
	require.NoError(e.t, err)
	s.now = e.clock
	return s
}

func (e *testEnv) verification() *VerificationService {
	s, err := NewVerificationService(e.deps(), e.cfg)
	require.NoError(e.t, err)
	s.now = e.clock
	return s
}

func (e *testEnv) recovery() *RecoveryService {
	s, err := NewRecoveryService(e.deps(), e.cfg)
	require.NoError(e.t, err)
	s.now = e.clock
	return s
}

func (e *testEnv) seal(nonce, secret string) string {
	e.t.Helper()
	ct, err := cryptox.Seal(e.keys.PublicKey(), nonce, secret)
	require.NoError(e.t, err)
	return ct
}

// encrypt encrypts secret without a nonce prefix.
func (e *testEnv) encrypt(secret string) string {
	e.t.Helper()
	ct, err := e.keys.Encrypt(secret)
	require.NoError(e.t, err)
	return ct
}

func (e *testEnv) expectTx(commit bool) {
	e.mock.ExpectBegin()
	if commit {
		e.mock.ExpectCommit()
	} else {
		e.mock.ExpectRollback()
	}
}

func (e *testEnv) addUser(login, email, verifier string, state models.VerificationState) *models.User {
	u := &models.User{
		ID:           "id-" + login,
		Login:        login,
		Email:        email,
		Verifier:     verifier,
		State:        state,
		RegisteredAt: e.now,
	}
	e.store.users = append(e.store.users, u)
	return u
}

// verifierOf stands in for a client-derived verifier.
func verifierOf(seed string) string {
	sum := sha256.Sum256([]byte("pw-" + seed))
	return hex.EncodeToString(sum[:])
}

var tokenInBody = regexp.MustCompile(`<pre>([^<]+)</pre>`)
var codeInBody = regexp.MustCompile(`<strong>(\d{6})</strong>`)

func tokenFrom(t *testing.T, m mail.Message) string {
	t.Helper()
	sub := tokenInBody.FindStringSubmatch(m.Body)
	require.Len(t, sub, 2, "no token in %q", m.Body)
	return sub[1]
}

func codeFrom(t *testing.T, m mail.Message) int {
	t.Helper()
	sub := codeInBody.FindStringSubmatch(m.Body)
	require.Len(t, sub, 2, "no code in %q", m.Body)
	n, err := strconv.Atoi(sub[1])
	require.NoError(t, err)
	return n
}
