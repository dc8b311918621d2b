package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shandysiswandi/passwordless/internal/auth/entity"
	"github.com/shandysiswandi/passwordless/internal/pkg/goerror"
	"github.com/shandysiswandi/passwordless/internal/pkg/hash"
	"github.com/shandysiswandi/passwordless/internal/pkg/instrument"
	"github.com/shandysiswandi/passwordless/internal/pkg/jwt"
	"github.com/shandysiswandi/passwordless/internal/pkg/validator"
)

// ---- fakes ---- //

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fakeLocker struct {
	calls int
	fail  error
}

func (l *fakeLocker) Do(ctx context.Context, key string, fn func(context.Context) error) error {
	l.calls++
	if l.fail != nil {
		return l.fail
	}
	return fn(ctx)
}

type fakeCodeGen struct {
	codes []string
	idx   int
	err   error
}

func (g *fakeCodeGen) Generate() (string, error) {
	if g.err != nil {
		return "", g.err
	}
	code := g.codes[g.idx%len(g.codes)]
	g.idx++
	return code, nil
}

type fakeNumberID struct{ seq int64 }

func (f *fakeNumberID) Generate() int64 { return atomic.AddInt64(&f.seq, 1) }

type fakeStringID struct{ seq int64 }

func (f *fakeStringID) Generate() string {
	return fmt.Sprintf("opaque-token-%d", atomic.AddInt64(&f.seq, 1))
}

type sentMessage struct {
	Method entity.DeliveryMethod
	Kind   entity.MessageKind
	Target string
	Data   map[string]string
}

type fakeNotifier struct {
	ok   bool
	sent []sentMessage
}

func (n *fakeNotifier) Send(_ context.Context, method entity.DeliveryMethod, kind entity.MessageKind, target string, data map[string]string) bool {
	n.sent = append(n.sent, sentMessage{Method: method, Kind: kind, Target: target, Data: data})
	return n.ok
}

type fakeMessaging struct {
	registered []UserRegisteredEvent
	lockedOut  []UserLockedOutEvent
	err        error
}

func (m *fakeMessaging) PublishUserRegistered(_ context.Context, msg UserRegisteredEvent) error {
	m.registered = append(m.registered, msg)
	return m.err
}

func (m *fakeMessaging) PublishUserLockedOut(_ context.Context, msg UserLockedOutEvent) error {
	m.lockedOut = append(m.lockedOut, msg)
	return m.err
}

type fakeJWT struct{ err error }

func (j *fakeJWT) Generate(uid int64, email string) (string, error) {
	if j.err != nil {
		return "", j.err
	}
	return fmt.Sprintf("jwt-%d-%s", uid, email), nil
}

func (j *fakeJWT) Verify(string) (jwt.Claims, error) { return jwt.Claims{}, nil }

// fakeConfig returns the configured value for a key or the type's zero value,
// which exercises the usecase fallbacks.
type fakeConfig struct {
	bools map[string]bool
	days  map[string]time.Duration
	ints  map[string]int32
}

func (fakeConfig) Close() error                      { return nil }
func (fakeConfig) GetSecond(string) time.Duration    { return 0 }
func (fakeConfig) GetMinute(string) time.Duration    { return 0 }
func (fakeConfig) GetHour(string) time.Duration      { return 0 }
func (c fakeConfig) GetDay(key string) time.Duration { return c.days[key] }
func (fakeConfig) GetInt(string) int                 { return 0 }
func (c fakeConfig) GetInt32(key string) int32       { return c.ints[key] }
func (fakeConfig) GetInt64(string) int64             { return 0 }
func (fakeConfig) GetUint(string) uint               { return 0 }
func (fakeConfig) GetUint16(string) uint16           { return 0 }
func (fakeConfig) GetUint32(string) uint32           { return 0 }
func (fakeConfig) GetUint64(string) uint64           { return 0 }
func (fakeConfig) GetFloat32(string) float32         { return 0 }
func (fakeConfig) GetFloat64(string) float64         { return 0 }
func (c fakeConfig) GetBool(key string) bool         { return c.bools[key] }
func (fakeConfig) GetString(string) string           { return "" }
func (fakeConfig) GetBinary(string) []byte           { return nil }
func (fakeConfig) GetArray(string) []string          { return nil }
func (fakeConfig) GetMap(string) map[string]string   { return nil }

// memDB is an in-memory repository with the same row semantics as the SQL
// layer: pending uniqueness, lazy expiry, derived lockout.
type memDB struct {
	users    map[int64]*entity.User
	otps     map[int64]*entity.OTPRequest
	sessions map[int64]*entity.UserSession
	fail     map[string]error
}

func newMemDB() *memDB {
	return &memDB{
		users:    map[int64]*entity.User{},
		otps:     map[int64]*entity.OTPRequest{},
		sessions: map[int64]*entity.UserSession{},
		fail:     map[string]error{},
	}
}

func (m *memDB) GetUserByIdentifier(_ context.Context, identifier string) (*entity.User, error) {
	if err := m.fail["GetUserByIdentifier"]; err != nil {
		return nil, err
	}
	for _, u := range m.users {
		if !u.IsActive {
			continue
		}
		if strings.EqualFold(u.Email, identifier) || (u.PhoneNumber != "" && u.PhoneNumber == identifier) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, goerror.ErrNotFound
}

func (m *memDB) GetActiveOTPRequest(_ context.Context, userID int64, now time.Time) (*entity.OTPRequest, error) {
	if err := m.fail["GetActiveOTPRequest"]; err != nil {
		return nil, err
	}
	var candidates []*entity.OTPRequest
	for _, r := range m.otps {
		if r.UserID == userID && r.Status == entity.OTPStatusPending && r.ExpiresAt.After(now) {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		return nil, goerror.ErrNotFound
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
	})
	cp := *candidates[0]
	return &cp, nil
}

func (m *memDB) GetSessionByRefreshTokenHash(_ context.Context, tokenHash string) (*entity.SessionUser, error) {
	if err := m.fail["GetSessionByRefreshTokenHash"]; err != nil {
		return nil, err
	}
	for _, s := range m.sessions {
		if s.RefreshTokenHash != tokenHash {
			continue
		}
		u, ok := m.users[s.UserID]
		if !ok {
			return nil, goerror.ErrNotFound
		}
		return &entity.SessionUser{
			SessionID:        s.ID,
			SessionExpiresAt: s.ExpiresAt,
			SessionRevokedAt: s.RevokedAt,
			UserID:           u.ID,
			UserEmail:        u.Email,
			UserIsActive:     u.IsActive,
		}, nil
	}
	return nil, goerror.ErrNotFound
}

func (m *memDB) CreateUser(_ context.Context, in entity.NewUser) error {
	if err := m.fail["CreateUser"]; err != nil {
		return err
	}
	for _, u := range m.users {
		if strings.EqualFold(u.Email, in.Email) || (in.PhoneNumber != "" && u.PhoneNumber == in.PhoneNumber) {
			return goerror.ErrConflict
		}
	}
	m.users[in.ID] = &entity.User{
		ID:          in.ID,
		Email:       in.Email,
		PhoneNumber: in.PhoneNumber,
		FullName:    in.FullName,
		IsActive:    true,
	}
	return nil
}

func (m *memDB) CreateSession(_ context.Context, in entity.UserSession) error {
	if err := m.fail["CreateSession"]; err != nil {
		return err
	}
	cp := in
	m.sessions[in.ID] = &cp
	return nil
}

func (m *memDB) NewOTPRequest(_ context.Context, in entity.OTPRequest) error {
	if err := m.fail["NewOTPRequest"]; err != nil {
		return err
	}
	for _, r := range m.otps {
		if r.UserID == in.UserID && r.Status == entity.OTPStatusPending {
			r.Status = entity.OTPStatusCancelled
		}
	}
	cp := in
	m.otps[in.ID] = &cp
	if u, ok := m.users[in.UserID]; ok {
		at := in.CreatedAt
		u.LastOTPRequestAt = &at
	}
	return nil
}

func (m *memDB) RefreshOTPRequest(_ context.Context, in entity.RefreshOTPRequest) error {
	if err := m.fail["RefreshOTPRequest"]; err != nil {
		return err
	}
	r, ok := m.otps[in.ID]
	if !ok || r.UserID != in.UserID || r.Status != entity.OTPStatusPending {
		return goerror.ErrNotFound
	}
	nextRetryAt := in.NextRetryAt
	r.CodeHash = in.CodeHash
	r.CreatedAt = in.CreatedAt
	r.ExpiresAt = in.ExpiresAt
	r.Attempts = 0
	r.RetryCount = in.RetryCount
	r.NextRetryAt = &nextRetryAt
	return nil
}

func (m *memDB) RecordFailedAttempt(_ context.Context, in entity.RecordFailedAttempt) error {
	if err := m.fail["RecordFailedAttempt"]; err != nil {
		return err
	}
	r, ok := m.otps[in.RequestID]
	if !ok {
		return goerror.ErrNotFound
	}
	r.Attempts = in.Attempts
	return nil
}

func (m *memDB) LockoutUser(_ context.Context, in entity.LockoutUser) error {
	if err := m.fail["LockoutUser"]; err != nil {
		return err
	}
	if r, ok := m.otps[in.RequestID]; ok {
		r.Status = entity.OTPStatusMaxAttemptsReached
	}
	if u, ok := m.users[in.UserID]; ok {
		until := in.BlockedUntil
		u.OTPBlockedUntil = &until
		u.OTPAttempts = 0
	}
	return nil
}

func (m *memDB) VerifyOTPRequest(_ context.Context, in entity.VerifyOTPRequest) error {
	if err := m.fail["VerifyOTPRequest"]; err != nil {
		return err
	}
	r, ok := m.otps[in.RequestID]
	if !ok || r.Status != entity.OTPStatusPending {
		return goerror.ErrNotFound
	}
	at := in.VerifiedAt
	r.Status = entity.OTPStatusVerified
	r.VerifiedAt = &at
	if u, ok := m.users[in.UserID]; ok {
		u.LastLoginAt = &at
		u.OTPAttempts = 0
		u.OTPBlockedUntil = nil
	}
	return nil
}

func (m *memDB) CancelActiveOTPRequests(_ context.Context, userID int64) error {
	if err := m.fail["CancelActiveOTPRequests"]; err != nil {
		return err
	}
	for _, r := range m.otps {
		if r.UserID == userID && r.Status == entity.OTPStatusPending {
			r.Status = entity.OTPStatusCancelled
		}
	}
	return nil
}

func (m *memDB) RotateSession(_ context.Context, in entity.RotateSession) error {
	if err := m.fail["RotateSession"]; err != nil {
		return err
	}
	s, ok := m.sessions[in.SessionID]
	if !ok || s.RevokedAt != nil {
		return goerror.ErrNotFound
	}
	at := in.LastUsedAt
	s.AccessTokenHash = in.NewAccessTokenHash
	s.RefreshTokenHash = in.NewRefreshTokenHash
	s.ExpiresAt = in.NewExpiresAt
	s.LastUsedAt = &at
	return nil
}

func (m *memDB) RevokeSession(_ context.Context, tokenHash string, at time.Time) (bool, error) {
	if err := m.fail["RevokeSession"]; err != nil {
		return false, err
	}
	for _, s := range m.sessions {
		if s.RefreshTokenHash == tokenHash && s.RevokedAt == nil {
			stamp := at
			s.RevokedAt = &stamp
			return true, nil
		}
	}
	return false, nil
}

// pendingRequests counts live rows, the single-active invariant check.
func (m *memDB) pendingRequests(userID int64, now time.Time) int {
	count := 0
	for _, r := range m.otps {
		if r.UserID == userID && r.Status == entity.OTPStatusPending && r.ExpiresAt.After(now) {
			count++
		}
	}
	return count
}

// ---- harness ---- //

type testEnv struct {
	uc        *Usecase
	db        *memDB
	clock     *fakeClock
	codeGen   *fakeCodeGen
	notifier  *fakeNotifier
	messaging *fakeMessaging
	locker    *fakeLocker
	cfg       fakeConfig
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	v10, err := validator.NewV10Validator()
	if err != nil {
		t.Fatalf("init validator: %v", err)
	}

	env := &testEnv{
		db:        newMemDB(),
		clock:     &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
		codeGen:   &fakeCodeGen{codes: []string{"111111", "222222", "333333", "444444", "555555"}},
		notifier:  &fakeNotifier{ok: true},
		messaging: &fakeMessaging{},
		locker:    &fakeLocker{},
		cfg: fakeConfig{
			bools: map[string]bool{},
			days:  map[string]time.Duration{"session.refresh_ttl_days": 7 * 24 * time.Hour},
			ints:  map[string]int32{},
		},
	}

	env.uc = New(Dependency{
		RepoDB:        env.db,
		RepoMessaging: env.messaging,
		Notifier:      env.notifier,
		Locker:        env.locker,
		Validator:     v10,
		Config:        env.cfg,
		HMAC:          hash.NewHMACSHA256("unit-test-secret"),
		CodeGen:       env.codeGen,
		UID:           &fakeNumberID{},
		OID:           &fakeStringID{},
		Clock:         env.clock,
		JWT:           &fakeJWT{},
		Instrument:    instrument.NewNoop(),
	})

	return env
}

// seedUser registers a user directly in storage.
func (e *testEnv) seedUser(t *testing.T, id int64, email, phone string) *entity.User {
	t.Helper()

	e.db.users[id] = &entity.User{
		ID:          id,
		Email:       email,
		PhoneNumber: phone,
		FullName:    "Alice Example",
		IsActive:    true,
	}

	return e.db.users[id]
}

func assertBusinessError(t *testing.T, err error, wantSubstring string) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected business error containing %q, got nil", wantSubstring)
	}

	var gerr *goerror.Error
	if !errors.As(err, &gerr) {
		t.Fatalf("expected *goerror.Error, got %T: %v", err, err)
	}
	if gerr.Type() != goerror.TypeBusiness {
		t.Errorf("error type = %v, want business", gerr.Type())
	}
	if !strings.Contains(gerr.Msg(), wantSubstring) {
		t.Errorf("error message = %q, want substring %q", gerr.Msg(), wantSubstring)
	}
}
