package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shandysiswandi/passwordless/internal/auth/entity"
	"github.com/shandysiswandi/passwordless/internal/pkg/clock"
	"github.com/shandysiswandi/passwordless/internal/pkg/config"
	"github.com/shandysiswandi/passwordless/internal/pkg/goerror"
	"github.com/shandysiswandi/passwordless/internal/pkg/hash"
	"github.com/shandysiswandi/passwordless/internal/pkg/instrument"
	"github.com/shandysiswandi/passwordless/internal/pkg/jwt"
	"github.com/shandysiswandi/passwordless/internal/pkg/lock"
	"github.com/shandysiswandi/passwordless/internal/pkg/otpcode"
	"github.com/shandysiswandi/passwordless/internal/pkg/uid"
	"github.com/shandysiswandi/passwordless/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

type UserRegisteredEvent struct {
	UserID   int64
	Email    string
	FullName string
}

type UserLockedOutEvent struct {
	UserID       int64
	Email        string
	PhoneNumber  string
	FullName     string
	BlockedUntil time.Time
}

type repoMessaging interface {
	PublishUserRegistered(ctx context.Context, msg UserRegisteredEvent) error
	PublishUserLockedOut(ctx context.Context, msg UserLockedOutEvent) error
}

// notifier dispatches a message and reports plain success or failure. It
// must never panic or return an error; delivery is best effort.
type notifier interface {
	Send(ctx context.Context, method entity.DeliveryMethod, kind entity.MessageKind, target string, data map[string]string) bool
}

type repoDB interface {
	GetUserByIdentifier(ctx context.Context, identifier string) (*entity.User, error)
	GetActiveOTPRequest(ctx context.Context, userID int64, now time.Time) (*entity.OTPRequest, error)
	GetSessionByRefreshTokenHash(ctx context.Context, tokenHash string) (*entity.SessionUser, error)

	CreateUser(ctx context.Context, in entity.NewUser) error
	CreateSession(ctx context.Context, in entity.UserSession) error

	NewOTPRequest(ctx context.Context, in entity.OTPRequest) error
	RefreshOTPRequest(ctx context.Context, in entity.RefreshOTPRequest) error
	RecordFailedAttempt(ctx context.Context, in entity.RecordFailedAttempt) error
	LockoutUser(ctx context.Context, in entity.LockoutUser) error
	VerifyOTPRequest(ctx context.Context, in entity.VerifyOTPRequest) error
	CancelActiveOTPRequests(ctx context.Context, userID int64) error

	RotateSession(ctx context.Context, in entity.RotateSession) error
	RevokeSession(ctx context.Context, tokenHash string, at time.Time) (bool, error)
}

type Usecase struct {
	repoDB        repoDB
	repoMessaging repoMessaging
	notifier      notifier
	locker        lock.Locker
	validator     validator.Validator
	cfg           config.Config
	hmac          hash.Hash
	codeGen       otpcode.Generator
	uid           uid.NumberID
	oid           uid.StringID
	clock         clock.Clocker
	jwt           jwt.JWT
	ins           instrument.Instrumentation
}

type Dependency struct {
	RepoDB        repoDB
	RepoMessaging repoMessaging
	Notifier      notifier
	Locker        lock.Locker
	Validator     validator.Validator
	Config        config.Config
	HMAC          hash.Hash
	CodeGen       otpcode.Generator
	UID           uid.NumberID
	OID           uid.StringID
	Clock         clock.Clocker
	JWT           jwt.JWT
	Instrument    instrument.Instrumentation
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		repoDB:        dep.RepoDB,
		repoMessaging: dep.RepoMessaging,
		notifier:      dep.Notifier,
		locker:        dep.Locker,
		validator:     dep.Validator,
		cfg:           dep.Config,
		hmac:          dep.HMAC,
		codeGen:       dep.CodeGen,
		uid:           dep.UID,
		oid:           dep.OID,
		clock:         dep.Clock,
		jwt:           dep.JWT,
		ins:           dep.Instrument,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("auth.usecase").Start(ctx, name)
}

// withUserLock serializes OTP mutations per identifier so two concurrent
// requests for the same user cannot interleave read-then-write.
func (s *Usecase) withUserLock(ctx context.Context, identifier string, fn func(context.Context) error) error {
	key := "otp:user:" + strings.ToLower(strings.TrimSpace(identifier))

	err := s.locker.Do(ctx, key, fn)
	if errors.Is(err, lock.ErrNotAcquired) {
		slog.WarnContext(ctx, "otp lease contention", "identifier", identifier)
		return goerror.NewBusiness("Another OTP operation is in progress, please retry", goerror.CodeBadRequest)
	}

	return err
}

// resolveUser finds a user by email or phone number.
func (s *Usecase) resolveUser(ctx context.Context, identifier string) (*entity.User, error) {
	user, err := s.repoDB.GetUserByIdentifier(ctx, strings.TrimSpace(identifier))
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "user account not found", "identifier", identifier)
		return nil, goerror.NewBusiness("User not found", goerror.CodeBadRequest)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by identifier", "identifier", identifier, "error", err)
		return nil, goerror.NewServer(err)
	}

	return user, nil
}

// ensureNotBlocked rejects callers inside a lockout window.
func (s *Usecase) ensureNotBlocked(ctx context.Context, user *entity.User) error {
	now := s.clock.Now()
	if user.IsBlocked(now) {
		slog.WarnContext(ctx, "user is inside otp lockout window",
			"user_id", user.ID, "blocked_until", user.OTPBlockedUntil)
		return goerror.NewBusiness(
			"Account temporarily blocked until "+user.OTPBlockedUntil.UTC().Format(time.RFC3339),
			goerror.CodeBadRequest,
		)
	}

	return nil
}

// retryIntervals reads the escalating backoff schedule from configuration,
// falling back to 30/60/90 seconds when unset or malformed.
func (s *Usecase) retryIntervals() []time.Duration {
	raw := s.cfg.GetArray("otp.retry_intervals_seconds")

	intervals := lo.FilterMap(raw, func(v string, _ int) (time.Duration, bool) {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n <= 0 {
			return 0, false
		}
		return time.Duration(n) * time.Second, true
	})

	if len(intervals) == 0 {
		intervals = []time.Duration{30 * time.Second, 60 * time.Second, 90 * time.Second}
	}

	return intervals
}

func (s *Usecase) maxRetries() int32 {
	if v := s.cfg.GetInt32("otp.max_retries"); v > 0 {
		return v
	}
	return 3
}

func (s *Usecase) maxAttempts() int32 {
	if v := s.cfg.GetInt32("otp.max_attempts"); v > 0 {
		return v
	}
	return 3
}

func (s *Usecase) otpExpiry() time.Duration {
	if v := s.cfg.GetMinute("otp.expiry_minutes"); v > 0 {
		return v
	}
	return 5 * time.Minute
}

// expiryMinutes renders the expiry window as whole minutes for message
// templates.
func (s *Usecase) expiryMinutes() string {
	return strconv.Itoa(int(s.otpExpiry().Minutes()))
}

func (s *Usecase) lockoutDuration() time.Duration {
	if v := s.cfg.GetMinute("otp.lockout_minutes"); v > 0 {
		return v
	}
	return 15 * time.Minute
}

// accessTTL is the access-token lifetime, which is also the expiry surfaced
// to callers. The same key drives the JWT issuer, so the two never diverge.
func (s *Usecase) accessTTL() time.Duration {
	if v := s.cfg.GetMinute("session.access_ttl_minutes"); v > 0 {
		return v
	}
	return time.Hour
}

// refreshTTL bounds how long the session row accepts refreshes.
func (s *Usecase) refreshTTL() time.Duration {
	if v := s.cfg.GetDay("session.refresh_ttl_days"); v > 0 {
		return v
	}
	return 7 * 24 * time.Hour
}
