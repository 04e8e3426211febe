package service

import (
	"context"
	"log/slog"
	"time"

	domainauth "github.com/hustlehub/hustle-hub-app/internal/domain/auth"
	apperrors "github.com/hustlehub/hustle-hub-app/internal/errors"
	"github.com/hustlehub/hustle-hub-app/internal/observability/metrics"
	"github.com/hustlehub/hustle-hub-app/internal/observability/statsd"
	"github.com/hustlehub/hustle-hub-app/internal/ports"
)

// Fallback reasons shown when a failure carries no message of its own.
const (
	ReasonLoginFailed        = "Login failed"
	ReasonRegistrationFailed = "Registration failed"
	// ReasonLoginAfterRegister is returned when the account was created but the
	// follow-up login did not go through.
	ReasonLoginAfterRegister = "Account created, please log in"
)

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	API     ports.AuthAPI
	Session ports.IdentityWriter
	Logger  *slog.Logger
	Metrics statsd.Sink
}

// AuthService performs login, registration and logout against the remote API and
// records the outcome in the session store.
type AuthService struct {
	api     ports.AuthAPI
	session ports.IdentityWriter
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		api:     opts.API,
		session: opts.Session,
		logger:  logger.With("component", "auth_service"),
		metrics: opts.Metrics,
	}
}

// Login authenticates with email and password. On failure the identity is left untouched
// and the returned error carries a displayable reason (see errors.Reason).
func (s *AuthService) Login(ctx context.Context, in domainauth.LoginInput) (domainauth.User, error) {
	start := time.Now()
	if err := in.Validate(); err != nil {
		verr := apperrors.Wrap(err, apperrors.ErrCodeValidation, err.Error())
		s.record("login", start, verr)
		return domainauth.User{}, verr
	}

	user, err := s.api.Login(ctx, in)
	if err != nil {
		err = displayable(err, ReasonLoginFailed)
		s.record("login", start, err)
		s.logger.Info("login rejected", "reason", apperrors.Reason(err, ReasonLoginFailed))
		return domainauth.User{}, err
	}

	s.session.SetIdentity(&user)
	s.record("login", start, nil)
	s.logger.Info("login succeeded", "user_id", user.ID, "role", string(user.Role))
	return user, nil
}

// Register creates an account and then logs in with the same credentials, since the
// server does not open a session on registration. If the follow-up login fails the
// identity is left untouched and the error reads ReasonLoginAfterRegister.
func (s *AuthService) Register(ctx context.Context, in domainauth.RegisterInput) (domainauth.User, error) {
	start := time.Now()
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		verr := apperrors.Wrap(err, apperrors.ErrCodeValidation, err.Error())
		s.record("register", start, verr)
		return domainauth.User{}, verr
	}

	user, err := s.api.Register(ctx, in)
	if err != nil {
		err = displayable(err, ReasonRegistrationFailed)
		s.record("register", start, err)
		s.logger.Info("registration rejected", "reason", apperrors.Reason(err, ReasonRegistrationFailed))
		return domainauth.User{}, err
	}

	s.logger.Info("registration succeeded", "user_id", user.ID, "role", string(user.Role))

	user, err = s.api.Login(ctx, domainauth.LoginInput{Email: in.Email, Password: in.Password})
	if err != nil {
		code := apperrors.GetCode(err)
		if code == "" {
			code = apperrors.ErrCodeInternal
		}
		err = apperrors.Wrap(err, code, ReasonLoginAfterRegister)
		s.record("register", start, err)
		s.logger.Warn("login after registration failed", "error", err)
		return domainauth.User{}, err
	}

	s.session.SetIdentity(&user)
	s.record("register", start, nil)
	return user, nil
}

// Logout clears the local identity, then asks the server to drop its session.
// The local clear happens first and unconditionally; a failed server call is only logged.
func (s *AuthService) Logout(ctx context.Context) {
	start := time.Now()
	s.session.SetIdentity(nil)

	if err := s.api.Logout(ctx); err != nil {
		s.logger.Warn("server logout failed, local session cleared", "error", err)
		s.record("logout", start, err)
		return
	}
	s.record("logout", start, nil)
}

func (s *AuthService) record(op string, start time.Time, err error) {
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.EmitMutation(s.metrics, metrics.MutationMetric{
		Op:       op,
		Result:   result,
		Duration: time.Since(start),
		Err:      err,
	})
}

// displayable makes sure err carries a human-readable message.
func displayable(err error, fallback string) error {
	if apperrors.Reason(err, "") != "" {
		return err
	}
	code := apperrors.GetCode(err)
	if code == "" {
		code = apperrors.ErrCodeInternal
	}
	return apperrors.Wrap(err, code, fallback)
}
