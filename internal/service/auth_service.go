package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/observability"
	"github.com/spec-kit/complaint-service/internal/ratelimit"
	"github.com/spec-kit/complaint-service/internal/repository"
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	limiter    *ratelimit.LoginLimiter
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	bcryptCost int
	tokenTTL   time.Duration
	now        func() time.Time
}

// AuthDependencies encapsulates requirements for the auth service. Limiter,
// Dispatcher and Metrics may be nil.
type AuthDependencies struct {
	UserRepo     repository.UserRepository
	TokenManager *auth.TokenManager
	Limiter      *ratelimit.LoginLimiter
	Dispatcher   events.Dispatcher
	Metrics      *observability.Metrics
	Logger       *zap.Logger
}

// RegisterInput is the data needed to create an account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     string
}

// LoginResult carries an issued access token.
type LoginResult struct {
	User        domain.User
	AccessToken string
	ExpiresAt   time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		tokenMgr:   deps.TokenManager,
		limiter:    deps.Limiter,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		bcryptCost: cfg.BcryptCost,
		tokenTTL:   cfg.AccessTokenTTL(),
		now:        time.Now,
	}
}

// Register creates a new account. Email and username must be unused, compared
// case-insensitively; the email check runs first.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	role, err := domain.ParseRole(input.Role)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Password) == "" {
		return nil, fmt.Errorf("%w: password is required", domain.ErrInvalidInput)
	}
	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	var created domain.User
	err = s.users.Mutate(ctx, func(users []domain.User) ([]domain.User, error) {
		for _, u := range users {
			if u.HasEmail(strings.TrimSpace(input.Email)) {
				return nil, domain.ErrEmailTaken
			}
		}
		for _, u := range users {
			if u.HasUsername(strings.TrimSpace(input.Username)) {
				return nil, domain.ErrUsernameTaken
			}
		}
		user, err := domain.NewUser(domain.NextUserID(users), input.Username, input.Email, hash, role)
		if err != nil {
			return nil, err
		}
		created = user
		return append(users, user), nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.Int("user_id", created.ID), zap.String("role", created.Role.String()))
	s.publishEvent(ctx, events.NewEvent(events.EventUserRegistered, 0,
		events.Actor{Email: created.Email, Role: created.Role},
		events.UserRegisteredPayload{UserID: created.ID, Username: created.Username, Role: created.Role},
		s.now()))
	return &created, nil
}

// Login authenticates by username or email and issues an access token.
// Unknown identifiers and wrong passwords fail identically.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", domain.ErrInvalidInput)
	}
	if err := s.limiter.Allow(ctx, identifier); err != nil {
		s.metrics.RecordLogin("throttled")
		return nil, err
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	var user *domain.User
	for i := range users {
		if users[i].HasUsername(identifier) || users[i].HasEmail(identifier) {
			user = &users[i]
			break
		}
	}
	if user == nil || !auth.VerifyPassword(password, user.PasswordHash) {
		s.limiter.RecordFailure(ctx, identifier)
		s.metrics.RecordLogin("failure")
		return nil, domain.ErrInvalidCredentials
	}
	s.limiter.Reset(ctx, identifier)

	token, exp, err := s.tokenMgr.Issue(user.Email, user.Username, user.Role.String(), s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	s.metrics.RecordLogin("success")
	return &LoginResult{User: *user, AccessToken: token, ExpiresAt: exp}, nil
}

func (s *AuthService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
