package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/observability"
	"github.com/spec-kit/complaint-service/internal/ratelimit"
	"github.com/spec-kit/complaint-service/internal/repository"
	"github.com/spec-kit/complaint-service/internal/store"
)

type memCounter struct {
	mu     sync.Mutex
	counts map[string]int64
}

func (m *memCounter) Get(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[key], nil
}

func (m *memCounter) Incr(_ context.Context, key string, _ time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	return m.counts[key], nil
}

func (m *memCounter) TTL(context.Context, string) (time.Duration, error) { return time.Minute, nil }

func (m *memCounter) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.counts, key)
	return nil
}

type authFixture struct {
	svc        *AuthService
	users      repository.UserRepository
	tokens     *auth.TokenManager
	dispatcher *recordingDispatcher
}

func newAuthService(t *testing.T, limiter *ratelimit.LoginLimiter) authFixture {
	t.Helper()
	users := repository.NewUserRepository(store.NewMemoryBackend())
	tokens := auth.NewTokenManager("test-secret", 60)
	dispatcher := &recordingDispatcher{}
	svc := NewAuthService(config.AuthConfig{BcryptCost: bcrypt.MinCost, AccessTokenTTLMinutes: 60}, AuthDependencies{
		UserRepo:     users,
		TokenManager: tokens,
		Limiter:      limiter,
		Dispatcher:   dispatcher,
		Metrics:      observability.NewMetrics(prometheus.NewRegistry()),
		Logger:       zap.NewNop(),
	})
	return authFixture{svc: svc, users: users, tokens: tokens, dispatcher: dispatcher}
}

func register(t *testing.T, svc *AuthService, username, email, role string) *domain.User {
	t.Helper()
	user, err := svc.Register(context.Background(), RegisterInput{Username: username, Email: email, Password: "s3cret!", Role: role})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return user
}

func TestRegisterAssignsIDsAndHashesPassword(t *testing.T) {
	f := newAuthService(t, nil)
	first := register(t, f.svc, "alice", "alice@example.com", "customer")
	second := register(t, f.svc, "root", "admin@example.com", "admin")

	if first.ID != 1 || second.ID != 2 {
		t.Fatalf("unexpected ids %d, %d", first.ID, second.ID)
	}
	if first.PasswordHash == "s3cret!" || !auth.VerifyPassword("s3cret!", first.PasswordHash) {
		t.Fatal("expected stored bcrypt hash")
	}
	if second.Role != domain.RoleAdmin {
		t.Fatalf("unexpected role %q", second.Role)
	}
	if got := f.dispatcher.types(); len(got) != 2 || got[0] != events.EventUserRegistered {
		t.Fatalf("unexpected events %v", got)
	}
}

func TestRegisterRejectsDuplicatesCaseInsensitively(t *testing.T) {
	f := newAuthService(t, nil)
	register(t, f.svc, "alice", "alice@example.com", "customer")
	ctx := context.Background()

	_, err := f.svc.Register(ctx, RegisterInput{Username: "other", Email: "ALICE@example.com", Password: "x", Role: "customer"})
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected email taken, got %v", err)
	}
	_, err = f.svc.Register(ctx, RegisterInput{Username: "Alice", Email: "new@example.com", Password: "x", Role: "customer"})
	if !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("expected username taken, got %v", err)
	}
	_, err = f.svc.Register(ctx, RegisterInput{Username: "ALICE", Email: "Alice@Example.com", Password: "x", Role: "customer"})
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected email checked before username, got %v", err)
	}

	users, err := f.users.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("expected no partial writes, got %d users", len(users))
	}
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	f := newAuthService(t, nil)
	for _, role := range []string{"Admin", "staff", ""} {
		_, err := f.svc.Register(context.Background(), RegisterInput{Username: "u", Email: "u@x.io", Password: "p", Role: role})
		if !errors.Is(err, domain.ErrInvalidRole) {
			t.Fatalf("role %q: expected invalid role, got %v", role, err)
		}
	}
}

func TestConcurrentRegistrationsOfSameEmail(t *testing.T) {
	f := newAuthService(t, nil)
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Register(ctx, RegisterInput{
				Username: "user" + string(rune('a'+i)),
				Email:    "same@example.com",
				Password: "p",
				Role:     "customer",
			})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			} else if !errors.Is(err, domain.ErrEmailTaken) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()
	if successes != 1 {
		t.Fatalf("expected exactly one registration, got %d", successes)
	}
}

func TestLoginByUsernameOrEmail(t *testing.T) {
	f := newAuthService(t, nil)
	register(t, f.svc, "alice", "alice@example.com", "customer")
	ctx := context.Background()

	for _, identifier := range []string{"alice", "ALICE", "alice@example.com"} {
		result, err := f.svc.Login(ctx, identifier, "s3cret!")
		if err != nil {
			t.Fatalf("login %q: %v", identifier, err)
		}
		claims, err := f.tokens.Verify(result.AccessToken)
		if err != nil {
			t.Fatalf("verify: %v", err)
		}
		if claims.Email() != "alice@example.com" || claims.Role != "customer" || claims.Username != "alice" {
			t.Fatalf("unexpected claims %+v", claims)
		}
		if !result.ExpiresAt.Equal(claims.ExpiresAt.Time) {
			t.Fatalf("expires_at mismatch: %v vs %v", result.ExpiresAt, claims.ExpiresAt.Time)
		}
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f := newAuthService(t, nil)
	register(t, f.svc, "alice", "alice@example.com", "customer")
	ctx := context.Background()

	_, wrongPassword := f.svc.Login(ctx, "alice", "nope")
	_, unknownUser := f.svc.Login(ctx, "mallory", "nope")
	if !errors.Is(wrongPassword, domain.ErrInvalidCredentials) || !errors.Is(unknownUser, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v / %v", wrongPassword, unknownUser)
	}
	if wrongPassword.Error() != unknownUser.Error() {
		t.Fatal("expected identical error text")
	}
}

func TestLoginThrottlesRepeatedFailures(t *testing.T) {
	limiter := ratelimit.NewLoginLimiter(&memCounter{counts: map[string]int64{}}, 2, time.Minute, zap.NewNop())
	f := newAuthService(t, limiter)
	register(t, f.svc, "alice", "alice@example.com", "customer")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := f.svc.Login(ctx, "alice", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected invalid credentials, got %v", i, err)
		}
	}
	if _, err := f.svc.Login(ctx, "alice", "s3cret!"); !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected throttled login, got %v", err)
	}
}
