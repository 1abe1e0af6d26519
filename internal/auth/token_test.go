package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestIssueAndVerify(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tm := NewTokenManager("secret", 0, WithClock(fixedNow(now)))

	token, exp, err := tm.Issue("alice@example.com", "alice", "customer", 0)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !exp.Equal(now.Add(DefaultTokenTTL)) {
		t.Fatalf("expected default ttl, got %v", exp)
	}
	claims, err := tm.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Email() != "alice@example.com" || claims.Username != "alice" || claims.Role != "customer" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.IssuedAt == nil || !claims.IssuedAt.Time.Equal(now) {
		t.Fatalf("unexpected iat %v", claims.IssuedAt)
	}
}

func TestVerifyExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := now
	tm := NewTokenManager("secret", 60, WithClock(func() time.Time { return clock }))

	token, exp, err := tm.Issue("a@x.io", "a", "admin", time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	clock = exp.Add(-time.Second)
	if _, err := tm.Verify(token); err != nil {
		t.Fatalf("expected valid before exp, got %v", err)
	}
	clock = exp
	if _, err := tm.Verify(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected expired at exp, got %v", err)
	}
	clock = exp.Add(time.Hour)
	if _, err := tm.Verify(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected expired after exp, got %v", err)
	}
}

func TestIssueRoundsExpiryUpToWholeSecond(t *testing.T) {
	issued := time.Date(2024, 1, 1, 12, 0, 0, 900_000_000, time.UTC)
	clock := issued
	tm := NewTokenManager("secret", 60, WithClock(func() time.Time { return clock }))

	token, exp, err := tm.Issue("a@x.io", "a", "customer", time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	want := time.Date(2024, 1, 1, 12, 1, 1, 0, time.UTC)
	if !exp.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, exp)
	}

	clock = issued.Add(59*time.Second + 500*time.Millisecond)
	claims, err := tm.Verify(token)
	if err != nil {
		t.Fatalf("expected valid before ttl elapses, got %v", err)
	}
	if !claims.ExpiresAt.Time.Equal(exp) {
		t.Fatalf("token exp %v differs from returned %v", claims.ExpiresAt.Time, exp)
	}

	clock = issued.Add(time.Minute)
	if _, err := tm.Verify(token); err != nil {
		t.Fatalf("expected valid when ttl just elapsed within the rounded second, got %v", err)
	}
	clock = exp
	if _, err := tm.Verify(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected expired at exp, got %v", err)
	}
}

func TestVerifyRejectsTampering(t *testing.T) {
	tm := NewTokenManager("secret", 60)
	token, _, err := tm.Issue("a@x.io", "a", "customer", 0)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	parts := strings.Split(token, ".")
	payload := []byte(parts[1])
	mid := len(payload) / 2
	if payload[mid] == 'A' {
		payload[mid] = 'B'
	} else {
		payload[mid] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]
	if _, err := tm.Verify(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}

	other := NewTokenManager("other-secret", 60)
	if _, err := other.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token for wrong secret, got %v", err)
	}

	if _, err := tm.Verify("garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token for garbage, got %v", err)
	}
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	claims := &Claims{
		Role:     "admin",
		Username: "a",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "a@x.io",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := NewTokenManager("secret", 60).Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token for HS512, got %v", err)
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := NewTokenManager("secret", 60).Verify(none); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token for alg none, got %v", err)
	}
}

func TestVerifyRequiresClaims(t *testing.T) {
	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))
	cases := map[string]*Claims{
		"missing role":     {Username: "a", RegisteredClaims: jwt.RegisteredClaims{Subject: "a@x.io", ExpiresAt: exp}},
		"missing username": {Role: "admin", RegisteredClaims: jwt.RegisteredClaims{Subject: "a@x.io", ExpiresAt: exp}},
		"missing subject":  {Role: "admin", Username: "a", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: exp}},
		"missing exp":      {Role: "admin", Username: "a", RegisteredClaims: jwt.RegisteredClaims{Subject: "a@x.io"}},
	}
	tm := NewTokenManager("secret", 60)
	for name, claims := range cases {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		if err != nil {
			t.Fatalf("%s: sign: %v", name, err)
		}
		if _, err := tm.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: expected invalid token, got %v", name, err)
		}
	}
}
