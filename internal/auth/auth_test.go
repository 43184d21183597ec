package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasherRoundTrip(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	digest, err := h.Hash("Str0ng!Pass")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if digest == "Str0ng!Pass" || !strings.HasPrefix(digest, "$2") {
		t.Fatalf("digest does not look like bcrypt: %q", digest)
	}
	if !h.Verify("Str0ng!Pass", digest) {
		t.Error("Verify rejected the right password")
	}
	if h.Verify("Wr0ng!Pass", digest) {
		t.Error("Verify accepted a wrong password")
	}
	if h.Verify("Str0ng!Pass", "not-a-digest") {
		t.Error("Verify accepted a malformed digest")
	}

	other, err := h.Hash("Str0ng!Pass")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if other == digest {
		t.Error("hashes of the same password must be salted")
	}
}

func TestNewBcryptHasherDefaultsCost(t *testing.T) {
	if got := NewBcryptHasher(0).cost; got != DefaultCost {
		t.Fatalf("cost = %d, want %d", got, DefaultCost)
	}
	if got := NewBcryptHasher(12).cost; got != 12 {
		t.Fatalf("cost = %d, want 12", got)
	}
}

func TestTokenIssuerRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", "todo-api", time.Hour)

	token, err := issuer.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if token == "" {
		t.Fatal("empty token")
	}

	userID, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("userID = %q, want user-1", userID)
	}
}

func TestTokenIssuerRejects(t *testing.T) {
	issuer := NewTokenIssuer("secret", "todo-api", time.Hour)

	expired := NewTokenIssuer("secret", "todo-api", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, err := expired.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	otherSecret, _ := NewTokenIssuer("other", "todo-api", time.Hour).Issue("user-1")
	otherIssuer, _ := NewTokenIssuer("secret", "someone-else", time.Hour).Issue("user-1")
	emptySubject, _ := issuer.Issue("")

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    "todo-api",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "user-1",
		Issuer:  "todo-api",
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	tests := map[string]string{
		"expired":       expiredToken,
		"other secret":  otherSecret,
		"other issuer":  otherIssuer,
		"empty subject": emptySubject,
		"alg none":      noneToken,
		"no expiry":     noExpiry,
		"malformed":     "not.a.token",
		"empty":         "",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := issuer.Verify(token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}
