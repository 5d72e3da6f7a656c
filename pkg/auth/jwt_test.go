package auth

import (
	"testing"
	"time"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	token, err := NewAccessToken(3, "a@x.com", "user", "secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	claims, err := Parse(token, "secret")
	if err != nil {
		t.Fatal(err)
	}
	if claims.Sub != 3 || claims.Email != "a@x.com" || claims.Role != "user" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := NewAccessToken(3, "a@x.com", "user", "secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Parse(token, "other-secret"); err == nil {
		t.Fatal("expected error for wrong secret")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	token, err := NewAccessToken(3, "a@x.com", "user", "secret", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Parse(token, "secret"); err == nil {
		t.Fatal("expected error for expired token")
	}
}
