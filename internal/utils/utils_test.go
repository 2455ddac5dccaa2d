package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("s3cret", 42, "FRONTEND", 5)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := ParseAccessToken("s3cret", tok.Token)
	if err != nil {
		t.Fatal(err)
	}
	id, _ := claims.UserID()
	if id != 42 || claims.Role != "FRONTEND" {
		t.Fatalf("claims = %+v", claims)
	}
	if _, err := ParseAccessToken("other", tok.Token); err != ErrInvalidToken {
		t.Fatalf("wrong secret accepted: %v", err)
	}
}

func TestParseAccessTokenRejectsExpiredAndNone(t *testing.T) {
	expired, err := NewAccessToken("s", 1, "FRONTEND", -1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseAccessToken("s", expired.Token); err != ErrInvalidToken {
		t.Fatal("expired token accepted")
	}

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "1", "exp": time.Now().Add(time.Hour).Unix()})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseAccessToken("s", raw); err != ErrInvalidToken {
		t.Fatal("unsigned token accepted")
	}
}

func TestRefreshToken(t *testing.T) {
	rt, err := NewRefreshToken(7)
	if err != nil {
		t.Fatal(err)
	}
	if len(rt.Raw) != 96 {
		t.Fatalf("raw length = %d", len(rt.Raw))
	}
	if h := HashRefreshRaw(rt.Raw); len(h) != 64 || h == HashRefreshRaw(rt.Raw+"x") {
		t.Fatal("hash not a distinct sha256 hex")
	}
	if d := time.Until(rt.Exp); d < 6*24*time.Hour {
		t.Fatalf("expiry too early: %s", d)
	}
}

func TestPassword(t *testing.T) {
	h, err := HashPassword("pw", 4)
	if err != nil {
		t.Fatal(err)
	}
	if !VerifyPassword(h, "pw") || VerifyPassword(h, "PW") {
		t.Fatal("bcrypt verification wrong")
	}
}
