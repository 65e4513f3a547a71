package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"testing"
	"time"
)

func signHex(secret []byte, payload string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func signBase64(secret []byte, payload string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func freshTimestamp() string {
	return fmt.Sprintf("%d", time.Now().Unix())
}

func TestVerifySignatureAcceptsValidHexSignature(t *testing.T) {
	secret := "test-secret"
	body := []byte(`{"type":"email.delivered"}`)
	ts := freshTimestamp()

	ok, reason := VerifySignature(secret, VerifyInput{
		RawBody:   body,
		Signature: "v1=" + signHex([]byte(secret), ts+"."+string(body)),
		Timestamp: ts,
	})
	if !ok {
		t.Fatalf("expected signature to verify, got reason %q", reason)
	}
}

func TestVerifySignatureAcceptsWhsecPrefixedSecret(t *testing.T) {
	raw := []byte("abcdef0123456789")
	secret := "whsec_" + base64.StdEncoding.EncodeToString(raw)
	body := []byte(`{"type":"email.bounced"}`)
	ts := freshTimestamp()

	// Signed with the decoded secret bytes, the way svix does it.
	ok, reason := VerifySignature(secret, VerifyInput{
		RawBody:   body,
		Signature: "v1=" + signBase64(raw, "evt_1."+ts+"."+string(body)),
		Timestamp: ts,
		EventID:   "evt_1",
	})
	if !ok {
		t.Fatalf("expected signature to verify, got reason %q", reason)
	}
}

func TestVerifySignatureAcceptsBareSignatureToken(t *testing.T) {
	secret := "test-secret"
	body := []byte(`{"type":"email.opened"}`)
	ts := freshTimestamp()

	ok, reason := VerifySignature(secret, VerifyInput{
		RawBody:   body,
		Signature: signHex([]byte(secret), ts+"."+string(body)),
		Timestamp: ts,
	})
	if !ok {
		t.Fatalf("expected signature to verify, got reason %q", reason)
	}
}

func TestVerifySignatureAcceptsMillisecondTimestamp(t *testing.T) {
	secret := "test-secret"
	body := []byte(`{}`)
	ts := fmt.Sprintf("%d", time.Now().UnixMilli())

	ok, reason := VerifySignature(secret, VerifyInput{
		RawBody:   body,
		Signature: "v1=" + signHex([]byte(secret), ts+"."+string(body)),
		Timestamp: ts,
	})
	if !ok {
		t.Fatalf("expected millisecond timestamp to be accepted, got reason %q", reason)
	}
}

func TestVerifySignatureRejectsWrongSecret(t *testing.T) {
	body := []byte(`{}`)
	ts := freshTimestamp()

	ok, reason := VerifySignature("right-secret", VerifyInput{
		RawBody:   body,
		Signature: "v1=" + signHex([]byte("wrong-secret"), ts+"."+string(body)),
		Timestamp: ts,
	})
	if ok {
		t.Fatal("expected verification to fail for wrong secret")
	}
	if reason != "webhook signature verification failed" {
		t.Errorf("unexpected reason: %q", reason)
	}
}

func TestVerifySignatureRejectsStaleTimestamp(t *testing.T) {
	secret := "test-secret"
	body := []byte(`{}`)
	ts := fmt.Sprintf("%d", time.Now().Add(-10*time.Minute).Unix())

	ok, reason := VerifySignature(secret, VerifyInput{
		RawBody:   body,
		Signature: "v1=" + signHex([]byte(secret), ts+"."+string(body)),
		Timestamp: ts,
	})
	if ok {
		t.Fatal("expected verification to fail for stale timestamp")
	}
	if reason == "" {
		t.Error("expected a rejection reason")
	}
}

func TestVerifySignatureRejectsMissingHeaders(t *testing.T) {
	if ok, _ := VerifySignature("secret", VerifyInput{RawBody: []byte(`{}`)}); ok {
		t.Fatal("expected verification to fail without headers")
	}
}

func TestVerifySignatureRejectsEmptySecret(t *testing.T) {
	ok, reason := VerifySignature("  ", VerifyInput{
		RawBody:   []byte(`{}`),
		Signature: "v1=deadbeef",
		Timestamp: freshTimestamp(),
	})
	if ok {
		t.Fatal("expected verification to fail without a secret")
	}
	if reason != "webhook secret is not configured" {
		t.Errorf("unexpected reason: %q", reason)
	}
}
