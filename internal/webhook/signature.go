package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Providers rotate between raw, "whsec_"-prefixed, and base64-encoded
// secrets, and sign either "timestamp.body" or "eventId.timestamp.body",
// rendering digests as hex or base64. The verifier accepts anything a
// legitimate request could produce and compares every combination in
// constant time.

const maxWebhookAge = 5 * time.Minute

const secretPrefix = "whsec_"

// VerifyInput is the raw request material needed for verification. RawBody
// must be the exact bytes as received, pre-JSON-parse.
type VerifyInput struct {
	RawBody   []byte
	Signature string
	Timestamp string
	EventID   string
}

// VerifySignature checks authenticity and freshness of a provider callback.
// The reason is only meaningful when ok is false.
func VerifySignature(secret string, in VerifyInput) (ok bool, reason string) {
	secretCandidates := buildSecretCandidates(secret)
	if len(secretCandidates) == 0 {
		return false, "webhook secret is not configured"
	}

	if in.Signature == "" || in.Timestamp == "" {
		return false, "missing webhook signature headers"
	}

	if reason := checkTimestamp(in.Timestamp); reason != "" {
		return false, reason
	}

	received := extractSignatureCandidates(in.Signature)
	if len(received) == 0 {
		return false, "no signature candidates found"
	}

	payloads := []string{}
	if in.EventID != "" {
		payloads = append(payloads, in.EventID+"."+in.Timestamp+"."+string(in.RawBody))
	}
	payloads = append(payloads, in.Timestamp+"."+string(in.RawBody))

	expected := []string{}
	for _, payload := range payloads {
		for _, candidate := range secretCandidates {
			mac := hmac.New(sha256.New, candidate)
			mac.Write([]byte(payload))
			digest := mac.Sum(nil)
			expected = append(expected, hex.EncodeToString(digest))
			expected = append(expected, base64.StdEncoding.EncodeToString(digest))
		}
	}

	for _, sig := range received {
		for _, want := range expected {
			if hmac.Equal([]byte(sig), []byte(want)) {
				return true, ""
			}
		}
	}

	return false, "webhook signature verification failed"
}

func buildSecretCandidates(secret string) [][]byte {
	candidates := [][]byte{}
	trimmed := strings.TrimSpace(secret)
	if trimmed == "" {
		return candidates
	}
	candidates = append(candidates, []byte(trimmed))

	unprefixed := strings.TrimPrefix(trimmed, secretPrefix)
	if unprefixed != trimmed && unprefixed != "" {
		candidates = append(candidates, []byte(unprefixed))
	}

	if decoded, err := base64.StdEncoding.DecodeString(unprefixed); err == nil && len(decoded) > 0 {
		candidates = append(candidates, decoded)
	}

	return candidates
}

// checkTimestamp bounds the replay window. Millisecond timestamps are
// normalized to seconds; a non-numeric header skips the check rather than
// rejecting, matching the provider's looser variants.
func checkTimestamp(header string) string {
	ts, err := strconv.ParseInt(header, 10, 64)
	if err != nil {
		return ""
	}

	if ts > 1_000_000_000_000 {
		ts /= 1000
	}

	drift := time.Now().Unix() - ts
	if drift < 0 {
		drift = -drift
	}
	if drift > int64(maxWebhookAge.Seconds()) {
		return fmt.Sprintf("webhook timestamp is outside the %s window", maxWebhookAge)
	}
	return ""
}

// extractSignatureCandidates splits the header into candidate tokens.
// Providers send one or more space/comma separated values, some prefixed
// "v1=", "v1," or "v1:".
func extractSignatureCandidates(header string) []string {
	segments := []string{}
	for _, part := range strings.Fields(header) {
		segments = append(segments, strings.Split(part, ",")...)
	}

	signatures := []string{}
	for _, segment := range segments {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		switch {
		case strings.HasPrefix(segment, "v1="),
			strings.HasPrefix(segment, "v1,"),
			strings.HasPrefix(segment, "v1:"):
			signatures = append(signatures, segment[3:])
		case strings.HasPrefix(segment, "v1"):
			signatures = append(signatures, segment[2:])
		case !strings.Contains(segment, "="):
			signatures = append(signatures, segment)
		}
	}

	out := signatures[:0]
	for _, s := range signatures {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
