// internal/controller/newsletter_controller.go
package controller

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	appErrors "github.com/wanjiru-dev/storypress-backend/internal/errors"
	"github.com/wanjiru-dev/storypress-backend/internal/mailer"
	"github.com/wanjiru-dev/storypress-backend/internal/repository"
	"github.com/wanjiru-dev/storypress-backend/internal/webhook"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NewsletterController serves the public subscribe, verify, unsubscribe
// and provider webhook endpoints.
type NewsletterController struct {
	Subscribers   repository.SubscriberRepositoryInterface
	Mailer        mailer.Sender
	Processor     *webhook.Processor
	WebhookSecret string
	BaseURL       string
	Log           zerolog.Logger
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Subscribe registers an email address and sends a verification email.
func (c *NewsletterController) Subscribe(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	email := strings.ToLower(strings.TrimSpace(body.Email))
	if !emailPattern.MatchString(email) {
		writeError(w, http.StatusBadRequest, "A valid email address is required")
		return
	}

	verifyToken, err := randomToken()
	if err != nil {
		c.Log.Error().Err(err).Msg("failed to generate verify token")
		writeError(w, http.StatusInternalServerError, "Failed to subscribe")
		return
	}
	unsubscribeToken, err := randomToken()
	if err != nil {
		c.Log.Error().Err(err).Msg("failed to generate unsubscribe token")
		writeError(w, http.StatusInternalServerError, "Failed to subscribe")
		return
	}

	if err := c.Subscribers.Create(email, verifyToken, unsubscribeToken); err != nil {
		if errors.Is(err, appErrors.ErrDuplicateSubscriber) {
			writeJSON(w, http.StatusOK, map[string]string{"message": "Already subscribed"})
			return
		}
		c.Log.Error().Err(err).Msg("failed to create subscriber")
		writeError(w, http.StatusInternalServerError, "Failed to subscribe")
		return
	}

	verifyLink := fmt.Sprintf("%s/api/newsletter/verify/%s", strings.TrimRight(c.BaseURL, "/"), verifyToken)
	html := fmt.Sprintf(
		`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">`+
			`<h2>Confirm your subscription</h2>`+
			`<p>Click the button below to confirm your newsletter subscription.</p>`+
			`<p><a href="%s" style="display: inline-block; padding: 12px 24px; background-color: #1a73e8; color: #ffffff; text-decoration: none; border-radius: 4px;">Confirm subscription</a></p>`+
			`<p style="color: #999999; font-size: 12px;">If you did not request this, you can ignore this email.</p>`+
			`</div>`, verifyLink)

	if _, err := c.Mailer.Send(r.Context(), email, "Confirm your newsletter subscription", html, nil); err != nil {
		c.Log.Error().Err(err).Str("email", email).Msg("failed to send verification email")
		if delErr := c.Subscribers.DeleteUnverified(email, verifyToken); delErr != nil {
			c.Log.Error().Err(delErr).Str("email", email).Msg("failed to clean up unverified subscriber")
		}
		writeError(w, http.StatusInternalServerError, "Failed to send verification email")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "Subscribed. Please check your email to confirm.",
	})
}

// Verify confirms a pending subscription by token.
func (c *NewsletterController) Verify(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(chi.URLParam(r, "token"))
	if token == "" {
		writeError(w, http.StatusBadRequest, "Verification token is required")
		return
	}

	ok, err := c.Subscribers.Verify(token)
	if err != nil {
		c.Log.Error().Err(err).Msg("failed to verify subscriber")
		writeError(w, http.StatusInternalServerError, "Failed to verify subscription")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Invalid or expired verification token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Subscription confirmed"})
}

// Unsubscribe removes a subscriber by unsubscribe token.
func (c *NewsletterController) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(chi.URLParam(r, "token"))
	if token == "" {
		writeError(w, http.StatusBadRequest, "Unsubscribe token is required")
		return
	}

	ok, err := c.Subscribers.DeleteByUnsubscribeToken(token)
	if err != nil {
		c.Log.Error().Err(err).Msg("failed to unsubscribe")
		writeError(w, http.StatusInternalServerError, "Failed to unsubscribe")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Invalid unsubscribe token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Unsubscribed"})
}

func webhookHeader(r *http.Request, names ...string) string {
	for _, name := range names {
		if v := r.Header.Get(name); v != "" {
			return v
		}
	}
	return ""
}

// ResendWebhook verifies and applies a delivery event from the email
// provider. The raw body bytes are read before any parsing so the
// signature check sees exactly what was signed.
func (c *NewsletterController) ResendWebhook(w http.ResponseWriter, r *http.Request) {
	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	in := webhook.VerifyInput{
		RawBody:   rawBody,
		Signature: webhookHeader(r, "resend-signature", "svix-signature"),
		Timestamp: webhookHeader(r, "resend-timestamp", "svix-timestamp"),
		EventID:   webhookHeader(r, "resend-id", "svix-id"),
	}
	if ok, reason := webhook.VerifySignature(c.WebhookSecret, in); !ok {
		c.Log.Warn().Str("reason", reason).Msg("rejected webhook")
		writeError(w, http.StatusUnauthorized, reason)
		return
	}

	result, err := c.Processor.ApplyEvent(rawBody)
	if err != nil {
		c.Log.Error().Err(err).Msg("failed to process webhook event")
		writeError(w, http.StatusInternalServerError, "Failed to process webhook event")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":        true,
		"duplicate": result.Duplicate,
		"processed": result.Processed,
	})
}
