// Package webhook verifies and applies the provider's asynchronous,
// possibly-duplicated, possibly out-of-order delivery events.
package webhook

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	appErrors "github.com/wanjiru-dev/storypress-backend/internal/errors"
	"github.com/wanjiru-dev/storypress-backend/internal/model"
	"github.com/wanjiru-dev/storypress-backend/internal/repository"
)

const providerName = "resend"

// Lookup paths tried in order against the payload. The provider's schema
// varies by event family; the fallback order is a compatibility contract.
var (
	eventIDPaths   = []string{"id", "event_id", "data.id", "data.event_id"}
	messageIDPaths = []string{
		"data.email_id", "data.emailId",
		"email_id", "emailId",
		"message_id", "messageId",
		"data.message_id", "data.messageId",
	}
	eventTypePaths = []string{"type", "event", "name"}
	eventTimePaths = []string{"created_at", "createdAt", "timestamp", "data.created_at", "data.createdAt"}
)

// Result distinguishes a replayed event from a processed one, so the HTTP
// layer can answer both with 200 while reporting what happened.
type Result struct {
	Duplicate bool `json:"duplicate"`
	Processed bool `json:"processed"`
}

// AggregateRecomputer is satisfied by the campaign orchestrator.
type AggregateRecomputer interface {
	RecomputeAggregates(campaignID int, eventTime *time.Time) (model.CampaignStatus, error)
}

type Processor struct {
	Deliveries repository.DeliveryRepositoryInterface
	Events     repository.EventRepositoryInterface
	Recomputer AggregateRecomputer
	Log        zerolog.Logger
}

// ApplyEvent records one verified provider event and, when it resolves to a
// delivery and maps to a status, advances the ledger and the campaign
// rollup. Replays (same provider event id) are no-ops.
func (p *Processor) ApplyEvent(rawBody []byte) (*Result, error) {
	eventID := extractEventID(rawBody)
	messageID := extractString(rawBody, messageIDPaths)
	eventType := strings.ToLower(strings.TrimSpace(extractString(rawBody, eventTypePaths)))
	eventTime := extractEventTime(rawBody)

	var delivery *model.Delivery
	if messageID != "" {
		var err error
		delivery, err = p.Deliveries.GetByProviderMessageID(messageID)
		if err != nil {
			return nil, err
		}
	}

	event := &model.WebhookEvent{
		Provider:        providerName,
		ProviderEventID: eventID,
		EventType:       eventType,
		EventTimestamp:  eventTime,
		PayloadJSON:     string(rawBody),
	}
	if eventType == "" {
		event.EventType = "unknown"
	}
	if messageID != "" {
		event.ProviderMessageID = &messageID
	}
	if delivery != nil {
		event.CampaignID = &delivery.CampaignID
		event.DeliveryID = &delivery.ID
	}

	if err := p.Events.Insert(event); err != nil {
		if errors.Is(err, appErrors.ErrDuplicateEvent) {
			p.Log.Debug().Str("provider_event_id", eventID).Msg("duplicate webhook event ignored")
			return &Result{Duplicate: true, Processed: false}, nil
		}
		return nil, err
	}

	nextStatus := MapEventType(eventType)
	if delivery == nil || nextStatus == "" {
		// Recorded for audit, nothing to apply.
		return &Result{Duplicate: false, Processed: true}, nil
	}

	if err := p.Deliveries.ApplyOutcome(delivery.ID, nextStatus, repository.Outcome{
		ProviderMessageID: messageID,
		Timestamp:         eventTime,
	}); err != nil {
		return nil, err
	}

	if _, err := p.Recomputer.RecomputeAggregates(delivery.CampaignID, &eventTime); err != nil {
		return nil, err
	}

	return &Result{Duplicate: false, Processed: true}, nil
}

// MapEventType classifies a normalized provider event type by substring.
// First match wins; the precedence (click before open before deliver, and
// so on) is a behavioral contract with the provider integration.
func MapEventType(eventType string) model.DeliveryStatus {
	switch {
	case eventType == "":
		return ""
	case strings.Contains(eventType, "click"):
		return model.DeliveryClicked
	case strings.Contains(eventType, "open"):
		return model.DeliveryOpened
	case strings.Contains(eventType, "deliver"):
		return model.DeliveryDelivered
	case strings.Contains(eventType, "bounce"):
		return model.DeliveryBounced
	case strings.Contains(eventType, "complaint"), strings.Contains(eventType, "spam"):
		return model.DeliveryComplained
	case strings.Contains(eventType, "fail"), strings.Contains(eventType, "reject"):
		return model.DeliveryFailed
	case strings.Contains(eventType, "sent"):
		return model.DeliverySent
	}
	return ""
}

// extractEventID prefers an explicit id field; otherwise the raw body hash
// serves as the dedup key, so even id-less events are replay-protected.
func extractEventID(rawBody []byte) string {
	if id := extractString(rawBody, eventIDPaths); id != "" {
		return id
	}
	sum := sha256.Sum256(rawBody)
	return "derived_" + hex.EncodeToString(sum[:])
}

func extractString(rawBody []byte, paths []string) string {
	for _, path := range paths {
		result := gjson.GetBytes(rawBody, path)
		if !result.Exists() {
			continue
		}
		if value := strings.TrimSpace(result.String()); value != "" {
			return value
		}
	}
	return ""
}

func extractEventTime(rawBody []byte) time.Time {
	for _, path := range eventTimePaths {
		result := gjson.GetBytes(rawBody, path)
		if !result.Exists() {
			continue
		}
		if t, ok := parseEventTime(result); ok {
			return t
		}
	}
	return time.Now()
}

func parseEventTime(result gjson.Result) (time.Time, bool) {
	if result.Type == gjson.Number {
		epoch := result.Int()
		if epoch <= 0 {
			return time.Time{}, false
		}
		if epoch > 1_000_000_000_000 {
			return time.UnixMilli(epoch), true
		}
		return time.Unix(epoch, 0), true
	}

	value := strings.TrimSpace(result.String())
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
