// internal/model/webhook_event.go
package model

import "time"

// WebhookEvent is the append-only audit/dedup log of provider callbacks.
// ProviderEventID is unique, which is what gives the processor its
// at-most-once guarantee.
type WebhookEvent struct {
	ID                int       `db:"id" json:"id"`
	CampaignID        *int      `db:"campaign_id" json:"campaign_id,omitempty"`
	DeliveryID        *int      `db:"delivery_id" json:"delivery_id,omitempty"`
	Provider          string    `db:"provider" json:"provider"`
	ProviderEventID   string    `db:"provider_event_id" json:"provider_event_id"`
	ProviderMessageID *string   `db:"provider_message_id" json:"provider_message_id,omitempty"`
	EventType         string    `db:"event_type" json:"event_type"`
	EventTimestamp    time.Time `db:"event_timestamp" json:"event_timestamp"`
	PayloadJSON       string    `db:"payload_json" json:"-"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}
