// internal/model/delivery.go
package model

import "time"

// Delivery is one recipient's tracked instance of a campaign, created
// PENDING at fan-out and advanced by send results and webhook events.
// Unique per (campaign, subscriber).
type Delivery struct {
	ID               int            `db:"id" json:"id"`
	CampaignID       int            `db:"campaign_id" json:"campaign_id"`
	SubscriberID     int            `db:"subscriber_id" json:"subscriber_id"`
	Email            string         `db:"email" json:"email"`
	UnsubscribeToken string         `db:"unsubscribe_token" json:"-"`
	Status           DeliveryStatus `db:"status" json:"status"`

	// ProviderMessageID correlates later webhook events; first writer wins.
	ProviderMessageID       *string `db:"provider_message_id" json:"provider_message_id,omitempty"`
	ProviderResponseCode    *string `db:"provider_response_code" json:"provider_response_code,omitempty"`
	ProviderResponseMessage *string `db:"provider_response_message" json:"provider_response_message,omitempty"`

	SentAt       *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	DeliveredAt  *time.Time `db:"delivered_at" json:"delivered_at,omitempty"`
	OpenedAt     *time.Time `db:"opened_at" json:"opened_at,omitempty"`
	ClickedAt    *time.Time `db:"clicked_at" json:"clicked_at,omitempty"`
	FailedAt     *time.Time `db:"failed_at" json:"failed_at,omitempty"`
	BouncedAt    *time.Time `db:"bounced_at" json:"bounced_at,omitempty"`
	ComplainedAt *time.Time `db:"complained_at" json:"complained_at,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
