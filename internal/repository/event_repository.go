package repository

import (
	"database/sql"

	"github.com/lib/pq"

	appErrors "github.com/wanjiru-dev/storypress-backend/internal/errors"
	"github.com/wanjiru-dev/storypress-backend/internal/model"
)

type EventRepositoryInterface interface {
	// Insert appends one webhook event. A provider event id collision
	// returns ErrDuplicateEvent, which is how replays are detected.
	Insert(e *model.WebhookEvent) error
}

type EventRepository struct {
	DB *sql.DB
}

func (r *EventRepository) Insert(e *model.WebhookEvent) error {
	query := `
        INSERT INTO newsletter_events
            (campaign_id, delivery_id, provider, provider_event_id,
             provider_message_id, event_type, event_timestamp, payload_json)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, created_at
    `
	err := r.DB.QueryRow(
		query,
		e.CampaignID, e.DeliveryID, e.Provider, e.ProviderEventID,
		e.ProviderMessageID, e.EventType, e.EventTimestamp, e.PayloadJSON,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return appErrors.ErrDuplicateEvent
		}
		return err
	}
	return nil
}

var _ EventRepositoryInterface = (*EventRepository)(nil)
