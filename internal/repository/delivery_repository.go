package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/wanjiru-dev/storypress-backend/internal/model"
)

// Outcome carries the optional fields of one delivery transition.
type Outcome struct {
	ProviderMessageID string
	ResponseCode      string
	ResponseMessage   string
	Timestamp         time.Time // zero means now
}

type DeliveryRepositoryInterface interface {
	// FanOut expands a campaign into one PENDING row per verified
	// subscriber. Idempotent: re-running upserts email/unsubscribe token
	// without resetting rows already advanced past PENDING. Returns the
	// campaign's resulting row count, 0 when there are no verified
	// subscribers.
	FanOut(campaignID int) (int, error)

	// ListPending returns the campaign's PENDING rows in ascending id
	// order, the send loop's work list.
	ListPending(campaignID int) ([]*model.Delivery, error)

	// ApplyOutcome advances a delivery if the transition gating allows it.
	// The provider message id is first-writer-wins and the status-specific
	// timestamp is only set on first occurrence.
	ApplyOutcome(deliveryID int, next model.DeliveryStatus, out Outcome) error

	GetByProviderMessageID(providerMessageID string) (*model.Delivery, error)
	Aggregate(campaignID int) (model.CampaignAggregates, error)
	List(campaignID, offset, limit int, status, emailQuery string) ([]*model.Delivery, int, error)
}

type DeliveryRepository struct {
	DB *sql.DB
}

const deliveryColumns = `
	id, campaign_id, subscriber_id, email, unsubscribe_token, status,
	provider_message_id, provider_response_code, provider_response_message,
	sent_at, delivered_at, opened_at, clicked_at, failed_at, bounced_at, complained_at,
	created_at, updated_at`

func scanDelivery(row interface{ Scan(...any) error }) (*model.Delivery, error) {
	var d model.Delivery
	err := row.Scan(
		&d.ID, &d.CampaignID, &d.SubscriberID, &d.Email, &d.UnsubscribeToken, &d.Status,
		&d.ProviderMessageID, &d.ProviderResponseCode, &d.ProviderResponseMessage,
		&d.SentAt, &d.DeliveredAt, &d.OpenedAt, &d.ClickedAt,
		&d.FailedAt, &d.BouncedAt, &d.ComplainedAt,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DeliveryRepository) FanOut(campaignID int) (int, error) {
	var verified int
	if err := r.DB.QueryRow(
		`SELECT COUNT(*) FROM subscribers WHERE verified = TRUE`,
	).Scan(&verified); err != nil {
		return 0, err
	}
	if verified == 0 {
		return 0, nil
	}

	// The conflict target is (campaign_id, subscriber_id); status is left
	// alone so already-processed rows are not re-armed.
	insert := `
        INSERT INTO newsletter_deliveries (campaign_id, subscriber_id, email, unsubscribe_token)
        SELECT $1, id, email, unsubscribe_token
        FROM subscribers
        WHERE verified = TRUE
        ON CONFLICT (campaign_id, subscriber_id) DO UPDATE
        SET email = EXCLUDED.email,
            unsubscribe_token = EXCLUDED.unsubscribe_token
    `
	if _, err := r.DB.Exec(insert, campaignID); err != nil {
		return 0, err
	}

	var total int
	err := r.DB.QueryRow(
		`SELECT COUNT(*) FROM newsletter_deliveries WHERE campaign_id = $1`,
		campaignID,
	).Scan(&total)
	return total, err
}

func (r *DeliveryRepository) ListPending(campaignID int) ([]*model.Delivery, error) {
	query := `SELECT ` + deliveryColumns + `
        FROM newsletter_deliveries
        WHERE campaign_id = $1 AND status = $2
        ORDER BY id ASC
    `
	rows, err := r.DB.Query(query, campaignID, model.DeliveryPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	deliveries := []*model.Delivery{}
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}

// deliveryRankSQL mirrors the rank table behind ShouldTransition so the
// transition check evaluates against the row's status at write time.
const deliveryRankSQL = `CASE status
            WHEN 'PENDING' THEN 10
            WHEN 'SENT' THEN 20
            WHEN 'DELIVERED' THEN 30
            WHEN 'OPENED' THEN 40
            WHEN 'CLICKED' THEN 50
            WHEN 'FAILED' THEN 60
            WHEN 'BOUNCED' THEN 70
            WHEN 'COMPLAINED' THEN 80
            ELSE 0
        END`

func (r *DeliveryRepository) ApplyOutcome(deliveryID int, next model.DeliveryStatus, out Outcome) error {
	if next.Rank() == 0 {
		return fmt.Errorf("unknown delivery status %q", next)
	}

	when := out.Timestamp
	if when.IsZero() {
		when = time.Now()
	}

	// Check and write are one statement: two events landing concurrently
	// both see the row's committed status, so a downgrade can never win.
	ok := fmt.Sprintf(
		`(status <> $2::text AND status NOT IN ('FAILED', 'BOUNCED', 'COMPLAINED') AND $3::int >= %s)`,
		deliveryRankSQL,
	)

	sets := []string{
		fmt.Sprintf("status = CASE WHEN %s THEN $2::text ELSE status END", ok),
		"provider_message_id = COALESCE(provider_message_id, $4::text)",
		fmt.Sprintf("provider_response_code = CASE WHEN %s AND $5::text IS NOT NULL THEN $5::text ELSE provider_response_code END", ok),
		fmt.Sprintf("provider_response_message = CASE WHEN %s AND $6::text IS NOT NULL THEN $6::text ELSE provider_response_message END", ok),
	}
	args := []interface{}{
		deliveryID, string(next), next.Rank(),
		nullableString(out.ProviderMessageID),
		nullableString(out.ResponseCode),
		nullableString(out.ResponseMessage),
	}

	// Re-delivery of the current status still stamps a missing timestamp.
	if column := model.TimestampColumn(next); column != "" {
		sets = append(sets, fmt.Sprintf(
			"%s = CASE WHEN %s OR status = $2::text THEN COALESCE(%s, $7::timestamptz) ELSE %s END",
			column, ok, column, column,
		))
		args = append(args, when)
	}
	sets = append(sets, "updated_at = NOW()")

	query := "UPDATE newsletter_deliveries SET " + strings.Join(sets, ", ") + " WHERE id = $1"
	_, err := r.DB.Exec(query, args...)
	return err
}

func nullableString(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

func (r *DeliveryRepository) GetByProviderMessageID(providerMessageID string) (*model.Delivery, error) {
	query := `SELECT ` + deliveryColumns + `
        FROM newsletter_deliveries
        WHERE provider_message_id = $1
        LIMIT 1
    `
	d, err := scanDelivery(r.DB.QueryRow(query, providerMessageID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return d, nil
}

// Aggregate recounts every delivery row of the campaign by status bucket.
// SENT and everything past it counts as sent, DELIVERED and past as
// delivered, and so on down the lifecycle.
func (r *DeliveryRepository) Aggregate(campaignID int) (model.CampaignAggregates, error) {
	query := `
        SELECT
            COUNT(*),
            COUNT(*) FILTER (WHERE status IN ('SENT', 'DELIVERED', 'OPENED', 'CLICKED')),
            COUNT(*) FILTER (WHERE status IN ('DELIVERED', 'OPENED', 'CLICKED')),
            COUNT(*) FILTER (WHERE status IN ('OPENED', 'CLICKED')),
            COUNT(*) FILTER (WHERE status = 'CLICKED'),
            COUNT(*) FILTER (WHERE status IN ('FAILED', 'BOUNCED', 'COMPLAINED')),
            COUNT(*) FILTER (WHERE status = 'BOUNCED'),
            COUNT(*) FILTER (WHERE status = 'COMPLAINED'),
            COUNT(*) FILTER (WHERE status = 'PENDING')
        FROM newsletter_deliveries
        WHERE campaign_id = $1
    `
	var a model.CampaignAggregates
	err := r.DB.QueryRow(query, campaignID).Scan(
		&a.TotalRecipients, &a.SentCount, &a.DeliveredCount, &a.OpenedCount,
		&a.ClickedCount, &a.FailedCount, &a.BouncedCount, &a.ComplainedCount,
		&a.PendingCount,
	)
	return a, err
}

func (r *DeliveryRepository) List(campaignID, offset, limit int, status, emailQuery string) ([]*model.Delivery, int, error) {
	where := ` WHERE campaign_id = $1`
	args := []interface{}{campaignID}
	argPos := 2

	if status != "" {
		where += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, status)
		argPos++
	}
	if emailQuery != "" {
		where += fmt.Sprintf(" AND email ILIKE $%d", argPos)
		args = append(args, "%"+emailQuery+"%")
		argPos++
	}

	query := `SELECT ` + deliveryColumns + ` FROM newsletter_deliveries` + where +
		fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)

	rows, err := r.DB.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	deliveries := []*model.Delivery{}
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, 0, err
		}
		deliveries = append(deliveries, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM newsletter_deliveries` + where
	if err := r.DB.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return deliveries, total, nil
}

var _ DeliveryRepositoryInterface = (*DeliveryRepository)(nil)
