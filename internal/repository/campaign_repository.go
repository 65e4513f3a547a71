package repository

import (
	"database/sql"
	"fmt"
	"time"

	appErrors "github.com/wanjiru-dev/storypress-backend/internal/errors"
	"github.com/wanjiru-dev/storypress-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	Create(c *model.Campaign) error
	GetByID(id int) (*model.Campaign, error)
	List(offset, limit int, status, trigger string) ([]*model.Campaign, int, error)

	// Lifecycle writes. Each is an individually atomic read-modify-write;
	// started_at/completed_at are set at most once via COALESCE.
	MarkSending(campaignID int) error
	ForceFailed(campaignID int) error
	ForceFailedEmpty(campaignID int) error
	UpdateAggregates(campaignID int, status model.CampaignStatus, agg model.CampaignAggregates, terminal bool, eventTime *time.Time) error

	ListUnfinishedIDs() ([]int, error)
	Summary() (*model.CampaignSummary, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `
	id, trigger_type, status, subject, html_content, article_id, created_by_admin_id,
	total_recipients, sent_count, delivered_count, opened_count, clicked_count,
	failed_count, bounced_count, complained_count,
	created_at, started_at, completed_at, last_event_at`

func scanCampaign(row interface{ Scan(...any) error }) (*model.Campaign, error) {
	var c model.Campaign
	err := row.Scan(
		&c.ID, &c.TriggerType, &c.Status, &c.Subject, &c.HTMLContent,
		&c.ArticleID, &c.CreatedByAdminID,
		&c.TotalRecipients, &c.SentCount, &c.DeliveredCount, &c.OpenedCount,
		&c.ClickedCount, &c.FailedCount, &c.BouncedCount, &c.ComplainedCount,
		&c.CreatedAt, &c.StartedAt, &c.CompletedAt, &c.LastEventAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CampaignRepository) Create(c *model.Campaign) error {
	if c.Status == "" {
		c.Status = model.CampaignQueued
	}
	query := `
        INSERT INTO newsletter_campaigns
            (trigger_type, status, subject, html_content, article_id, created_by_admin_id)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at
    `
	return r.DB.QueryRow(
		query,
		c.TriggerType, c.Status, c.Subject, c.HTMLContent, c.ArticleID, c.CreatedByAdminID,
	).Scan(&c.ID, &c.CreatedAt)
}

func (r *CampaignRepository) GetByID(id int) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM newsletter_campaigns WHERE id = $1`
	c, err := scanCampaign(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return c, nil
}

// List returns one page of campaigns plus the unpaged total, newest first.
// html_content is intentionally excluded from listings.
func (r *CampaignRepository) List(offset, limit int, status, trigger string) ([]*model.Campaign, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if status != "" {
		where += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}
	if trigger != "" {
		where += fmt.Sprintf(" AND trigger_type=$%d", argPos)
		args = append(args, trigger)
		argPos++
	}

	query := `
        SELECT id, trigger_type, status, subject, article_id,
               total_recipients, sent_count, delivered_count, opened_count,
               clicked_count, failed_count,
               created_at, started_at, completed_at, last_event_at
        FROM newsletter_campaigns` + where +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)

	rows, err := r.DB.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	campaigns := []*model.Campaign{}
	for rows.Next() {
		c := &model.Campaign{}
		if err := rows.Scan(
			&c.ID, &c.TriggerType, &c.Status, &c.Subject, &c.ArticleID,
			&c.TotalRecipients, &c.SentCount, &c.DeliveredCount, &c.OpenedCount,
			&c.ClickedCount, &c.FailedCount,
			&c.CreatedAt, &c.StartedAt, &c.CompletedAt, &c.LastEventAt,
		); err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM newsletter_campaigns` + where
	if err := r.DB.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return campaigns, total, nil
}

func (r *CampaignRepository) MarkSending(campaignID int) error {
	query := `
        UPDATE newsletter_campaigns
        SET status = $1, started_at = COALESCE(started_at, NOW())
        WHERE id = $2
    `
	_, err := r.DB.Exec(query, model.CampaignSending, campaignID)
	return err
}

// ForceFailed is the unexpected-error escape hatch: a campaign must not be
// left stuck in SENDING forever.
func (r *CampaignRepository) ForceFailed(campaignID int) error {
	query := `
        UPDATE newsletter_campaigns
        SET status = $1, completed_at = COALESCE(completed_at, NOW())
        WHERE id = $2
    `
	_, err := r.DB.Exec(query, model.CampaignFailed, campaignID)
	return err
}

// ForceFailedEmpty ends a zero-recipient campaign with zeroed counts.
func (r *CampaignRepository) ForceFailedEmpty(campaignID int) error {
	query := `
        UPDATE newsletter_campaigns
        SET status = $1,
            total_recipients = 0, sent_count = 0, delivered_count = 0,
            opened_count = 0, clicked_count = 0, failed_count = 0,
            bounced_count = 0, complained_count = 0,
            completed_at = COALESCE(completed_at, NOW())
        WHERE id = $2
    `
	_, err := r.DB.Exec(query, model.CampaignFailed, campaignID)
	return err
}

// UpdateAggregates persists one recount. completed_at is only stamped the
// first time a terminal status is derived; last_event_at only advances when
// an event time is supplied.
func (r *CampaignRepository) UpdateAggregates(campaignID int, status model.CampaignStatus, agg model.CampaignAggregates, terminal bool, eventTime *time.Time) error {
	query := `
        UPDATE newsletter_campaigns
        SET status = $1,
            total_recipients = $2, sent_count = $3, delivered_count = $4,
            opened_count = $5, clicked_count = $6, failed_count = $7,
            bounced_count = $8, complained_count = $9,
            completed_at = CASE WHEN $10 THEN COALESCE(completed_at, NOW()) ELSE completed_at END,
            last_event_at = COALESCE($11, last_event_at)
        WHERE id = $12
    `
	_, err := r.DB.Exec(
		query,
		status,
		agg.TotalRecipients, agg.SentCount, agg.DeliveredCount,
		agg.OpenedCount, agg.ClickedCount, agg.FailedCount,
		agg.BouncedCount, agg.ComplainedCount,
		terminal, eventTime, campaignID,
	)
	return err
}

// ListUnfinishedIDs returns QUEUED/SENDING campaigns in creation order, the
// resume-on-boot work list.
func (r *CampaignRepository) ListUnfinishedIDs() ([]int, error) {
	query := `
        SELECT id FROM newsletter_campaigns
        WHERE status IN ($1, $2)
        ORDER BY created_at ASC, id ASC
    `
	rows, err := r.DB.Query(query, model.CampaignQueued, model.CampaignSending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *CampaignRepository) Summary() (*model.CampaignSummary, error) {
	query := `
        SELECT
            COUNT(*),
            COUNT(*) FILTER (WHERE status = 'QUEUED'),
            COUNT(*) FILTER (WHERE status = 'SENDING'),
            COUNT(*) FILTER (WHERE status = 'COMPLETED'),
            COUNT(*) FILTER (WHERE status = 'PARTIAL'),
            COUNT(*) FILTER (WHERE status = 'FAILED'),
            COALESCE(SUM(total_recipients), 0),
            COALESCE(SUM(sent_count), 0),
            COALESCE(SUM(delivered_count), 0),
            COALESCE(SUM(opened_count), 0),
            COALESCE(SUM(clicked_count), 0),
            COALESCE(SUM(failed_count), 0)
        FROM newsletter_campaigns
    `
	var s model.CampaignSummary
	err := r.DB.QueryRow(query).Scan(
		&s.TotalCampaigns, &s.QueuedCampaigns, &s.SendingCampaigns,
		&s.CompletedCampaigns, &s.PartialCampaigns, &s.FailedCampaigns,
		&s.TotalRecipients, &s.TotalSent, &s.TotalDelivered,
		&s.TotalOpened, &s.TotalClicked, &s.TotalFailed,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
