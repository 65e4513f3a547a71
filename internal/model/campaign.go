// internal/model/campaign.go
package model

import "time"

// Trigger types: an admin composing a campaign by hand, or an article
// publish fanning one out automatically.
const (
	TriggerManual      = "MANUAL"
	TriggerAutoArticle = "AUTO_ARTICLE"
)

type Campaign struct {
	ID               int            `db:"id" json:"id"`
	TriggerType      string         `db:"trigger_type" json:"trigger_type"`
	Status           CampaignStatus `db:"status" json:"status"`
	Subject          string         `db:"subject" json:"subject"`
	HTMLContent      string         `db:"html_content" json:"html_content,omitempty"`
	ArticleID        *int           `db:"article_id" json:"article_id,omitempty"`
	CreatedByAdminID *int           `db:"created_by_admin_id" json:"created_by_admin_id,omitempty"`

	// Aggregates are a read-mostly cache recomputed from the delivery rows.
	TotalRecipients int `db:"total_recipients" json:"total_recipients"`
	SentCount       int `db:"sent_count" json:"sent_count"`
	DeliveredCount  int `db:"delivered_count" json:"delivered_count"`
	OpenedCount     int `db:"opened_count" json:"opened_count"`
	ClickedCount    int `db:"clicked_count" json:"clicked_count"`
	FailedCount     int `db:"failed_count" json:"failed_count"`
	BouncedCount    int `db:"bounced_count" json:"bounced_count"`
	ComplainedCount int `db:"complained_count" json:"complained_count"`

	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	StartedAt   *time.Time `db:"started_at" json:"started_at,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	LastEventAt *time.Time `db:"last_event_at" json:"last_event_at,omitempty"`
}

// CampaignAggregates is one recount of a campaign's delivery rows by status
// bucket.
type CampaignAggregates struct {
	TotalRecipients int `json:"total_recipients"`
	SentCount       int `json:"sent_count"`
	DeliveredCount  int `json:"delivered_count"`
	OpenedCount     int `json:"opened_count"`
	ClickedCount    int `json:"clicked_count"`
	FailedCount     int `json:"failed_count"`
	BouncedCount    int `json:"bounced_count"`
	ComplainedCount int `json:"complained_count"`
	PendingCount    int `json:"pending_count"`
}

// CampaignSummary backs the admin overview endpoint.
type CampaignSummary struct {
	TotalCampaigns     int `json:"totalCampaigns"`
	QueuedCampaigns    int `json:"queuedCampaigns"`
	SendingCampaigns   int `json:"sendingCampaigns"`
	CompletedCampaigns int `json:"completedCampaigns"`
	PartialCampaigns   int `json:"partialCampaigns"`
	FailedCampaigns    int `json:"failedCampaigns"`
	TotalRecipients    int `json:"totalRecipients"`
	TotalSent          int `json:"totalSent"`
	TotalDelivered     int `json:"totalDelivered"`
	TotalOpened        int `json:"totalOpened"`
	TotalClicked       int `json:"totalClicked"`
	TotalFailed        int `json:"totalFailed"`
}
