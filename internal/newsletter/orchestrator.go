// Package newsletter owns the campaign lifecycle: creation, fan-out into
// delivery rows, the sequential send loop, and aggregate recomputation.
package newsletter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	appErrors "github.com/wanjiru-dev/storypress-backend/internal/errors"
	"github.com/wanjiru-dev/storypress-backend/internal/mailer"
	"github.com/wanjiru-dev/storypress-backend/internal/model"
	"github.com/wanjiru-dev/storypress-backend/internal/queue"
	"github.com/wanjiru-dev/storypress-backend/internal/repository"
)

var (
	ErrSubjectRequired = errors.New("campaign subject is required")
	ErrHTMLRequired    = errors.New("campaign html content is required")
)

// Queue schedules background processing of a campaign. Publish must not
// block on the processing itself; callers poll the campaign record for
// completion. NewOrchestrator installs an in-process GoroutineQueue;
// cmd/server swaps in the AMQP implementation when a broker is configured.
type Queue interface {
	Publish(campaignID int) error
}

type Orchestrator struct {
	Campaigns  repository.CampaignRepositoryInterface
	Deliveries repository.DeliveryRepositoryInterface
	Mailer     mailer.Sender
	Queue      Queue
	BaseURL    string
	SiteURL    string
	Log        zerolog.Logger

	// inFlight guards against the same campaign being driven by two
	// concurrent Process calls in this process. It is not a cross-process
	// lock; a second orchestrator instance against the same database needs
	// external mutual exclusion.
	mu       sync.Mutex
	inFlight map[int]struct{}
}

func NewOrchestrator(
	campaigns repository.CampaignRepositoryInterface,
	deliveries repository.DeliveryRepositoryInterface,
	sender mailer.Sender,
	baseURL, siteURL string,
	log zerolog.Logger,
) *Orchestrator {
	o := &Orchestrator{
		Campaigns:  campaigns,
		Deliveries: deliveries,
		Mailer:     sender,
		BaseURL:    baseURL,
		SiteURL:    siteURL,
		Log:        log,
		inFlight:   make(map[int]struct{}),
	}
	o.Queue = &queue.GoroutineQueue{Process: o.Process}
	return o
}

// CreateManualCampaign validates and persists an admin-composed campaign,
// then schedules it. The returned id is the only thing the caller gets;
// progress is polled from the campaign record.
func (o *Orchestrator) CreateManualCampaign(subject, html string, createdByAdminID *int) (int, error) {
	return o.createCampaign(&model.Campaign{
		TriggerType:      model.TriggerManual,
		Subject:          subject,
		HTMLContent:      html,
		CreatedByAdminID: createdByAdminID,
	})
}

// CreateAutoArticleCampaign builds a campaign body from the article and
// schedules it. Subject falls back to "New post: <title>".
func (o *Orchestrator) CreateAutoArticleCampaign(article model.Article, createdByAdminID *int, subjectOverride string) (int, error) {
	subject := NormalizeSubject(subjectOverride)
	if subject == "" {
		subject = DefaultArticleSubject(article)
	}

	articleID := article.ID
	return o.createCampaign(&model.Campaign{
		TriggerType:      model.TriggerAutoArticle,
		Subject:          subject,
		HTMLContent:      BuildAutoArticleHTML(article, o.SiteURL),
		ArticleID:        &articleID,
		CreatedByAdminID: createdByAdminID,
	})
}

func (o *Orchestrator) createCampaign(c *model.Campaign) (int, error) {
	c.Subject = NormalizeSubject(c.Subject)
	c.HTMLContent = strings.TrimSpace(c.HTMLContent)

	if c.Subject == "" {
		return 0, ErrSubjectRequired
	}
	if c.HTMLContent == "" {
		return 0, ErrHTMLRequired
	}

	c.Status = model.CampaignQueued
	if err := o.Campaigns.Create(c); err != nil {
		return 0, err
	}

	o.Enqueue(c.ID)
	return c.ID, nil
}

// Enqueue schedules asynchronous processing, fire-and-forget. A publish
// failure is logged, not returned; resume-on-boot will pick the campaign
// up again.
func (o *Orchestrator) Enqueue(campaignID int) {
	if err := o.Queue.Publish(campaignID); err != nil {
		o.Log.Error().Err(err).Int("campaign_id", campaignID).Msg("failed to enqueue campaign")
	}
}

// Process drives one campaign from QUEUED/SENDING to a terminal status.
// Re-entrant calls for the same id are no-ops while one is running.
func (o *Orchestrator) Process(campaignID int) {
	if !o.begin(campaignID) {
		return
	}
	defer o.end(campaignID)

	if err := o.run(campaignID); err != nil {
		o.Log.Error().Err(err).Int("campaign_id", campaignID).Msg("campaign processing failed")
		// Do not leave the campaign stuck in SENDING.
		if failErr := o.Campaigns.ForceFailed(campaignID); failErr != nil {
			o.Log.Error().Err(failErr).Int("campaign_id", campaignID).Msg("failed to mark campaign failed")
		}
	}
}

func (o *Orchestrator) begin(campaignID int) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.inFlight[campaignID]; busy {
		return false
	}
	o.inFlight[campaignID] = struct{}{}
	return true
}

func (o *Orchestrator) end(campaignID int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inFlight, campaignID)
}

func (o *Orchestrator) run(campaignID int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("campaign processing panic: %v", r)
		}
	}()

	campaign, err := o.Campaigns.GetByID(campaignID)
	if err != nil {
		if appErrors.IsCampaignNotFound(err) {
			return nil
		}
		return err
	}
	if campaign.Status.Terminal() {
		return nil
	}

	if err := o.Campaigns.MarkSending(campaignID); err != nil {
		return err
	}

	total, err := o.Deliveries.FanOut(campaignID)
	if err != nil {
		return err
	}
	if total == 0 {
		o.Log.Warn().Int("campaign_id", campaignID).Msg("no verified subscribers, failing campaign")
		return o.Campaigns.ForceFailedEmpty(campaignID)
	}

	pending, err := o.Deliveries.ListPending(campaignID)
	if err != nil {
		return err
	}

	// Sequential on purpose: one outbound request in flight per campaign.
	for _, delivery := range pending {
		o.sendDelivery(campaign, delivery)
	}

	now := time.Now()
	_, err = o.RecomputeAggregates(campaignID, &now)
	return err
}

// sendDelivery sends one email and records the outcome. A failure is
// captured on the row and never aborts the siblings.
func (o *Orchestrator) sendDelivery(campaign *model.Campaign, delivery *model.Delivery) {
	emailHTML := BuildCampaignHTML(campaign.HTMLContent, UnsubscribeLink(o.BaseURL, delivery.UnsubscribeToken))

	messageID, err := o.Mailer.Send(context.Background(), delivery.Email, campaign.Subject, emailHTML, map[string]string{
		"X-Campaign-Id": strconv.Itoa(campaign.ID),
		"X-Delivery-Id": strconv.Itoa(delivery.ID),
	})
	if err != nil {
		code, message := "send_error", err.Error()
		var providerErr *mailer.ProviderError
		if errors.As(err, &providerErr) {
			code, message = providerErr.Code, providerErr.Message
		}
		o.Log.Warn().Err(err).Int("delivery_id", delivery.ID).Str("email", delivery.Email).Msg("send failed")

		if applyErr := o.Deliveries.ApplyOutcome(delivery.ID, model.DeliveryFailed, repository.Outcome{
			ResponseCode:    code,
			ResponseMessage: message,
		}); applyErr != nil {
			o.Log.Error().Err(applyErr).Int("delivery_id", delivery.ID).Msg("failed to record send failure")
		}
		return
	}

	if applyErr := o.Deliveries.ApplyOutcome(delivery.ID, model.DeliverySent, repository.Outcome{
		ProviderMessageID: messageID,
		ResponseCode:      "accepted",
	}); applyErr != nil {
		o.Log.Error().Err(applyErr).Int("delivery_id", delivery.ID).Msg("failed to record send success")
	}
}

// RecomputeAggregates recounts the campaign's delivery rows, derives the
// campaign status, and writes both back. eventTime, when supplied,
// advances last_event_at.
func (o *Orchestrator) RecomputeAggregates(campaignID int, eventTime *time.Time) (model.CampaignStatus, error) {
	agg, err := o.Deliveries.Aggregate(campaignID)
	if err != nil {
		return "", err
	}

	status := model.StatusFromAggregates(agg)
	if err := o.Campaigns.UpdateAggregates(campaignID, status, agg, status.Terminal(), eventTime); err != nil {
		return "", err
	}
	return status, nil
}

// ResumePendingCampaigns re-enqueues every campaign left in QUEUED or
// SENDING, in creation order. Safe after a crash mid-send: fan-out is
// idempotent and the send loop only touches PENDING rows.
func (o *Orchestrator) ResumePendingCampaigns() error {
	ids, err := o.Campaigns.ListUnfinishedIDs()
	if err != nil {
		return err
	}

	for _, id := range ids {
		o.Log.Info().Int("campaign_id", id).Msg("resuming unfinished campaign")
		o.Enqueue(id)
	}
	return nil
}
