// internal/controller/admin_newsletter_controller.go
package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	appErrors "github.com/wanjiru-dev/storypress-backend/internal/errors"
	"github.com/wanjiru-dev/storypress-backend/internal/model"
	"github.com/wanjiru-dev/storypress-backend/internal/newsletter"
	"github.com/wanjiru-dev/storypress-backend/internal/repository"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// AdminNewsletterController serves the admin-facing campaign endpoints.
// Authentication is the router's job; an auth middleware is mounted in
// front of these handlers.
type AdminNewsletterController struct {
	Campaigns    repository.CampaignRepositoryInterface
	Deliveries   repository.DeliveryRepositoryInterface
	Subscribers  repository.SubscriberRepositoryInterface
	Articles     repository.ArticleRepositoryInterface
	Orchestrator *newsletter.Orchestrator
	Log          zerolog.Logger
}

type pagination struct {
	page, limit, offset int
}

func getPagination(r *http.Request) pagination {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	return pagination{page: page, limit: limit, offset: (page - 1) * limit}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func totalPages(total, limit int) int {
	return (total + limit - 1) / limit
}

// Summary returns audience and campaign rollups for the admin overview.
func (c *AdminNewsletterController) Summary(w http.ResponseWriter, r *http.Request) {
	total, verified, err := c.Subscribers.Totals()
	if err != nil {
		c.Log.Error().Err(err).Msg("failed to load subscriber totals")
		writeError(w, http.StatusInternalServerError, "Failed to load newsletter summary")
		return
	}

	summary, err := c.Campaigns.Summary()
	if err != nil {
		c.Log.Error().Err(err).Msg("failed to load campaign summary")
		writeError(w, http.StatusInternalServerError, "Failed to load newsletter summary")
		return
	}

	unverified := total - verified
	if unverified < 0 {
		unverified = 0
	}
	verificationRate := 0.0
	if total > 0 {
		verificationRate = float64(verified) / float64(total) * 100
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"audience": map[string]interface{}{
			"totalSubscribers":      total,
			"verifiedSubscribers":   verified,
			"unverifiedSubscribers": unverified,
			"verificationRate":      verificationRate,
		},
		"campaigns": summary,
	})
}

// ListCampaigns returns one page of campaigns with optional status and
// trigger filters.
func (c *AdminNewsletterController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	p := getPagination(r)

	status := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status")))
	trigger := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("trigger")))

	if status != "" && !model.ValidCampaignStatus(status) {
		writeError(w, http.StatusBadRequest, "Invalid campaign status filter")
		return
	}
	if trigger != "" && !model.ValidTriggerType(trigger) {
		writeError(w, http.StatusBadRequest, "Invalid campaign trigger filter")
		return
	}

	campaigns, total, err := c.Campaigns.List(p.offset, p.limit, status, trigger)
	if err != nil {
		c.Log.Error().Err(err).Msg("failed to list campaigns")
		writeError(w, http.StatusInternalServerError, "Failed to load newsletter campaigns")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"campaigns": campaigns,
		"pagination": map[string]interface{}{
			"currentPage":    p.page,
			"totalPages":     totalPages(total, p.limit),
			"totalCampaigns": total,
			"limit":          p.limit,
		},
	})
}

// ListDeliveries returns a campaign plus one page of its delivery rows,
// filterable by status and email substring.
func (c *AdminNewsletterController) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	campaignID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || campaignID < 1 {
		writeError(w, http.StatusBadRequest, "Invalid campaign ID")
		return
	}

	p := getPagination(r)
	status := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status")))
	emailQuery := strings.TrimSpace(r.URL.Query().Get("q"))

	if status != "" && !model.ValidDeliveryStatus(status) {
		writeError(w, http.StatusBadRequest, "Invalid delivery status filter")
		return
	}

	campaign, err := c.Campaigns.GetByID(campaignID)
	if err != nil {
		if appErrors.IsCampaignNotFound(err) {
			writeError(w, http.StatusNotFound, "Campaign not found")
			return
		}
		c.Log.Error().Err(err).Int("campaign_id", campaignID).Msg("failed to load campaign")
		writeError(w, http.StatusInternalServerError, "Failed to load newsletter deliveries")
		return
	}

	deliveries, total, err := c.Deliveries.List(campaignID, p.offset, p.limit, status, emailQuery)
	if err != nil {
		c.Log.Error().Err(err).Int("campaign_id", campaignID).Msg("failed to list deliveries")
		writeError(w, http.StatusInternalServerError, "Failed to load newsletter deliveries")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"campaign":   campaign,
		"deliveries": deliveries,
		"pagination": map[string]interface{}{
			"currentPage":     p.page,
			"totalPages":      totalPages(total, p.limit),
			"totalDeliveries": total,
			"limit":           p.limit,
		},
	})
}

// CreateCampaign queues a MANUAL or AUTO_ARTICLE campaign. The response
// carries only the campaign id; completion is polled.
func (c *AdminNewsletterController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Trigger   string `json:"trigger"`
		Subject   string `json:"subject"`
		HTML      string `json:"html"`
		ArticleID int    `json:"articleId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	trigger := strings.ToUpper(strings.TrimSpace(body.Trigger))
	if trigger == "" {
		trigger = model.TriggerManual
	}
	if !model.ValidTriggerType(trigger) {
		writeError(w, http.StatusBadRequest, "Invalid trigger type")
		return
	}

	adminID := adminIDFromContext(r)

	if trigger == model.TriggerManual {
		campaignID, err := c.Orchestrator.CreateManualCampaign(body.Subject, body.HTML, adminID)
		if err != nil {
			if errors.Is(err, newsletter.ErrSubjectRequired) {
				writeError(w, http.StatusBadRequest, "subject is required")
				return
			}
			if errors.Is(err, newsletter.ErrHTMLRequired) {
				writeError(w, http.StatusBadRequest, "html is required")
				return
			}
			c.Log.Error().Err(err).Msg("failed to create manual campaign")
			writeError(w, http.StatusInternalServerError, "Failed to create newsletter campaign")
			return
		}

		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"message":    "Campaign queued successfully",
			"campaignId": campaignID,
		})
		return
	}

	if body.ArticleID < 1 {
		writeError(w, http.StatusBadRequest, "articleId is required for AUTO_ARTICLE campaigns")
		return
	}

	article, err := c.Articles.GetByID(body.ArticleID)
	if err != nil {
		c.Log.Error().Err(err).Int("article_id", body.ArticleID).Msg("failed to load article")
		writeError(w, http.StatusInternalServerError, "Failed to create newsletter campaign")
		return
	}
	if article == nil {
		writeError(w, http.StatusNotFound, "Article not found")
		return
	}

	campaignID, err := c.Orchestrator.CreateAutoArticleCampaign(*article, adminID, body.Subject)
	if err != nil {
		c.Log.Error().Err(err).Msg("failed to create auto article campaign")
		writeError(w, http.StatusInternalServerError, "Failed to create newsletter campaign")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message":    "Auto article campaign queued successfully",
		"campaignId": campaignID,
	})
}

// adminIDFromContext pulls the acting admin's id when the auth middleware
// put one there.
func adminIDFromContext(r *http.Request) *int {
	if v, ok := r.Context().Value(AdminIDContextKey).(int); ok {
		return &v
	}
	return nil
}

// AdminIDContextKey is set by the upstream admin auth middleware.
type contextKey string

const AdminIDContextKey contextKey = "adminID"
