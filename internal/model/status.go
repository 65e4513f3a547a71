// internal/model/status.go
package model

// CampaignStatus is the campaign-level state machine:
// QUEUED -> SENDING -> {COMPLETED | PARTIAL | FAILED}.
type CampaignStatus string

const (
	CampaignQueued    CampaignStatus = "QUEUED"
	CampaignSending   CampaignStatus = "SENDING"
	CampaignCompleted CampaignStatus = "COMPLETED"
	CampaignPartial   CampaignStatus = "PARTIAL"
	CampaignFailed    CampaignStatus = "FAILED"
)

// Terminal reports whether no further campaign transition is accepted.
func (s CampaignStatus) Terminal() bool {
	return s == CampaignCompleted || s == CampaignPartial || s == CampaignFailed
}

// DeliveryStatus is the per-recipient state of one campaign email.
type DeliveryStatus string

const (
	DeliveryPending    DeliveryStatus = "PENDING"
	DeliverySent       DeliveryStatus = "SENT"
	DeliveryDelivered  DeliveryStatus = "DELIVERED"
	DeliveryOpened     DeliveryStatus = "OPENED"
	DeliveryClicked    DeliveryStatus = "CLICKED"
	DeliveryFailed     DeliveryStatus = "FAILED"
	DeliveryBounced    DeliveryStatus = "BOUNCED"
	DeliveryComplained DeliveryStatus = "COMPLAINED"
)

// deliveryRank is the total order used for transition gating. Terminal
// statuses rank above everything so a late lifecycle event can never
// resurrect a dead row.
var deliveryRank = map[DeliveryStatus]int{
	DeliveryPending:    10,
	DeliverySent:       20,
	DeliveryDelivered:  30,
	DeliveryOpened:     40,
	DeliveryClicked:    50,
	DeliveryFailed:     60,
	DeliveryBounced:    70,
	DeliveryComplained: 80,
}

// Terminal reports whether a delivery row is frozen.
func (s DeliveryStatus) Terminal() bool {
	return s == DeliveryFailed || s == DeliveryBounced || s == DeliveryComplained
}

// Rank returns the gating rank; unknown statuses rank 0.
func (s DeliveryStatus) Rank() int {
	return deliveryRank[s]
}

// ShouldTransition says whether a delivery may move from current to next.
// An unset current always transitions, re-delivery of the same status is a
// no-op, terminal rows are frozen, and rank never decreases.
func ShouldTransition(current, next DeliveryStatus) bool {
	if next == "" {
		return false
	}
	if current == "" {
		return true
	}
	if current == next {
		return false
	}
	if current.Terminal() {
		return false
	}
	return next.Rank() >= current.Rank()
}

// TimestampColumn maps a delivery status to its first-occurrence-wins
// timestamp column, or "" when the status has none.
func TimestampColumn(s DeliveryStatus) string {
	switch s {
	case DeliverySent:
		return "sent_at"
	case DeliveryDelivered:
		return "delivered_at"
	case DeliveryOpened:
		return "opened_at"
	case DeliveryClicked:
		return "clicked_at"
	case DeliveryFailed:
		return "failed_at"
	case DeliveryBounced:
		return "bounced_at"
	case DeliveryComplained:
		return "complained_at"
	}
	return ""
}

// StatusFromAggregates derives the campaign status from a fresh recount of
// its delivery rows. An email to nobody is a failure, not a success.
func StatusFromAggregates(a CampaignAggregates) CampaignStatus {
	switch {
	case a.TotalRecipients == 0:
		return CampaignFailed
	case a.PendingCount > 0:
		return CampaignSending
	case a.FailedCount == a.TotalRecipients:
		return CampaignFailed
	case a.FailedCount > 0:
		return CampaignPartial
	default:
		return CampaignCompleted
	}
}

// ValidCampaignStatus reports whether s is a known campaign status filter.
func ValidCampaignStatus(s string) bool {
	switch CampaignStatus(s) {
	case CampaignQueued, CampaignSending, CampaignCompleted, CampaignPartial, CampaignFailed:
		return true
	}
	return false
}

// ValidTriggerType reports whether s is a known campaign trigger filter.
func ValidTriggerType(s string) bool {
	return s == TriggerManual || s == TriggerAutoArticle
}

// ValidDeliveryStatus reports whether s is a known delivery status filter.
func ValidDeliveryStatus(s string) bool {
	_, ok := deliveryRank[DeliveryStatus(s)]
	return ok
}
