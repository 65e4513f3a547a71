package model

import "testing"

func TestShouldTransition(t *testing.T) {
	tests := []struct {
		name    string
		current DeliveryStatus
		next    DeliveryStatus
		want    bool
	}{
		{"unset current accepts anything", "", DeliverySent, true},
		{"empty next is rejected", DeliverySent, "", false},
		{"same status is a no-op", DeliveryDelivered, DeliveryDelivered, false},
		{"forward progression", DeliverySent, DeliveryDelivered, true},
		{"skip ahead", DeliverySent, DeliveryClicked, true},
		{"no downgrade", DeliveryOpened, DeliveryDelivered, false},
		{"failure overrides progress", DeliveryDelivered, DeliveryBounced, true},
		{"terminal failed is frozen", DeliveryFailed, DeliveryDelivered, false},
		{"terminal bounced is frozen", DeliveryBounced, DeliveryOpened, false},
		{"terminal complained is frozen", DeliveryComplained, DeliveryClicked, false},
		{"pending to failed", DeliveryPending, DeliveryFailed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldTransition(tt.current, tt.next); got != tt.want {
				t.Errorf("ShouldTransition(%q, %q) = %v, want %v", tt.current, tt.next, got, tt.want)
			}
		})
	}
}

func TestStatusFromAggregates(t *testing.T) {
	tests := []struct {
		name string
		agg  CampaignAggregates
		want CampaignStatus
	}{
		{"no recipients", CampaignAggregates{}, CampaignFailed},
		{"still pending", CampaignAggregates{TotalRecipients: 3, SentCount: 2, PendingCount: 1}, CampaignSending},
		{"all failed", CampaignAggregates{TotalRecipients: 2, FailedCount: 2}, CampaignFailed},
		{"some failed", CampaignAggregates{TotalRecipients: 3, SentCount: 2, FailedCount: 1}, CampaignPartial},
		{"all sent", CampaignAggregates{TotalRecipients: 3, SentCount: 3}, CampaignCompleted},
		{
			"bounces count as failures",
			CampaignAggregates{TotalRecipients: 4, SentCount: 2, FailedCount: 2, BouncedCount: 1, ComplainedCount: 1},
			CampaignPartial,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusFromAggregates(tt.agg); got != tt.want {
				t.Errorf("StatusFromAggregates(%+v) = %q, want %q", tt.agg, got, tt.want)
			}
		})
	}
}

func TestTimestampColumn(t *testing.T) {
	tests := []struct {
		status DeliveryStatus
		want   string
	}{
		{DeliverySent, "sent_at"},
		{DeliveryDelivered, "delivered_at"},
		{DeliveryOpened, "opened_at"},
		{DeliveryClicked, "clicked_at"},
		{DeliveryFailed, "failed_at"},
		{DeliveryBounced, "bounced_at"},
		{DeliveryComplained, "complained_at"},
		{DeliveryPending, ""},
	}

	for _, tt := range tests {
		if got := TimestampColumn(tt.status); got != tt.want {
			t.Errorf("TimestampColumn(%q) = %q, want %q", tt.status, got, tt.want)
		}
	}
}
