package webhook

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	appErrors "github.com/wanjiru-dev/storypress-backend/internal/errors"
	"github.com/wanjiru-dev/storypress-backend/internal/model"
	"github.com/wanjiru-dev/storypress-backend/internal/repository"
)

type mockDeliveryRepo struct {
	byMessageID map[string]*model.Delivery

	appliedDeliveryID int
	appliedStatus     model.DeliveryStatus
	appliedOutcome    repository.Outcome
	applyCalls        int
}

func (m *mockDeliveryRepo) FanOut(campaignID int) (int, error)                 { return 0, nil }
func (m *mockDeliveryRepo) ListPending(campaignID int) ([]*model.Delivery, error) { return nil, nil }

func (m *mockDeliveryRepo) ApplyOutcome(deliveryID int, next model.DeliveryStatus, out repository.Outcome) error {
	m.applyCalls++
	m.appliedDeliveryID = deliveryID
	m.appliedStatus = next
	m.appliedOutcome = out
	return nil
}

func (m *mockDeliveryRepo) GetByProviderMessageID(providerMessageID string) (*model.Delivery, error) {
	return m.byMessageID[providerMessageID], nil
}

func (m *mockDeliveryRepo) Aggregate(campaignID int) (model.CampaignAggregates, error) {
	return model.CampaignAggregates{}, nil
}

func (m *mockDeliveryRepo) List(campaignID, offset, limit int, status, emailQuery string) ([]*model.Delivery, int, error) {
	return nil, 0, nil
}

type mockEventRepo struct {
	seen     map[string]bool
	inserted []*model.WebhookEvent
}

func (m *mockEventRepo) Insert(e *model.WebhookEvent) error {
	if m.seen == nil {
		m.seen = map[string]bool{}
	}
	if m.seen[e.ProviderEventID] {
		return appErrors.ErrDuplicateEvent
	}
	m.seen[e.ProviderEventID] = true
	e.ID = len(m.inserted) + 1
	m.inserted = append(m.inserted, e)
	return nil
}

type mockRecomputer struct {
	campaignID int
	eventTime  *time.Time
	calls      int
}

func (m *mockRecomputer) RecomputeAggregates(campaignID int, eventTime *time.Time) (model.CampaignStatus, error) {
	m.calls++
	m.campaignID = campaignID
	m.eventTime = eventTime
	return model.CampaignCompleted, nil
}

func newTestProcessor(deliveries *mockDeliveryRepo, events *mockEventRepo, recomputer *mockRecomputer) *Processor {
	return &Processor{
		Deliveries: deliveries,
		Events:     events,
		Recomputer: recomputer,
		Log:        zerolog.Nop(),
	}
}

func TestApplyEventAdvancesDelivery(t *testing.T) {
	deliveries := &mockDeliveryRepo{byMessageID: map[string]*model.Delivery{
		"msg_1": {ID: 7, CampaignID: 3, Status: model.DeliverySent},
	}}
	events := &mockEventRepo{}
	recomputer := &mockRecomputer{}
	p := newTestProcessor(deliveries, events, recomputer)

	body := []byte(`{"id":"evt_1","type":"email.delivered","created_at":"2026-08-30T10:00:00Z","data":{"email_id":"msg_1"}}`)
	result, err := p.ApplyEvent(body)
	if err != nil {
		t.Fatalf("ApplyEvent: %v", err)
	}
	if result.Duplicate || !result.Processed {
		t.Errorf("unexpected result %+v", result)
	}
	if deliveries.applyCalls != 1 {
		t.Fatalf("expected one ApplyOutcome call, got %d", deliveries.applyCalls)
	}
	if deliveries.appliedDeliveryID != 7 || deliveries.appliedStatus != model.DeliveryDelivered {
		t.Errorf("applied %d/%q, want 7/DELIVERED", deliveries.appliedDeliveryID, deliveries.appliedStatus)
	}
	if deliveries.appliedOutcome.ProviderMessageID != "msg_1" {
		t.Errorf("outcome message id = %q", deliveries.appliedOutcome.ProviderMessageID)
	}

	want := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	if !deliveries.appliedOutcome.Timestamp.Equal(want) {
		t.Errorf("outcome timestamp = %v, want %v", deliveries.appliedOutcome.Timestamp, want)
	}
	if recomputer.calls != 1 || recomputer.campaignID != 3 {
		t.Errorf("recompute calls=%d campaign=%d, want 1/3", recomputer.calls, recomputer.campaignID)
	}
	if recomputer.eventTime == nil || !recomputer.eventTime.Equal(want) {
		t.Errorf("recompute event time = %v, want %v", recomputer.eventTime, want)
	}

	if len(events.inserted) != 1 {
		t.Fatalf("expected one recorded event, got %d", len(events.inserted))
	}
	e := events.inserted[0]
	if e.ProviderEventID != "evt_1" || e.EventType != "email.delivered" {
		t.Errorf("recorded event %+v", e)
	}
	if e.DeliveryID == nil || *e.DeliveryID != 7 || e.CampaignID == nil || *e.CampaignID != 3 {
		t.Errorf("event not linked to delivery: %+v", e)
	}
}

func TestApplyEventDuplicateIsNoOp(t *testing.T) {
	deliveries := &mockDeliveryRepo{byMessageID: map[string]*model.Delivery{
		"msg_1": {ID: 7, CampaignID: 3, Status: model.DeliverySent},
	}}
	events := &mockEventRepo{}
	recomputer := &mockRecomputer{}
	p := newTestProcessor(deliveries, events, recomputer)

	body := []byte(`{"id":"evt_dup","type":"email.opened","data":{"email_id":"msg_1"}}`)
	if _, err := p.ApplyEvent(body); err != nil {
		t.Fatalf("first ApplyEvent: %v", err)
	}

	result, err := p.ApplyEvent(body)
	if err != nil {
		t.Fatalf("second ApplyEvent: %v", err)
	}
	if !result.Duplicate || result.Processed {
		t.Errorf("unexpected replay result %+v", result)
	}
	if deliveries.applyCalls != 1 {
		t.Errorf("replay mutated the ledger: %d apply calls", deliveries.applyCalls)
	}
	if recomputer.calls != 1 {
		t.Errorf("replay recomputed aggregates: %d calls", recomputer.calls)
	}
}

func TestApplyEventUnmatchedMessageIsRecordedOnly(t *testing.T) {
	deliveries := &mockDeliveryRepo{}
	events := &mockEventRepo{}
	recomputer := &mockRecomputer{}
	p := newTestProcessor(deliveries, events, recomputer)

	result, err := p.ApplyEvent([]byte(`{"id":"evt_2","type":"email.delivered","data":{"email_id":"unknown"}}`))
	if err != nil {
		t.Fatalf("ApplyEvent: %v", err)
	}
	if result.Duplicate || !result.Processed {
		t.Errorf("unexpected result %+v", result)
	}
	if deliveries.applyCalls != 0 || recomputer.calls != 0 {
		t.Error("unmatched event should not touch deliveries or aggregates")
	}
	if len(events.inserted) != 1 {
		t.Fatalf("expected the event to be recorded, got %d", len(events.inserted))
	}
	if events.inserted[0].DeliveryID != nil {
		t.Error("unmatched event should not reference a delivery")
	}
}

func TestApplyEventUnknownTypeIsRecordedOnly(t *testing.T) {
	deliveries := &mockDeliveryRepo{byMessageID: map[string]*model.Delivery{
		"msg_1": {ID: 7, CampaignID: 3, Status: model.DeliverySent},
	}}
	events := &mockEventRepo{}
	recomputer := &mockRecomputer{}
	p := newTestProcessor(deliveries, events, recomputer)

	result, err := p.ApplyEvent([]byte(`{"id":"evt_3","type":"email.scheduled","data":{"email_id":"msg_1"}}`))
	if err != nil {
		t.Fatalf("ApplyEvent: %v", err)
	}
	if !result.Processed {
		t.Errorf("unexpected result %+v", result)
	}
	if deliveries.applyCalls != 0 {
		t.Error("unmapped event type should not advance the delivery")
	}
}

func TestApplyEventDerivesIDWhenMissing(t *testing.T) {
	events := &mockEventRepo{}
	p := newTestProcessor(&mockDeliveryRepo{}, events, &mockRecomputer{})

	body := []byte(`{"type":"email.sent"}`)
	if _, err := p.ApplyEvent(body); err != nil {
		t.Fatalf("first ApplyEvent: %v", err)
	}

	// Same body, same derived id: the replay must be detected.
	result, err := p.ApplyEvent(body)
	if err != nil {
		t.Fatalf("second ApplyEvent: %v", err)
	}
	if !result.Duplicate {
		t.Error("expected id-less replay to be detected via derived id")
	}
}

func TestMapEventType(t *testing.T) {
	tests := []struct {
		eventType string
		want      model.DeliveryStatus
	}{
		{"email.clicked", model.DeliveryClicked},
		{"email.opened", model.DeliveryOpened},
		{"email.delivered", model.DeliveryDelivered},
		{"email.bounced", model.DeliveryBounced},
		{"email.complained", model.DeliveryComplained},
		{"email.marked_as_spam", model.DeliveryComplained},
		{"email.failed", model.DeliveryFailed},
		{"email.rejected", model.DeliveryFailed},
		{"email.sent", model.DeliverySent},
		{"email.delivery_clicked", model.DeliveryClicked},
		{"email.scheduled", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := MapEventType(tt.eventType); got != tt.want {
			t.Errorf("MapEventType(%q) = %q, want %q", tt.eventType, got, tt.want)
		}
	}
}
