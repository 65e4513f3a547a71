package queue

import (
	"testing"
	"time"
)

func TestGoroutineQueuePublishDispatches(t *testing.T) {
	got := make(chan int, 1)
	q := &GoroutineQueue{Process: func(campaignID int) { got <- campaignID }}

	if err := q.Publish(42); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case id := <-got:
		if id != 42 {
			t.Errorf("processed campaign %d, want 42", id)
		}
	case <-time.After(time.Second):
		t.Fatal("Process was never invoked")
	}
}
