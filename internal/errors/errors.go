// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
)

// ErrCampaignNotFound is a sentinel error
type ErrCampaignNotFound struct {
	CampaignID int
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %d not found", e.CampaignID)
}

// Helper constructor
func NewCampaignNotFound(id int) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

// IsCampaignNotFound reports whether err wraps an ErrCampaignNotFound.
func IsCampaignNotFound(err error) bool {
	var target *ErrCampaignNotFound
	return errors.As(err, &target)
}

// ErrDuplicateEvent means a webhook event with the same provider event id
// was already recorded. Replays are a no-op, not a failure.
var ErrDuplicateEvent = errors.New("webhook event already processed")

// ErrDuplicateSubscriber means the email is already on the list.
var ErrDuplicateSubscriber = errors.New("subscriber already exists")
