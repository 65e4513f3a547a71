// internal/model/subscriber.go
package model

import "time"

type Subscriber struct {
	ID               int        `db:"id" json:"id"`
	Email            string     `db:"email" json:"email"`
	Verified         bool       `db:"verified" json:"verified"`
	VerifyToken      *string    `db:"verify_token" json:"-"`
	UnsubscribeToken string     `db:"unsubscribe_token" json:"-"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	VerifiedAt       *time.Time `db:"verified_at" json:"verified_at,omitempty"`
}
