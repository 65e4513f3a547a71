package repository

import (
	"database/sql"

	"github.com/lib/pq"

	appErrors "github.com/wanjiru-dev/storypress-backend/internal/errors"
)

type SubscriberRepositoryInterface interface {
	Create(email, verifyToken, unsubscribeToken string) error
	Verify(token string) (bool, error)
	DeleteByUnsubscribeToken(token string) (bool, error)
	DeleteUnverified(email, verifyToken string) error
	Totals() (total, verified int, err error)
}

type SubscriberRepository struct {
	DB *sql.DB
}

func (r *SubscriberRepository) Create(email, verifyToken, unsubscribeToken string) error {
	query := `
        INSERT INTO subscribers (email, verify_token, unsubscribe_token)
        VALUES ($1, $2, $3)
    `
	_, err := r.DB.Exec(query, email, verifyToken, unsubscribeToken)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return appErrors.ErrDuplicateSubscriber
		}
		return err
	}
	return nil
}

// Verify flips the subscriber to verified and burns the token. Returns
// false when the token matched nothing.
func (r *SubscriberRepository) Verify(token string) (bool, error) {
	query := `
        UPDATE subscribers
        SET verified = TRUE,
            verify_token = NULL,
            verified_at = COALESCE(verified_at, NOW())
        WHERE verify_token = $1
    `
	result, err := r.DB.Exec(query, token)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	return affected > 0, err
}

func (r *SubscriberRepository) DeleteByUnsubscribeToken(token string) (bool, error) {
	result, err := r.DB.Exec(`DELETE FROM subscribers WHERE unsubscribe_token = $1`, token)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	return affected > 0, err
}

// DeleteUnverified removes a subscriber whose verification email could not
// be sent, so the address can try again later.
func (r *SubscriberRepository) DeleteUnverified(email, verifyToken string) error {
	_, err := r.DB.Exec(
		`DELETE FROM subscribers WHERE email = $1 AND verify_token = $2 AND verified = FALSE`,
		email, verifyToken,
	)
	return err
}

func (r *SubscriberRepository) Totals() (int, int, error) {
	var total, verified int
	err := r.DB.QueryRow(
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE verified = TRUE) FROM subscribers`,
	).Scan(&total, &verified)
	return total, verified, err
}

var _ SubscriberRepositoryInterface = (*SubscriberRepository)(nil)
