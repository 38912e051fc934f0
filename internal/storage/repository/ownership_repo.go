package repository

import (
	"context"
	"database/sql"

	"github.com/netzhuffle/tcgp-tracker/internal/storage/models"
)

// OwnershipRepository provides access to the user/card ownership
// relation.
type OwnershipRepository interface {
	// Get retrieves the ownership row for a user and card. Returns
	// (nil, nil) when the card is missing from the user's collection.
	Get(ctx context.Context, userID, cardID int64) (*models.Ownership, error)

	// Upsert records that the user has (or does not need) the card,
	// overwriting any previous status.
	Upsert(ctx context.Context, userID, cardID int64, status models.OwnershipStatus) error

	// Delete removes the ownership row, putting the card back into the
	// user's missing set. Deleting an absent row is not an error.
	Delete(ctx context.Context, userID, cardID int64) error

	// CountByUser counts a user's ownership rows with the given status.
	CountByUser(ctx context.Context, userID int64, status models.OwnershipStatus) (int, error)
}

type ownershipRepository struct {
	db *sql.DB
}

// NewOwnershipRepository creates an ownership repository backed by db.
func NewOwnershipRepository(db *sql.DB) OwnershipRepository {
	return &ownershipRepository{db: db}
}

func (r *ownershipRepository) Get(ctx context.Context, userID, cardID int64) (*models.Ownership, error) {
	ownership := &models.Ownership{}
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, card_id, status, created_at FROM ownership WHERE user_id = ? AND card_id = ?`,
		userID, cardID,
	).Scan(&ownership.UserID, &ownership.CardID, &ownership.Status, &ownership.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, storageErr("get ownership", "card", err)
	}
	return ownership, nil
}

func (r *ownershipRepository) Upsert(ctx context.Context, userID, cardID int64, status models.OwnershipStatus) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ownership (user_id, card_id, status) VALUES (?, ?, ?)
		ON CONFLICT(user_id, card_id) DO UPDATE SET status = excluded.status`,
		userID, cardID, status,
	)
	if err != nil {
		return storageErr("upsert ownership", "card", err)
	}
	return nil
}

func (r *ownershipRepository) Delete(ctx context.Context, userID, cardID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM ownership WHERE user_id = ? AND card_id = ?`,
		userID, cardID,
	)
	if err != nil {
		return storageErr("delete ownership", "card", err)
	}
	return nil
}

func (r *ownershipRepository) CountByUser(ctx context.Context, userID int64, status models.OwnershipStatus) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ownership WHERE user_id = ? AND status = ?`,
		userID, status,
	).Scan(&n)
	if err != nil {
		return 0, storageErr("count ownership", "by user", err)
	}
	return n, nil
}
