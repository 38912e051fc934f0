package repository

import (
	"context"
	"database/sql"

	"github.com/netzhuffle/tcgp-tracker/internal/storage/models"
	"github.com/netzhuffle/tcgp-tracker/internal/tcgp/idcache"
)

// BoosterRepository provides access to boosters, scoped within a set.
type BoosterRepository interface {
	// GetByNameAndSet retrieves a booster by name within a set. Returns
	// (nil, nil) when absent.
	GetByNameAndSet(ctx context.Context, name string, set *models.Set) (*models.Booster, error)

	// Create inserts a new booster into a set. The (set, name) pair must
	// not exist yet.
	Create(ctx context.Context, name string, set *models.Set) (*models.Booster, error)

	// GetByID retrieves a booster by its identifier. Returns (nil, nil)
	// when absent.
	GetByID(ctx context.Context, id int64) (*models.Booster, error)

	// ListBySet returns all boosters of a set ordered by name.
	ListBySet(ctx context.Context, setID int64) ([]*models.Booster, error)
}

type boosterRepository struct {
	db    *sql.DB
	cache *idcache.Cache
}

// NewBoosterRepository creates a booster repository backed by db,
// memoizing identifiers in cache.
func NewBoosterRepository(db *sql.DB, cache *idcache.Cache) BoosterRepository {
	return &boosterRepository{db: db, cache: cache}
}

func (r *boosterRepository) GetByNameAndSet(ctx context.Context, name string, set *models.Set) (*models.Booster, error) {
	booster := &models.Booster{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, set_id, name FROM boosters WHERE set_id = ? AND name = ?`,
		set.ID, name,
	).Scan(&booster.ID, &booster.SetID, &booster.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, storageErr("get booster", name, err)
	}

	r.cache.PutBoosterID(set.Key, name, booster.ID)
	return booster, nil
}

func (r *boosterRepository) Create(ctx context.Context, name string, set *models.Set) (*models.Booster, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO boosters (set_id, name) VALUES (?, ?)`, set.ID, name,
	)
	if err != nil {
		return nil, storageErr("create booster", name, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, storageErr("create booster", name, err)
	}

	r.cache.PutBoosterID(set.Key, name, id)
	return &models.Booster{ID: id, SetID: set.ID, Name: name}, nil
}

func (r *boosterRepository) GetByID(ctx context.Context, id int64) (*models.Booster, error) {
	booster := &models.Booster{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, set_id, name FROM boosters WHERE id = ?`, id,
	).Scan(&booster.ID, &booster.SetID, &booster.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, storageErr("get booster", "by id", err)
	}

	return booster, nil
}

func (r *boosterRepository) ListBySet(ctx context.Context, setID int64) ([]*models.Booster, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, set_id, name FROM boosters WHERE set_id = ? ORDER BY name`, setID,
	)
	if err != nil {
		return nil, storageErr("list boosters", "by set", err)
	}
	defer func() { _ = rows.Close() }()

	boosters := []*models.Booster{}
	for rows.Next() {
		booster := &models.Booster{}
		if err := rows.Scan(&booster.ID, &booster.SetID, &booster.Name); err != nil {
			return nil, storageErr("list boosters", "by set", err)
		}
		boosters = append(boosters, booster)
	}

	return boosters, rows.Err()
}
