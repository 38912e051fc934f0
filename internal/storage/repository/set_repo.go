package repository

import (
	"context"
	"database/sql"

	"github.com/netzhuffle/tcgp-tracker/internal/storage/models"
	"github.com/netzhuffle/tcgp-tracker/internal/tcgp/idcache"
)

// SetRepository provides access to card sets.
type SetRepository interface {
	// GetByKey retrieves a set by its natural key. Returns (nil, nil)
	// when no set with the key exists.
	GetByKey(ctx context.Context, key string) (*models.Set, error)

	// Create inserts a new set. The key must not exist yet; callers are
	// expected to check with GetByKey first, the UNIQUE constraint is
	// only the safety net.
	Create(ctx context.Context, key, name string) (*models.Set, error)

	// GetByID retrieves a set by its identifier. Returns (nil, nil) when
	// absent.
	GetByID(ctx context.Context, id int64) (*models.Set, error)

	// List returns all sets ordered by key.
	List(ctx context.Context) ([]*models.Set, error)
}

type setRepository struct {
	db    *sql.DB
	cache *idcache.Cache
}

// NewSetRepository creates a set repository backed by db, memoizing
// identifiers in cache.
func NewSetRepository(db *sql.DB, cache *idcache.Cache) SetRepository {
	return &setRepository{db: db, cache: cache}
}

func (r *setRepository) GetByKey(ctx context.Context, key string) (*models.Set, error) {
	set := &models.Set{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, key, name FROM sets WHERE key = ?`, key,
	).Scan(&set.ID, &set.Key, &set.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, storageErr("get set", key, err)
	}

	r.cache.PutSetID(set.Key, set.ID)
	return set, nil
}

func (r *setRepository) Create(ctx context.Context, key, name string) (*models.Set, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO sets (key, name) VALUES (?, ?)`, key, name,
	)
	if err != nil {
		return nil, storageErr("create set", key, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, storageErr("create set", key, err)
	}

	r.cache.PutSetID(key, id)
	return &models.Set{ID: id, Key: key, Name: name}, nil
}

func (r *setRepository) GetByID(ctx context.Context, id int64) (*models.Set, error) {
	set := &models.Set{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, key, name FROM sets WHERE id = ?`, id,
	).Scan(&set.ID, &set.Key, &set.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, storageErr("get set", "by id", err)
	}

	r.cache.PutSetID(set.Key, set.ID)
	return set, nil
}

func (r *setRepository) List(ctx context.Context) ([]*models.Set, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, key, name FROM sets ORDER BY key`,
	)
	if err != nil {
		return nil, storageErr("list sets", "all", err)
	}
	defer func() { _ = rows.Close() }()

	sets := []*models.Set{}
	for rows.Next() {
		set := &models.Set{}
		if err := rows.Scan(&set.ID, &set.Key, &set.Name); err != nil {
			return nil, storageErr("list sets", "all", err)
		}
		r.cache.PutSetID(set.Key, set.ID)
		sets = append(sets, set)
	}

	return sets, rows.Err()
}
