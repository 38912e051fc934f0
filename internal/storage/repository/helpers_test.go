package repository

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/netzhuffle/tcgp-tracker/internal/storage/models"
	"github.com/netzhuffle/tcgp-tracker/internal/tcgp/idcache"
)

// setupTestDB creates an in-memory database with the catalog schema as
// defined by migration 000001.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("error closing database: %v", err)
		}
	})

	schema := `
		CREATE TABLE sets (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			key TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL
		);

		CREATE TABLE boosters (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			set_id INTEGER NOT NULL REFERENCES sets(id),
			name TEXT NOT NULL,
			UNIQUE(set_id, name)
		);

		CREATE TABLE cards (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			set_id INTEGER NOT NULL REFERENCES sets(id),
			number INTEGER NOT NULL,
			name TEXT NOT NULL,
			rarity TEXT,
			bonus_exclusive INTEGER NOT NULL DEFAULT 0,
			god_pack_booster_id INTEGER REFERENCES boosters(id),
			equal_to TEXT,
			UNIQUE(set_id, number)
		);

		CREATE TABLE card_boosters (
			card_id INTEGER NOT NULL REFERENCES cards(id),
			booster_id INTEGER NOT NULL REFERENCES boosters(id),
			PRIMARY KEY (card_id, booster_id)
		);

		CREATE TABLE ownership (
			user_id INTEGER NOT NULL,
			card_id INTEGER NOT NULL REFERENCES cards(id),
			status TEXT NOT NULL DEFAULT 'owned',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, card_id)
		);

		CREATE INDEX idx_cards_set_rarity ON cards(set_id, rarity);
		CREATE INDEX idx_card_boosters_booster ON card_boosters(booster_id);
		CREATE INDEX idx_ownership_card ON ownership(card_id);
	`

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	return db
}

// testRepos bundles the repositories over one database and cache.
type testRepos struct {
	cache     *idcache.Cache
	sets      SetRepository
	boosters  BoosterRepository
	cards     CardRepository
	ownership OwnershipRepository
}

func setupRepos(t *testing.T) *testRepos {
	t.Helper()

	db := setupTestDB(t)
	cache := idcache.New()
	return &testRepos{
		cache:     cache,
		sets:      NewSetRepository(db, cache),
		boosters:  NewBoosterRepository(db, cache),
		cards:     NewCardRepository(db),
		ownership: NewOwnershipRepository(db),
	}
}

func mustCreateSet(t *testing.T, r *testRepos, key, name string) *models.Set {
	t.Helper()
	set, err := r.sets.Create(context.Background(), key, name)
	if err != nil {
		t.Fatalf("failed to create set %s: %v", key, err)
	}
	return set
}

func mustCreateBooster(t *testing.T, r *testRepos, name string, set *models.Set) *models.Booster {
	t.Helper()
	booster, err := r.boosters.Create(context.Background(), name, set)
	if err != nil {
		t.Fatalf("failed to create booster %s: %v", name, err)
	}
	return booster
}

func mustCreateCard(t *testing.T, r *testRepos, card *models.Card, boosterIDs []int64) *models.Card {
	t.Helper()
	if err := r.cards.Create(context.Background(), card, boosterIDs); err != nil {
		t.Fatalf("failed to create card %s: %v", card.Name, err)
	}
	return card
}

func rarityPtr(r models.Rarity) *models.Rarity {
	return &r
}
