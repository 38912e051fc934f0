package collection

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/netzhuffle/tcgp-tracker/internal/storage/models"
	"github.com/netzhuffle/tcgp-tracker/internal/storage/repository"
	"github.com/netzhuffle/tcgp-tracker/internal/tcgp/idcache"
	"github.com/netzhuffle/tcgp-tracker/internal/tcgp/probability"
)

type fixture struct {
	sets      repository.SetRepository
	boosters  repository.BoosterRepository
	cards     repository.CardRepository
	ownership repository.OwnershipRepository
	cache     *idcache.Cache
	service   *Service
}

func setup(t *testing.T) *fixture {
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
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	cache := idcache.New()
	f := &fixture{
		sets:      repository.NewSetRepository(db, cache),
		boosters:  repository.NewBoosterRepository(db, cache),
		cards:     repository.NewCardRepository(db),
		ownership: repository.NewOwnershipRepository(db),
		cache:     cache,
	}
	prob := probability.NewService(f.cards, zap.NewNop())
	f.service = NewService(f.sets, f.boosters, f.cards, f.ownership, cache, prob, zap.NewNop())
	return f
}

// seed creates one set with one booster and n one-diamond cards,
// returning the booster for count assertions.
func (f *fixture) seed(t *testing.T, setKey string, n int) *models.Booster {
	t.Helper()
	ctx := context.Background()

	set, err := f.sets.Create(ctx, setKey, setKey)
	if err != nil {
		t.Fatalf("failed to create set: %v", err)
	}
	booster, err := f.boosters.Create(ctx, setKey, set)
	if err != nil {
		t.Fatalf("failed to create booster: %v", err)
	}
	rarity := models.RarityOneDiamond
	for i := 1; i <= n; i++ {
		card := &models.Card{SetID: set.ID, Number: i, Name: "Card", Rarity: &rarity}
		if err := f.cards.Create(ctx, card, []int64{booster.ID}); err != nil {
			t.Fatalf("failed to create card: %v", err)
		}
	}
	return booster
}

func TestService_AddCard(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.seed(t, "A1", 3)

	if err := f.service.AddCard(ctx, 1, "A1", 2, models.StatusOwned); err != nil {
		t.Fatalf("failed to add card: %v", err)
	}

	count, err := f.ownership.CountByUser(ctx, 1, models.StatusOwned)
	if err != nil {
		t.Fatalf("failed to count: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 owned card, got %d", count)
	}

	// Re-adding with a different status overwrites.
	if err := f.service.AddCard(ctx, 1, "A1", 2, models.StatusNotNeeded); err != nil {
		t.Fatalf("failed to re-add card: %v", err)
	}
	count, _ = f.ownership.CountByUser(ctx, 1, models.StatusOwned)
	if count != 0 {
		t.Errorf("expected status to be overwritten, still %d owned", count)
	}
}

func TestService_AddCardInvalidStatus(t *testing.T) {
	f := setup(t)
	f.seed(t, "A1", 1)

	err := f.service.AddCard(context.Background(), 1, "A1", 1, models.OwnershipStatus("wishlist"))
	if err == nil {
		t.Error("expected an error for an invalid status")
	}
}

func TestService_AddCardUnknownEntities(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.seed(t, "A1", 1)

	if err := f.service.AddCard(ctx, 1, "A9", 1, models.StatusOwned); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown set, got %v", err)
	}
	if err := f.service.AddCard(ctx, 1, "A1", 99, models.StatusOwned); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown card, got %v", err)
	}
}

func TestService_AddCardResolvesSetFromCache(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	booster := f.seed(t, "A1", 1)

	// A cached key resolves without a set row of its own; storage only
	// knows "A1", so a hit here proves the lookup never reached it.
	f.cache.PutSetID("A7", booster.SetID)

	if err := f.service.AddCard(ctx, 1, "A7", 1, models.StatusOwned); err != nil {
		t.Fatalf("failed to add card via cached set id: %v", err)
	}
	count, err := f.ownership.CountByUser(ctx, 1, models.StatusOwned)
	if err != nil {
		t.Fatalf("failed to count: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 owned card, got %d", count)
	}
}

func TestService_RemoveCard(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.seed(t, "A1", 2)

	if err := f.service.AddCard(ctx, 1, "A1", 1, models.StatusOwned); err != nil {
		t.Fatalf("failed to add card: %v", err)
	}
	if err := f.service.RemoveCard(ctx, 1, "A1", 1); err != nil {
		t.Fatalf("failed to remove card: %v", err)
	}
	count, _ := f.ownership.CountByUser(ctx, 1, models.StatusOwned)
	if count != 0 {
		t.Errorf("expected 0 owned cards, got %d", count)
	}

	// Removing again is a no-op.
	if err := f.service.RemoveCard(ctx, 1, "A1", 1); err != nil {
		t.Errorf("expected idempotent removal, got %v", err)
	}
}

func TestService_Stats(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.seed(t, "A1", 4)
	f.seed(t, "A2", 2)

	for _, number := range []int{1, 2, 3} {
		if err := f.service.AddCard(ctx, 1, "A1", number, models.StatusOwned); err != nil {
			t.Fatalf("failed to add card: %v", err)
		}
	}

	stats, err := f.service.Stats(ctx, 1)
	if err != nil {
		t.Fatalf("failed to compute stats: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected stats for 2 sets, got %d", len(stats))
	}

	a1 := stats[0]
	if a1.Set.Key != "A1" || a1.Total != 4 || a1.Missing != 1 {
		t.Errorf("unexpected A1 stats: total=%d missing=%d", a1.Total, a1.Missing)
	}
	if len(a1.Boosters) != 1 {
		t.Fatalf("expected 1 booster, got %d", len(a1.Boosters))
	}
	booster := a1.Boosters[0]
	if booster.Total != 4 || booster.Missing != 1 {
		t.Errorf("unexpected booster stats: total=%d missing=%d", booster.Total, booster.Missing)
	}
	if booster.Probability <= 0 || booster.Probability > 1 {
		t.Errorf("expected probability in (0, 1], got %v", booster.Probability)
	}

	a2 := stats[1]
	if a2.Set.Key != "A2" || a2.Total != 2 || a2.Missing != 2 {
		t.Errorf("unexpected A2 stats: total=%d missing=%d", a2.Total, a2.Missing)
	}
}

func TestService_StatsNotNeededCountsAsComplete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.seed(t, "A1", 2)

	if err := f.service.AddCard(ctx, 1, "A1", 1, models.StatusOwned); err != nil {
		t.Fatalf("failed to add card: %v", err)
	}
	if err := f.service.AddCard(ctx, 1, "A1", 2, models.StatusNotNeeded); err != nil {
		t.Fatalf("failed to add card: %v", err)
	}

	stats, err := f.service.SetStatsByKey(ctx, 1, "A1")
	if err != nil {
		t.Fatalf("failed to compute stats: %v", err)
	}
	if stats.Missing != 0 {
		t.Errorf("expected no missing cards, got %d", stats.Missing)
	}
	if p := stats.Boosters[0].Probability; p != 0 {
		t.Errorf("expected zero probability for a complete booster, got %v", p)
	}
}

func TestService_BoosterProbability(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	booster := f.seed(t, "A1", 3)

	p, err := f.service.BoosterProbability(ctx, 1, booster.ID)
	if err != nil {
		t.Fatalf("failed to compute probability: %v", err)
	}
	// Every card is missing, so nearly every pack brings something new.
	if p < 0.99 {
		t.Errorf("expected a near-certain pack, got %v", p)
	}

	if _, err := f.service.BoosterProbability(ctx, 1, booster.ID+99); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown booster, got %v", err)
	}
}
