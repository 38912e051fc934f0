package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/netzhuffle/tcgp-tracker/internal/storage/models"
)

// CardRepository provides access to cards and the filtered count
// queries the probability engine is built on.
//
// Every Count method has a CountMissing variant that restricts the
// count to cards without an ownership row for the given user; the
// probability engine needs (total, missing) pairs for each filter.
type CardRepository interface {
	// GetByNumberAndSet retrieves a card by its number within a set.
	// Returns (nil, nil) when absent.
	GetByNumberAndSet(ctx context.Context, setID int64, number int) (*models.Card, error)

	// Create inserts a new card together with its booster memberships
	// and fills in card.ID. The (set, number) pair must not exist yet.
	Create(ctx context.Context, card *models.Card, boosterIDs []int64) error

	// ListBySet returns all cards of a set ordered by number.
	ListBySet(ctx context.Context, setID int64) ([]*models.Card, error)

	// CountBySet counts all cards in a set.
	CountBySet(ctx context.Context, setID int64) (int, error)
	// CountMissingBySet counts the set's cards the user does not own.
	CountMissingBySet(ctx context.Context, userID, setID int64) (int, error)

	// CountByBooster counts all cards in a booster.
	CountByBooster(ctx context.Context, boosterID int64) (int, error)
	// CountMissingByBooster counts the booster's cards the user does not
	// own.
	CountMissingByBooster(ctx context.Context, userID, boosterID int64) (int, error)

	// CountByRarity counts cards of a rarity in a booster, ignoring the
	// bonus-exclusive flag. Used by strategies whose bonus-slot filtering
	// is rarity-based.
	CountByRarity(ctx context.Context, boosterID int64, rarity models.Rarity) (int, error)
	CountMissingByRarity(ctx context.Context, userID, boosterID int64, rarity models.Rarity) (int, error)

	// CountByRarityAndBonus counts cards of a rarity in a booster with
	// the given bonus-exclusive flag value. Used by strategies whose
	// bonus-slot filtering is flag-based.
	CountByRarityAndBonus(ctx context.Context, boosterID int64, rarity models.Rarity, bonusExclusive bool) (int, error)
	CountMissingByRarityAndBonus(ctx context.Context, userID, boosterID int64, rarity models.Rarity, bonusExclusive bool) (int, error)

	// CountGodPackEligible counts cards in a booster drawable from a god
	// pack, given the eligible rarities. Bonus-exclusive cards are
	// excluded by construction. A card available from several boosters is
	// attributed to at most one of them for this count: its pinned
	// god-pack booster if set, its sole booster if it has exactly one,
	// and none otherwise.
	CountGodPackEligible(ctx context.Context, boosterID int64, rarities []models.Rarity) (int, error)
	CountMissingGodPackEligible(ctx context.Context, userID, boosterID int64, rarities []models.Rarity) (int, error)
}

type cardRepository struct {
	db *sql.DB
}

// NewCardRepository creates a card repository backed by db.
func NewCardRepository(db *sql.DB) CardRepository {
	return &cardRepository{db: db}
}

func (r *cardRepository) GetByNumberAndSet(ctx context.Context, setID int64, number int) (*models.Card, error) {
	query := `
		SELECT id, set_id, number, name, rarity, bonus_exclusive, god_pack_booster_id, equal_to
		FROM cards
		WHERE set_id = ? AND number = ?
	`
	card, err := scanCard(r.db.QueryRowContext(ctx, query, setID, number))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, storageErr("get card", "by number", err)
	}
	return card, nil
}

func (r *cardRepository) Create(ctx context.Context, card *models.Card, boosterIDs []int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("create card", card.Name, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var rarity sql.NullString
	if card.Rarity != nil {
		rarity = sql.NullString{String: string(*card.Rarity), Valid: true}
	}
	var godPackBooster sql.NullInt64
	if card.GodPackBoosterID != nil {
		godPackBooster = sql.NullInt64{Int64: *card.GodPackBoosterID, Valid: true}
	}
	var equalTo sql.NullString
	if card.EqualTo != "" {
		equalTo = sql.NullString{String: card.EqualTo, Valid: true}
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO cards (set_id, number, name, rarity, bonus_exclusive, god_pack_booster_id, equal_to)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		card.SetID, card.Number, card.Name, rarity, card.BonusExclusive, godPackBooster, equalTo,
	)
	if err != nil {
		return storageErr("create card", card.Name, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return storageErr("create card", card.Name, err)
	}
	card.ID = id

	for _, boosterID := range boosterIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO card_boosters (card_id, booster_id) VALUES (?, ?)`,
			id, boosterID,
		); err != nil {
			return storageErr("create card", card.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storageErr("create card", card.Name, err)
	}
	return nil
}

func (r *cardRepository) ListBySet(ctx context.Context, setID int64) ([]*models.Card, error) {
	query := `
		SELECT id, set_id, number, name, rarity, bonus_exclusive, god_pack_booster_id, equal_to
		FROM cards
		WHERE set_id = ?
		ORDER BY number
	`
	rows, err := r.db.QueryContext(ctx, query, setID)
	if err != nil {
		return nil, storageErr("list cards", "by set", err)
	}
	defer func() { _ = rows.Close() }()

	cards := []*models.Card{}
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, storageErr("list cards", "by set", err)
		}
		cards = append(cards, card)
	}

	return cards, rows.Err()
}

// missingClause restricts a count to cards without an ownership row for
// the user. A row with any status (owned or not needed) excludes the
// card from the missing set.
const missingClause = ` AND NOT EXISTS (
	SELECT 1 FROM ownership o WHERE o.card_id = c.id AND o.user_id = ?
)`

func (r *cardRepository) CountBySet(ctx context.Context, setID int64) (int, error) {
	return r.count(ctx, "count cards by set",
		`SELECT COUNT(*) FROM cards c WHERE c.set_id = ?`, setID)
}

func (r *cardRepository) CountMissingBySet(ctx context.Context, userID, setID int64) (int, error) {
	return r.count(ctx, "count missing cards by set",
		`SELECT COUNT(*) FROM cards c WHERE c.set_id = ?`+missingClause,
		setID, userID)
}

const countByBoosterQuery = `
	SELECT COUNT(*) FROM cards c
	JOIN card_boosters cb ON cb.card_id = c.id
	WHERE cb.booster_id = ?`

func (r *cardRepository) CountByBooster(ctx context.Context, boosterID int64) (int, error) {
	return r.count(ctx, "count cards by booster", countByBoosterQuery, boosterID)
}

func (r *cardRepository) CountMissingByBooster(ctx context.Context, userID, boosterID int64) (int, error) {
	return r.count(ctx, "count missing cards by booster",
		countByBoosterQuery+missingClause, boosterID, userID)
}

const countByRarityQuery = countByBoosterQuery + ` AND c.rarity = ?`

func (r *cardRepository) CountByRarity(ctx context.Context, boosterID int64, rarity models.Rarity) (int, error) {
	return r.count(ctx, "count cards by rarity",
		countByRarityQuery, boosterID, rarity)
}

func (r *cardRepository) CountMissingByRarity(ctx context.Context, userID, boosterID int64, rarity models.Rarity) (int, error) {
	return r.count(ctx, "count missing cards by rarity",
		countByRarityQuery+missingClause, boosterID, rarity, userID)
}

const countByRarityAndBonusQuery = countByRarityQuery + ` AND c.bonus_exclusive = ?`

func (r *cardRepository) CountByRarityAndBonus(ctx context.Context, boosterID int64, rarity models.Rarity, bonusExclusive bool) (int, error) {
	return r.count(ctx, "count cards by rarity and bonus flag",
		countByRarityAndBonusQuery, boosterID, rarity, bonusExclusive)
}

func (r *cardRepository) CountMissingByRarityAndBonus(ctx context.Context, userID, boosterID int64, rarity models.Rarity, bonusExclusive bool) (int, error) {
	return r.count(ctx, "count missing cards by rarity and bonus flag",
		countByRarityAndBonusQuery+missingClause, boosterID, rarity, bonusExclusive, userID)
}

// godPackQuery counts eligible cards attributed to the booster: pinned
// cards count for their pinned booster only, unpinned cards count for
// their booster only when it is their sole membership.
func godPackQuery(rarities []models.Rarity) (string, []interface{}) {
	placeholders := make([]string, len(rarities))
	args := make([]interface{}, len(rarities))
	for i, rarity := range rarities {
		placeholders[i] = "?"
		args[i] = rarity
	}

	query := `
		SELECT COUNT(*) FROM cards c
		JOIN card_boosters cb ON cb.card_id = c.id
		WHERE cb.booster_id = ?
		  AND c.bonus_exclusive = 0
		  AND c.rarity IN (` + strings.Join(placeholders, ",") + `)
		  AND (
			c.god_pack_booster_id = cb.booster_id
			OR (
				c.god_pack_booster_id IS NULL
				AND (SELECT COUNT(*) FROM card_boosters cb2 WHERE cb2.card_id = c.id) = 1
			)
		  )`
	return query, args
}

func (r *cardRepository) CountGodPackEligible(ctx context.Context, boosterID int64, rarities []models.Rarity) (int, error) {
	if len(rarities) == 0 {
		return 0, nil
	}
	query, rarityArgs := godPackQuery(rarities)
	args := append([]interface{}{boosterID}, rarityArgs...)
	return r.count(ctx, "count god pack eligible cards", query, args...)
}

func (r *cardRepository) CountMissingGodPackEligible(ctx context.Context, userID, boosterID int64, rarities []models.Rarity) (int, error) {
	if len(rarities) == 0 {
		return 0, nil
	}
	query, rarityArgs := godPackQuery(rarities)
	args := append([]interface{}{boosterID}, rarityArgs...)
	args = append(args, userID)
	return r.count(ctx, "count missing god pack eligible cards", query+missingClause, args...)
}

func (r *cardRepository) count(ctx context.Context, op, query string, args ...interface{}) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, storageErr(op, "cards", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCard(row rowScanner) (*models.Card, error) {
	card := &models.Card{}
	var rarity sql.NullString
	var godPackBooster sql.NullInt64
	var equalTo sql.NullString

	err := row.Scan(
		&card.ID,
		&card.SetID,
		&card.Number,
		&card.Name,
		&rarity,
		&card.BonusExclusive,
		&godPackBooster,
		&equalTo,
	)
	if err != nil {
		return nil, err
	}

	if rarity.Valid {
		r := models.Rarity(rarity.String)
		card.Rarity = &r
	}
	if godPackBooster.Valid {
		id := godPackBooster.Int64
		card.GodPackBoosterID = &id
	}
	if equalTo.Valid {
		card.EqualTo = equalTo.String
	}

	return card, nil
}
