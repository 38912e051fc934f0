// Package models defines the persisted catalog and collection entities.
package models

import "time"

// Set is a card set identified by its short key (e.g. "A1").
// Sets are created once by catalog synchronization and never change.
type Set struct {
	ID   int64  `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Booster is a purchasable pack type within a set. Its natural key is
// (set, name).
type Booster struct {
	ID    int64  `json:"id"`
	SetID int64  `json:"set_id"`
	Name  string `json:"name"`
}

// Card is a single printing within a set, numbered uniquely per set.
type Card struct {
	ID    int64 `json:"id"`
	SetID int64 `json:"set_id"`
	// Number is the card's position in the set, strictly positive and
	// unique within the set.
	Number int    `json:"number"`
	Name   string `json:"name"`
	// Rarity is nil for cards without a rarity (e.g. promotional cards).
	Rarity *Rarity `json:"rarity,omitempty"`
	// BonusExclusive marks cards only drawable from a booster's bonus
	// slot, never from the normal slots.
	BonusExclusive bool `json:"bonus_exclusive"`
	// GodPackBoosterID pins the card to a single booster for god-pack
	// counting, so cards printed in several boosters of the same pool are
	// never counted twice. Nil means unattributed.
	GodPackBoosterID *int64 `json:"god_pack_booster_id,omitempty"`
	// EqualTo is a raw cross-set reference ("A1-285") marking this card as
	// identical to a card in another set. Parsed and stored, consumed by
	// nothing yet.
	EqualTo string `json:"equal_to,omitempty"`
}

// OwnershipStatus describes why a card is excluded from a user's
// missing set.
type OwnershipStatus string

const (
	// StatusOwned means the user has the card.
	StatusOwned OwnershipStatus = "owned"
	// StatusNotNeeded means the user chose not to collect the card. For
	// probability purposes it is treated exactly like owned.
	StatusNotNeeded OwnershipStatus = "not_needed"
)

// Valid reports whether s is a known ownership status.
func (s OwnershipStatus) Valid() bool {
	return s == StatusOwned || s == StatusNotNeeded
}

// Ownership links a user to a card. The existence of a row excludes the
// card from the user's missing set; absence means missing.
type Ownership struct {
	UserID    int64
	CardID    int64
	Status    OwnershipStatus
	CreatedAt time.Time
}
