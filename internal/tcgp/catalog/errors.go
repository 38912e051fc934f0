package catalog

import "errors"

// Synchronization error kinds. Each is fatal for the set being
// processed: a detected defect aborts that set to avoid creating
// partially-consistent entities, but does not stop other sets.
var (
	// ErrDuplicateCardNumber means two cards in one set share a number.
	ErrDuplicateCardNumber = errors.New("duplicate card number")

	// ErrInvalidCardNumber means a card-number token is not a strictly
	// positive integer.
	ErrInvalidCardNumber = errors.New("invalid card number")

	// ErrInvalidRaritySymbol means a rarity token is not part of the
	// closed symbol set.
	ErrInvalidRaritySymbol = errors.New("invalid rarity symbol")

	// ErrInvalidBoosterReference means a card names a booster its set
	// does not declare.
	ErrInvalidBoosterReference = errors.New("invalid booster reference")

	// ErrInvalidBonusRarity means a bonus-exclusive card has a rarity
	// the set's booster family never draws from the bonus slot.
	ErrInvalidBonusRarity = errors.New("rarity not drawable from bonus slot")
)

// IsValidationError reports whether err stems from a defect in the
// source document rather than from storage. Joined synchronization
// errors match when any of their per-set failures is a defect.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrDuplicateCardNumber) ||
		errors.Is(err, ErrInvalidCardNumber) ||
		errors.Is(err, ErrInvalidRaritySymbol) ||
		errors.Is(err, ErrInvalidBoosterReference) ||
		errors.Is(err, ErrInvalidBonusRarity)
}
