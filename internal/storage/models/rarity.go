package models

// Rarity is the closed set of card rarities, ordered by scarcity. The
// string value is what gets persisted.
type Rarity string

const (
	RarityOneDiamond    Rarity = "one_diamond"
	RarityTwoDiamonds   Rarity = "two_diamonds"
	RarityThreeDiamonds Rarity = "three_diamonds"
	RarityFourDiamonds  Rarity = "four_diamonds"
	RarityOneStar       Rarity = "one_star"
	RarityTwoStars      Rarity = "two_stars"
	RarityThreeStars    Rarity = "three_stars"
	RarityOneShiny      Rarity = "one_shiny"
	RarityTwoShiny      Rarity = "two_shiny"
	RarityCrown         Rarity = "crown"
)

// raritySymbols maps each rarity to the symbol used in the catalog
// source document. The mapping is bijective.
var raritySymbols = map[Rarity]string{
	RarityOneDiamond:    "♢",
	RarityTwoDiamonds:   "♢♢",
	RarityThreeDiamonds: "♢♢♢",
	RarityFourDiamonds:  "♢♢♢♢",
	RarityOneStar:       "☆",
	RarityTwoStars:      "☆☆",
	RarityThreeStars:    "☆☆☆",
	RarityOneShiny:      "✸",
	RarityTwoShiny:      "✸✸",
	RarityCrown:         "♛",
}

var symbolRarities = func() map[string]Rarity {
	m := make(map[string]Rarity, len(raritySymbols))
	for r, s := range raritySymbols {
		m[s] = r
	}
	return m
}()

// Rarities lists all known rarities in scarcity order.
func Rarities() []Rarity {
	return []Rarity{
		RarityOneDiamond,
		RarityTwoDiamonds,
		RarityThreeDiamonds,
		RarityFourDiamonds,
		RarityOneStar,
		RarityTwoStars,
		RarityThreeStars,
		RarityOneShiny,
		RarityTwoShiny,
		RarityCrown,
	}
}

// RarityFromSymbol translates a source-document symbol into its rarity.
// The second return value is false for unrecognized symbols.
func RarityFromSymbol(symbol string) (Rarity, bool) {
	r, ok := symbolRarities[symbol]
	return r, ok
}

// Symbol returns the source-document notation for the rarity.
func (r Rarity) Symbol() string {
	return raritySymbols[r]
}

// Valid reports whether r is one of the closed enumeration's members.
func (r Rarity) Valid() bool {
	_, ok := raritySymbols[r]
	return ok
}

// GodPackEligibleRarities is the global set of rarities that can appear
// in a god pack. Individual booster strategies may further restrict it
// but never extend it. Bonus-exclusive cards are excluded from god
// packs regardless of rarity.
func GodPackEligibleRarities() []Rarity {
	return []Rarity{
		RarityOneStar,
		RarityTwoStars,
		RarityThreeStars,
		RarityOneShiny,
		RarityTwoShiny,
		RarityCrown,
	}
}
