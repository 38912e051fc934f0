package probability

import "github.com/netzhuffle/tcgp-tracker/internal/storage/models"

// The closed set of booster families. Slot tables follow the published
// offering rates: slots 1-3 always draw one-diamond cards, slots 4 and 5
// mix the higher rarities at different weights.

var slotFourBase = Distribution{
	models.RarityTwoDiamonds:   0.90,
	models.RarityThreeDiamonds: 0.05,
	models.RarityFourDiamonds:  0.01666,
	models.RarityOneStar:       0.02572,
	models.RarityTwoStars:      0.005,
	models.RarityThreeStars:    0.00222,
	models.RarityCrown:         0.0004,
}

var slotFiveBase = Distribution{
	models.RarityTwoDiamonds:   0.60,
	models.RarityThreeDiamonds: 0.20,
	models.RarityFourDiamonds:  0.06664,
	models.RarityOneStar:       0.10288,
	models.RarityTwoStars:      0.02,
	models.RarityThreeStars:    0.00888,
	models.RarityCrown:         0.0016,
}

var oneDiamondOnly = Distribution{models.RarityOneDiamond: 1}

// starTierRarities is the god-pack pool for families without shiny
// cards.
var starTierRarities = []models.Rarity{
	models.RarityOneStar,
	models.RarityTwoStars,
	models.RarityThreeStars,
	models.RarityCrown,
}

// Genesis is the original five-card family without a bonus slot, used
// by the early sets.
var Genesis = mustStrategy(Strategy{
	Name:         "genesis",
	CardsPerPack: 5,
	Weights:      PackWeights{Normal: 0.9995, God: 0.0005},
	Slots: []Distribution{
		oneDiamondOnly, oneDiamondOnly, oneDiamondOnly,
		slotFourBase, slotFiveBase,
	},
	GodPackRarities:  starTierRarities,
	ExcludedRarities: []models.Rarity{models.RarityOneShiny, models.RarityTwoShiny},
})

// Shiny is the family introduced with the shiny rarities: both shiny
// tiers are reserved for the bonus slot by rarity alone, with no
// per-card flag.
var Shiny = mustStrategy(Strategy{
	Name:         "shiny",
	CardsPerPack: 5,
	Weights:      PackWeights{Normal: 0.9162, God: 0.0005, Bonus: 0.0833},
	Slots: []Distribution{
		oneDiamondOnly, oneDiamondOnly, oneDiamondOnly,
		slotFourBase, slotFiveBase,
	},
	GodPackRarities: models.GodPackEligibleRarities(),
	Bonus: &BonusSlot{
		Mode: BonusFilterRarity,
		Distribution: Distribution{
			models.RarityOneShiny: 0.78,
			models.RarityTwoShiny: 0.22,
		},
	},
})

// Deluxe is the family whose bonus slot draws from explicitly
// flagged bonus-exclusive cards; those cards never appear in the normal
// slots.
var Deluxe = mustStrategy(Strategy{
	Name:         "deluxe",
	CardsPerPack: 5,
	Weights:      PackWeights{Normal: 0.9162, God: 0.0005, Bonus: 0.0833},
	Slots: []Distribution{
		oneDiamondOnly, oneDiamondOnly, oneDiamondOnly,
		slotFourBase, slotFiveBase,
	},
	GodPackRarities: starTierRarities,
	Bonus: &BonusSlot{
		Mode: BonusFilterFlag,
		Distribution: Distribution{
			models.RarityThreeDiamonds: 0.5,
			models.RarityOneStar:       0.5,
		},
	},
	ExcludedRarities: []models.Rarity{models.RarityOneShiny, models.RarityTwoShiny},
})

// Compact is the four-card family used by the smaller sets; the two
// mixed slots keep the usual rate tables.
var Compact = mustStrategy(Strategy{
	Name:         "compact",
	CardsPerPack: 4,
	Weights:      PackWeights{Normal: 0.9995, God: 0.0005},
	Slots: []Distribution{
		oneDiamondOnly, oneDiamondOnly,
		slotFourBase, slotFiveBase,
	},
	GodPackRarities:  starTierRarities,
	ExcludedRarities: []models.Rarity{models.RarityOneShiny, models.RarityTwoShiny},
})

// setStrategies assigns families to the sets that deviate from the
// default. Every other set with boosters uses Genesis.
var setStrategies = map[string]*Strategy{
	"A2b": Shiny,
	"A4":  Deluxe,
	"A4a": Deluxe,
	"A4b": Compact,
}

// ForSet returns the booster family for a set key.
func ForSet(setKey string) *Strategy {
	if s, ok := setStrategies[setKey]; ok {
		return s
	}
	return Genesis
}

// ByName returns the family with the given name, or nil.
func ByName(name string) *Strategy {
	for _, s := range []*Strategy{Genesis, Shiny, Deluxe, Compact} {
		if s.Name == name {
			return s
		}
	}
	return nil
}
