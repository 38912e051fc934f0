package probability

import (
	"math"
	"testing"

	"github.com/netzhuffle/tcgp-tracker/internal/storage/models"
)

func builtinStrategies() []*Strategy {
	return []*Strategy{Genesis, Shiny, Deluxe, Compact}
}

func TestBuiltinStrategies_SlotDistributionsSumToOne(t *testing.T) {
	for _, strategy := range builtinStrategies() {
		t.Run(strategy.Name, func(t *testing.T) {
			if len(strategy.Slots) != strategy.CardsPerPack {
				t.Fatalf("have %d slots for %d cards per pack", len(strategy.Slots), strategy.CardsPerPack)
			}
			for i, dist := range strategy.Slots {
				sum := 0.0
				for rarity, p := range dist {
					if p < 0 {
						t.Errorf("slot %d: negative probability for %s", i+1, rarity)
					}
					sum += p
				}
				if math.Abs(sum-1) > sumTolerance {
					t.Errorf("slot %d: probabilities sum to %v", i+1, sum)
				}
			}
			if strategy.Bonus != nil {
				sum := 0.0
				for _, p := range strategy.Bonus.Distribution {
					sum += p
				}
				if math.Abs(sum-1) > sumTolerance {
					t.Errorf("bonus slot: probabilities sum to %v", sum)
				}
			}
		})
	}
}

func TestBuiltinStrategies_PackWeightsSumToOne(t *testing.T) {
	for _, strategy := range builtinStrategies() {
		w := strategy.Weights
		sum := w.Normal + w.God + w.Bonus
		if math.Abs(sum-1) > sumTolerance {
			t.Errorf("%s: pack weights sum to %v", strategy.Name, sum)
		}
	}
}

func TestBuiltinStrategies_GodPackRaritiesGloballyEligible(t *testing.T) {
	global := map[models.Rarity]bool{}
	for _, r := range models.GodPackEligibleRarities() {
		global[r] = true
	}

	for _, strategy := range builtinStrategies() {
		for _, rarity := range strategy.GodPackRarities {
			if !global[rarity] {
				t.Errorf("%s: rarity %s is not globally god-pack-eligible", strategy.Name, rarity)
			}
		}
	}
}

func TestNew_RevalidatesBuiltins(t *testing.T) {
	for _, strategy := range builtinStrategies() {
		if _, err := New(*strategy); err != nil {
			t.Errorf("%s: %v", strategy.Name, err)
		}
	}
}

func validBase() Strategy {
	return Strategy{
		Name:         "test",
		CardsPerPack: 2,
		Weights:      PackWeights{Normal: 0.9995, God: 0.0005},
		Slots: []Distribution{
			{models.RarityOneDiamond: 1},
			{models.RarityTwoDiamonds: 0.7, models.RarityOneStar: 0.3},
		},
		GodPackRarities: []models.Rarity{models.RarityOneStar},
	}
}

func TestNew_RejectsBadSlotSum(t *testing.T) {
	s := validBase()
	s.Slots[1] = Distribution{models.RarityTwoDiamonds: 0.7, models.RarityOneStar: 0.2}

	if _, err := New(s); err == nil {
		t.Error("expected error for distribution summing to 0.9")
	}
}

func TestNew_AcceptsSumWithinTolerance(t *testing.T) {
	s := validBase()
	s.Slots[1] = Distribution{models.RarityTwoDiamonds: 0.70004, models.RarityOneStar: 0.3}

	if _, err := New(s); err != nil {
		t.Errorf("expected sum within tolerance to pass, got %v", err)
	}
}

func TestNew_RejectsNegativeProbability(t *testing.T) {
	s := validBase()
	s.Slots[1] = Distribution{models.RarityTwoDiamonds: 1.3, models.RarityOneStar: -0.3}

	if _, err := New(s); err == nil {
		t.Error("expected error for negative probability")
	}
}

func TestNew_RejectsExcludedRarityInSlot(t *testing.T) {
	s := validBase()
	s.ExcludedRarities = []models.Rarity{models.RarityOneStar}

	if _, err := New(s); err == nil {
		t.Error("expected error for slot referencing an excluded rarity")
	}
}

func TestNew_RejectsNonEligibleGodPackRarity(t *testing.T) {
	s := validBase()
	s.GodPackRarities = []models.Rarity{models.RarityOneDiamond}

	if _, err := New(s); err == nil {
		t.Error("expected error for god pack rarity outside the global eligible set")
	}
}

func TestNew_RejectsSlotCountMismatch(t *testing.T) {
	s := validBase()
	s.CardsPerPack = 3

	if _, err := New(s); err == nil {
		t.Error("expected error for slot count mismatch")
	}
}

func TestNew_RejectsBonusWeightWithoutConfig(t *testing.T) {
	s := validBase()
	s.Weights = PackWeights{Normal: 0.9, God: 0.0167, Bonus: 0.0833}

	if _, err := New(s); err == nil {
		t.Error("expected error for bonus weight without bonus slot configuration")
	}
}

func TestNew_RejectsReservedRarityInNormalSlot(t *testing.T) {
	s := validBase()
	s.Weights = PackWeights{Normal: 0.9162, God: 0.0005, Bonus: 0.0833}
	// One-star appears in slot 2 but is also reserved for the
	// rarity-based bonus slot.
	s.Bonus = &BonusSlot{
		Mode:         BonusFilterRarity,
		Distribution: Distribution{models.RarityOneStar: 1},
	}

	if _, err := New(s); err == nil {
		t.Error("expected error for bonus-reserved rarity in a normal slot")
	}
}

func TestForSet(t *testing.T) {
	if got := ForSet("A2b"); got != Shiny {
		t.Errorf("expected Shiny for A2b, got %s", got.Name)
	}
	if got := ForSet("A4"); got != Deluxe {
		t.Errorf("expected Deluxe for A4, got %s", got.Name)
	}
	if got := ForSet("A1"); got != Genesis {
		t.Errorf("expected Genesis default for A1, got %s", got.Name)
	}
}

func TestByName(t *testing.T) {
	if got := ByName("compact"); got != Compact {
		t.Error("expected Compact by name")
	}
	if got := ByName("unknown"); got != nil {
		t.Error("expected nil for unknown name")
	}
}
