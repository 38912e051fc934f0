// Package probability models booster pack odds and computes the chance
// that opening one pack yields at least one card a user does not own.
//
// Each structurally distinct booster family is described by a Strategy:
// immutable, validated-at-construction data, not behavior. The set of
// families is closed and known at build time; new families are added by
// defining a new Strategy value, not by plugging in at runtime.
package probability

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/netzhuffle/tcgp-tracker/internal/storage/models"
)

// sumTolerance is the allowed numeric slack when checking that a
// probability table sums to 1.
const sumTolerance = 1e-4

// Distribution maps rarities to draw probabilities for one card slot.
// A valid distribution sums to 1 within sumTolerance and contains no
// negative probability.
type Distribution map[models.Rarity]float64

// PackWeights is the relative likelihood of drawing each pack variant.
// Bonus is zero for families without a bonus slot.
type PackWeights struct {
	Normal float64
	God    float64
	Bonus  float64
}

// BonusFilterMode selects how bonus-slot eligibility is decided.
type BonusFilterMode int

const (
	// BonusFilterFlag restricts the bonus slot to cards explicitly
	// marked bonus-exclusive; those same cards are excluded from the
	// normal slots.
	BonusFilterFlag BonusFilterMode = iota
	// BonusFilterRarity reserves whole rarities for the bonus slot; no
	// per-card flag is involved, the reserved rarities are simply absent
	// from the normal-slot distributions.
	BonusFilterRarity
)

// BonusSlot configures a family's optional extra card slot.
type BonusSlot struct {
	Mode         BonusFilterMode
	Distribution Distribution
}

// Strategy describes how one booster family assembles packs. Construct
// through New (or mustStrategy for the built-in families); a Strategy
// that passed validation is immutable by convention and safe to share.
type Strategy struct {
	Name         string
	CardsPerPack int
	Weights      PackWeights
	// Slots holds the rarity distribution per normal-pack slot;
	// Slots[0] is slot 1. Length equals CardsPerPack.
	Slots []Distribution
	// GodPackRarities is the subset of the globally god-pack-eligible
	// rarities this family draws from when a god pack comes up.
	GodPackRarities []models.Rarity
	// Bonus is nil for families without a bonus slot.
	Bonus *BonusSlot
	// ExcludedRarities are rarities this family never uses anywhere; a
	// distribution referencing one is a construction error.
	ExcludedRarities []models.Rarity
}

// New validates the strategy and returns it. Validation failures are
// construction-time defects, never runtime conditions.
func New(s Strategy) (*Strategy, error) {
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("strategy %s: %w", s.Name, err)
	}
	return &s, nil
}

func mustStrategy(s Strategy) *Strategy {
	strategy, err := New(s)
	if err != nil {
		panic(err)
	}
	return strategy
}

func (s *Strategy) validate() error {
	if s.CardsPerPack < 1 {
		return fmt.Errorf("cards per pack must be positive, got %d", s.CardsPerPack)
	}
	if len(s.Slots) != s.CardsPerPack {
		return fmt.Errorf("have %d slot distributions for %d cards per pack", len(s.Slots), s.CardsPerPack)
	}

	if err := s.validateWeights(); err != nil {
		return err
	}

	excluded := raritySet(s.ExcludedRarities)
	for i, dist := range s.Slots {
		if err := validateDistribution(dist, excluded); err != nil {
			return fmt.Errorf("slot %d: %w", i+1, err)
		}
	}

	if err := s.validateGodPackRarities(excluded); err != nil {
		return err
	}

	return s.validateBonus(excluded)
}

func (s *Strategy) validateWeights() error {
	if s.Weights.Normal < 0 || s.Weights.God < 0 || s.Weights.Bonus < 0 {
		return fmt.Errorf("negative pack weight")
	}
	sum := s.Weights.Normal + s.Weights.God + s.Weights.Bonus
	if !scalar.EqualWithinAbs(sum, 1, sumTolerance) {
		return fmt.Errorf("pack weights sum to %v, want 1", sum)
	}
	if s.Weights.Bonus > 0 && s.Bonus == nil {
		return fmt.Errorf("bonus weight without a bonus slot configuration")
	}
	if s.Weights.Bonus == 0 && s.Bonus != nil {
		return fmt.Errorf("bonus slot configuration without a bonus weight")
	}
	return nil
}

func (s *Strategy) validateGodPackRarities(excluded map[models.Rarity]bool) error {
	if len(s.GodPackRarities) == 0 {
		return fmt.Errorf("no god pack rarities")
	}
	global := raritySet(models.GodPackEligibleRarities())
	for _, rarity := range s.GodPackRarities {
		if !global[rarity] {
			return fmt.Errorf("rarity %s is not god-pack-eligible", rarity)
		}
		if excluded[rarity] {
			return fmt.Errorf("god pack references excluded rarity %s", rarity)
		}
	}
	return nil
}

func (s *Strategy) validateBonus(excluded map[models.Rarity]bool) error {
	if s.Bonus == nil {
		return nil
	}
	if err := validateDistribution(s.Bonus.Distribution, excluded); err != nil {
		return fmt.Errorf("bonus slot: %w", err)
	}
	if s.Bonus.Mode != BonusFilterRarity {
		return nil
	}
	// Rarity-based filtering reserves the bonus rarities for the bonus
	// slot; a normal slot referencing one would double-draw them.
	for rarity := range s.Bonus.Distribution {
		for i, dist := range s.Slots {
			if _, ok := dist[rarity]; ok {
				return fmt.Errorf("bonus-reserved rarity %s appears in slot %d", rarity, i+1)
			}
		}
	}
	return nil
}

func validateDistribution(dist Distribution, excluded map[models.Rarity]bool) error {
	if len(dist) == 0 {
		return fmt.Errorf("empty distribution")
	}
	probs := make([]float64, 0, len(dist))
	for rarity, p := range dist {
		if !rarity.Valid() {
			return fmt.Errorf("unknown rarity %s", rarity)
		}
		if excluded[rarity] {
			return fmt.Errorf("references excluded rarity %s", rarity)
		}
		if p < 0 || math.IsNaN(p) {
			return fmt.Errorf("invalid probability %v for rarity %s", p, rarity)
		}
		probs = append(probs, p)
	}
	if sum := floats.Sum(probs); !scalar.EqualWithinAbs(sum, 1, sumTolerance) {
		return fmt.Errorf("probabilities sum to %v, want 1", sum)
	}
	return nil
}

// flagFiltered reports whether the family's normal slots must exclude
// bonus-exclusive cards from their counts.
func (s *Strategy) flagFiltered() bool {
	return s.Bonus != nil && s.Bonus.Mode == BonusFilterFlag
}

func raritySet(rarities []models.Rarity) map[models.Rarity]bool {
	set := make(map[models.Rarity]bool, len(rarities))
	for _, r := range rarities {
		set[r] = true
	}
	return set
}
