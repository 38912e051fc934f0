package probability

import (
	"context"

	"go.uber.org/zap"

	"github.com/netzhuffle/tcgp-tracker/internal/storage/models"
)

// CountReader is the slice of the card repository the probability
// engine reads. All counts are scoped to one booster; Missing variants
// count only cards without an ownership row for the user.
type CountReader interface {
	CountByRarity(ctx context.Context, boosterID int64, rarity models.Rarity) (int, error)
	CountMissingByRarity(ctx context.Context, userID, boosterID int64, rarity models.Rarity) (int, error)
	CountByRarityAndBonus(ctx context.Context, boosterID int64, rarity models.Rarity, bonusExclusive bool) (int, error)
	CountMissingByRarityAndBonus(ctx context.Context, userID, boosterID int64, rarity models.Rarity, bonusExclusive bool) (int, error)
	CountGodPackEligible(ctx context.Context, boosterID int64, rarities []models.Rarity) (int, error)
	CountMissingGodPackEligible(ctx context.Context, userID, boosterID int64, rarities []models.Rarity) (int, error)
}

// Service computes new-card probabilities by combining a strategy's
// static tables with live card counts. It holds no state of its own and
// is safe for concurrent use.
type Service struct {
	cards  CountReader
	logger *zap.SugaredLogger
}

// NewService creates a probability service reading counts from cards.
func NewService(cards CountReader, logger *zap.Logger) *Service {
	return &Service{cards: cards, logger: logger.Sugar()}
}

// ProbabilityOfNewCard returns the probability in [0, 1] that opening
// one pack of the given booster yields at least one card the user does
// not own.
//
// Normal-pack slots are combined assuming independence; a bonus pack is
// the normal pack plus one extra slot; a god pack is a single uniform
// draw from the eligible pool. Rarities with no printed cards in the
// booster contribute zero rather than erroring, because an empty rarity
// pool is a valid catalog state.
func (s *Service) ProbabilityOfNewCard(ctx context.Context, userID, boosterID int64, strategy *Strategy) (float64, error) {
	// Probability that none of the normal slots yields a new card.
	pNoneNormal := 1.0
	for _, dist := range strategy.Slots {
		pSlot, err := s.slotProbability(ctx, userID, boosterID, dist, strategy.flagFiltered(), false)
		if err != nil {
			return 0, err
		}
		pNoneNormal *= 1 - pSlot
	}
	pNormal := 1 - pNoneNormal

	pGod, err := s.godPackProbability(ctx, userID, boosterID, strategy)
	if err != nil {
		return 0, err
	}

	result := strategy.Weights.Normal*pNormal + strategy.Weights.God*pGod

	if strategy.Bonus != nil {
		bonusExclusive := strategy.Bonus.Mode == BonusFilterFlag
		pBonusSlot, err := s.slotProbability(ctx, userID, boosterID, strategy.Bonus.Distribution, strategy.flagFiltered(), bonusExclusive)
		if err != nil {
			return 0, err
		}
		// A bonus pack is the normal pack plus the extra slot.
		pBonusPack := 1 - pNoneNormal*(1-pBonusSlot)
		result += strategy.Weights.Bonus * pBonusPack
	}

	s.logger.Debugw("computed new card probability",
		"user_id", userID,
		"booster_id", boosterID,
		"strategy", strategy.Name,
		"probability", result,
	)
	return result, nil
}

// slotProbability computes the chance that one slot draw yields a card
// the user is missing. flagFiltered selects the flag-aware count
// queries; bonusExclusive picks which side of the flag this slot draws
// from.
func (s *Service) slotProbability(ctx context.Context, userID, boosterID int64, dist Distribution, flagFiltered, bonusExclusive bool) (float64, error) {
	p := 0.0
	for rarity, rarityProb := range dist {
		var total, missing int
		var err error
		if flagFiltered {
			total, err = s.cards.CountByRarityAndBonus(ctx, boosterID, rarity, bonusExclusive)
			if err != nil {
				return 0, err
			}
			missing, err = s.cards.CountMissingByRarityAndBonus(ctx, userID, boosterID, rarity, bonusExclusive)
		} else {
			total, err = s.cards.CountByRarity(ctx, boosterID, rarity)
			if err != nil {
				return 0, err
			}
			missing, err = s.cards.CountMissingByRarity(ctx, userID, boosterID, rarity)
		}
		if err != nil {
			return 0, err
		}
		if total == 0 {
			// A rarity with no printed cards in this booster cannot be
			// drawn.
			continue
		}
		p += rarityProb * float64(missing) / float64(total)
	}
	return p, nil
}

// godPackProbability models a god pack as a single uniform draw from
// the eligible pool: the per-slot split is not published for god packs
// and every card comes from the same pool anyway.
func (s *Service) godPackProbability(ctx context.Context, userID, boosterID int64, strategy *Strategy) (float64, error) {
	rarities := eligibleGodPackRarities(strategy)
	if len(rarities) == 0 {
		return 0, nil
	}

	total, err := s.cards.CountGodPackEligible(ctx, boosterID, rarities)
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}

	missing, err := s.cards.CountMissingGodPackEligible(ctx, userID, boosterID, rarities)
	if err != nil {
		return 0, err
	}
	return float64(missing) / float64(total), nil
}

// eligibleGodPackRarities intersects the global god-pack-eligible set
// with the strategy's own subset.
func eligibleGodPackRarities(strategy *Strategy) []models.Rarity {
	allowed := raritySet(strategy.GodPackRarities)
	var rarities []models.Rarity
	for _, rarity := range models.GodPackEligibleRarities() {
		if allowed[rarity] {
			rarities = append(rarities, rarity)
		}
	}
	return rarities
}
