// Package collection tracks which cards a user owns and derives the
// completion and pack-probability figures shown to them.
package collection

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/netzhuffle/tcgp-tracker/internal/storage/models"
	"github.com/netzhuffle/tcgp-tracker/internal/storage/repository"
	"github.com/netzhuffle/tcgp-tracker/internal/tcgp/idcache"
	"github.com/netzhuffle/tcgp-tracker/internal/tcgp/probability"
)

// Service exposes ownership updates and collection statistics.
type Service struct {
	sets        repository.SetRepository
	boosters    repository.BoosterRepository
	cards       repository.CardRepository
	ownership   repository.OwnershipRepository
	cache       *idcache.Cache
	probability *probability.Service
	logger      *zap.SugaredLogger
}

// NewService creates a collection service over the given repositories.
func NewService(
	sets repository.SetRepository,
	boosters repository.BoosterRepository,
	cards repository.CardRepository,
	ownership repository.OwnershipRepository,
	cache *idcache.Cache,
	prob *probability.Service,
	logger *zap.Logger,
) *Service {
	return &Service{
		sets:        sets,
		boosters:    boosters,
		cards:       cards,
		ownership:   ownership,
		cache:       cache,
		probability: prob,
		logger:      logger.Sugar(),
	}
}

// BoosterStats describes one booster of a set: how many of its cards
// exist, how many the user still misses, and the chance that opening
// one pack from it yields at least one of those missing cards.
type BoosterStats struct {
	Booster     *models.Booster `json:"booster"`
	Total       int             `json:"total"`
	Missing     int             `json:"missing"`
	Probability float64         `json:"probability"`
}

// SetStats aggregates a set's completion figures with the per-booster
// breakdown.
type SetStats struct {
	Set      *models.Set    `json:"set"`
	Total    int            `json:"total"`
	Missing  int            `json:"missing"`
	Boosters []BoosterStats `json:"boosters"`
}

// resolveCard looks up a card by set key and collection number. The
// set id comes from the cache when a prior lookup or synchronization
// already resolved the key.
func (s *Service) resolveCard(ctx context.Context, setKey string, number int) (*models.Card, error) {
	setID, ok := s.cache.SetID(setKey)
	if !ok {
		set, err := s.sets.GetByKey(ctx, setKey)
		if err != nil {
			return nil, err
		}
		if set == nil {
			return nil, fmt.Errorf("set %s: %w", setKey, repository.ErrNotFound)
		}
		setID = set.ID
	}
	card, err := s.cards.GetByNumberAndSet(ctx, setID, number)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, fmt.Errorf("card %s/%d: %w", setKey, number, repository.ErrNotFound)
	}
	return card, nil
}

// AddCard records the card as owned by the user, or as not needed when
// status says so. Re-adding overwrites the previous status.
func (s *Service) AddCard(ctx context.Context, userID int64, setKey string, number int, status models.OwnershipStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid ownership status %q", status)
	}
	card, err := s.resolveCard(ctx, setKey, number)
	if err != nil {
		return err
	}
	if err := s.ownership.Upsert(ctx, userID, card.ID, status); err != nil {
		return err
	}
	s.logger.Debugw("card recorded", "user", userID, "set", setKey, "number", number, "status", status)
	return nil
}

// RemoveCard puts the card back into the user's missing set. Removing
// a card the user never recorded is not an error.
func (s *Service) RemoveCard(ctx context.Context, userID int64, setKey string, number int) error {
	card, err := s.resolveCard(ctx, setKey, number)
	if err != nil {
		return err
	}
	return s.ownership.Delete(ctx, userID, card.ID)
}

// BoosterProbability computes the chance that one pack from the booster
// yields at least one card the user is missing, using the pack
// configuration of the booster's set.
func (s *Service) BoosterProbability(ctx context.Context, userID, boosterID int64) (float64, error) {
	booster, err := s.boosters.GetByID(ctx, boosterID)
	if err != nil {
		return 0, err
	}
	if booster == nil {
		return 0, fmt.Errorf("booster %d: %w", boosterID, repository.ErrNotFound)
	}
	set, err := s.sets.GetByID(ctx, booster.SetID)
	if err != nil {
		return 0, err
	}
	strategy := probability.ForSet(set.Key)
	return s.probability.ProbabilityOfNewCard(ctx, userID, boosterID, strategy)
}

// Stats returns completion figures for every known set, each with its
// per-booster breakdown and new-card probabilities.
func (s *Service) Stats(ctx context.Context, userID int64) ([]SetStats, error) {
	sets, err := s.sets.List(ctx)
	if err != nil {
		return nil, err
	}

	stats := make([]SetStats, 0, len(sets))
	for _, set := range sets {
		entry, err := s.setStats(ctx, userID, set)
		if err != nil {
			return nil, err
		}
		stats = append(stats, entry)
	}
	return stats, nil
}

// SetStatsByKey returns the completion figures for a single set.
func (s *Service) SetStatsByKey(ctx context.Context, userID int64, setKey string) (*SetStats, error) {
	set, err := s.sets.GetByKey(ctx, setKey)
	if err != nil {
		return nil, err
	}
	if set == nil {
		return nil, fmt.Errorf("set %s: %w", setKey, repository.ErrNotFound)
	}
	entry, err := s.setStats(ctx, userID, set)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *Service) setStats(ctx context.Context, userID int64, set *models.Set) (SetStats, error) {
	entry := SetStats{Set: set}

	var err error
	if entry.Total, err = s.cards.CountBySet(ctx, set.ID); err != nil {
		return entry, err
	}
	if entry.Missing, err = s.cards.CountMissingBySet(ctx, userID, set.ID); err != nil {
		return entry, err
	}

	boosters, err := s.boosters.ListBySet(ctx, set.ID)
	if err != nil {
		return entry, err
	}
	strategy := probability.ForSet(set.Key)

	entry.Boosters = make([]BoosterStats, 0, len(boosters))
	for _, booster := range boosters {
		bs := BoosterStats{Booster: booster}
		if bs.Total, err = s.cards.CountByBooster(ctx, booster.ID); err != nil {
			return entry, err
		}
		if bs.Missing, err = s.cards.CountMissingByBooster(ctx, userID, booster.ID); err != nil {
			return entry, err
		}
		if bs.Probability, err = s.probability.ProbabilityOfNewCard(ctx, userID, booster.ID, strategy); err != nil {
			return entry, err
		}
		entry.Boosters = append(entry.Boosters, bs)
	}
	return entry, nil
}
