package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/netzhuffle/tcgp-tracker/internal/storage/models"
	"github.com/netzhuffle/tcgp-tracker/internal/storage/repository"
	"github.com/netzhuffle/tcgp-tracker/internal/tcgp/idcache"
	"github.com/netzhuffle/tcgp-tracker/internal/tcgp/probability"
)

// Synchronizer reconciles the declarative source document against
// storage. Synchronization is one-way and additive: missing sets,
// boosters and cards are created, existing entities are never updated
// or deleted, so re-running it after editing the source is safe and a
// no-op for unchanged rows.
type Synchronizer struct {
	sets     repository.SetRepository
	boosters repository.BoosterRepository
	cards    repository.CardRepository
	cache    *idcache.Cache
	logger   *zap.SugaredLogger
}

// NewSynchronizer creates a synchronizer over the given repositories.
func NewSynchronizer(
	sets repository.SetRepository,
	boosters repository.BoosterRepository,
	cards repository.CardRepository,
	cache *idcache.Cache,
	logger *zap.Logger,
) *Synchronizer {
	return &Synchronizer{
		sets:     sets,
		boosters: boosters,
		cards:    cards,
		cache:    cache,
		logger:   logger.Sugar(),
	}
}

// Report summarizes what one synchronization pass did.
type Report struct {
	SetsCreated     int `json:"sets_created"`
	BoostersCreated int `json:"boosters_created"`
	CardsCreated    int `json:"cards_created"`
	CardsSkipped    int `json:"cards_skipped"`
}

// Synchronize processes every set in the document. A defect in one set
// aborts that set but independent sets still synchronize; the combined
// error joins all per-set failures.
func (s *Synchronizer) Synchronize(ctx context.Context, doc Document) (*Report, error) {
	report := &Report{}
	var errs []error

	for _, key := range doc.SetKeys() {
		if err := s.syncSet(ctx, key, doc[key], report); err != nil {
			s.logger.Errorw("set synchronization failed", "set", key, "error", err)
			errs = append(errs, fmt.Errorf("set %s: %w", key, err))
		}
	}

	s.logger.Infow("catalog synchronized",
		"sets_created", report.SetsCreated,
		"boosters_created", report.BoostersCreated,
		"cards_created", report.CardsCreated,
		"cards_skipped", report.CardsSkipped,
		"failed_sets", len(errs),
	)
	return report, errors.Join(errs...)
}

// plannedCard is a fully validated card entry, ready to create.
type plannedCard struct {
	number         int
	name           string
	rarity         *models.Rarity
	boosterNames   []string
	bonusExclusive bool
	godPackBooster string
	equalTo        string
}

func (s *Synchronizer) syncSet(ctx context.Context, key string, entry *SetEntry, report *Report) error {
	boosterNames := entry.EffectiveBoosters()

	// Validate the whole set before creating any of its cards, so a
	// defect cannot leave this pass half-applied.
	planned, err := planCards(key, entry, boosterNames)
	if err != nil {
		return err
	}

	set, err := s.resolveSet(ctx, key, entry.Name, report)
	if err != nil {
		return err
	}

	boosterIDs := make(map[string]int64, len(boosterNames))
	for _, name := range boosterNames {
		id, err := s.resolveBooster(ctx, set, name, report)
		if err != nil {
			return err
		}
		boosterIDs[name] = id
	}

	for _, plan := range planned {
		existing, err := s.cards.GetByNumberAndSet(ctx, set.ID, plan.number)
		if err != nil {
			return err
		}
		if existing != nil {
			// Never update existing cards; manual or prior corrections
			// must not be clobbered.
			report.CardsSkipped++
			continue
		}

		card := &models.Card{
			SetID:          set.ID,
			Number:         plan.number,
			Name:           plan.name,
			Rarity:         plan.rarity,
			BonusExclusive: plan.bonusExclusive,
			EqualTo:        plan.equalTo,
		}
		if plan.godPackBooster != "" {
			id := boosterIDs[plan.godPackBooster]
			card.GodPackBoosterID = &id
		}

		ids := make([]int64, 0, len(plan.boosterNames))
		for _, name := range plan.boosterNames {
			id, err := s.boosterID(ctx, set, name)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}

		if err := s.cards.Create(ctx, card, ids); err != nil {
			return err
		}
		report.CardsCreated++
	}

	return nil
}

// planCards parses and validates every card entry of a set: card
// numbers must be strictly positive integers unique within the set,
// rarity symbols must be known, booster references must be a subset of
// the set's boosters, and bonus-exclusive cards must carry a rarity
// their booster family actually draws from the bonus slot.
func planCards(setKey string, entry *SetEntry, boosterNames []string) ([]plannedCard, error) {
	validBoosters := make(map[string]bool, len(boosterNames))
	for _, name := range boosterNames {
		validBoosters[name] = true
	}
	strategy := probability.ForSet(setKey)

	seen := make(map[int]bool, len(entry.Cards))
	planned := make([]plannedCard, 0, len(entry.Cards))
	for token, card := range entry.Cards {
		number, ok := parseCardNumber(token)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCardNumber, token)
		}
		if seen[number] {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateCardNumber, number)
		}
		seen[number] = true

		plan := plannedCard{
			number:         number,
			name:           card.Name,
			bonusExclusive: card.Bonus,
			godPackBooster: card.GodPackBooster,
			equalTo:        card.EqualTo,
		}

		if card.Rarity != "" {
			rarity, ok := models.RarityFromSymbol(card.Rarity)
			if !ok {
				return nil, fmt.Errorf("card %d: %w: %q", number, ErrInvalidRaritySymbol, card.Rarity)
			}
			plan.rarity = &rarity
		}

		for _, name := range card.Boosters {
			if !validBoosters[name] {
				return nil, fmt.Errorf("card %d: %w: %q", number, ErrInvalidBoosterReference, name)
			}
		}
		if card.GodPackBooster != "" && !validBoosters[card.GodPackBooster] {
			return nil, fmt.Errorf("card %d: %w: %q", number, ErrInvalidBoosterReference, card.GodPackBooster)
		}

		if card.Bonus {
			if err := validateBonusRarity(plan.rarity, strategy); err != nil {
				return nil, fmt.Errorf("card %d: %w", number, err)
			}
		}

		// A card without an explicit booster list belongs to all of the
		// set's boosters; in a set without boosters the list stays empty.
		if len(card.Boosters) > 0 {
			plan.boosterNames = card.Boosters
		} else {
			plan.boosterNames = boosterNames
		}

		planned = append(planned, plan)
	}

	sort.Slice(planned, func(i, j int) bool { return planned[i].number < planned[j].number })
	return planned, nil
}

// parseCardNumber parses a card number token. Only plain decimal
// digits are accepted; strconv.Atoi alone would also admit a leading
// sign.
func parseCardNumber(token string) (int, bool) {
	if token == "" {
		return 0, false
	}
	for _, r := range token {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	number, err := strconv.Atoi(token)
	if err != nil || number <= 0 {
		return 0, false
	}
	return number, true
}

func validateBonusRarity(rarity *models.Rarity, strategy *probability.Strategy) error {
	if strategy.Bonus == nil {
		return fmt.Errorf("%w: booster family %s has no bonus slot", ErrInvalidBonusRarity, strategy.Name)
	}
	if rarity == nil {
		return fmt.Errorf("%w: bonus-exclusive card without rarity", ErrInvalidBonusRarity)
	}
	if _, ok := strategy.Bonus.Distribution[*rarity]; !ok {
		return fmt.Errorf("%w: %s", ErrInvalidBonusRarity, *rarity)
	}
	return nil
}

func (s *Synchronizer) resolveSet(ctx context.Context, key, name string, report *Report) (*models.Set, error) {
	if id, ok := s.cache.SetID(key); ok {
		return &models.Set{ID: id, Key: key, Name: name}, nil
	}

	set, err := s.sets.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if set != nil {
		return set, nil
	}

	set, err = s.sets.Create(ctx, key, name)
	if err != nil {
		return nil, err
	}
	report.SetsCreated++
	s.logger.Infow("created set", "key", key, "name", name)
	return set, nil
}

func (s *Synchronizer) resolveBooster(ctx context.Context, set *models.Set, name string, report *Report) (int64, error) {
	if id, ok := s.cache.BoosterID(set.Key, name); ok {
		return id, nil
	}

	booster, err := s.boosters.GetByNameAndSet(ctx, name, set)
	if err != nil {
		return 0, err
	}
	if booster != nil {
		return booster.ID, nil
	}

	booster, err = s.boosters.Create(ctx, name, set)
	if err != nil {
		return 0, err
	}
	report.BoostersCreated++
	s.logger.Infow("created booster", "set", set.Key, "name", name)
	return booster.ID, nil
}

// boosterID resolves a booster the set must already have, through the
// cache first. A miss in both cache and storage is an ordering defect.
func (s *Synchronizer) boosterID(ctx context.Context, set *models.Set, name string) (int64, error) {
	if id, ok := s.cache.BoosterID(set.Key, name); ok {
		return id, nil
	}

	booster, err := s.boosters.GetByNameAndSet(ctx, name, set)
	if err != nil {
		return 0, err
	}
	if booster == nil {
		return 0, fmt.Errorf("booster %s/%s: %w", set.Key, name, repository.ErrNotFound)
	}
	return booster.ID, nil
}
