package repository

import (
	"context"
	"testing"

	"github.com/netzhuffle/tcgp-tracker/internal/storage/models"
)

func TestOwnershipRepository_UpsertAndGet(t *testing.T) {
	r := setupRepos(t)
	ctx := context.Background()
	const userID = 1

	set := mustCreateSet(t, r, "A1", "Genetic Apex")
	card := mustCreateCard(t, r, &models.Card{SetID: set.ID, Number: 1, Name: "Bulbasaur"}, nil)

	ownership, err := r.ownership.Get(ctx, userID, card.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ownership != nil {
		t.Fatal("expected nil for missing card")
	}

	if err := r.ownership.Upsert(ctx, userID, card.ID, models.StatusOwned); err != nil {
		t.Fatalf("failed to upsert: %v", err)
	}

	ownership, err = r.ownership.Get(ctx, userID, card.ID)
	if err != nil || ownership == nil {
		t.Fatalf("failed to get ownership: %v", err)
	}
	if ownership.Status != models.StatusOwned {
		t.Errorf("expected status owned, got %s", ownership.Status)
	}

	// Upsert overwrites the status.
	if err := r.ownership.Upsert(ctx, userID, card.ID, models.StatusNotNeeded); err != nil {
		t.Fatalf("failed to upsert: %v", err)
	}
	ownership, err = r.ownership.Get(ctx, userID, card.ID)
	if err != nil || ownership == nil {
		t.Fatalf("failed to get ownership: %v", err)
	}
	if ownership.Status != models.StatusNotNeeded {
		t.Errorf("expected status not_needed, got %s", ownership.Status)
	}
}

func TestOwnershipRepository_Delete(t *testing.T) {
	r := setupRepos(t)
	ctx := context.Background()
	const userID = 1

	set := mustCreateSet(t, r, "A1", "Genetic Apex")
	card := mustCreateCard(t, r, &models.Card{SetID: set.ID, Number: 1, Name: "Bulbasaur"}, nil)

	if err := r.ownership.Upsert(ctx, userID, card.ID, models.StatusOwned); err != nil {
		t.Fatalf("failed to upsert: %v", err)
	}
	if err := r.ownership.Delete(ctx, userID, card.ID); err != nil {
		t.Fatalf("failed to delete: %v", err)
	}

	ownership, err := r.ownership.Get(ctx, userID, card.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ownership != nil {
		t.Error("expected nil after delete")
	}

	// Deleting an absent row is not an error.
	if err := r.ownership.Delete(ctx, userID, card.ID); err != nil {
		t.Errorf("unexpected error deleting absent row: %v", err)
	}
}

func TestOwnershipRepository_CountByUser(t *testing.T) {
	r := setupRepos(t)
	ctx := context.Background()
	const userID = 1

	set := mustCreateSet(t, r, "A1", "Genetic Apex")
	first := mustCreateCard(t, r, &models.Card{SetID: set.ID, Number: 1, Name: "Bulbasaur"}, nil)
	second := mustCreateCard(t, r, &models.Card{SetID: set.ID, Number: 2, Name: "Ivysaur"}, nil)

	if err := r.ownership.Upsert(ctx, userID, first.ID, models.StatusOwned); err != nil {
		t.Fatalf("failed to upsert: %v", err)
	}
	if err := r.ownership.Upsert(ctx, userID, second.ID, models.StatusNotNeeded); err != nil {
		t.Fatalf("failed to upsert: %v", err)
	}

	owned, err := r.ownership.CountByUser(ctx, userID, models.StatusOwned)
	if err != nil {
		t.Fatalf("failed to count: %v", err)
	}
	if owned != 1 {
		t.Errorf("expected 1 owned card, got %d", owned)
	}

	notNeeded, err := r.ownership.CountByUser(ctx, userID, models.StatusNotNeeded)
	if err != nil {
		t.Fatalf("failed to count: %v", err)
	}
	if notNeeded != 1 {
		t.Errorf("expected 1 not-needed card, got %d", notNeeded)
	}
}
