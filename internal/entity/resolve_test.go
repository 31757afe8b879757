package entity

import (
	"testing"

	"charactermemory/internal/models"
)

func TestResolveGenderedPronounExcludesOppositeGender(t *testing.T) {
	window := &models.ContextWindow{}
	window.PushBatch([]string{"alex"})

	candidates := map[string]*models.Entity{
		"alex": {ID: "alex", Name: "Alex", Type: models.EntityTypePerson, Attributes: map[string]string{"relationship": "brother"}},
	}

	resolutions, ambiguous := Resolve("How is he doing?", window, candidates)
	if len(ambiguous) != 0 {
		t.Fatalf("expected no ambiguity, got %v", ambiguous)
	}
	if len(resolutions) != 1 || resolutions[0].EntityID != "alex" {
		t.Fatalf("expected he to resolve to alex, got %+v", resolutions)
	}

	resolutions, ambiguous = Resolve("How is she doing?", window, candidates)
	if len(resolutions) != 0 {
		t.Fatalf("expected she not to resolve to a brother, got %+v", resolutions)
	}
	if len(ambiguous) != 1 {
		t.Fatalf("expected she to be left unresolved/ambiguous, got %v", ambiguous)
	}
}

func TestResolveAmbiguousWhenTwoUnsignaledCandidatesTie(t *testing.T) {
	window := &models.ContextWindow{}
	// Eloise and Claire are mentioned in the same message: same recency batch.
	window.PushBatch([]string{"eloise", "claire"})

	candidates := map[string]*models.Entity{
		"eloise": {ID: "eloise", Name: "Eloise", Type: models.EntityTypePerson, Attributes: map[string]string{"relationship": "sister"}},
		"claire": {ID: "claire", Name: "Claire", Type: models.EntityTypePerson, Attributes: map[string]string{}},
	}

	_, ambiguous := Resolve("How is she doing?", window, candidates)
	if len(ambiguous) != 1 {
		t.Fatalf("expected she to be ambiguous between Eloise and Claire, got ambiguous=%v", ambiguous)
	}
}

func TestResolveNeuterMatchesPetsAndObjectsOnly(t *testing.T) {
	window := &models.ContextWindow{}
	window.PushBatch([]string{"rex"})

	candidates := map[string]*models.Entity{
		"rex": {ID: "rex", Name: "Rex", Type: models.EntityTypePet, Attributes: map[string]string{"species": "dog"}},
	}

	resolutions, ambiguous := Resolve("Did you feed it today?", window, candidates)
	if len(ambiguous) != 0 || len(resolutions) != 1 || resolutions[0].EntityID != "rex" {
		t.Fatalf("expected it to resolve to the pet, got resolutions=%+v ambiguous=%v", resolutions, ambiguous)
	}
}

func TestResolveLaterBatchIsMoreRecentThanEarlierBatch(t *testing.T) {
	window := &models.ContextWindow{}
	window.PushBatch([]string{"dana"})
	window.PushBatch([]string{"robin"})

	candidates := map[string]*models.Entity{
		"dana":  {ID: "dana", Name: "Dana", Type: models.EntityTypePerson},
		"robin": {ID: "robin", Name: "Robin", Type: models.EntityTypePerson},
	}

	resolutions, ambiguous := Resolve("Is they around?", window, candidates)
	if len(ambiguous) != 0 {
		t.Fatalf("expected no ambiguity, got %v", ambiguous)
	}
	if len(resolutions) != 1 || resolutions[0].EntityID != "robin" {
		t.Fatalf("expected the most recently mentioned entity to win, got %+v", resolutions)
	}
}
