package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/dogfinder/internal/dogs"
	"github.com/spigell/dogfinder/internal/filtering"
	"github.com/spigell/dogfinder/internal/matching"
	"github.com/spigell/dogfinder/internal/preferences"
)

func TestReadMatchInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.json")
	data := `{"userPreferences":{"size":["medium"],"guidance":"quiet"},"dogs":[{"id":"1","name":"Rex","breeds":["Poodle"]}]}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write input: %v", err)
	}

	payload, err := readMatchInput(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.UserPreferences == nil || payload.UserPreferences.Size[0] != "medium" {
		t.Fatalf("unexpected preferences: %+v", payload.UserPreferences)
	}
	if len(payload.Dogs) != 1 || payload.Dogs[0].PrimaryBreed() != "Poodle" {
		t.Fatalf("unexpected dogs: %+v", payload.Dogs)
	}

	if _, err := readMatchInput(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for a missing file")
	}
}

func TestSearchQuery(t *testing.T) {
	config := &Config{Petfinder: &PetfinderConfig{Ages: []string{"Baby"}, MaxAge: 48 * time.Hour}}

	q := searchQuery(config, preferences.UserPreferences{ZipCodes: []string{"08401"}, RadiusMi: 0.5})
	if q.RadiusMi != 1 || q.ZipCodes[0] != "08401" || q.Ages[0] != "Baby" || q.MaxAge != 48*time.Hour {
		t.Fatalf("unexpected query: %+v", q)
	}

	q = searchQuery(&Config{}, preferences.UserPreferences{})
	if q.RadiusMi != 0 || len(q.ZipCodes) != 0 {
		t.Fatalf("unset location must be left to client defaults: %+v", q)
	}
}

func TestNewEngineDisablesFilters(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().Bool("keep-duplicates", false, "")
	if err := cmd.Flags().Set("keep-duplicates", "true"); err != nil {
		t.Fatalf("set flag: %v", err)
	}

	config := &Config{
		Scoring:  matching.DefaultWeights(),
		Matching: &MatchingConfig{DisableFilters: []string{" radius "}},
	}

	engine := newEngine(cmd, config, zap.NewNop())
	for _, status := range filtering.Describe(engine.Filters()) {
		switch status.Name {
		case "duplicates", "radius":
			if status.Enabled {
				t.Fatalf("%s must be disabled: %+v", status.Name, status)
			}
		}
	}
}

func TestSkipDogs(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().StringSlice("skip-ids", nil, "")
	cmd.Flags().StringSlice("skip-shelters", nil, "")
	_ = cmd.Flags().Set("skip-ids", "1")
	_ = cmd.Flags().Set("skip-shelters", "Paws")

	list := skipDogs(cmd, []dogs.Dog{
		{ID: "1"},
		{ID: "2", Shelter: dogs.Shelter{Name: "Paws"}},
		{ID: "3"},
	}, zap.NewNop())

	if len(list) != 1 || list[0].ID != "3" {
		t.Fatalf("unexpected dogs: %+v", list)
	}
}

func TestMatchedDogsFollowRanking(t *testing.T) {
	list := dogs.New([]dogs.Dog{{ID: "a"}, {ID: "b"}, {ID: "c"}})
	got := matchedDogs([]matching.Analysis{{DogID: "c"}, {DogID: "a"}, {DogID: "gone"}}, list)

	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "a" {
		t.Fatalf("unexpected order: %+v", got)
	}
}
