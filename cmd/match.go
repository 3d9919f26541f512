package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/dogfinder/internal/ai"
	"github.com/spigell/dogfinder/internal/ai/gemini"
	"github.com/spigell/dogfinder/internal/dogs"
	"github.com/spigell/dogfinder/internal/matching"
	"github.com/spigell/dogfinder/internal/preferences"
	"github.com/spigell/dogfinder/internal/secrets"
)

const (
	PromptTopMatches      = "Show top matches"
	PromptBrowse          = "Browse all matches"
	PromptReportByShelter = "Report by shelters"
	PromptResultsToFile   = "Dump results to file"
	PromptExit            = "Exit"
	PromptBack            = "back"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptTopMatches, PromptBrowse, PromptReportByShelter, PromptResultsToFile, PromptExit},
}

// matchInput is the payload accepted by --input.
type matchInput struct {
	UserPreferences *preferences.UserPreferences `json:"userPreferences"`
	Dogs            []dogs.Dog                   `json:"dogs"`
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Rank dogs against your preferences",
	Long: "Rank dogs against your preferences. Dogs are read from --input or fetched from Petfinder. " +
		"Results are printed to stdout as JSON unless --interactive is set.",
	Run: func(cmd *cobra.Command, _ []string) {
		runMatch(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringP("input", "i", "", "a JSON file with userPreferences and dogs. Dogs are fetched from Petfinder when unset.")
	matchCmd.Flags().BoolP("interactive", "I", false, "browse results interactively")
	matchCmd.Flags().Bool("dump", false, "write results to a temporary file instead of stdout")
	matchCmd.Flags().Bool("keep-duplicates", false, "do not drop listings repeating an id")
	matchCmd.Flags().Bool("no-ai", false, "do not infer traits even if ai is enabled in the config")
	matchCmd.Flags().StringSlice("skip-ids", nil, "listing ids to leave out, e.g. dogs you have already seen")
	matchCmd.Flags().StringSlice("skip-shelters", nil, "shelter names to leave out")
}

func runMatch(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger, config := setup()
	logger.Info("starting the dogfinder", zap.String("version", version))

	prefs := config.Preferences
	var list []dogs.Dog

	input, _ := cmd.Flags().GetString("input")
	if input != "" {
		payload, err := readMatchInput(input)
		if err != nil {
			logger.Fatal("reading input", zap.Error(err), zap.String("path", input))
		}
		if payload.UserPreferences != nil {
			prefs = *payload.UserPreferences
		}
		list = payload.Dogs
	} else {
		client, err := newPetfinderClient(config, logger)
		if err != nil {
			logger.Fatal("creating petfinder client", zap.Error(err),
				zap.String("hint", "set petfinder.client-id and petfinder.client-secret or PETFINDER_CLIENT_ID and PETFINDER_CLIENT_SECRET"))
		}
		list, err = client.Fetch(ctx, searchQuery(config, prefs))
		if err != nil {
			logger.Fatal("fetching dogs", zap.Error(err))
		}
	}

	logger.Info("got dogs", zap.Int("count", len(list)))

	list = skipDogs(cmd, list, logger)

	// do not bother error since the config was decoded already
	pretty, _ := json.MarshalIndent(prefs, "", "  ")
	logger.Debug(fmt.Sprintf("matching with preferences: \n %s", pretty))

	engine := newEngine(cmd, config, logger)

	var provider ai.TraitsProvider
	if noAI, _ := cmd.Flags().GetBool("no-ai"); !noAI && config.AI != nil && config.AI.Enabled {
		inferrer, err := newTraitInferrer(ctx, config.AI, dogs.New(list), logger)
		if err != nil {
			logger.Warn("skipping trait inference", zap.Error(err))
		} else {
			provider = inferrer
		}
	}

	results := engine.SafeMatch(ctx, prefs, list, provider)
	if results.Error != "" {
		logger.Error("matching failed", zap.String("error", results.Error))
	}

	if interactive, _ := cmd.Flags().GetBool("interactive"); interactive {
		if err := browse(logger, results, dogs.New(list)); err != nil && !errors.Is(err, errExit) {
			logger.Fatal("exiting", zap.Error(err))
		}
		return
	}

	if dump, _ := cmd.Flags().GetBool("dump"); dump {
		filename, err := dogs.New(list).DumpToTmpFile("matches_*.json", results)
		if err != nil {
			logger.Fatal("dump results to file", zap.Error(err))
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
		return
	}

	if err := writeJSON(os.Stdout, results); err != nil {
		logger.Fatal("writing results", zap.Error(err))
	}
}

// skipDogs drops the listings named by --skip-ids and --skip-shelters.
func skipDogs(cmd *cobra.Command, list []dogs.Dog, logger *zap.Logger) []dogs.Dog {
	ids, _ := cmd.Flags().GetStringSlice("skip-ids")
	shelters, _ := cmd.Flags().GetStringSlice("skip-shelters")
	if len(ids) == 0 && len(shelters) == 0 {
		return list
	}

	v := dogs.New(list)
	skipped := v.Exclude(dogs.DogIDField, ids)
	skipped = append(skipped, v.Exclude(dogs.DogShelterField, shelters)...)
	logger.Info("skipping dogs", zap.Strings("ids", skipped))

	return v.List()
}

func readMatchInput(path string) (*matchInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var payload matchInput
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &payload, nil
}

func newEngine(cmd *cobra.Command, config *Config, logger *zap.Logger) *matching.Engine {
	var opts []matching.Option
	if m := config.Matching; m != nil {
		opts = append(opts, matching.WithWorkers(m.Workers), matching.WithMaxAge(m.MaxAge))
		if m.AttachDogs {
			opts = append(opts, matching.WithDogs())
		}
		for _, name := range m.DisableFilters {
			opts = append(opts, matching.WithoutFilter(strings.TrimSpace(name), "disabled in config"))
		}
	}
	if keep, _ := cmd.Flags().GetBool("keep-duplicates"); keep {
		opts = append(opts, matching.WithoutFilter("duplicates", "--keep-duplicates is set"))
	}

	return matching.New(config.Scoring, logger, opts...)
}

func newTraitInferrer(ctx context.Context, cfg *AIConfig, catalog gemini.Catalog, logger *zap.Logger) (*gemini.TraitInferrer, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != gemini.Provider {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
	if cfg.Gemini == nil {
		cfg.Gemini = &GeminiConfig{}
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  cfg.Gemini.APIKeyFile,
		Value: cfg.Gemini.APIKey,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY)", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, logger.With(
		zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries),
	))
	if err != nil {
		return nil, err
	}

	return gemini.NewTraitInferrer(generator, catalog, logger, cfg.Gemini.BatchSize, cfg.Gemini.MaxLogLength), nil
}

func browse(logger *zap.Logger, results matching.MatchingResults, list *dogs.Dogs) error {
	for {
		_, action, err := prompt.Run()
		if err != nil {
			return err
		}

		if err := handleAction(action, logger, results, list); err != nil {
			return err
		}
	}
}

func handleAction(action string, logger *zap.Logger, results matching.MatchingResults, list *dogs.Dogs) error {
	switch action {
	case PromptTopMatches:
		for i, a := range results.TopMatches {
			logger.Info(fmt.Sprintf("#%d %s", i+1, matchLabel(a, list)), zap.Strings("matches", a.Matches), zap.Strings("mismatches", a.Mismatches))
		}
		for _, note := range results.ExpansionNotes {
			logger.Info("guidance", zap.String("note", note))
		}
		return nil
	case PromptBrowse:
		return browseMatches(logger, results, list)
	case PromptReportByShelter:
		matched := dogs.New(matchedDogs(results.AllMatches, list))
		pretty, _ := json.MarshalIndent(matched.ReportByShelter(), "", "  ")
		logger.Info(string(pretty), zap.Int("dogs count", matched.Len()))
		return nil
	case PromptResultsToFile:
		filename, err := list.DumpToTmpFile("matches_*.json", results)
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func browseMatches(logger *zap.Logger, results matching.MatchingResults, list *dogs.Dogs) error {
	items := make([]string, 0, len(results.AllMatches)+1)
	for _, a := range results.AllMatches {
		items = append(items, a.DogID+" "+matchLabel(a, list))
	}

	dogPrompt := promptui.Select{
		Label: "Choose a dog and press ENTER",
		Items: append(items, PromptBack),
		Size:  10,
	}

	for {
		_, selected, err := dogPrompt.Run()
		if err != nil {
			return err
		}
		if selected == PromptBack {
			return nil
		}

		id := strings.Split(selected, " ")[0]
		for _, a := range results.AllMatches {
			if a.DogID != id {
				continue
			}
			pretty, _ := json.MarshalIndent(struct {
				Analysis matching.Analysis `json:"analysis"`
				Dog      *dogs.Dog         `json:"dog,omitempty"`
			}{a, list.FindByID(id)}, "", "  ")
			logger.Info(string(pretty))
		}
	}
}

func matchLabel(a matching.Analysis, list *dogs.Dogs) string {
	d := list.FindByID(a.DogID)
	if d == nil {
		return fmt.Sprintf("[%d]", a.Score)
	}
	return fmt.Sprintf("[%d] %s / %s / %s / %.1f mi", a.Score, d.Name, d.PrimaryBreed(), d.Shelter.Name, d.Location.DistanceMi)
}

// matchedDogs returns the listings that survived the filter stage, in ranking order.
func matchedDogs(analyses []matching.Analysis, list *dogs.Dogs) []dogs.Dog {
	matched := make([]dogs.Dog, 0, len(analyses))
	for _, a := range analyses {
		if d := list.FindByID(a.DogID); d != nil {
			matched = append(matched, *d)
		}
	}
	return matched
}

func writeJSON(f *os.File, payload any) error {
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
