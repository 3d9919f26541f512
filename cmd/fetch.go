package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/dogfinder/internal/dogs"
	"github.com/spigell/dogfinder/internal/petfinder"
	"github.com/spigell/dogfinder/internal/preferences"
	"github.com/spigell/dogfinder/internal/secrets"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch fresh adoptable dogs from Petfinder",
	Long:  "Fetch fresh adoptable dogs from Petfinder around the configured zip codes. The output can be fed to match --input.",
	Run: func(cmd *cobra.Command, _ []string) {
		runFetch(cmd)
	},
}

var dogCmd = &cobra.Command{
	Use:   "dog <id>",
	Short: "Show a single Petfinder listing",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		runDog(args[0])
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(dogCmd)

	fetchCmd.Flags().StringSliceP("zip", "z", nil, "zip codes to search around. Defaults to preferences.zip-codes")
	fetchCmd.Flags().IntP("radius", "r", 0, "search radius in miles. Defaults to preferences.radius")
	fetchCmd.Flags().Bool("dump", false, "write dogs to a temporary file instead of stdout")
}

func runFetch(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger, config := setup()

	prefs := config.Preferences
	if zips, _ := cmd.Flags().GetStringSlice("zip"); len(zips) > 0 {
		prefs.ZipCodes = zips
	}
	if radius, _ := cmd.Flags().GetInt("radius"); radius > 0 {
		prefs.RadiusMi = float64(radius)
	}

	client, err := newPetfinderClient(config, logger)
	if err != nil {
		logger.Fatal("creating petfinder client", zap.Error(err))
	}

	list, err := client.Fetch(ctx, searchQuery(config, prefs))
	if err != nil {
		logger.Fatal("fetching dogs", zap.Error(err))
	}

	payload := matchInput{UserPreferences: &prefs, Dogs: list}
	if dump, _ := cmd.Flags().GetBool("dump"); dump {
		filename, err := dogs.New(list).DumpToTmpFile("dogs_*.json", payload)
		if err != nil {
			logger.Fatal("dump dogs to file", zap.Error(err))
		}
		logger.Info("dumping dogs to file", zap.String("filename", filename), zap.Int("count", len(list)))
		return
	}

	if err := writeJSON(os.Stdout, payload); err != nil {
		logger.Fatal("writing dogs", zap.Error(err))
	}
}

func runDog(id string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger, config := setup()

	client, err := newPetfinderClient(config, logger)
	if err != nil {
		logger.Fatal("creating petfinder client", zap.Error(err))
	}

	d, err := client.GetDog(ctx, id)
	if err != nil {
		logger.Fatal("getting dog", zap.Error(err), zap.String("id", id))
	}
	if d == nil {
		logger.Fatal("dog not found", zap.String("id", id))
	}

	if err := writeJSON(os.Stdout, d); err != nil {
		logger.Fatal("writing dog", zap.Error(err))
	}
}

func newPetfinderClient(config *Config, logger *zap.Logger) (*petfinder.Client, error) {
	cfg := config.Petfinder
	if cfg == nil {
		cfg = &PetfinderConfig{}
	}

	clientID, err := secrets.Load(secrets.Source{
		Name:  "petfinder client id",
		File:  cfg.ClientIDFile,
		Value: cfg.ClientID,
		Env:   "PETFINDER_CLIENT_ID",
	})
	if err != nil {
		return nil, err
	}

	clientSecret, err := secrets.Load(secrets.Source{
		Name:  "petfinder client secret",
		File:  cfg.ClientSecretFile,
		Value: cfg.ClientSecret,
		Env:   "PETFINDER_CLIENT_SECRET",
	})
	if err != nil {
		return nil, err
	}

	client := petfinder.New(logger, clientID, clientSecret, cfg.Client)
	if cfg.UserAgent != "" {
		client.UserAgent = cfg.UserAgent
	}

	return client, nil
}

// searchQuery maps the user's location preferences onto a Petfinder search.
func searchQuery(config *Config, prefs preferences.UserPreferences) petfinder.Query {
	q := petfinder.Query{
		ZipCodes: prefs.ZipCodes,
		RadiusMi: int(prefs.RadiusMi),
	}
	if cfg := config.Petfinder; cfg != nil {
		q.Ages = cfg.Ages
		q.MaxAge = cfg.MaxAge
	}
	if q.RadiusMi == 0 && prefs.RadiusMi > 0 {
		q.RadiusMi = 1
	}
	return q
}
