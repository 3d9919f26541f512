package cmd

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/dogfinder/internal/logger"
	"github.com/spigell/dogfinder/internal/matching"
	"github.com/spigell/dogfinder/internal/petfinder"
	"github.com/spigell/dogfinder/internal/preferences"
)

const (
	app       = "dogfinder"
	envPrefix = "DOGFINDER"
)

type Config struct {
	Preferences preferences.UserPreferences `mapstructure:"preferences"`
	Petfinder   *PetfinderConfig            `mapstructure:"petfinder"`
	Matching    *MatchingConfig             `mapstructure:"matching"`
	Scoring     matching.Weights            `mapstructure:"scoring"`
	AI          *AIConfig                   `mapstructure:"ai"`
	LogOutput   string                      `mapstructure:"log-output"`
}

type PetfinderConfig struct {
	ClientID         string            `mapstructure:"client-id"`
	ClientIDFile     string            `mapstructure:"client-id-file"`
	ClientSecret     string            `mapstructure:"client-secret"`
	ClientSecretFile string            `mapstructure:"client-secret-file"`
	UserAgent        string            `mapstructure:"user-agent"`
	Ages             []string          `mapstructure:"ages"`
	MaxAge           time.Duration     `mapstructure:"max-age"`
	Client           petfinder.Options `mapstructure:"client"`
}

type MatchingConfig struct {
	Workers        int           `mapstructure:"workers"`
	MaxAge         time.Duration `mapstructure:"max-age"`
	AttachDogs     bool          `mapstructure:"attach-dogs"`
	DisableFilters []string      `mapstructure:"disable-filters"`
}

type AIConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
	BatchSize    int    `mapstructure:"batch-size"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "dogfinder finds adoptable dogs on Petfinder and ranks them against your preferences",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	for key, env := range map[string]string{
		"petfinder.client-id-file":     "PETFINDER_CLIENT_ID_FILE",
		"petfinder.client-secret-file": "PETFINDER_CLIENT_SECRET_FILE",
		"ai.gemini.api-key-file":       "GEMINI_API_KEY_FILE",
	} {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is dogfinder.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	// An explicit config must parse. The default one is optional.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	config := &Config{
		Petfinder: &PetfinderConfig{},
		Matching:  &MatchingConfig{},
		Scoring:   matching.DefaultWeights(),
		AI:        &AIConfig{},
	}
	if err := viper.Unmarshal(config); err != nil {
		return config, fmt.Errorf("decode config: %w", err)
	}

	return config, nil
}

// setup builds the logger and loads the config shared by all commands.
func setup() (*zap.Logger, *Config) {
	config, cfgErr := getConfig()

	output := ""
	if config != nil {
		output = config.LogOutput
	}
	l, err := logger.New(logger.Options{
		JSON:   viper.GetBool("json"),
		Debug:  viper.GetBool("debug"),
		Output: output,
	})
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	if cfgErr != nil {
		l.Fatal("getting a config", zap.Error(cfgErr))
	}

	if used := viper.ConfigFileUsed(); used != "" {
		l.Debug("using config file", zap.String("path", used))
	}

	return l, config
}
