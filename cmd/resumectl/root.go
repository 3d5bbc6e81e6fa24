package main

import (
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"alfredoptarigan/resume-ingest/internal/config"
	"alfredoptarigan/resume-ingest/internal/logger"
)

const (
	app = "resumectl"
)

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:           app,
		Short:         "resumectl parses resumes into candidate records from the command line",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is resumectl.yaml in current directory, optional)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	viper.SetEnvPrefix("RESUMECTL")
	viper.AutomaticEnv()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			log.Fatal(err)
		}
	}
}

// loadConfig reads the service environment and lets the CLI config file
// override the parse settings.
func loadConfig() *config.Config {
	cfg := config.Load()

	if viper.IsSet("min-text-length") {
		cfg.Parse.MinTextLength = viper.GetInt("min-text-length")
	}
	if viper.IsSet("max-retries") {
		cfg.Parse.MaxRetries = viper.GetInt("max-retries")
	}
	if viper.IsSet("retry-delay") {
		cfg.Parse.RetryDelay = viper.GetDuration("retry-delay")
	}
	if viper.IsSet("confidence-threshold") {
		cfg.Parse.ConfidenceThreshold = viper.GetFloat64("confidence-threshold")
	}
	if viper.IsSet("timeout") {
		cfg.Parse.Timeout = viper.GetDuration("timeout")
	}
	return cfg
}

// newLogger logs to stderr so stdout carries only command output.
func newLogger() *zap.Logger {
	l, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"), "stderr")
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	return l
}
