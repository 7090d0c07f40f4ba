package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-documind-backend/internal/config"
	"github.com/tbourn/go-documind-backend/internal/sysutil"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "documind",
	Short: "DocuMind document editor backend",
	Example: `documind serve
documind migrate
documind seed
documind demo --base-url http://localhost:8080/api/v1`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(demoCmd())
	rootCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	cobra.EnableCommandSorting = false
}

// appVersion prefers APP_VERSION from the environment over the linked version.
func appVersion() string {
	return sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)
}

// loadConfig reads .env (unless DOCUMIND_NO_DOTENV is set), loads the
// configuration and installs the global logger.
func loadConfig() (config.Config, zerolog.Logger, error) {
	if !sysutil.IsTruthy(os.Getenv("DOCUMIND_NO_DOTENV")) {
		_ = godotenv.Load()
	}
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, zerolog.Nop(), err
	}
	logger := sysutil.ConfigureLogger(cfg.LogLevel, cfg.LogPretty, os.Stderr)
	return cfg, logger, nil
}
