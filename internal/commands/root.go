package commands

import (
	"fmt"
	"os"
	"time"

	"pagebot-core-console/internal/config"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "0.1.0"

var (
	accessTokenFlag string
	backendURLFlag  string
	timeoutFlag     time.Duration
	logLevelFlag    string
)

var rootCmd = &cobra.Command{
	Use:           "pagebot",
	Short:         "Operator console for page bots",
	Long:          "Pagebot logs in with Facebook, lists the pages you administer, installs the bot on them and keeps their settings on the backend.",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&accessTokenFlag, "access-token", "", "Facebook user access token (default $FACEBOOK_ACCESS_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&backendURLFlag, "backend-url", "", "Backend base URL (default $BACKEND_URL)")
	rootCmd.PersistentFlags().DurationVar(&timeoutFlag, "timeout", 0, "Timeout of each backend call (default $COMMAND_TIMEOUT)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level (default $LOG_LEVEL)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(pagesCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(saveCmd)
}

// loadConfig reads the environment and applies the persistent flags
func loadConfig() (config.Config, zerolog.Logger) {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	cfg := config.Load(logger)

	if backendURLFlag != "" {
		cfg.BackendURL = backendURLFlag
	}
	if timeoutFlag > 0 {
		cfg.CommandTimeout = timeoutFlag
	}
	if logLevelFlag != "" {
		if level, err := zerolog.ParseLevel(logLevelFlag); err == nil {
			cfg.LogLevel = level
		} else {
			logger.Warn().Str("value", logLevelFlag).Msg("Invalid --log-level, keeping configured level")
		}
	}

	return cfg, logger.Level(cfg.LogLevel)
}

func providerToken() (string, error) {
	token := accessTokenFlag
	if token == "" {
		token = os.Getenv("FACEBOOK_ACCESS_TOKEN")
	}
	if token == "" {
		return "", fmt.Errorf("an access token is required: pass --access-token or set FACEBOOK_ACCESS_TOKEN")
	}
	return token, nil
}
