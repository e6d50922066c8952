package cli

import (
	"github.com/urfave/cli/v2"

	appconfig "github.com/lewisedginton/whatsapp_router/internal/config"
	"github.com/lewisedginton/whatsapp_router/pkg/logger"
)

// getLogger retrieves the logger from the CLI context metadata
func getLogger(ctx *cli.Context) logger.Logger {
	if ctx.App.Metadata != nil {
		if log, ok := ctx.App.Metadata["logger"].(logger.Logger); ok {
			return log
		}
	}

	// Fallback to default logger if not found
	return logger.NewLogger(logger.Config{
		Level:   logger.InfoLevel,
		Format:  "json",
		Service: "whatsapp-router",
	})
}

// loadConfig reads the file named by --config-file (if any) plus the environment.
func loadConfig(ctx *cli.Context) (*appconfig.AppConfig, error) {
	return appconfig.Load(ctx.String("config-file"))
}
