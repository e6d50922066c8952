package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/lewisedginton/whatsapp_router/internal/webhook"
	"github.com/lewisedginton/whatsapp_router/pkg/logger"
)

// WebhookCommand returns local checks for the webhook contract
func WebhookCommand() *cli.Command {
	return &cli.Command{
		Name:    "webhook",
		Aliases: []string{"w"},
		Usage:   "Webhook operations",
		Subcommands: []*cli.Command{
			{
				Name:  "verify",
				Usage: "Run the subscription handshake against the configured verify token",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "mode", Value: webhook.ModeSubscribe, Usage: "hub.mode value"},
					&cli.StringFlag{Name: "token", Required: true, Usage: "hub.verify_token value"},
					&cli.StringFlag{Name: "challenge", Value: "challenge", Usage: "hub.challenge value"},
				},
				Action: webhookVerifyAction,
			},
		},
	}
}

func webhookVerifyAction(ctx *cli.Context) error {
	log := getLogger(ctx)

	cfg, err := loadConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	challenge, err := webhook.Verify(ctx.String("mode"), ctx.String("token"), ctx.String("challenge"), cfg.WhatsApp.VerifyToken)
	if err != nil {
		log.Warn("Handshake rejected", logger.ErrorField(err))
		fmt.Fprintf(ctx.App.Writer, "403 %s\n", webhook.VerificationErrorText)
		return fmt.Errorf("handshake rejected: %w", err)
	}

	fmt.Fprintf(ctx.App.Writer, "200 %s\n", challenge)
	return nil
}
