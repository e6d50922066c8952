package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/lewisedginton/whatsapp_router/internal/webhook"
	"github.com/lewisedginton/whatsapp_router/pkg/logger"
)

func newTestApp(out *bytes.Buffer) *cli.App {
	return &cli.App{
		Name:   "whatsapp-router",
		Writer: out,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config-file"},
		},
		Metadata: map[string]interface{}{
			"logger": logger.NewNopLogger(),
		},
		Commands: []*cli.Command{
			ConfigCommand(),
			WebhookCommand(),
		},
	}
}

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("WHATSAPP_VERIFY_TOKEN", "secret")
	t.Setenv("WHATSAPP_TOKEN", "graph-token")
	t.Setenv("WHATSAPP_PHONE_NUMBER_ID", "12345")
}

func TestConfigValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		setRequiredEnv(t)
		var out bytes.Buffer

		err := newTestApp(&out).RunContext(context.Background(), []string{"whatsapp-router", "config", "validate"})
		require.NoError(t, err)
		assert.Contains(t, out.String(), "Configuration is valid")
	})

	t.Run("missing token", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("WHATSAPP_TOKEN", "")
		var out bytes.Buffer

		err := newTestApp(&out).RunContext(context.Background(), []string{"whatsapp-router", "config", "validate"})
		assert.Error(t, err)
		assert.Empty(t, out.String())
	})
}

func TestWebhookVerify(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{
			name: "matching token echoes challenge",
			args: []string{"--token", "secret", "--challenge", "abc"},
			want: "200 abc\n",
		},
		{
			name:    "wrong token",
			args:    []string{"--token", "nope"},
			want:    "403 " + webhook.VerificationErrorText + "\n",
			wantErr: true,
		},
		{
			name:    "wrong mode",
			args:    []string{"--mode", "unsubscribe", "--token", "secret"},
			want:    "403 " + webhook.VerificationErrorText + "\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			var out bytes.Buffer

			args := append([]string{"whatsapp-router", "webhook", "verify"}, tt.args...)
			err := newTestApp(&out).RunContext(context.Background(), args)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, out.String())
		})
	}
}
