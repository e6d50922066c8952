package config

import "time"

// WhatsAppConfig holds the Cloud API credentials and webhook secrets
type WhatsAppConfig struct {
	// VerifyToken is compared with hub.verify_token during the subscription handshake
	VerifyToken   string `env:"WHATSAPP_VERIFY_TOKEN" yaml:"verify_token" required:"true"`
	Token         string `env:"WHATSAPP_TOKEN" yaml:"token" required:"true"`
	PhoneNumberID string `env:"WHATSAPP_PHONE_NUMBER_ID" yaml:"phone_number_id" required:"true"`

	// AppSecret enables X-Hub-Signature-256 verification when set
	AppSecret string `env:"WHATSAPP_APP_SECRET" yaml:"app_secret"`

	APIBaseURL  string        `env:"WHATSAPP_API_BASE_URL" yaml:"api_base_url" default:"https://graph.facebook.com"`
	APIVersion  string        `env:"WHATSAPP_API_VERSION" yaml:"api_version" default:"v20.0"`
	SendTimeout time.Duration `env:"WHATSAPP_SEND_TIMEOUT" yaml:"send_timeout" default:"10s"`
}
