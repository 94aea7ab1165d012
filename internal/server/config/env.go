package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// envConfig is the DTO for environment overrides. Pointer fields distinguish
// "unset" from zero values so the overlay never clobbers defaults.
type envConfig struct {
	EndpointAddrHTTP            *string        `env:"ADDRESS"`
	DatabaseDSN                 *string        `env:"DATABASE_DSN"`
	SecretKey                   *string        `env:"SECRET_KEY"`
	AccessTokenValidityDuration *time.Duration `env:"ACCESS_TOKEN_VALIDITY"`
	ResetCodeValidityDuration   *time.Duration `env:"RESET_CODE_VALIDITY"`
	ResetTokenValidityDuration  *time.Duration `env:"RESET_TOKEN_VALIDITY"`
	NotifyTimeout               *time.Duration `env:"NOTIFY_TIMEOUT"`

	SMTPEnabled   *bool   `env:"SMTP_ENABLED"`
	SMTPHost      *string `env:"SMTP_HOST"`
	SMTPPort      *int    `env:"SMTP_PORT"`
	SMTPUser      *string `env:"SMTP_USER"`
	SMTPPassword  *string `env:"SMTP_PASSWORD"`
	SMTPFromName  *string `env:"SMTP_FROM_NAME"`
	SMTPFromEmail *string `env:"SMTP_FROM_EMAIL"`
}

// parseEnv overlays environment variables onto config. Malformed values
// panic, matching how the JSON overlay treats unreadable input.
func parseEnv(config *Config) {
	e := &envConfig{}
	if err := env.Parse(e); err != nil {
		panic(err)
	}

	setIf(&config.EndpointAddrHTTP, e.EndpointAddrHTTP)
	setIf(&config.DatabaseDSN, e.DatabaseDSN)
	setIf(&config.SecretKey, e.SecretKey)
	setIf(&config.AccessTokenValidityDuration, e.AccessTokenValidityDuration)
	setIf(&config.ResetCodeValidityDuration, e.ResetCodeValidityDuration)
	setIf(&config.ResetTokenValidityDuration, e.ResetTokenValidityDuration)
	setIf(&config.NotifyTimeout, e.NotifyTimeout)
	setIf(&config.SMTPEnabled, e.SMTPEnabled)
	setIf(&config.SMTPHost, e.SMTPHost)
	setIf(&config.SMTPPort, e.SMTPPort)
	setIf(&config.SMTPUser, e.SMTPUser)
	setIf(&config.SMTPPassword, e.SMTPPassword)
	setIf(&config.SMTPFromName, e.SMTPFromName)
	setIf(&config.SMTPFromEmail, e.SMTPFromEmail)
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
