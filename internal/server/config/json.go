package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dgtwins/ms-auth/internal/flagx"
	"github.com/dgtwins/ms-auth/internal/timex"
)

// JsonConfig is the DTO for the JSON config file. Like envConfig, its
// fields are pointers so that a partial file only overlays the keys it
// actually contains. Interval fields use timex.Duration, which parses both
// string values such as "10m" and integer nanoseconds.
type JsonConfig struct {
	EndpointAddrHTTP            *string         `json:"endpoint_addr_http"`
	DatabaseDSN                 *string         `json:"database_dsn"`
	SecretKey                   *string         `json:"secret_key"`
	AccessTokenValidityDuration *timex.Duration `json:"access_token_validity_duration"`
	ResetCodeValidityDuration   *timex.Duration `json:"reset_code_validity_duration"`
	ResetTokenValidityDuration  *timex.Duration `json:"reset_token_validity_duration"`
	NotifyTimeout               *timex.Duration `json:"notify_timeout"`
	SMTPEnabled                 *bool           `json:"smtp_enabled"`
	SMTPHost                    *string         `json:"smtp_host"`
	SMTPPort                    *int            `json:"smtp_port"`
	SMTPUser                    *string         `json:"smtp_user"`
	SMTPPassword                *string         `json:"smtp_password"`
	SMTPFromName                *string         `json:"smtp_from_name"`
	SMTPFromEmail               *string         `json:"smtp_from_email"`
}

// parseJson overlays configuration values from a JSON file onto the
// provided Config instance. Keys absent from the file leave the current
// values (defaults or env overrides) untouched.
//
// The file path comes from the -c or -config command-line flags; if neither
// is set, no JSON file is loaded. If the file cannot be read or contains
// invalid JSON, the function panics.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	setIf(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setIf(&config.DatabaseDSN, c.DatabaseDSN)
	setIf(&config.SecretKey, c.SecretKey)
	setDurationIf(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDurationIf(&config.ResetCodeValidityDuration, c.ResetCodeValidityDuration)
	setDurationIf(&config.ResetTokenValidityDuration, c.ResetTokenValidityDuration)
	setDurationIf(&config.NotifyTimeout, c.NotifyTimeout)
	setIf(&config.SMTPEnabled, c.SMTPEnabled)
	setIf(&config.SMTPHost, c.SMTPHost)
	setIf(&config.SMTPPort, c.SMTPPort)
	setIf(&config.SMTPUser, c.SMTPUser)
	setIf(&config.SMTPPassword, c.SMTPPassword)
	setIf(&config.SMTPFromName, c.SMTPFromName)
	setIf(&config.SMTPFromEmail, c.SMTPFromEmail)
}

func setDurationIf(dst *time.Duration, src *timex.Duration) {
	if src != nil {
		*dst = time.Duration(src.Duration)
	}
}
