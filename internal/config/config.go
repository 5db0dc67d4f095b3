// Package config provides configuration loading and validation for the
// roleplay service. Values come from defaults, an optional YAML file, and
// RPSTAGE_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Default values for optional configuration parameters.
const (
	DefaultListenAddr    = ":8000"
	DefaultCharactersDir = "characters"
	DefaultCharacter     = "lior"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "json"
	DefaultMsgReplyError = "（%s 暫時無法回應：%s）"
)

// Config holds every tunable of the service. The loaded struct is passed
// into the server; nothing reads configuration from package globals at
// request time.
type Config struct {
	ListenAddr       string `mapstructure:"listen_addr"       validate:"required"`
	CharactersDir    string `mapstructure:"characters_dir"    validate:"required"`
	DefaultCharacter string `mapstructure:"default_character" validate:"required"`

	// StrictErrors selects the per-character failure policy: when true a
	// failing character aborts the whole request with an HTTP error;
	// when false the failure becomes an error-text reply for that
	// character and the request stays successful.
	StrictErrors bool `mapstructure:"strict_errors"`

	// MsgReplyError formats the error-text reply in lenient mode. It
	// receives the character name and the failure detail.
	MsgReplyError string `mapstructure:"msg_reply_error" validate:"required"`

	LogLevel  string `mapstructure:"log_level"  validate:"oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" validate:"oneof=json text"`
}

// Load reads configuration from the given YAML file path, overlays
// environment variables, and validates the result. A missing config file
// is fine; defaults and environment cover everything.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("RPSTAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_addr", DefaultListenAddr)
	v.SetDefault("characters_dir", DefaultCharactersDir)
	v.SetDefault("default_character", DefaultCharacter)
	v.SetDefault("strict_errors", false)
	v.SetDefault("msg_reply_error", DefaultMsgReplyError)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("log_format", DefaultLogFormat)
}
