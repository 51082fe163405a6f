// Package config loads gensvc configuration from INI files with embedded defaults
// and environment overrides.
package config

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"

	"github.com/umputun/gensvc/pkg/notify"
	"github.com/umputun/gensvc/pkg/store"
)

//go:embed defaults/config
var defaultsFS embed.FS

// LocalConfigPath is the project config file, relative to the working directory.
const LocalConfigPath = ".gensvc/config"

// Config is the resolved configuration passed to constructors.
type Config struct {
	Values
	ErrorMap store.ErrorMap // parsed [sql_errors] on top of store.DefaultErrorMap
}

// Options control where configuration is read from.
type Options struct {
	LocalPath  string            // local config file, LocalConfigPath if empty
	GlobalPath string            // global config file, DefaultGlobalPath() if empty
	Env        map[string]string // environment for overrides, the process environment if nil
}

// envOverrides are applied after the files. nil means the variable is not set.
type envOverrides struct {
	DBPath       *string `env:"GENSVC_DB_PATH"`
	ProgressFile *string `env:"GENSVC_PROGRESS_FILE"`
	NoColor      *bool   `env:"GENSVC_NO_COLOR"`
	Debug        *bool   `env:"GENSVC_DEBUG"`
}

// DefaultGlobalPath returns ~/.config/gensvc/config, empty if the home dir is unknown.
func DefaultGlobalPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "gensvc", "config")
}

// Load reads configuration with fallback chain local → global → embedded, then applies env overrides.
func Load(opts Options) (*Config, error) {
	if opts.LocalPath == "" {
		opts.LocalPath = LocalConfigPath
	}
	if opts.GlobalPath == "" {
		opts.GlobalPath = DefaultGlobalPath()
	}

	values, err := newValuesLoader(defaultsFS).Load(opts.LocalPath, opts.GlobalPath)
	if err != nil {
		return nil, fmt.Errorf("load values: %w", err)
	}

	var overrides envOverrides
	if err := env.ParseWithOptions(&overrides, env.Options{Environment: opts.Env}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	overrides.apply(&values)

	errMap, err := store.ParseErrorMap(values.SQLErrors)
	if err != nil {
		return nil, fmt.Errorf("sql_errors: %w", err)
	}
	return &Config{Values: values, ErrorMap: errMap}, nil
}

func (o envOverrides) apply(v *Values) {
	if o.DBPath != nil {
		v.DBPath = *o.DBPath
	}
	if o.ProgressFile != nil {
		v.ProgressFile, v.ProgressFileSet = *o.ProgressFile, true
	}
	if o.NoColor != nil {
		v.NoColor, v.NoColorSet = *o.NoColor, true
	}
	if o.Debug != nil {
		v.Debug, v.DebugSet = *o.Debug, true
	}
}

// NotifyParams maps the notify_* keys to notification parameters.
func (c *Config) NotifyParams() notify.Params {
	return notify.Params{
		Channels:      c.NotifyChannels,
		OnError:       c.NotifyOnError,
		OnComplete:    c.NotifyOnComplete,
		TimeoutMs:     c.NotifyTimeoutMs,
		TelegramToken: c.NotifyTelegramToken,
		TelegramChat:  c.NotifyTelegramChat,
		SlackToken:    c.NotifySlackToken,
		SlackChannel:  c.NotifySlackChannel,
		SMTPHost:      c.NotifySMTPHost,
		SMTPPort:      c.NotifySMTPPort,
		SMTPUsername:  c.NotifySMTPUsername,
		SMTPPassword:  c.NotifySMTPPassword,
		SMTPStartTLS:  c.NotifySMTPStartTLS,
		EmailFrom:     c.NotifyEmailFrom,
		EmailTo:       c.NotifyEmailTo,
		WebhookURLs:   c.NotifyWebhookURLs,
		CustomScript:  c.NotifyCustomScript,
	}
}
