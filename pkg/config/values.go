package config

import (
	"embed"
	"fmt"
	"maps"
	"os"
	"strings"

	"gopkg.in/ini.v1"
)

// Values holds scalar configuration values.
// Fields ending in *Set track whether that field was explicitly set in a config file,
// so a local false can override a global true.
type Values struct {
	DBPath                string
	ProgressFile          string
	ProgressFileSet       bool // tracks if progress_file was explicitly set, empty disables the file
	NoColor               bool
	NoColorSet            bool
	Debug                 bool
	DebugSet              bool
	WriteEvenIfWarning    bool
	WriteEvenIfWarningSet bool

	// notifications
	NotifyChannels        []string
	NotifyOnError         bool
	NotifyOnErrorSet      bool
	NotifyOnComplete      bool
	NotifyOnCompleteSet   bool
	NotifyTimeoutMs       int
	NotifyTimeoutMsSet    bool
	NotifyTelegramToken   string
	NotifyTelegramChat    string
	NotifySlackToken      string
	NotifySlackChannel    string
	NotifySMTPHost        string
	NotifySMTPPort        int
	NotifySMTPUsername    string
	NotifySMTPPassword    string
	NotifySMTPStartTLS    bool
	NotifySMTPStartTLSSet bool
	NotifyEmailFrom       string
	NotifyEmailTo         []string
	NotifyWebhookURLs     []string
	NotifyCustomScript    string

	SQLErrors map[string]string // [sql_errors] section, constraint name or code to message
}

// valuesLoader loads Values with embedded filesystem fallback.
type valuesLoader struct {
	embedFS embed.FS
}

func newValuesLoader(embedFS embed.FS) *valuesLoader {
	return &valuesLoader{embedFS: embedFS}
}

// Load loads values with fallback chain: local → global → embedded.
// localConfigPath and globalConfigPath are full paths to config files, missing files are skipped.
func (vl *valuesLoader) Load(localConfigPath, globalConfigPath string) (Values, error) {
	embedded, err := vl.parseValuesFromEmbedded()
	if err != nil {
		return Values{}, fmt.Errorf("parse embedded defaults: %w", err)
	}

	global, err := vl.parseValuesFromFile(globalConfigPath)
	if err != nil {
		return Values{}, fmt.Errorf("parse global config: %w", err)
	}

	local, err := vl.parseValuesFromFile(localConfigPath)
	if err != nil {
		return Values{}, fmt.Errorf("parse local config: %w", err)
	}

	// merge: embedded → global → local (local wins)
	result := embedded
	result.mergeFrom(&global)
	result.mergeFrom(&local)
	return result, nil
}

// parseValuesFromFile returns empty Values (not error) if the file doesn't exist
// or contains only comments and whitespace.
func (vl *valuesLoader) parseValuesFromFile(path string) (Values, error) {
	if path == "" {
		return Values{}, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // path comes from options or the user's home
	if err != nil {
		if os.IsNotExist(err) {
			return Values{}, nil
		}
		return Values{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if strings.TrimSpace(stripComments(string(data))) == "" {
		return Values{}, nil
	}
	return vl.parseValuesFromBytes(data)
}

func (vl *valuesLoader) parseValuesFromEmbedded() (Values, error) {
	data, err := vl.embedFS.ReadFile("defaults/config")
	if err != nil {
		return Values{}, fmt.Errorf("read embedded defaults: %w", err)
	}
	return vl.parseValuesFromBytes(data)
}

// parseValuesFromBytes parses the default section and [sql_errors].
//
//nolint:gocyclo // flat list of keys reads better than a table of closures
func (vl *valuesLoader) parseValuesFromBytes(data []byte) (Values, error) {
	// ignoreInlineComment: true keeps # inside values such as tokens
	cfg, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, data)
	if err != nil {
		return Values{}, fmt.Errorf("parse config: %w", err)
	}

	var values Values
	section := cfg.Section("")

	if key, err := section.GetKey("db_path"); err == nil {
		values.DBPath = strings.TrimSpace(key.String())
	}
	if key, err := section.GetKey("progress_file"); err == nil {
		values.ProgressFile = strings.TrimSpace(key.String())
		values.ProgressFileSet = true
	}

	bools := []struct {
		name     string
		val, set *bool
	}{
		{"no_color", &values.NoColor, &values.NoColorSet},
		{"debug", &values.Debug, &values.DebugSet},
		{"write_even_if_warning", &values.WriteEvenIfWarning, &values.WriteEvenIfWarningSet},
		{"notify_on_error", &values.NotifyOnError, &values.NotifyOnErrorSet},
		{"notify_on_complete", &values.NotifyOnComplete, &values.NotifyOnCompleteSet},
		{"notify_smtp_starttls", &values.NotifySMTPStartTLS, &values.NotifySMTPStartTLSSet},
	}
	for _, b := range bools {
		key, err := section.GetKey(b.name)
		if err != nil || strings.TrimSpace(key.String()) == "" {
			continue
		}
		val, boolErr := key.Bool()
		if boolErr != nil {
			return Values{}, fmt.Errorf("invalid %s: %w", b.name, boolErr)
		}
		*b.val, *b.set = val, true
	}

	if key, err := section.GetKey("notify_timeout_ms"); err == nil {
		val, intErr := key.Int()
		if intErr != nil {
			return Values{}, fmt.Errorf("invalid notify_timeout_ms: %w", intErr)
		}
		if val < 0 {
			return Values{}, fmt.Errorf("invalid notify_timeout_ms: must be non-negative, got %d", val)
		}
		values.NotifyTimeoutMs = val
		values.NotifyTimeoutMsSet = true
	}
	if key, err := section.GetKey("notify_smtp_port"); err == nil {
		val, intErr := key.Int()
		if intErr != nil || val < 0 || val > 65535 {
			return Values{}, fmt.Errorf("invalid notify_smtp_port: %q", key.String())
		}
		values.NotifySMTPPort = val
	}

	strs := []struct {
		name string
		val  *string
	}{
		{"notify_telegram_token", &values.NotifyTelegramToken},
		{"notify_telegram_chat", &values.NotifyTelegramChat},
		{"notify_slack_token", &values.NotifySlackToken},
		{"notify_slack_channel", &values.NotifySlackChannel},
		{"notify_smtp_host", &values.NotifySMTPHost},
		{"notify_smtp_username", &values.NotifySMTPUsername},
		{"notify_smtp_password", &values.NotifySMTPPassword},
		{"notify_email_from", &values.NotifyEmailFrom},
		{"notify_custom_script", &values.NotifyCustomScript},
	}
	for _, s := range strs {
		if key, err := section.GetKey(s.name); err == nil {
			*s.val = strings.TrimSpace(key.String())
		}
	}

	// comma-separated lists
	if key, err := section.GetKey("notify_channels"); err == nil {
		values.NotifyChannels = splitList(key.String())
	}
	if key, err := section.GetKey("notify_email_to"); err == nil {
		values.NotifyEmailTo = splitList(key.String())
	}
	if key, err := section.GetKey("notify_webhook_urls"); err == nil {
		values.NotifyWebhookURLs = splitList(key.String())
	}

	if sec, err := cfg.GetSection("sql_errors"); err == nil && len(sec.Keys()) > 0 {
		values.SQLErrors = make(map[string]string, len(sec.Keys()))
		for _, key := range sec.Keys() {
			values.SQLErrors[key.Name()] = strings.TrimSpace(key.String())
		}
	}

	return values, nil
}

// mergeFrom merges set or non-empty values from src into dst.
//
//nolint:gocyclo // one branch per key
func (dst *Values) mergeFrom(src *Values) {
	if src.DBPath != "" {
		dst.DBPath = src.DBPath
	}
	if src.ProgressFileSet {
		dst.ProgressFile, dst.ProgressFileSet = src.ProgressFile, true
	}
	if src.NoColorSet {
		dst.NoColor, dst.NoColorSet = src.NoColor, true
	}
	if src.DebugSet {
		dst.Debug, dst.DebugSet = src.Debug, true
	}
	if src.WriteEvenIfWarningSet {
		dst.WriteEvenIfWarning, dst.WriteEvenIfWarningSet = src.WriteEvenIfWarning, true
	}
	if len(src.NotifyChannels) > 0 {
		dst.NotifyChannels = src.NotifyChannels
	}
	if src.NotifyOnErrorSet {
		dst.NotifyOnError, dst.NotifyOnErrorSet = src.NotifyOnError, true
	}
	if src.NotifyOnCompleteSet {
		dst.NotifyOnComplete, dst.NotifyOnCompleteSet = src.NotifyOnComplete, true
	}
	if src.NotifyTimeoutMsSet {
		dst.NotifyTimeoutMs, dst.NotifyTimeoutMsSet = src.NotifyTimeoutMs, true
	}

	mergeString(&dst.NotifyTelegramToken, src.NotifyTelegramToken)
	mergeString(&dst.NotifyTelegramChat, src.NotifyTelegramChat)
	mergeString(&dst.NotifySlackToken, src.NotifySlackToken)
	mergeString(&dst.NotifySlackChannel, src.NotifySlackChannel)
	mergeString(&dst.NotifySMTPHost, src.NotifySMTPHost)
	mergeString(&dst.NotifySMTPUsername, src.NotifySMTPUsername)
	mergeString(&dst.NotifySMTPPassword, src.NotifySMTPPassword)
	mergeString(&dst.NotifyEmailFrom, src.NotifyEmailFrom)
	mergeString(&dst.NotifyCustomScript, src.NotifyCustomScript)
	if src.NotifySMTPPort != 0 {
		dst.NotifySMTPPort = src.NotifySMTPPort
	}
	if src.NotifySMTPStartTLSSet {
		dst.NotifySMTPStartTLS, dst.NotifySMTPStartTLSSet = src.NotifySMTPStartTLS, true
	}
	if len(src.NotifyEmailTo) > 0 {
		dst.NotifyEmailTo = src.NotifyEmailTo
	}
	if len(src.NotifyWebhookURLs) > 0 {
		dst.NotifyWebhookURLs = src.NotifyWebhookURLs
	}

	// sql errors merge per key
	if len(src.SQLErrors) > 0 {
		merged := make(map[string]string, len(dst.SQLErrors)+len(src.SQLErrors))
		maps.Copy(merged, dst.SQLErrors)
		maps.Copy(merged, src.SQLErrors)
		dst.SQLErrors = merged
	}
}

func mergeString(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

// splitList splits a comma-separated value, dropping empty items.
func splitList(val string) []string {
	var res []string
	for p := range strings.SplitSeq(val, ",") {
		if t := strings.TrimSpace(p); t != "" {
			res = append(res, t)
		}
	}
	return res
}

// stripComments removes lines starting with # from content.
// handles both Unix (LF) and Windows (CRLF) line endings.
func stripComments(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	lines := make([]string, 0, strings.Count(content, "\n")+1)
	for line := range strings.SplitSeq(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
