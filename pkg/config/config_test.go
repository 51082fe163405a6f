package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sqlite3lib "modernc.org/sqlite/lib"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// load reads config with both files given and an empty environment.
func load(t *testing.T, local, global string) *Config {
	t.Helper()
	missing := filepath.Join(t.TempDir(), "missing")
	if local == "" {
		local = missing
	}
	if global == "" {
		global = missing
	}
	cfg, err := Load(Options{LocalPath: local, GlobalPath: global, Env: map[string]string{}})
	require.NoError(t, err)
	return cfg
}

func Test_defaultsFS(t *testing.T) {
	data, err := defaultsFS.ReadFile("defaults/config")
	require.NoError(t, err)
	assert.Contains(t, string(data), "db_path")
	assert.Contains(t, string(data), "write_even_if_warning")
	assert.Contains(t, string(data), "[sql_errors]")
}

func TestLoad_EmbeddedDefaults(t *testing.T) {
	cfg := load(t, "", "")

	assert.Equal(t, "gensvc.db", cfg.DBPath)
	assert.Empty(t, cfg.ProgressFile)
	assert.False(t, cfg.NoColor)
	assert.False(t, cfg.Debug)
	assert.False(t, cfg.WriteEvenIfWarning)
	assert.Empty(t, cfg.NotifyChannels)
	assert.True(t, cfg.NotifyOnError)
	assert.False(t, cfg.NotifyOnComplete)
	assert.Equal(t, 10000, cfg.NotifyTimeoutMs)
	assert.Equal(t, "value already exists", cfg.ErrorMap[sqlite3lib.SQLITE_CONSTRAINT_UNIQUE])
	assert.Equal(t, "value is out of range", cfg.ErrorMap[sqlite3lib.SQLITE_CONSTRAINT_CHECK])
}

func TestLoad_LocalOverridesGlobal(t *testing.T) {
	global := writeConfig(t, `
db_path = /var/lib/gensvc.db
debug = true
notify_channels = telegram, slack
notify_telegram_token = 123:abc#def
notify_telegram_chat = -100
`)
	local := writeConfig(t, `
debug = false
progress_file = progress.txt
notify_channels = webhook
notify_webhook_urls = http://a.example.com/hook, , http://b.example.com/hook

[sql_errors]
unique = duplicate entry
`)

	cfg := load(t, local, global)
	assert.Equal(t, "/var/lib/gensvc.db", cfg.DBPath, "global value kept when local omits it")
	assert.False(t, cfg.Debug, "local false overrides global true")
	assert.Equal(t, "progress.txt", cfg.ProgressFile)
	assert.Equal(t, []string{"webhook"}, cfg.NotifyChannels)
	assert.Equal(t, "123:abc#def", cfg.NotifyTelegramToken, "# is not an inline comment")
	assert.Equal(t, []string{"http://a.example.com/hook", "http://b.example.com/hook"}, cfg.NotifyWebhookURLs)
	assert.Equal(t, "duplicate entry", cfg.ErrorMap[sqlite3lib.SQLITE_CONSTRAINT_UNIQUE])
	assert.Equal(t, "value is required", cfg.ErrorMap[sqlite3lib.SQLITE_CONSTRAINT_NOTNULL], "other embedded entries stay")
}

func TestLoad_CommentOnlyFileFallsBack(t *testing.T) {
	local := writeConfig(t, "# db_path = other.db\n\n   # debug = true\r\n")
	cfg := load(t, local, "")
	assert.Equal(t, "gensvc.db", cfg.DBPath)
	assert.False(t, cfg.Debug)
}

func TestLoad_NumericSQLErrorCode(t *testing.T) {
	local := writeConfig(t, "[sql_errors]\n2067 = taken\n")
	cfg := load(t, local, "")
	assert.Equal(t, "taken", cfg.ErrorMap[2067])
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "bad bool", content: "debug = maybe", wantErr: "invalid debug"},
		{name: "bad timeout", content: "notify_timeout_ms = soon", wantErr: "invalid notify_timeout_ms"},
		{name: "negative timeout", content: "notify_timeout_ms = -1", wantErr: "must be non-negative"},
		{name: "bad port", content: "notify_smtp_port = 70000", wantErr: "invalid notify_smtp_port"},
		{name: "unknown sql error", content: "[sql_errors]\nspelling = oops", wantErr: `unknown sql error "spelling"`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(Options{LocalPath: writeConfig(t, tc.content), GlobalPath: filepath.Join(t.TempDir(), "x"),
				Env: map[string]string{}})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	local := writeConfig(t, "db_path = file.db\nprogress_file = file.txt\n")
	cfg, err := Load(Options{LocalPath: local, GlobalPath: filepath.Join(t.TempDir(), "x"), Env: map[string]string{
		"GENSVC_DB_PATH":       "env.db",
		"GENSVC_PROGRESS_FILE": "env.txt",
		"GENSVC_NO_COLOR":      "true",
		"GENSVC_DEBUG":         "1",
	}})
	require.NoError(t, err)
	assert.Equal(t, "env.db", cfg.DBPath)
	assert.Equal(t, "env.txt", cfg.ProgressFile)
	assert.True(t, cfg.NoColor)
	assert.True(t, cfg.Debug)

	_, err = Load(Options{LocalPath: local, GlobalPath: local, Env: map[string]string{"GENSVC_DEBUG": "sometimes"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env")
}

func TestConfig_NotifyParams(t *testing.T) {
	local := writeConfig(t, `
notify_channels = email
notify_on_complete = true
notify_smtp_host = smtp.example.com
notify_smtp_port = 465
notify_smtp_starttls = false
notify_email_from = gensvc@example.com
notify_email_to = a@example.com,b@example.com
notify_custom_script = /usr/local/bin/hook.sh
`)
	p := load(t, local, "").NotifyParams()
	assert.Equal(t, []string{"email"}, p.Channels)
	assert.True(t, p.OnError)
	assert.True(t, p.OnComplete)
	assert.Equal(t, 10000, p.TimeoutMs)
	assert.Equal(t, "smtp.example.com", p.SMTPHost)
	assert.Equal(t, 465, p.SMTPPort)
	assert.False(t, p.SMTPStartTLS)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, p.EmailTo)
	assert.Equal(t, "/usr/local/bin/hook.sh", p.CustomScript)
}

func TestInstall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gensvc", "config")

	written, err := Install(path)
	require.NoError(t, err)
	assert.True(t, written)
	data, err := os.ReadFile(path) //nolint:gosec // test file
	require.NoError(t, err)
	assert.Contains(t, string(data), "db_path = gensvc.db")

	require.NoError(t, os.WriteFile(path, []byte("db_path = mine.db\n"), 0o600))
	written, err = Install(path)
	require.NoError(t, err)
	assert.False(t, written, "existing file is never overwritten")
	data, err = os.ReadFile(path) //nolint:gosec // test file
	require.NoError(t, err)
	assert.Equal(t, "db_path = mine.db\n", string(data))
}

func TestDefaultGlobalPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	assert.Equal(t, filepath.Join("/home/tester", ".config", "gensvc", "config"), DefaultGlobalPath())
}

func Test_stripComments(t *testing.T) {
	assert.Equal(t, "a = 1\n\nb = 2", stripComments("# top\na = 1\n\n  # inner\r\nb = 2"))
}

func Test_splitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b ,"))
	assert.Nil(t, splitList("  "))
}
