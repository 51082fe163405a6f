package progress

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestLogger creates a logger writing to a temp progress file with stdout captured in buf.
func newTestLogger(t *testing.T, cfg Config) (*Logger, *bytes.Buffer) {
	t.Helper()
	if cfg.Path == "" {
		cfg.Path = filepath.Join(t.TempDir(), "progress.txt")
	}
	l, err := NewLogger(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	var buf bytes.Buffer
	l.stdout = &buf
	return l, &buf
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path) //nolint:gosec // test file
	require.NoError(t, err)
	return string(data)
}

func TestNewLogger(t *testing.T) {
	t.Run("with progress file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "import.txt")
		l, err := NewLogger(Config{Path: path, Action: "import", NoColor: true})
		require.NoError(t, err)
		defer l.Close()

		assert.Equal(t, path, l.Path())
		content := readFile(t, path)
		assert.Contains(t, content, "# Action Progress Log")
		assert.Contains(t, content, "Action: import")
	})

	t.Run("stdout only", func(t *testing.T) {
		l, err := NewLogger(Config{NoColor: true})
		require.NoError(t, err)
		assert.Empty(t, l.Path())
		require.NoError(t, l.Close())
	})

	t.Run("unnamed action", func(t *testing.T) {
		l, _ := newTestLogger(t, Config{NoColor: true})
		assert.Contains(t, readFile(t, l.Path()), "Action: (unnamed)")
	})
}

func TestLogger_Print(t *testing.T) {
	l, buf := newTestLogger(t, Config{NoColor: true})

	l.Print("test message %d", 42)

	assert.Contains(t, readFile(t, l.Path()), "test message 42")
	assert.Contains(t, buf.String(), "test message 42")
}

func TestLogger_ErrorWarn(t *testing.T) {
	l, buf := newTestLogger(t, Config{NoColor: true})

	l.Error("something failed: %s", "reason")
	l.Warn("warning message")

	content := readFile(t, l.Path())
	assert.Contains(t, content, "ERROR: something failed: reason")
	assert.Contains(t, content, "WARN: warning message")
	assert.Contains(t, buf.String(), "ERROR: something failed: reason")
	assert.Contains(t, buf.String(), "WARN: warning message")
}

func TestLogger_Debug(t *testing.T) {
	quiet, quietBuf := newTestLogger(t, Config{NoColor: true})
	quiet.Debug("hidden")
	assert.Empty(t, quietBuf.String())

	loud, loudBuf := newTestLogger(t, Config{NoColor: true, Debug: true})
	loud.Debug("shown %s", "now")
	assert.Contains(t, loudBuf.String(), "DEBUG: shown now")
}

func TestLogger_Log(t *testing.T) {
	tests := []struct {
		msg  Message
		want string
	}{
		{msg: Info("plain"), want: "] plain"},
		{msg: Warning("careful"), want: "WARN: careful"},
		{msg: Error("bad"), want: "ERROR: bad"},
		{msg: Critical("worse"), want: "ERROR: worse"},
		{msg: Cancelled("stopped"), want: "CANCELLED: stopped"},
		{msg: Finished(false, "done"), want: "] done"},
		{msg: Finished(true, "broke"), want: "FAILED: broke"},
	}

	for _, tc := range tests {
		t.Run(tc.msg.Kind.String(), func(t *testing.T) {
			l, buf := newTestLogger(t, Config{NoColor: true})
			l.Log(tc.msg)
			assert.Contains(t, buf.String(), tc.want)
			assert.Contains(t, readFile(t, l.Path()), tc.want)
		})
	}

	t.Run("verbose needs debug", func(t *testing.T) {
		l, buf := newTestLogger(t, Config{NoColor: true})
		l.Log(Verbose("details"))
		assert.Empty(t, buf.String())
	})
}

func TestLogger_Progress(t *testing.T) {
	l, buf := newTestLogger(t, Config{NoColor: true})
	msg := Info("not printed here")
	l.Progress(35, &msg)
	l.Progress(100, nil)

	out := buf.String()
	assert.Contains(t, out, "progress  35%")
	assert.Contains(t, out, "progress 100%")
	assert.NotContains(t, out, "not printed here")
}

func TestLogger_PrintAligned(t *testing.T) {
	l, buf := newTestLogger(t, Config{NoColor: true})

	l.PrintAligned("first line\nsecond line\nthird line")

	content := readFile(t, l.Path())
	assert.Contains(t, content, "] first line")
	assert.Contains(t, content, strings.Repeat(" ", 20)+"second line")
	assert.Contains(t, content, "third line")
	assert.True(t, strings.HasSuffix(buf.String(), "\n"), "output should end with newline")
}

func TestLogger_PrintAligned_Empty(t *testing.T) {
	l, buf := newTestLogger(t, Config{NoColor: true})
	l.PrintAligned("")
	l.PrintAligned("\n\n")
	assert.Empty(t, buf.String())
}

func TestLogger_Colors(t *testing.T) {
	origNoColor := color.NoColor
	defer func() { color.NoColor = origNoColor }()

	color.NoColor = false
	l, buf := newTestLogger(t, Config{})
	l.Print("colored output")
	assert.Contains(t, buf.String(), "\033[")

	l2, buf2 := newTestLogger(t, Config{NoColor: true})
	l2.Print("no color output")
	assert.NotContains(t, buf2.String(), "\033[")
	assert.Contains(t, buf2.String(), "no color output")
}

func TestLogger_Close(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.txt")
	l, err := NewLogger(Config{Path: path, NoColor: true})
	require.NoError(t, err)
	l.stdout = &bytes.Buffer{}

	l.Print("some output")
	require.NoError(t, l.Close())

	content := readFile(t, path)
	assert.Contains(t, content, "Completed:")
	assert.Contains(t, content, strings.Repeat("-", 60))
	assert.NotEmpty(t, l.Elapsed())
}

func TestWrapText(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  string
	}{
		{name: "short", text: "short text", width: 40, want: "short text"},
		{name: "wrap", text: "one two three four", width: 9, want: "one two\nthree\nfour"},
		{name: "zero width", text: "anything goes", width: 0, want: "anything goes"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, wrapText(tc.text, tc.width))
		})
	}
}

func TestMessage(t *testing.T) {
	assert.Equal(t, Message{Kind: KindInfo, Text: "step 3 of 5"}, Info("step %d of %d", 3, 5))
	assert.Equal(t, "50% literal", Info("50% literal").Text)
	assert.Equal(t, KindFailed, Finished(true, "x").Kind)
	assert.Equal(t, KindFinished, Finished(false, "x").Kind)
	assert.Equal(t, KindCancelled, Cancelled("x").Kind)
	assert.Equal(t, "warning: w", Warning("w").String())
	assert.Equal(t, "kind(42)", Kind(42).String())
}
