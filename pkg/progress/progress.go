// Package progress provides progress messages and a timestamped logger writing to stdout and an optional file.
package progress

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"golang.org/x/term"
)

// kind colors using fatih/color.
var (
	infoColor      = color.New(color.FgGreen)
	warnColor      = color.New(color.FgYellow)
	errorColor     = color.New(color.FgRed)
	cancelColor    = color.New(color.FgMagenta)
	finishColor    = color.New(color.FgCyan)
	debugColor     = color.New(color.FgHiBlack)
	timestampColor = color.New(color.FgWhite)
)

// Logger writes timestamped output to stdout and, when configured, to a progress file.
type Logger struct {
	file      *os.File
	stdout    io.Writer
	startTime time.Time
	debug     bool
}

// Config holds logger configuration.
type Config struct {
	Path    string // progress file path, empty for stdout only
	Action  string // action name written to the file header
	NoColor bool   // disable color output (sets color.NoColor globally)
	Debug   bool   // print verbose messages
}

// NewLogger creates a logger writing to stdout and to cfg.Path if set.
func NewLogger(cfg Config) (*Logger, error) {
	if cfg.NoColor {
		color.NoColor = true
	}

	l := &Logger{stdout: os.Stdout, startTime: time.Now(), debug: cfg.Debug}
	if cfg.Path == "" {
		return l, nil
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create progress dir: %w", err)
		}
	}

	f, err := os.Create(cfg.Path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("create progress file: %w", err)
	}
	l.file = f

	action := cfg.Action
	if action == "" {
		action = "(unnamed)"
	}
	l.writeFile("# Action Progress Log\n")
	l.writeFile("Action: %s\n", action)
	l.writeFile("Started: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	l.writeFile("%s\n\n", strings.Repeat("-", 60))

	return l, nil
}

// Path returns the progress file path, empty when logging to stdout only.
func (l *Logger) Path() string {
	if l.file == nil {
		return ""
	}
	return l.file.Name()
}

// timestampFormat is the format for timestamps: YY-MM-DD HH:MM:SS
const timestampFormat = "06-01-02 15:04:05"

// Print writes a timestamped message.
func (l *Logger) Print(format string, args ...any) {
	l.printColored(infoColor, "", format, args...)
}

// Error writes an error message in red.
func (l *Logger) Error(format string, args ...any) {
	l.printColored(errorColor, "ERROR: ", format, args...)
}

// Warn writes a warning message in yellow.
func (l *Logger) Warn(format string, args ...any) {
	l.printColored(warnColor, "WARN: ", format, args...)
}

// Debug writes a message only when debug output is enabled.
func (l *Logger) Debug(format string, args ...any) {
	if !l.debug {
		return
	}
	l.printColored(debugColor, "DEBUG: ", format, args...)
}

// Log writes a progress message, mapping its kind to a severity.
func (l *Logger) Log(m Message) {
	switch m.Kind {
	case KindVerbose:
		l.Debug("%s", m.Text)
	case KindWarning:
		l.Warn("%s", m.Text)
	case KindCancelled:
		l.printColored(cancelColor, "CANCELLED: ", "%s", m.Text)
	case KindError, KindCritical:
		l.Error("%s", m.Text)
	case KindFailed:
		l.printColored(errorColor, "FAILED: ", "%s", m.Text)
	case KindFinished:
		l.printColored(finishColor, "", "%s", m.Text)
	default:
		l.Print("%s", m.Text)
	}
}

// Progress writes the percentage line of a progress notification.
// messages are not printed here, they reach the logger through Log.
func (l *Logger) Progress(percent int, _ *Message) {
	l.printColored(finishColor, "", "progress %3d%%", percent)
}

func (l *Logger) printColored(c *color.Color, prefix, format string, args ...any) {
	msg := prefix + fmt.Sprintf(format, args...)
	timestamp := time.Now().Format(timestampFormat)

	l.writeFile("[%s] %s\n", timestamp, msg)

	tsStr := timestampColor.Sprintf("[%s]", timestamp)
	l.writeStdout("%s %s\n", tsStr, c.Sprint(msg))
}

// getTerminalWidth returns terminal width, using COLUMNS env var or syscall.
// Defaults to 80 if detection fails. Returns content width (total - 20 for timestamp).
func getTerminalWidth() int {
	const minWidth = 40

	if cols := os.Getenv("COLUMNS"); cols != "" {
		if w, err := strconv.Atoi(cols); err == nil && w > 0 {
			return max(w-20, minWidth)
		}
	}

	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return max(w-20, minWidth)
	}

	return 80 - 20
}

// wrapText wraps text to specified width, breaking on word boundaries.
func wrapText(text string, width int) string {
	if width <= 0 || len(text) <= width {
		return text
	}

	var result strings.Builder
	lineLen := 0
	for i, word := range strings.Fields(text) {
		wordLen := len(word)
		switch {
		case i == 0:
			result.WriteString(word)
			lineLen = wordLen
		case lineLen+1+wordLen <= width:
			result.WriteString(" ")
			result.WriteString(word)
			lineLen += 1 + wordLen
		default:
			result.WriteString("\n")
			result.WriteString(word)
			lineLen = wordLen
		}
	}
	return result.String()
}

// PrintAligned writes multi-line text: the first line gets a timestamp, continuation lines are indented.
// long lines are wrapped to the terminal width.
func (l *Logger) PrintAligned(text string) {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return
	}

	timestamp := time.Now().Format(timestampFormat)
	tsPrefix := timestampColor.Sprintf("[%s]", timestamp)
	indent := strings.Repeat(" ", 20) // aligns with "[YY-MM-DD HH:MM:SS] "
	width := getTerminalWidth()

	var lines []string
	for line := range strings.SplitSeq(text, "\n") {
		if len(line) <= width {
			lines = append(lines, line)
			continue
		}
		for wrapped := range strings.SplitSeq(wrapText(line, width), "\n") {
			lines = append(lines, wrapped)
		}
	}

	for i, line := range lines {
		switch {
		case line == "":
			l.writeFile("\n")
			l.writeStdout("\n")
		case i == 0:
			l.writeFile("[%s] %s\n", timestamp, line)
			l.writeStdout("%s %s\n", tsPrefix, infoColor.Sprint(line))
		default:
			l.writeFile("%s%s\n", indent, line)
			l.writeStdout("%s%s\n", indent, infoColor.Sprint(line))
		}
	}
}

// Elapsed returns formatted elapsed time since start.
func (l *Logger) Elapsed() string {
	return humanize.RelTime(l.startTime, time.Now(), "", "")
}

// Close writes footer and closes the progress file.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}

	l.writeFile("\n%s\n", strings.Repeat("-", 60))
	l.writeFile("Completed: %s (%s)\n", time.Now().Format("2006-01-02 15:04:05"), l.Elapsed())

	if err := l.file.Close(); err != nil {
		return fmt.Errorf("close progress file: %w", err)
	}
	return nil
}

func (l *Logger) writeFile(format string, args ...any) {
	if l.file != nil {
		fmt.Fprintf(l.file, format, args...)
	}
}

func (l *Logger) writeStdout(format string, args ...any) {
	fmt.Fprintf(l.stdout, format, args...)
}
