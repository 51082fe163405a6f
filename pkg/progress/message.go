package progress

import "fmt"

// Kind is the severity or lifecycle tag of a progress message.
type Kind int

// Kind constants, ordered from least to most severe for the plain kinds.
const (
	KindVerbose Kind = iota
	KindInfo
	KindWarning
	KindError
	KindCritical
	KindCancelled
	KindFinished
	KindFailed
)

var kindNames = map[Kind]string{
	KindVerbose:   "verbose",
	KindInfo:      "info",
	KindWarning:   "warning",
	KindError:     "error",
	KindCritical:  "critical",
	KindCancelled: "cancelled",
	KindFinished:  "finished",
	KindFailed:    "failed",
}

// String returns the lowercase kind name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Message is an immutable, formatted progress message.
type Message struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text"`
}

// New makes a message of the given kind. the format is used verbatim when no args are given.
func New(kind Kind, format string, args ...any) Message {
	text := format
	if len(args) > 0 {
		text = fmt.Sprintf(format, args...)
	}
	return Message{Kind: kind, Text: text}
}

// Verbose makes a verbose message.
func Verbose(format string, args ...any) Message { return New(KindVerbose, format, args...) }

// Info makes an info message.
func Info(format string, args ...any) Message { return New(KindInfo, format, args...) }

// Warning makes a warning message.
func Warning(format string, args ...any) Message { return New(KindWarning, format, args...) }

// Error makes an error message.
func Error(format string, args ...any) Message { return New(KindError, format, args...) }

// Critical makes a critical message.
func Critical(format string, args ...any) Message { return New(KindCritical, format, args...) }

// Cancelled makes a cancelled message.
func Cancelled(format string, args ...any) Message { return New(KindCancelled, format, args...) }

// Finished makes a Finished message, or a Failed one when failed is true.
func Finished(failed bool, format string, args ...any) Message {
	if failed {
		return New(KindFailed, format, args...)
	}
	return New(KindFinished, format, args...)
}

// String renders the message as "kind: text".
func (m Message) String() string {
	return m.Kind.String() + ": " + m.Text
}
