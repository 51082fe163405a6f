// Package notify sends action run results to telegram, email, slack, webhooks and custom scripts.
package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/url"
	"os"
	"strings"
	"time"

	ntfy "github.com/go-pkgz/notify"

	"github.com/umputun/gensvc/pkg/service"
)

// Params configure a notification Service.
type Params struct {
	Channels      []string
	OnError       bool
	OnComplete    bool
	TimeoutMs     int
	TelegramToken string
	TelegramChat  string
	SlackToken    string
	SlackChannel  string
	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	SMTPStartTLS  bool
	EmailFrom     string
	EmailTo       []string
	WebhookURLs   []string
	CustomScript  string
}

// Service sends notifications through the configured channels. a nil *Service sends nothing.
type Service struct {
	channels   []channel
	custom     *customChannel
	onError    bool
	onComplete bool
	timeout    time.Duration
	hostname   string
	log        logger
}

// channel pairs a notifier with its destination URI.
type channel struct {
	notifier   ntfy.Notifier
	dest       string
	htmlEscape bool // telegram uses HTML parse mode
}

type logger interface {
	Print(format string, args ...any)
}

// Result is the notification payload of one action run. custom scripts receive it as JSON.
type Result struct {
	Status   string   `json:"status"` // "success" or "failure"
	Action   string   `json:"action"`
	Outcome  string   `json:"outcome"`
	Message  string   `json:"message,omitempty"`
	Saved    bool     `json:"saved"`
	Warnings int      `json:"warnings"`
	Errors   []string `json:"errors,omitempty"`
	Duration string   `json:"duration"`
	Error    string   `json:"error,omitempty"`
}

// FromRun makes a Result from a finished run. cancelled runs count as failures.
func FromRun(run service.Run) Result {
	r := Result{
		Status:   "failure",
		Action:   run.Action,
		Outcome:  string(run.Outcome),
		Message:  run.Message,
		Saved:    run.Saved,
		Warnings: len(run.Warnings),
		Errors:   run.Errors,
		Duration: run.Duration.Round(time.Millisecond).String(),
	}
	if run.Outcome == service.PhaseSucceeded || run.Outcome == service.PhaseSucceededWithWarnings {
		r.Status = "success"
	}
	if run.Err != nil {
		r.Error = run.Err.Error()
	}
	return r
}

// New makes a Service from p. it returns nil, nil when no channels are configured,
// the nil Service is safe to use.
func New(p Params, log logger) (*Service, error) {
	if len(p.Channels) == 0 {
		return nil, nil //nolint:nilnil // nil service is a valid no-op
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	svc := &Service{
		onError:    p.OnError,
		onComplete: p.OnComplete,
		timeout:    time.Duration(p.TimeoutMs) * time.Millisecond,
		hostname:   hostname,
		log:        log,
	}
	if svc.timeout <= 0 {
		svc.timeout = 10 * time.Second
	}

	for _, name := range p.Channels {
		name = strings.ToLower(strings.TrimSpace(name))
		switch name {
		case "custom":
			if p.CustomScript == "" {
				return nil, errors.New("custom channel: notify_custom_script is required")
			}
			svc.custom = newCustomChannel(p.CustomScript)
			continue
		case "telegram":
			if p.TelegramToken == "" || p.TelegramChat == "" {
				return nil, errors.New("telegram channel: notify_telegram_token and notify_telegram_chat are required")
			}
		}

		maker, ok := channelMakers[name]
		if !ok {
			return nil, fmt.Errorf("unknown notification channel: %q", name)
		}
		chs, err := maker(p)
		if err != nil && name == "telegram" {
			// telegram verifies the token with a live call, a failure disables the channel only
			log.Print("[WARN] telegram channel disabled: %s", strings.ReplaceAll(err.Error(), p.TelegramToken, "[REDACTED]"))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s channel: %w", name, err)
		}
		svc.channels = append(svc.channels, chs...)
	}

	if len(svc.channels) == 0 && svc.custom == nil {
		log.Print("[WARN] all notification channels were disabled")
	}
	return svc, nil
}

// RunFinished sends the result of run, so a Service can observe action runs.
func (s *Service) RunFinished(ctx context.Context, run service.Run) {
	s.Send(ctx, FromRun(run))
}

// Send delivers r to every channel, subject to the on-error and on-complete switches.
// failures are logged, never returned.
func (s *Service) Send(ctx context.Context, r Result) {
	if s == nil {
		return
	}
	if r.Status == "success" && !s.onComplete || r.Status != "success" && !s.onError {
		return
	}

	msg := s.formatMessage(r)
	sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	for _, ch := range s.channels {
		text := msg
		if ch.htmlEscape {
			text = html.EscapeString(msg)
		}
		if err := ch.notifier.Send(sendCtx, ch.dest, text); err != nil {
			s.log.Print("[WARN] notification failed for %s: %v", ch.notifier, err)
		}
	}
	if s.custom != nil {
		if err := s.custom.send(sendCtx, r); err != nil {
			s.log.Print("[WARN] custom notification failed: %v", err)
		}
	}
}

// formatMessage renders r as plain text.
func (s *Service) formatMessage(r Result) string {
	var b strings.Builder
	verb := "failed"
	if r.Status == "success" {
		verb = "completed"
	}
	fmt.Fprintf(&b, "gensvc %s %s on %s\n\n", r.Action, verb, s.hostname)
	fmt.Fprintf(&b, "outcome:  %s\n", r.Outcome)
	if r.Message != "" {
		fmt.Fprintf(&b, "message:  %s\n", r.Message)
	}
	if r.Duration != "" {
		fmt.Fprintf(&b, "duration: %s\n", r.Duration)
	}
	if r.Status == "success" {
		saved := "no"
		if r.Saved {
			saved = "yes"
		}
		fmt.Fprintf(&b, "saved:    %s, %d warning(s)\n", saved, r.Warnings)
	}
	for _, e := range r.Errors {
		fmt.Fprintf(&b, "- %s\n", e)
	}
	if r.Error != "" {
		fmt.Fprintf(&b, "error:    %s\n", r.Error)
	}
	return b.String()
}

// channelMakers build channels by name. telegram is replaced in tests to avoid live API calls.
var channelMakers = map[string]func(Params) ([]channel, error){
	"telegram": makeTelegramChannel,
	"email":    makeEmailChannel,
	"slack":    makeSlackChannel,
	"webhook":  makeWebhookChannels,
}

func makeTelegramChannel(p Params) ([]channel, error) {
	tg, err := ntfy.NewTelegram(ntfy.TelegramParams{Token: p.TelegramToken})
	if err != nil {
		return nil, fmt.Errorf("create telegram notifier: %w", err)
	}
	dest := fmt.Sprintf("telegram:%s?parseMode=HTML", p.TelegramChat)
	return []channel{{notifier: tg, dest: dest, htmlEscape: true}}, nil
}

func makeEmailChannel(p Params) ([]channel, error) {
	switch {
	case p.SMTPHost == "":
		return nil, errors.New("notify_smtp_host is required")
	case p.EmailFrom == "":
		return nil, errors.New("notify_email_from is required")
	case len(p.EmailTo) == 0:
		return nil, errors.New("notify_email_to is required")
	}

	em := ntfy.NewEmail(ntfy.SMTPParams{
		Host:     p.SMTPHost,
		Port:     p.SMTPPort,
		Username: p.SMTPUsername,
		Password: p.SMTPPassword,
		StartTLS: p.SMTPStartTLS,
	})
	dest := fmt.Sprintf("mailto:%s?from=%s&subject=%s", strings.Join(p.EmailTo, ","),
		url.QueryEscape(p.EmailFrom), url.QueryEscape("gensvc action result"))
	return []channel{{notifier: em, dest: dest}}, nil
}

func makeSlackChannel(p Params) ([]channel, error) {
	switch {
	case p.SlackToken == "":
		return nil, errors.New("notify_slack_token is required")
	case p.SlackChannel == "":
		return nil, errors.New("notify_slack_channel is required")
	}
	return []channel{{notifier: ntfy.NewSlack(p.SlackToken), dest: "slack:" + p.SlackChannel}}, nil
}

func makeWebhookChannels(p Params) ([]channel, error) {
	if len(p.WebhookURLs) == 0 {
		return nil, errors.New("notify_webhook_urls is required")
	}
	wh := ntfy.NewWebhook(ntfy.WebhookParams{})
	res := make([]channel, 0, len(p.WebhookURLs))
	for _, u := range p.WebhookURLs {
		res = append(res, channel{notifier: wh, dest: u})
	}
	return res, nil
}
