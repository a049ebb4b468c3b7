package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"SnapKeeper/internal/config"
)

// maxFailureLines caps the failures listed in one embed.
const maxFailureLines = 10

type DiscordNotifier struct {
	webhookURL string
	timeout    time.Duration
	retry      config.DiscordRetry
	mentions   config.DiscordMentions
	events     map[string]struct{}
	host       string
	client     *http.Client
	now        func() time.Time
}

type discordEmbed struct {
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
	Color       int            `json:"color,omitempty"`
	Timestamp   string         `json:"timestamp,omitempty"`
	Fields      []discordField `json:"fields,omitempty"`
	Footer      *discordFooter `json:"footer,omitempty"`
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordFooter struct {
	Text string `json:"text,omitempty"`
}

type discordPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds,omitempty"`
}

func NewDiscordNotifier(cfg config.DiscordConfig) (*DiscordNotifier, error) {
	if cfg.WebhookURL == "" {
		return nil, fmt.Errorf("discord notifier missing webhook url")
	}
	if !strings.HasPrefix(cfg.WebhookURL, "https://") && !strings.HasPrefix(cfg.WebhookURL, "http://") {
		return nil, fmt.Errorf("discord webhook url must be http(s): %q", cfg.WebhookURL)
	}
	host, _ := os.Hostname()
	if host == "" {
		host = "unknown"
	}
	timeout := 10 * time.Second
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	events := make(map[string]struct{})
	for _, e := range cfg.Events {
		if e = strings.TrimSpace(e); e != "" {
			events[e] = struct{}{}
		}
	}
	return &DiscordNotifier{
		webhookURL: cfg.WebhookURL,
		timeout:    timeout,
		retry:      cfg.Retry,
		mentions:   cfg.Mentions,
		events:     events,
		host:       host,
		client:     &http.Client{Timeout: timeout},
		now:        time.Now,
	}, nil
}

func (d *DiscordNotifier) allowed(event string) bool {
	if len(d.events) == 0 {
		return true
	}
	_, ok := d.events[event]
	return ok
}

func (d *DiscordNotifier) send(ctx context.Context, embed discordEmbed, mention string) error {
	embed.Timestamp = d.now().UTC().Format(time.RFC3339)
	embed.Footer = &discordFooter{Text: "snapkeeper@" + d.host}
	body, err := json.Marshal(discordPayload{Content: mention, Embeds: []discordEmbed{embed}})
	if err != nil {
		return err
	}
	attempts := 1
	var delay time.Duration
	if d.retry.Attempts > 1 {
		attempts = d.retry.Attempts
		delay = time.Duration(d.retry.BackoffMs) * time.Millisecond
	}
	var lastStatus int
	for i := 0; i < attempts; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := d.client.Do(req)
		if err == nil {
			lastStatus = resp.StatusCode
			_ = resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return nil
			}
		}
		if i == attempts-1 || delay <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("discord webhook failed after %d attempts (last status %d)", attempts, lastStatus)
}

func (d *DiscordNotifier) errorMention() string {
	return d.mentions.OnError
}

func runTitle(domain, action, what string, dryRun bool) string {
	title := fmt.Sprintf("%s %s %s", domain, action, what)
	if dryRun {
		title += " (dry run)"
	}
	return title
}

func summaryFields(host string, s RunSummary) []discordField {
	return []discordField{
		{Name: "Host", Value: host, Inline: true},
		{Name: "Succeeded", Value: fmt.Sprintf("%d/%d", s.Succeeded, s.Total), Inline: true},
		{Name: "Deleted", Value: fmt.Sprintf("%d", s.Deleted), Inline: true},
		{Name: "Duration", Value: s.Duration.Round(time.Second).String(), Inline: true},
	}
}

func (d *DiscordNotifier) NotifyStart(ctx context.Context, domain, action string) error {
	if !d.allowed("start") {
		return nil
	}
	return d.send(ctx, discordEmbed{
		Title:  runTitle(domain, action, "started", false),
		Color:  0x3498db,
		Fields: []discordField{{Name: "Host", Value: d.host, Inline: true}},
	}, "")
}

func (d *DiscordNotifier) NotifySuccess(ctx context.Context, s RunSummary) error {
	if !d.allowed("success") {
		return nil
	}
	return d.send(ctx, discordEmbed{
		Title:  runTitle(s.Domain, s.Action, "succeeded", s.DryRun),
		Color:  0x2ecc71,
		Fields: summaryFields(d.host, s),
	}, "")
}

func (d *DiscordNotifier) NotifyPartial(ctx context.Context, s RunSummary) error {
	if !d.allowed("partial") {
		return nil
	}
	failures := s.Failures
	extra := 0
	if len(failures) > maxFailureLines {
		extra = len(failures) - maxFailureLines
		failures = failures[:maxFailureLines]
	}
	desc := strings.Join(failures, "\n")
	if extra > 0 {
		desc += fmt.Sprintf("\n… and %d more", extra)
	}
	return d.send(ctx, discordEmbed{
		Title:       runTitle(s.Domain, s.Action, "partially failed", s.DryRun),
		Description: desc,
		Color:       0xf1c40f,
		Fields:      summaryFields(d.host, s),
	}, d.errorMention())
}

func (d *DiscordNotifier) NotifyError(ctx context.Context, domain, action string, err error) error {
	if !d.allowed("error") {
		return nil
	}
	return d.send(ctx, discordEmbed{
		Title:       runTitle(domain, action, "failed", false),
		Description: err.Error(),
		Color:       0xe74c3c,
		Fields:      []discordField{{Name: "Host", Value: d.host, Inline: true}},
	}, d.errorMention())
}

// NotifyTest always sends, regardless of the event filter.
func (d *DiscordNotifier) NotifyTest(ctx context.Context) error {
	return d.send(ctx, discordEmbed{
		Title:       "snapkeeper test notification",
		Description: "Discord notifications are configured correctly.",
		Color:       0x1abc9c,
	}, "")
}
