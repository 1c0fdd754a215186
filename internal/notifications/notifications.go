package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultServer = "https://ntfy.sh"
	sendTimeout   = 10 * time.Second
)

var errDisabled = errors.New("notifications disabled, no ntfy topic configured")

// publish is the JSON body ntfy accepts on its root endpoint.
type publish struct {
	Topic   string   `json:"topic"`
	Title   string   `json:"title"`
	Message string   `json:"message"`
	Tags    []string `json:"tags,omitempty"`
}

type publisher struct {
	client *http.Client
	url    string
	topic  string
}

// nil while disabled
var active *publisher

// Init points notifications at an ntfy server. An empty topic disables them.
func Init(ntfyServer, ntfyTopic string) {
	if ntfyTopic == "" {
		active = nil
		log.Warn().Msg("No ntfy topic, operator notifications disabled")
		return
	}
	if ntfyServer == "" {
		ntfyServer = DefaultServer
	}

	active = &publisher{
		client: &http.Client{Timeout: sendTimeout},
		url:    strings.TrimSuffix(ntfyServer, "/"),
		topic:  ntfyTopic,
	}
	log.Info().Str("server", active.url).Str("topic", ntfyTopic).Msg("Operator notifications enabled")
}

func Enabled() bool {
	return active != nil
}

// Send posts one notification. It fails when disabled or when ntfy does not accept it.
func Send(title, message string) error {
	p := active
	if p == nil {
		return errDisabled
	}
	return p.post(publish{Topic: p.topic, Title: title, Message: message, Tags: []string{"fish"}})
}

func (p *publisher) post(msg publish) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("post notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("ntfy rejected %q with status %d", msg.Title, resp.StatusCode)
	}
	log.Debug().Str("title", msg.Title).Msg("Notification delivered")
	return nil
}

// Notifier adapts Send for components that take a notifier.
type Notifier struct{}

func (Notifier) Send(title, message string) error {
	return Send(title, message)
}
