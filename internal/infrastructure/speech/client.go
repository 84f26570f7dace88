package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/vendroute/packing-player/internal/application"
	"github.com/vendroute/packing-player/pkg/logging"
)

// Config holds narration gateway configuration.
type Config struct {
	// BaseURL of the text-to-speech daemon.
	BaseURL string
	// Voice and Rate are passed through to the daemon.
	Voice string
	Rate  float64
	// UtteranceTimeout bounds a single utterance. The daemon holds the
	// request open until audio playback finishes, so this must exceed
	// the longest expected narration.
	UtteranceTimeout time.Duration
}

// DefaultConfig returns default narration gateway configuration.
func DefaultConfig(baseURL string) *Config {
	return &Config{
		BaseURL:          baseURL,
		Rate:             1.0,
		UtteranceTimeout: 2 * time.Minute,
	}
}

// Client is the narration gateway adapter for an HTTP text-to-speech
// daemon. Speak starts a new utterance and interrupts any current one;
// the daemon's response returns when audio playback finishes, so each
// utterance runs in its own goroutine and reports through Events.
type Client struct {
	config     *Config
	httpClient *http.Client
	logger     *logging.Logger

	mu      sync.Mutex
	current *utterance
	closed  bool
	events  chan application.NarrationEvent
}

// utterance is one in-flight narration. Its terminal event goes through
// once, so an interrupting Speak and the superseded goroutine cannot
// both report it.
type utterance struct {
	text   string
	cancel context.CancelFunc
	once   sync.Once
}

var _ application.Narrator = (*Client)(nil)

// NewClient creates a narration gateway client.
func NewClient(config *Config, logger *logging.Logger) *Client {
	return &Client{
		config:     config,
		httpClient: &http.Client{},
		logger:     logger.WithComponent("speech-client"),
		events:     make(chan application.NarrationEvent, 32),
	}
}

type speakRequest struct {
	Text  string  `json:"text"`
	Voice string  `json:"voice,omitempty"`
	Rate  float64 `json:"rate,omitempty"`
}

// Speak starts narrating text, interrupting any in-flight utterance.
// The interrupted utterance's cancelled event is emitted before the new
// utterance's started event, so a consumer folding events into a
// speaking flag never sees the interruption arrive late and clear the
// flag while the new utterance is still playing.
// Speak returns immediately; completion and interruption are reported
// through Events.
func (c *Client) Speak(ctx context.Context, text string) error {
	if text == "" {
		return errors.New("empty narration text")
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.New("narration gateway closed")
	}
	prev := c.current
	utterCtx, cancel := context.WithTimeout(context.Background(), c.config.UtteranceTimeout)
	u := &utterance{text: text, cancel: cancel}
	c.current = u
	c.mu.Unlock()

	if prev != nil {
		prev.cancel()
		c.settle(prev, application.NarrationCancelled)
	}
	c.emit(application.NarrationEvent{Kind: application.NarrationStarted, Text: text})

	go func() {
		defer cancel()
		err := c.utter(utterCtx, text)
		switch {
		case err == nil:
			c.settle(u, application.NarrationFinished)
		case errors.Is(err, context.Canceled):
			c.settle(u, application.NarrationCancelled)
		default:
			c.logger.WithError(err).Warn("Utterance failed")
			c.settle(u, application.NarrationFinished)
		}
	}()
	return nil
}

// settle emits the utterance's terminal event exactly once.
func (c *Client) settle(u *utterance, kind application.NarrationEventKind) {
	u.once.Do(func() {
		c.emit(application.NarrationEvent{Kind: kind, Text: u.text})
	})
}

func (c *Client) utter(ctx context.Context, text string) error {
	payload, err := json.Marshal(speakRequest{Text: text, Voice: c.config.Voice, Rate: c.config.Rate})
	if err != nil {
		return fmt.Errorf("failed to marshal speak request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/speak", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create speak request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("speech daemon returned status %d", resp.StatusCode)
	}
	return nil
}

// Stop interrupts the current utterance without error. Safe to call
// when nothing is playing.
func (c *Client) Stop() {
	c.mu.Lock()
	u := c.current
	c.current = nil
	c.mu.Unlock()

	if u != nil {
		u.cancel()
		c.settle(u, application.NarrationCancelled)
	}
}

// Events reports utterance lifecycle transitions.
func (c *Client) Events() <-chan application.NarrationEvent {
	return c.events
}

// Close interrupts narration and closes the event stream.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.current != nil {
		c.current.cancel()
		c.current = nil
	}
	close(c.events)
	c.mu.Unlock()
}

// emit never blocks: a stalled consumer misses events instead of
// wedging the utterance goroutine.
func (c *Client) emit(event application.NarrationEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.events <- event:
	default:
	}
}
