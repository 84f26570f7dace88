package fulfillment

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/vendroute/packing-player/internal/application"
	"github.com/vendroute/packing-player/internal/domain"
	"github.com/vendroute/packing-player/pkg/errors"
	"github.com/vendroute/packing-player/pkg/logging"
	"github.com/vendroute/packing-player/pkg/metrics"
	"github.com/vendroute/packing-player/pkg/resilience"
)

//go:embed sequence_schema.json
var sequenceSchemaJSON []byte

// Config holds fulfillment backend client configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// DefaultConfig returns default client configuration.
func DefaultConfig(baseURL string) *Config {
	return &Config{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Client is the REST client for the fulfillment backend. All calls go
// through a circuit breaker and record request metrics. The command
// sequence payload is validated against an embedded JSON schema before
// it is decoded, so a malformed sequence is rejected at load instead of
// surfacing mid-session.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	logger     *logging.Logger
	metrics    *metrics.Metrics
	schema     *jsonschema.Schema
}

var _ application.FulfillmentGateway = (*Client)(nil)

// NewClient creates a fulfillment backend client.
func NewClient(config *Config, logger *logging.Logger, m *metrics.Metrics) (*Client, error) {
	schema, err := compileSequenceSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to compile sequence schema: %w", err)
	}

	breakerLogger := logger.WithComponent("fulfillment-breaker")
	return &Client{
		baseURL:    config.BaseURL,
		apiKey:     config.APIKey,
		httpClient: &http.Client{Timeout: config.Timeout},
		breaker:    resilience.NewCircuitBreaker(resilience.DefaultConfig("fulfillment"), breakerLogger.Logger, m),
		logger:     logger.WithComponent("fulfillment-client"),
		metrics:    m,
		schema:     schema,
	}, nil
}

func compileSequenceSchema() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(sequenceSchemaJSON))
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("sequence_schema.json", doc); err != nil {
		return nil, err
	}
	return compiler.Compile("sequence_schema.json")
}

type sequenceResponse struct {
	Commands   []domain.Command `json:"commands"`
	TotalItems int              `json:"totalItems"`
	HasItems   bool             `json:"hasItems"`
}

// FetchCommandSequence loads and validates the generated command
// sequence for a packing session.
func (c *Client) FetchCommandSequence(ctx context.Context, runID, sessionID string) (*application.CommandSequencePayload, error) {
	path := fmt.Sprintf("/api/runs/%s/packing-sessions/%s/commands", runID, sessionID)
	body, err := c.do(ctx, "fetch_command_sequence", http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return nil, errors.ErrValidation("command sequence payload is not valid JSON").Wrap(err)
	}
	if err := c.schema.Validate(instance); err != nil {
		return nil, errors.ErrValidation("command sequence payload failed schema validation").Wrap(err)
	}

	var resp sequenceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.ErrValidation("failed to decode command sequence").Wrap(err)
	}
	return &application.CommandSequencePayload{
		Commands:   resp.Commands,
		TotalItems: resp.TotalItems,
		HasItems:   resp.HasItems,
	}, nil
}

type runDetailResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Entries []struct {
		ID     string `json:"id"`
		Picked bool   `json:"picked"`
	} `json:"entries"`
}

// FetchRunDetail loads run-level data including remote pick flags.
func (c *Client) FetchRunDetail(ctx context.Context, runID string) (*application.RunDetail, error) {
	body, err := c.do(ctx, "fetch_run_detail", http.MethodGet, "/api/runs/"+runID, nil)
	if err != nil {
		return nil, err
	}

	var resp runDetailResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.ErrValidation("failed to decode run detail").Wrap(err)
	}

	detail := &application.RunDetail{
		RunID:   resp.ID,
		Name:    resp.Name,
		Entries: make([]application.PickEntry, len(resp.Entries)),
	}
	for i, entry := range resp.Entries {
		detail.Entries[i] = application.PickEntry{ID: entry.ID, Picked: entry.Picked}
	}
	return detail, nil
}

type chocolateBoxResponse struct {
	Boxes []struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Quantity int    `json:"quantity"`
	} `json:"boxes"`
}

// FetchChocolateBoxes loads the auxiliary box list for a run.
func (c *Client) FetchChocolateBoxes(ctx context.Context, runID string) ([]application.ChocolateBox, error) {
	body, err := c.do(ctx, "fetch_chocolate_boxes", http.MethodGet, "/api/runs/"+runID+"/chocolate-boxes", nil)
	if err != nil {
		return nil, err
	}

	var resp chocolateBoxResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.ErrValidation("failed to decode chocolate boxes").Wrap(err)
	}

	boxes := make([]application.ChocolateBox, len(resp.Boxes))
	for i, box := range resp.Boxes {
		boxes[i] = application.ChocolateBox{ID: box.ID, Name: box.Name, Quantity: box.Quantity}
	}
	return boxes, nil
}

type pickStatusRequest struct {
	EntryIDs []string `json:"entryIds"`
	Picked   bool     `json:"picked"`
}

// UpdatePickStatuses pushes the picked flag for a batch of entries.
func (c *Client) UpdatePickStatuses(ctx context.Context, runID string, entryIDs []string, picked bool) error {
	_, err := c.do(ctx, "update_pick_statuses", http.MethodPatch, "/api/runs/"+runID+"/entries/pick-status",
		pickStatusRequest{EntryIDs: entryIDs, Picked: picked})
	return err
}

type terminalResponse struct {
	Status         string `json:"status"`
	ClearedEntries int    `json:"clearedEntries"`
}

// FinishSession marks the packing session finished on the backend.
func (c *Client) FinishSession(ctx context.Context, runID, sessionID string) (*application.TerminalResult, error) {
	return c.terminate(ctx, "finish_session", runID, sessionID, "finish")
}

// AbandonSession marks the packing session abandoned on the backend.
// The backend clears partial pick state; the count comes back in the
// result.
func (c *Client) AbandonSession(ctx context.Context, runID, sessionID string) (*application.TerminalResult, error) {
	return c.terminate(ctx, "abandon_session", runID, sessionID, "abandon")
}

func (c *Client) terminate(ctx context.Context, operation, runID, sessionID, action string) (*application.TerminalResult, error) {
	path := fmt.Sprintf("/api/runs/%s/packing-sessions/%s/%s", runID, sessionID, action)
	body, err := c.do(ctx, operation, http.MethodPost, path, nil)
	if err != nil {
		return nil, err
	}

	var resp terminalResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.ErrValidation("failed to decode terminal response").Wrap(err)
	}
	return &application.TerminalResult{Status: resp.Status, ClearedEntries: resp.ClearedEntries}, nil
}

func (c *Client) do(ctx context.Context, operation, method, path string, payload interface{}) ([]byte, error) {
	start := time.Now()
	result, err := c.breaker.Execute(ctx, func() (interface{}, error) {
		var reqBody io.Reader
		if payload != nil {
			data, marshalErr := json.Marshal(payload)
			if marshalErr != nil {
				return nil, fmt.Errorf("failed to marshal request: %w", marshalErr)
			}
			reqBody = bytes.NewReader(data)
		}

		req, reqErr := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
		if reqErr != nil {
			return nil, fmt.Errorf("failed to create request: %w", reqErr)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, doErr := c.httpClient.Do(req)
		if doErr != nil {
			return nil, fmt.Errorf("request failed: %w", doErr)
		}
		defer resp.Body.Close()

		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, fmt.Errorf("failed to read response: %w", readErr)
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return body, nil
		case resp.StatusCode == http.StatusNotFound:
			return nil, errors.ErrNotFound(operation)
		case resp.StatusCode == http.StatusConflict, resp.StatusCode == http.StatusGone:
			return nil, errors.NewAppError(errors.CodeSessionTerminated,
				"packing session already terminated", http.StatusConflict)
		default:
			return nil, fmt.Errorf("%s returned status %d", operation, resp.StatusCode)
		}
	})

	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordBackendRequest(operation, status, time.Since(start))

	if err != nil {
		c.logger.WithError(err).Warn("Backend request failed", "operation", operation)
		return nil, err
	}
	return result.([]byte), nil
}
