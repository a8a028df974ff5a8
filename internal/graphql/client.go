// Package graphql executes queries against the Snapshot hub GraphQL endpoint.
package graphql

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultTimeout = 5 * time.Minute
	maxBodySnippet = 200
)

type request struct {
	Query string `json:"query"`
}

type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

// Client posts GraphQL queries to a single endpoint.
type Client struct {
	endpoint string
	http     *resty.Client
	retry    RetryConfig
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.SetTimeout(d)
		}
	}
}

// WithRetryConfig sets the retry policy for transient failures.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(c *Client) {
		if cfg.MaxAttempts <= 0 {
			cfg.MaxAttempts = 1
		}
		c.retry = cfg
	}
}

// NewClient creates a client for endpoint.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		http:     resty.New().SetTimeout(defaultTimeout),
		retry:    DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the configured endpoint URL.
func (c *Client) Endpoint() string { return c.endpoint }

// Execute sends query and decodes the response's "data" object into out.
// Transient failures (network errors, 429, 5xx) are retried with backoff;
// any other non-200 status fails immediately with a *StatusError.
func (c *Client) Execute(ctx context.Context, query string, out any) error {
	var lastErr error

	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		err := c.do(ctx, query, out)
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsTransient(err) || attempt == c.retry.MaxAttempts {
			break
		}

		wait := c.retry.backoff(attempt)
		log.Printf("graphql: attempt %d/%d failed, retrying in %s: %v", attempt, c.retry.MaxAttempts, wait.Round(time.Millisecond), err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	return lastErr
}

func (c *Client) do(ctx context.Context, query string, out any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetBody(request{Query: query}).
		Post(c.endpoint)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return NewTransientError(fmt.Errorf("graphql: request failed: %w", err))
	}

	if resp.StatusCode() != http.StatusOK {
		return classifyStatus(resp.StatusCode(), query, resp.Body())
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return fmt.Errorf("graphql: decode response: %w", err)
	}
	if len(env.Errors) > 0 {
		return &QueryError{Errors: env.Errors, Query: query}
	}
	if out == nil {
		return nil
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return fmt.Errorf("graphql: response has no data")
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("graphql: decode data: %w", err)
	}
	return nil
}

// classifyStatus wraps a non-200 answer, marking rate limits and server
// errors as transient.
func classifyStatus(status int, query string, body []byte) error {
	snippet := string(body)
	if len(snippet) > maxBodySnippet {
		snippet = snippet[:maxBodySnippet] + "..."
	}
	err := &StatusError{StatusCode: status, Query: query, Body: snippet}

	if status == http.StatusTooManyRequests || status >= 500 {
		return NewTransientError(err)
	}
	return err
}
