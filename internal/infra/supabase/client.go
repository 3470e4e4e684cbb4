// Package supabase provides a ledger KV backed by a Supabase (PostgREST) table.
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/boddenberg/financas-familia-bfa-go/internal/domain"
	"github.com/boddenberg/financas-familia-bfa-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("supabase")

const (
	table       = "ledger_kv"
	casAttempts = 5
)

// Client wraps HTTP calls to the Supabase PostgREST API.
//
// Writes are optimistic: an update only applies when the row still has the
// version that was read, otherwise the read-modify-write is replayed.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	serviceRoleKey string
	cb             *gobreaker.CircuitBreaker
	cfg            resilience.Config
	logger         *zap.Logger
}

// NewClient creates a Supabase client.
func NewClient(httpClient *http.Client, baseURL, apiKey, serviceRoleKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         apiKey,
		serviceRoleKey: serviceRoleKey,
		cb:             cb,
		cfg:            cfg,
		logger:         logger,
	}
}

// kvRow maps the ledger_kv table columns.
type kvRow struct {
	Key       string          `json:"key,omitempty"`
	Value     json.RawMessage `json:"value"`
	Version   int64           `json:"version"`
	UpdatedAt string          `json:"updated_at,omitempty"`
}

func (c *Client) load(ctx context.Context, key string) (*kvRow, error) {
	var row *kvRow
	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			path := fmt.Sprintf("%s?key=eq.%s&select=value,version&limit=1", table, url.QueryEscape(key))
			body, err := c.doRequest(ctx, http.MethodGet, path)
			if err != nil {
				return err
			}
			if body == nil || string(body) == "[]" {
				row = nil
				return nil
			}

			var rows []kvRow
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("failed to decode %s: %w", key, err)
			}
			if len(rows) > 0 {
				row = &rows[0]
			}
			return nil
		})
	})
	if err != nil {
		return nil, wrapErr(err)
	}
	return row, nil
}

// Get implements port.KV.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "Supabase.Get")
	defer span.End()
	span.SetAttributes(attribute.String("kv.key", key))

	row, err := c.load(ctx, key)
	if err != nil || row == nil {
		return nil, err
	}
	return row.Value, nil
}

// Update implements port.KV. Writes are not retried blindly: a lost
// response could otherwise apply fn twice.
func (c *Client) Update(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error {
	ctx, span := tracer.Start(ctx, "Supabase.Update")
	defer span.End()
	span.SetAttributes(attribute.String("kv.key", key))

	for attempt := 1; attempt <= casAttempts; attempt++ {
		row, err := c.load(ctx, key)
		if err != nil {
			return err
		}

		var current []byte
		if row != nil {
			current = row.Value
		}
		next, err := fn(current)
		if err != nil {
			return err
		}

		now := time.Now().UTC().Format(time.RFC3339Nano)
		var applied bool
		_, err = c.cb.Execute(func() (any, error) {
			if row == nil {
				status, err := c.doPost(ctx, table, kvRow{Key: key, Value: next, Version: 1, UpdatedAt: now})
				if status == http.StatusConflict {
					return nil, nil
				}
				applied = err == nil
				return nil, err
			}
			path := fmt.Sprintf("%s?key=eq.%s&version=eq.%d", table, url.QueryEscape(key), row.Version)
			rows, err := c.doPatch(ctx, path, kvRow{Value: next, Version: row.Version + 1, UpdatedAt: now})
			applied = err == nil && rows > 0
			return nil, err
		})
		if err != nil {
			return wrapErr(err)
		}
		if applied {
			return nil
		}
		c.logger.Debug("supabase: concurrent write, retrying",
			zap.String("key", key),
			zap.Int("attempt", attempt),
		)
	}
	return &domain.ErrConflict{Message: fmt.Sprintf("não foi possível gravar %s: escrita concorrente", key)}
}

// Ping checks that PostgREST answers for the ledger table.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodGet, table+"?select=key&limit=1")
	return err
}

// Close is a no-op; the HTTP client is shared.
func (c *Client) Close() error { return nil }

func wrapErr(err error) error {
	err = resilience.MapBreakerError("supabase", err)
	var open *domain.ErrCircuitOpen
	if errors.As(err, &open) {
		return err
	}
	return &domain.ErrExternalService{Service: "supabase/ledger", Err: err}
}
