package acl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/jsamuelsen/quotesync/internal/adapters/clients"
	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/platform/logging"
)

const (
	defaultReadPath  = "/posts"
	defaultWritePath = "/posts"
)

// QuoteClientConfig contains configuration for the remote quote source.
type QuoteClientConfig struct {
	// Client is the HTTP client to use for requests.
	// The client's BaseURL should point at the remote source.
	Client *clients.Client

	// ReadPath lists remote records. Defaults to /posts.
	ReadPath string

	// WritePath accepts newly added quotes. Defaults to /posts.
	WritePath string

	// Logger is the structured logger.
	Logger *slog.Logger
}

// QuoteClient implements ports.RemoteQuoteSource on top of a posts-style JSON API.
// Remote records are translated to domain quotes at this boundary: the title
// becomes the quote text, every other field is discarded, and the category is
// always domain.RemoteCategory.
type QuoteClient struct {
	BaseAdapter

	readPath  string
	writePath string
	logger    *slog.Logger
}

// NewQuoteClient creates a new remote quote source adapter.
// Panics if Client is nil. Defaults logger to slog.Default() if nil.
func NewQuoteClient(cfg QuoteClientConfig) *QuoteClient {
	if cfg.Client == nil {
		panic("QuoteClient: Client is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	readPath := cfg.ReadPath
	if readPath == "" {
		readPath = defaultReadPath
	}

	writePath := cfg.WritePath
	if writePath == "" {
		writePath = defaultWritePath
	}

	return &QuoteClient{
		BaseAdapter: NewBaseAdapter(cfg.Client, "quote-remote"),
		readPath:    readPath,
		writePath:   writePath,
		logger:      logger.With(slog.String("component", "acl.QuoteClient")),
	}
}

// postRecord is the external DTO of the remote source.
// This is an internal type - never exposed outside the ACL.
type postRecord struct {
	ID     int    `json:"id"`
	UserID int    `json:"userId"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// publishRequest is the body sent to the remote write endpoint.
type publishRequest struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

// publishResponse is the echo returned by the remote write endpoint.
type publishResponse struct {
	ID int `json:"id"`
}

// FetchQuotes returns the first limit remote records as quotes.
// Implements ports.RemoteQuoteSource.
func (c *QuoteClient) FetchQuotes(ctx context.Context, limit int) ([]domain.Quote, error) {
	c.logger.Log(ctx, logging.LevelTrace, "starting request", slog.String("path", c.readPath))

	body, err := c.Get(ctx, c.readPath, "fetch")
	if err != nil {
		return nil, err
	}

	records, err := DecodeResponse[[]postRecord](body, "remote snapshot")
	if err != nil {
		return nil, err
	}

	quotes := c.translateRecords(ctx, *records, limit)

	c.logger.DebugContext(ctx, "fetched remote snapshot",
		slog.Int("records", len(*records)),
		slog.Int("quotes", len(quotes)),
	)

	return quotes, nil
}

// translateRecords converts the first limit records, skipping those without a title.
// Skipped records still count against limit.
func (c *QuoteClient) translateRecords(ctx context.Context, records []postRecord, limit int) []domain.Quote {
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	quotes := make([]domain.Quote, 0, len(records))

	for i := range records {
		q, err := translateRecord(&records[i])
		if err != nil {
			c.logger.WarnContext(ctx, "skipping remote record",
				slog.Int("record_id", records[i].ID),
				slog.Any("error", err),
			)

			continue
		}

		c.logger.Log(ctx, logging.LevelTrace, "translated remote record",
			slog.Int("record_id", records[i].ID))

		quotes = append(quotes, q)
	}

	return quotes
}

// translateRecord is the core ACL translation function.
func translateRecord(r *postRecord) (domain.Quote, error) {
	if err := ValidateRequired(r.Title, "title"); err != nil {
		return domain.Quote{}, err
	}

	return domain.Quote{Text: r.Title, Category: domain.RemoteCategory}, nil
}

// PublishQuote posts a locally added quote to the remote write endpoint.
// The response is logged only. Implements ports.RemoteQuoteSource.
func (c *QuoteClient) PublishQuote(ctx context.Context, quote domain.Quote) error {
	payload, err := json.Marshal(publishRequest{Text: quote.Text, Category: quote.Category})
	if err != nil {
		return fmt.Errorf("encoding quote: %w", err)
	}

	body, err := c.Post(ctx, c.writePath, bytes.NewReader(payload), "publish")
	if err != nil {
		return err
	}

	echo, err := DecodeResponse[publishResponse](body, "publish response")
	if err != nil {
		c.logger.WarnContext(ctx, "remote accepted quote with unreadable response", slog.Any("error", err))

		return nil
	}

	c.logger.InfoContext(ctx, "published quote to remote",
		slog.Int("remote_id", echo.ID),
		slog.String("category", quote.Category),
	)

	return nil
}

// Name returns the health check name for this client.
// Implements ports.HealthChecker.
func (c *QuoteClient) Name() string {
	return c.ServiceName()
}

// Check verifies the read endpoint answers with a 2xx status.
// Implements ports.HealthChecker.
func (c *QuoteClient) Check(ctx context.Context) error {
	body, err := c.Get(ctx, c.readPath, "health check")
	if err != nil {
		return err
	}

	_, _ = io.Copy(io.Discard, body)

	return body.Close()
}
