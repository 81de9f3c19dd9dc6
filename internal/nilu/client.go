// Package nilu fetches station measurements from the NILU air quality API.
package nilu

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-resty/resty/v2"

	"airquality-gateway/internal/airquality"
)

const userAgentPrefix = "Private use only - "

// Client issues one GET per Fetch. Retrying is left to the caller.
type Client struct {
	http      *resty.Client
	userAgent string
	logger    *slog.Logger
}

type Options struct {
	// UserAgent is the contact tag appended to the fixed User-Agent prefix.
	UserAgent string
	// Debug dumps requests and responses through the logger.
	Debug bool
}

func NewClient(opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	ua := userAgentPrefix + opts.UserAgent
	rest := resty.New().
		SetRetryCount(0).
		SetLogger(restyLogger{logger: logger}).
		SetDebug(opts.Debug).
		SetHeader("User-Agent", ua).
		SetHeader("Accept", "application/json")

	return &Client{
		http:      rest,
		userAgent: ua,
		logger:    logger,
	}
}

// UserAgent returns the header value sent with every request.
func (c *Client) UserAgent() string {
	return c.userAgent
}

// Fetch GETs url and decodes the body as a JSON array of objects. Every
// failure wraps airquality.ErrFetch.
func (c *Client) Fetch(ctx context.Context, url string) ([]airquality.Record, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %v", airquality.ErrFetch, url, err)
	}

	c.logger.Debug("nilu response",
		"url", url,
		"status", resp.StatusCode(),
		"bytes", len(resp.Body()),
		"duration", resp.Time(),
	)

	if !resp.IsSuccess() {
		return nil, fmt.Errorf("%w: GET %s: unexpected status %s", airquality.ErrFetch, url, resp.Status())
	}

	records, err := decodeRecords(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %v", airquality.ErrFetch, url, err)
	}

	c.logger.Debug("nilu records decoded", "count", len(records), "raw", string(resp.Body()))
	return records, nil
}

func decodeRecords(body []byte) ([]airquality.Record, error) {
	var top any
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}

	items, ok := top.([]any)
	if !ok {
		return nil, fmt.Errorf("top level is %s, want array", jsonKind(top))
	}

	records := make([]airquality.Record, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("element %d is %s, want object", i, jsonKind(item))
		}
		records = append(records, airquality.Record(obj))
	}
	return records, nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "bool"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// restyLogger routes resty's internal logging into slog.
type restyLogger struct {
	logger *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...any) {
	l.logger.Error(fmt.Sprintf(format, v...), "component", "resty")
}

func (l restyLogger) Warnf(format string, v ...any) {
	l.logger.Warn(fmt.Sprintf(format, v...), "component", "resty")
}

func (l restyLogger) Debugf(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...), "component", "resty")
}
