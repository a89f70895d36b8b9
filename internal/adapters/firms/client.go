// Package firms is an HTTP client for the NASA FIRMS area CSV API.
// One Client serves one satellite source and carries its own circuit breaker
package firms

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	perr "firewatch/internal/platform/errors"
	"firewatch/internal/platform/logger"
	"firewatch/internal/services/fetch/domain"
)

const (
	baseURLDefault     = "https://firms.modaps.eosdis.nasa.gov"
	areaDefault        = "world"
	defaultTimeout     = 60 * time.Second
	defaultUA          = "firewatch-fetch"
	defaultFailures    = 3
	defaultOpenTimeout = 5 * time.Minute
	maxBodyBytes       = 256 << 20
)

// Options configures a Client
type Options struct {
	BaseURL   string
	MapKey    string
	Area      string // "world" or "west,south,east,north"
	UserAgent string
	Timeout   time.Duration

	// BreakerFailures is the consecutive failure count that opens the breaker
	BreakerFailures uint32
	// BreakerTimeout is how long an open breaker fails fast before probing
	BreakerTimeout time.Duration

	// HTTP overrides the transport; tests use httptest clients
	HTTP *http.Client
}

// Client fetches one FIRMS source
type Client struct {
	source string
	opts   Options
	http   *http.Client
	cb     *gobreaker.CircuitBreaker[domain.RawTable]
	log    logger.Logger
}

var _ domain.Source = (*Client)(nil)

// New creates a Client for source (e.g. VIIRS_SNPP_NRT) with defaults filled in
func New(source string, o Options) *Client {
	if o.BaseURL == "" {
		o.BaseURL = baseURLDefault
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.Area == "" {
		o.Area = areaDefault
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.BreakerFailures == 0 {
		o.BreakerFailures = defaultFailures
	}
	if o.BreakerTimeout <= 0 {
		o.BreakerTimeout = defaultOpenTimeout
	}
	hc := o.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: o.Timeout}
	}

	c := &Client{
		source: source,
		opts:   o,
		http:   hc,
		log:    logger.Named("firms").With().Str("source", source).Logger(),
	}
	c.cb = gobreaker.NewCircuitBreaker[domain.RawTable](gobreaker.Settings{
		Name:        "firms:" + source,
		MaxRequests: 1,
		Timeout:     o.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= o.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("breaker state change")
		},
	})
	return c
}

// ID returns the FIRMS source name
func (c *Client) ID() string { return c.source }

// State reports the breaker state for diagnostics
func (c *Client) State() gobreaker.State { return c.cb.State() }

// Fetch downloads the last days of detections as a raw table.
// An open breaker fails fast with ErrorCodeUnavailable
func (c *Client) Fetch(ctx context.Context, days int) (domain.RawTable, error) {
	tbl, err := c.cb.Execute(func() (domain.RawTable, error) {
		return c.fetch(ctx, days)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return domain.RawTable{}, perr.Wrapf(err, perr.ErrorCodeUnavailable, "firms %s: breaker open", c.source)
	}
	return tbl, err
}

// URL builds the area endpoint for days
func (c *Client) URL(days int) string {
	return fmt.Sprintf("%s/api/area/csv/%s/%s/%s/%d",
		c.opts.BaseURL, url.PathEscape(c.opts.MapKey), url.PathEscape(c.source), c.opts.Area, days)
}

func (c *Client) fetch(ctx context.Context, days int) (domain.RawTable, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(days), nil)
	if err != nil {
		return domain.RawTable{}, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "firms %s: build request", c.source)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "text/csv")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.RawTable{}, perr.Wrapf(err, perr.ErrorCodeUnavailable, "firms %s: request", c.source)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.RawTable{}, perr.Newf(perr.ErrorCodeTooManyRequests, "firms %s: rate limited", c.source)
	case resp.StatusCode >= 500:
		return domain.RawTable{}, perr.Newf(perr.ErrorCodeUnavailable, "firms %s: status %d", c.source, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return domain.RawTable{}, perr.Newf(perr.ErrorCodeSource, "firms %s: status %d", c.source, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domain.RawTable{}, perr.Wrapf(err, perr.ErrorCodeUnavailable, "firms %s: read body", c.source)
	}
	return Parse(c.source, body)
}

// Parse turns a FIRMS CSV body into a RawTable. Rows keep whatever column
// count they arrived with; FIRMS reports key and quota problems as a 200
// text body starting with "Invalid", which is an error
func Parse(source string, body []byte) (domain.RawTable, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return domain.RawTable{}, nil
	}
	if bytes.HasPrefix(trimmed, []byte("Invalid")) {
		line, _, _ := bufio.NewReader(bytes.NewReader(trimmed)).ReadLine()
		return domain.RawTable{}, perr.Newf(perr.ErrorCodeSource, "firms %s: %s", source, line)
	}

	r := csv.NewReader(bytes.NewReader(trimmed))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return domain.RawTable{}, perr.Wrapf(err, perr.ErrorCodeSource, "firms %s: read header", source)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				// quoting damage on one line; keep what csv salvaged as a short row
				rows = append(rows, rec)
				continue
			}
			return domain.RawTable{}, perr.Wrapf(err, perr.ErrorCodeSource, "firms %s: read rows", source)
		}
		rows = append(rows, rec)
	}
	return domain.RawTable{Header: header, Rows: rows}, nil
}
