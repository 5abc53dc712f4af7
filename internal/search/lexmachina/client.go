package lexmachina

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/lexmachina/lexmachina-agent/internal/credential"
	"github.com/lexmachina/lexmachina-agent/internal/domain"
	"github.com/lexmachina/lexmachina-agent/internal/redact"
	"github.com/lexmachina/lexmachina-agent/internal/search"
)

const (
	searchPath      = "/search/ai_suggested"
	maxBodyBytes    = 4 << 20
	logBodyMaxBytes = 256
)

// paths tried, in order, when pulling the description out of a payload
var descriptionPaths = []string{"description", "text", "result.description"}

type Config struct {
	BaseURL            string
	Timeout            time.Duration
	DescriptionTimeout time.Duration
}

type Client struct {
	baseURL    *url.URL
	creds      *credential.Credentials
	client     *http.Client
	descClient *http.Client
	logger     *zap.Logger
	recorder   search.Recorder
}

func New(cfg Config, creds *credential.Credentials, logger *zap.Logger) (*Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.DescriptionTimeout == 0 {
		cfg.DescriptionTimeout = cfg.Timeout
	}
	if creds == nil {
		return nil, errors.New("lexmachina: credentials are required")
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("lexmachina: invalid base url %q", cfg.BaseURL)
	}

	return &Client{
		baseURL:    base,
		creds:      creds,
		client:     &http.Client{Timeout: cfg.Timeout},
		descClient: &http.Client{Timeout: cfg.DescriptionTimeout},
		logger:     logger,
	}, nil
}

func (c *Client) WithRecorder(r search.Recorder) *Client {
	c.recorder = r
	return c
}

type searchResponse struct {
	Result *[]domain.Suggestion `json:"result"`
}

func (c *Client) Search(ctx context.Context, query string) ([]domain.Suggestion, error) {
	const op = "search"
	start := time.Now()

	endpoint := c.baseURL.JoinPath(searchPath)
	endpoint.RawQuery = url.Values{"q": {query}}.Encode()

	body, status, err := c.get(ctx, c.client, endpoint.String(), true)
	if err != nil {
		c.recordSearch("error", start)
		c.logger.Warn("search request failed", zap.Error(err))
		return nil, &domain.Error{
			Kind:   domain.ErrUpstreamRequest,
			Op:     op,
			Reason: transportReason(err),
			Err:    err,
		}
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		c.recordSearch("unauthorized", start)
		c.logger.Warn("search rejected credentials", zap.Int("status", status))
		return nil, &domain.Error{
			Kind:   domain.ErrUpstreamAuth,
			Op:     op,
			Reason: domain.ReasonHTTPStatus,
			Status: status,
		}
	case status < 200 || status > 299:
		c.recordSearch("http_error", start)
		c.logger.Warn("search returned non-success status",
			zap.Int("status", status),
			zap.String("body", redact.Truncate(redact.Secrets(string(body)), logBodyMaxBytes)),
		)
		return nil, &domain.Error{
			Kind:   domain.ErrUpstreamRequest,
			Op:     op,
			Reason: domain.ReasonHTTPStatus,
			Status: status,
		}
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.recordSearch("malformed", start)
		return nil, &domain.Error{
			Kind:   domain.ErrMalformedResponse,
			Op:     op,
			Reason: domain.ReasonDecode,
			Err:    err,
		}
	}
	if resp.Result == nil {
		c.recordSearch("malformed", start)
		return nil, &domain.Error{
			Kind:   domain.ErrMalformedResponse,
			Op:     op,
			Reason: domain.ReasonMissingKey,
			Err:    errors.New(`response has no "result" array`),
		}
	}

	c.recordSearch("success", start)
	c.logger.Debug("search completed",
		zap.Int("suggestions", len(*resp.Result)),
		zap.Duration("duration", time.Since(start)),
	)

	return *resp.Result, nil
}

// FetchDescription GETs sourceURL, resolved against the base URL when
// relative, and extracts the description text. Credential headers are only
// attached when the target is on the API host.
func (c *Client) FetchDescription(ctx context.Context, sourceURL string) (string, error) {
	const op = "fetch description"
	start := time.Now()

	if strings.TrimSpace(sourceURL) == "" {
		c.recordFetch("invalid", start)
		return "", domain.NewError(domain.ErrEnrichment, op, domain.ReasonMissingURL, nil)
	}

	target, err := c.resolve(sourceURL)
	if err != nil {
		c.recordFetch("invalid", start)
		return "", domain.NewError(domain.ErrEnrichment, op, domain.ReasonInvalidURL, err)
	}

	body, status, err := c.get(ctx, c.descClient, target.String(), c.sameHost(target))
	if err != nil {
		c.recordFetch("error", start)
		return "", domain.NewError(domain.ErrEnrichment, op, transportReason(err), err)
	}
	if status < 200 || status > 299 {
		c.recordFetch("http_error", start)
		return "", &domain.Error{
			Kind:   domain.ErrEnrichment,
			Op:     op,
			Reason: domain.ReasonHTTPStatus,
			Status: status,
		}
	}

	desc, err := extractDescription(body)
	if err != nil {
		c.recordFetch("malformed", start)
		return "", domain.NewError(domain.ErrEnrichment, op, domain.ReasonDecode, err)
	}

	c.recordFetch("success", start)
	return desc, nil
}

func extractDescription(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", errors.New("description body is not valid JSON")
	}

	doc := gjson.ParseBytes(body)
	if doc.Type == gjson.String {
		return doc.String(), nil
	}
	for _, path := range descriptionPaths {
		if v := doc.Get(path); v.Exists() && v.Type == gjson.String {
			return v.String(), nil
		}
	}

	// no known field, hand back the document itself
	return strings.TrimSpace(doc.Raw), nil
}

func (c *Client) get(ctx context.Context, hc *http.Client, target string, withAuth bool) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	if withAuth {
		c.creds.Apply(req.Header)
	} else {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	return body, resp.StatusCode, nil
}

func (c *Client) resolve(raw string) (*url.URL, error) {
	ref, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	u := c.baseURL.ResolveReference(ref)
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	return u, nil
}

func (c *Client) sameHost(u *url.URL) bool {
	return strings.EqualFold(u.Host, c.baseURL.Host) && u.Scheme == c.baseURL.Scheme
}

func transportReason(err error) string {
	if r := domain.ClassifyTransport(err); r != "" {
		return r
	}
	return domain.ReasonTransport
}

func (c *Client) recordSearch(status string, start time.Time) {
	if c.recorder != nil {
		c.recorder.RecordSearchRequest(status, time.Since(start))
	}
}

func (c *Client) recordFetch(status string, start time.Time) {
	if c.recorder != nil {
		c.recorder.RecordDescriptionFetch(status, time.Since(start))
	}
}
