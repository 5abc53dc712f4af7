package mock

import (
	"context"
	"sync"
	"time"

	"github.com/lexmachina/lexmachina-agent/internal/domain"
)

// Client fakes both the search call and the per-URL description fetches.
type Client struct {
	Suggestions  []domain.Suggestion
	Error        error
	Delay        time.Duration
	Descriptions map[string]string
	FetchErrors  map[string]error
	FetchDelays  map[string]time.Duration

	CallCount   int
	LastQuery   string
	FetchCount  int
	FetchedURLs []string

	mu sync.Mutex
}

func New() *Client {
	return &Client{
		Descriptions: make(map[string]string),
		FetchErrors:  make(map[string]error),
		FetchDelays:  make(map[string]time.Duration),
	}
}

func (c *Client) WithSuggestions(s []domain.Suggestion) *Client {
	c.Suggestions = s
	return c
}

func (c *Client) WithError(err error) *Client {
	c.Error = err
	return c
}

func (c *Client) WithDelay(delay time.Duration) *Client {
	c.Delay = delay
	return c
}

func (c *Client) WithDescription(url, desc string) *Client {
	c.Descriptions[url] = desc
	return c
}

func (c *Client) WithFetchError(url string, err error) *Client {
	c.FetchErrors[url] = err
	return c
}

func (c *Client) WithFetchDelay(url string, d time.Duration) *Client {
	c.FetchDelays[url] = d
	return c
}

func (c *Client) Search(ctx context.Context, query string) ([]domain.Suggestion, error) {
	c.mu.Lock()
	c.CallCount++
	c.LastQuery = query
	delay := c.Delay
	err := c.Error
	suggestions := c.Suggestions
	c.mu.Unlock()

	if err := wait(ctx, delay); err != nil {
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	out := make([]domain.Suggestion, len(suggestions))
	copy(out, suggestions)
	return out, nil
}

func (c *Client) FetchDescription(ctx context.Context, url string) (string, error) {
	c.mu.Lock()
	c.FetchCount++
	c.FetchedURLs = append(c.FetchedURLs, url)
	delay := c.FetchDelays[url]
	err := c.FetchErrors[url]
	desc, ok := c.Descriptions[url]
	c.mu.Unlock()

	if err := wait(ctx, delay); err != nil {
		return "", domain.NewError(domain.ErrEnrichment, "fetch description", domain.ClassifyTransport(err), err)
	}
	if err != nil {
		return "", err
	}
	if !ok {
		desc = "description of " + url
	}
	return desc, nil
}

func (c *Client) Fetches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.FetchCount
}

func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CallCount = 0
	c.LastQuery = ""
	c.FetchCount = 0
	c.FetchedURLs = nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
