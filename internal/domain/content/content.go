// Package content fetches and extracts the plant-care cards behind the
// plant_card screens.
//
// Cards live on an upstream CMS as HTML pages. The client rate-limits and
// retries fetches, trips a circuit breaker when the upstream misbehaves,
// sanitizes the HTML, and extracts the structured card the renderer needs.
// Any failure collapses to ErrUnavailable: the navigator shows a
// content-unavailable screen, it never errors a navigation.
package content

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/verdantlabs/sprout/navigator/internal/infrastructure/logging"
	"github.com/verdantlabs/sprout/navigator/internal/infrastructure/resilience"
)

// ErrUnavailable reports a card that cannot be served right now.
var ErrUnavailable = errors.New("card content unavailable")

// Card is one extracted plant-care card.
type Card struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Species   string    `json:"species,omitempty"`
	Summary   string    `json:"summary,omitempty"`
	CareTips  []string  `json:"care_tips,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Config tunes the card client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	RetryMax   int
	RatePerSec float64
	Burst      int
	CacheTTL   time.Duration
}

// Client fetches cards from the upstream CMS.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	policy  *bluemonday.Policy
	logger  *logging.Logger

	mu    sync.RWMutex
	cache map[string]*Card
	ttl   time.Duration
}

// NewClient builds a card client. Zero config fields get defaults.
func NewClient(cfg Config, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RetryMax == 0 {
		cfg.RetryMax = 3
	}
	if cfg.RatePerSec == 0 {
		cfg.RatePerSec = 5
	}
	if cfg.Burst == 0 {
		cfg.Burst = 10
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 5 * time.Minute
	}

	// UGC scrubbing, but the class attributes survive: extraction keys
	// off the CMS's card classes.
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Globally()

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.RetryMax
	retryClient.Logger = nil
	retryClient.HTTPClient.Timeout = cfg.Timeout

	httpClient := resty.NewWithClient(retryClient.StandardClient()).
		SetBaseURL(cfg.BaseURL).
		SetHeader("Accept", "text/html")

	breaker := resilience.NewBreaker("content", resilience.Options{
		OnChange: func(name string, from, to resilience.State) {
			logger.Warn("content breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
		breaker: breaker,
		policy:  policy,
		logger:  logger,
		cache:   make(map[string]*Card),
		ttl:     cfg.CacheTTL,
	}
}

// Fetch returns the card, from cache when fresh. All transport and
// upstream failures map to ErrUnavailable.
func (c *Client) Fetch(ctx context.Context, cardID string) (*Card, error) {
	if card := c.cached(cardID); card != nil {
		return card, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var body string
	err := c.breaker.Do(func() error {
		resp, err := c.http.R().
			SetContext(ctx).
			Get("/cards/" + cardID)
		if err != nil {
			return err
		}
		if resp.IsError() {
			return fmt.Errorf("upstream returned %d", resp.StatusCode())
		}
		body = string(resp.Body())
		return nil
	})
	if err != nil {
		c.logger.Warn("card fetch failed",
			zap.String("card", cardID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, cardID)
	}

	card, err := c.extract(cardID, body)
	if err != nil {
		c.logger.Warn("card extraction failed",
			zap.String("card", cardID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, cardID)
	}

	c.store(card)
	return card, nil
}

// extract sanitizes the upstream HTML and pulls the card fields out.
func (c *Client) extract(cardID, html string) (*Card, error) {
	clean := c.policy.Sanitize(html)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(clean))
	if err != nil {
		return nil, err
	}

	card := &Card{
		ID:        cardID,
		Title:     strings.TrimSpace(doc.Find(".card-title").First().Text()),
		Species:   strings.TrimSpace(doc.Find(".card-species").First().Text()),
		Summary:   strings.TrimSpace(doc.Find(".card-summary").First().Text()),
		FetchedAt: time.Now().UTC(),
	}
	doc.Find(".care-tips li").Each(func(_ int, s *goquery.Selection) {
		if tip := strings.TrimSpace(s.Text()); tip != "" {
			card.CareTips = append(card.CareTips, tip)
		}
	})

	if card.Title == "" {
		return nil, errors.New("card page has no title")
	}
	return card, nil
}

func (c *Client) cached(cardID string) *Card {
	c.mu.RLock()
	defer c.mu.RUnlock()
	card, ok := c.cache[cardID]
	if !ok || time.Since(card.FetchedAt) > c.ttl {
		return nil
	}
	return card
}

func (c *Client) store(card *Card) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[card.ID] = card
}

// Invalidate drops a card from the cache, for CMS update webhooks.
func (c *Client) Invalidate(cardID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cache, cardID)
}
