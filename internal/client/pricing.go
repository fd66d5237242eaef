package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/hashicorp/golang-lru/v2"
	"github.com/tidwall/gjson"

	"github.com/kode4food/stepflow/internal/config"
)

type (
	// PriceEstimator quotes the price of one unit of a grocery item
	PriceEstimator interface {
		Estimate(ctx context.Context, q PriceQuery) (Price, error)
	}

	// PriceQuery names a normalized grocery item
	PriceQuery struct {
		Name string `json:"name"`
		Unit string `json:"unit"`
	}

	// Price is a per-unit quote along with the store section that stocks
	// the item
	Price struct {
		Currency  string  `json:"currency"`
		Section   string  `json:"section"`
		UnitPrice float64 `json:"unit_price"`
	}

	// PricingClient calls a price service that answers a PriceQuery with a
	// JSON Price
	PricingClient struct {
		httpClient *http.Client
		endpoint   string
	}

	// CompletionEstimator asks a completion service for an estimate when no
	// dedicated price service is configured
	CompletionEstimator struct {
		completer Completer
	}

	// CachedEstimator remembers quotes from another estimator
	CachedEstimator struct {
		inner PriceEstimator
		cache *lru.Cache[PriceQuery, Price]
	}
)

const (
	defaultCurrency = "USD"
	defaultSection  = "other"

	estimateSystem = "You estimate typical US supermarket prices. Reply " +
		`with JSON only: {"unit_price": number, "currency": "USD", ` +
		`"section": string}. Section is one of produce, bakery, ` +
		"meat, seafood, dairy, frozen, pantry, spices, beverages, other."
)

var (
	_ PriceEstimator = (*PricingClient)(nil)
	_ PriceEstimator = (*CompletionEstimator)(nil)
	_ PriceEstimator = (*CachedEstimator)(nil)
)

// NewPricingClient creates a client for the configured price service
func NewPricingClient(cfg config.PricingConfig) *PricingClient {
	return &PricingClient{
		httpClient: &http.Client{},
		endpoint:   cfg.Endpoint,
	}
}

func (c *PricingClient) Estimate(
	ctx context.Context, q PriceQuery,
) (Price, error) {
	body, err := postJSON(ctx, c.httpClient, c.endpoint, nil, q)
	if err != nil {
		return Price{}, err
	}
	if !gjson.ValidBytes(body) {
		return Price{}, fmt.Errorf("%w: not JSON", ErrInvalidResponse)
	}
	return parsePrice(gjson.ParseBytes(body))
}

// NewCompletionEstimator creates an estimator backed by a Completer
func NewCompletionEstimator(c Completer) *CompletionEstimator {
	return &CompletionEstimator{completer: c}
}

func (e *CompletionEstimator) Estimate(
	ctx context.Context, q PriceQuery,
) (Price, error) {
	prompt := fmt.Sprintf("Price for one %s of %s", q.Unit, q.Name)
	res, err := CompleteJSON(ctx, e.completer, estimateSystem, prompt)
	if err != nil {
		return Price{}, err
	}
	return parsePrice(res)
}

// NewCachedEstimator wraps inner with an LRU cache of the given size
func NewCachedEstimator(
	inner PriceEstimator, size int,
) (*CachedEstimator, error) {
	cache, err := lru.New[PriceQuery, Price](size)
	if err != nil {
		return nil, err
	}
	return &CachedEstimator{
		inner: inner,
		cache: cache,
	}, nil
}

func (e *CachedEstimator) Estimate(
	ctx context.Context, q PriceQuery,
) (Price, error) {
	key := PriceQuery{
		Name: strings.ToLower(strings.TrimSpace(q.Name)),
		Unit: strings.ToLower(strings.TrimSpace(q.Unit)),
	}
	if p, ok := e.cache.Get(key); ok {
		return p, nil
	}
	p, err := e.inner.Estimate(ctx, q)
	if err != nil {
		return Price{}, err
	}
	e.cache.Add(key, p)
	return p, nil
}

// Len returns the number of cached quotes
func (e *CachedEstimator) Len() int {
	return e.cache.Len()
}

func parsePrice(res gjson.Result) (Price, error) {
	unit := res.Get("unit_price")
	if unit.Type != gjson.Number || unit.Float() < 0 {
		return Price{}, fmt.Errorf("%w: missing unit_price",
			ErrInvalidResponse)
	}
	p := Price{
		UnitPrice: unit.Float(),
		Currency:  res.Get("currency").String(),
		Section:   strings.ToLower(res.Get("section").String()),
	}
	if p.Currency == "" {
		p.Currency = defaultCurrency
	}
	if p.Section == "" {
		p.Section = defaultSection
	}
	return p, nil
}
