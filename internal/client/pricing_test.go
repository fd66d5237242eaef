package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/stepflow/internal/client"
	"github.com/kode4food/stepflow/internal/config"
)

type countingEstimator struct {
	calls atomic.Int32
	price client.Price
	err   error
}

func (e *countingEstimator) Estimate(
	context.Context, client.PriceQuery,
) (client.Price, error) {
	e.calls.Add(1)
	return e.price, e.err
}

type fixedCompleter struct {
	reply string
	last  client.CompletionRequest
}

func (c *fixedCompleter) Complete(
	_ context.Context, req client.CompletionRequest,
) (string, error) {
	c.last = req
	return c.reply, nil
}

func TestPricingClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			var q client.PriceQuery
			require.NoError(t, json.NewDecoder(r.Body).Decode(&q))
			assert.Equal(t, "rice", q.Name)
			assert.Equal(t, "kg", q.Unit)
			_, _ = w.Write([]byte(
				`{"unit_price": 2.4, "currency": "EUR", "section": "Pantry"}`,
			))
		},
	))
	defer server.Close()

	c := client.NewPricingClient(config.PricingConfig{Endpoint: server.URL})
	p, err := c.Estimate(context.Background(), client.PriceQuery{
		Name: "rice", Unit: "kg",
	})
	require.NoError(t, err)
	assert.Equal(t, client.Price{
		UnitPrice: 2.4, Currency: "EUR", Section: "pantry",
	}, p)
}

func TestPricingClientInvalid(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"currency": "USD"}`))
		},
	))
	defer server.Close()

	c := client.NewPricingClient(config.PricingConfig{Endpoint: server.URL})
	_, err := c.Estimate(context.Background(), client.PriceQuery{Name: "x"})
	assert.ErrorIs(t, err, client.ErrInvalidResponse)
}

func TestCompletionEstimator(t *testing.T) {
	c := &fixedCompleter{reply: `{"unit_price": 0.5}`}
	e := client.NewCompletionEstimator(c)

	p, err := e.Estimate(context.Background(), client.PriceQuery{
		Name: "banana", Unit: "each",
	})
	require.NoError(t, err)
	assert.Equal(t, 0.5, p.UnitPrice)
	assert.Equal(t, "USD", p.Currency)
	assert.Equal(t, "other", p.Section)
	assert.True(t, c.last.JSON)
	assert.Contains(t, c.last.Prompt, "banana")
}

func TestCachedEstimator(t *testing.T) {
	inner := &countingEstimator{price: client.Price{UnitPrice: 3}}
	e, err := client.NewCachedEstimator(inner, 2)
	require.NoError(t, err)

	ctx := context.Background()
	for _, name := range []string{"Milk", "milk ", "MILK"} {
		p, err := e.Estimate(ctx, client.PriceQuery{Name: name, Unit: "l"})
		require.NoError(t, err)
		assert.Equal(t, 3.0, p.UnitPrice)
	}
	assert.Equal(t, int32(1), inner.calls.Load())

	_, _ = e.Estimate(ctx, client.PriceQuery{Name: "eggs", Unit: "each"})
	_, _ = e.Estimate(ctx, client.PriceQuery{Name: "flour", Unit: "kg"})
	assert.Equal(t, 2, e.Len())
	assert.Equal(t, int32(3), inner.calls.Load())
}

func TestCachedEstimatorSkipsErrors(t *testing.T) {
	inner := &countingEstimator{err: errors.New("down")}
	e, err := client.NewCachedEstimator(inner, 8)
	require.NoError(t, err)

	_, err = e.Estimate(context.Background(), client.PriceQuery{Name: "salt"})
	assert.Error(t, err)
	assert.Zero(t, e.Len())
}

func TestNewCachedEstimatorInvalidSize(t *testing.T) {
	_, err := client.NewCachedEstimator(&countingEstimator{}, 0)
	assert.Error(t, err)
}
