package shopping

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/kode4food/stepflow/internal/client"
	"github.com/kode4food/stepflow/pkg/api"
)

const extractSystem = "You turn meal names into a grocery list. Reply with " +
	`JSON only: {"ingredients": [{"name": string, "quantity": number, ` +
	`"unit": string}]}. Use metric or count units.`

var (
	ErrInvalidInput  = errors.New("invalid shopping request")
	ErrNoIngredients = errors.New("no ingredients extracted")
	ErrMissingResult = errors.New("missing step result")
)

// sectionOrder is the walking order through a typical store
var sectionOrder = []string{
	"produce", "bakery", "meat", "seafood", "dairy",
	"frozen", "pantry", "spices", "beverages", "other",
}

var unitAliases = map[string]string{
	"gram": "g", "grams": "g", "gr": "g",
	"kilogram": "kg", "kilograms": "kg", "kgs": "kg",
	"milliliter": "ml", "milliliters": "ml",
	"liter": "l", "liters": "l", "litre": "l", "litres": "l",
	"tablespoon": "tbsp", "tablespoons": "tbsp",
	"teaspoon": "tsp", "teaspoons": "tsp",
	"piece": "each", "pieces": "each", "pcs": "each", "": "each",
}

func (p *Planner) extractIngredients(
	ctx context.Context, h api.Handle, input any, _ api.Results,
) (any, error) {
	req, err := requestFrom(input)
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf("Meals: %s\nServings: %d",
		strings.Join(req.Meals, "; "), max(req.Servings, 1))
	res, err := client.CompleteJSON(ctx, p.completer, extractSystem, prompt)
	if err != nil {
		return nil, err
	}

	var items []Ingredient
	res.Get("ingredients").ForEach(func(_, v gjson.Result) bool {
		name := strings.TrimSpace(v.Get("name").String())
		if name == "" {
			return true
		}
		items = append(items, Ingredient{
			Name:     name,
			Quantity: v.Get("quantity").Float(),
			Unit:     v.Get("unit").String(),
		})
		return true
	})
	if len(items) == 0 {
		return nil, ErrNoIngredients
	}
	h.Logger().Debug("Ingredients extracted",
		slog.Int("count", len(items)))
	return items, nil
}

// normalizeIngredients merges duplicate lines by name and unit
func (p *Planner) normalizeIngredients(
	_ context.Context, _ api.Handle, _ any, prior api.Results,
) (any, error) {
	items, ok := api.ResultAs[[]Ingredient](prior, StepExtract)
	if !ok {
		return nil, missing(StepExtract)
	}
	return Normalize(items), nil
}

func (p *Planner) estimatePrices(
	ctx context.Context, _ api.Handle, _ any, prior api.Results,
) (any, error) {
	items, ok := api.ResultAs[[]Ingredient](prior, StepNormalize)
	if !ok {
		return nil, missing(StepNormalize)
	}

	res := Estimate{Items: make([]PricedItem, 0, len(items))}
	for _, item := range items {
		price, err := p.prices.Estimate(ctx, client.PriceQuery{
			Name: item.Name,
			Unit: item.Unit,
		})
		if err != nil {
			return nil, fmt.Errorf("estimate %s: %w", item.Name, err)
		}
		if res.Currency == "" {
			res.Currency = price.Currency
		}
		cost := roundCents(price.UnitPrice * item.Quantity)
		res.Items = append(res.Items, PricedItem{
			Ingredient: item,
			Currency:   price.Currency,
			Section:    price.Section,
			UnitPrice:  price.UnitPrice,
			Cost:       cost,
		})
		res.Total += cost
	}
	res.Total = roundCents(res.Total)
	return res, nil
}

func (p *Planner) optimizeRoute(
	_ context.Context, _ api.Handle, input any, prior api.Results,
) (any, error) {
	req, err := requestFrom(input)
	if err != nil {
		return nil, err
	}
	extracted, ok := api.ResultAs[[]Ingredient](prior, StepExtract)
	if !ok {
		return nil, missing(StepExtract)
	}
	normalized, ok := api.ResultAs[[]Ingredient](prior, StepNormalize)
	if !ok {
		return nil, missing(StepNormalize)
	}
	est, ok := api.ResultAs[Estimate](prior, StepEstimate)
	if !ok {
		return nil, missing(StepEstimate)
	}

	return &Plan{
		Meals:      req.Meals,
		Route:      Route(est.Items),
		Requested:  len(extracted),
		ItemCount:  len(normalized),
		Total:      est.Total,
		Currency:   est.Currency,
		OverBudget: req.Budget > 0 && est.Total > req.Budget,
	}, nil
}

// Normalize merges ingredients that share a name and unit, ignoring case
// and common unit spellings, and sorts the result by name
func Normalize(items []Ingredient) []Ingredient {
	type key struct{ name, unit string }
	merged := map[key]*Ingredient{}
	var res []*Ingredient

	for _, item := range items {
		name := strings.ToLower(strings.TrimSpace(item.Name))
		unit := canonicalUnit(item.Unit)
		k := key{name, unit}
		if m, ok := merged[k]; ok {
			m.Quantity += item.Quantity
			continue
		}
		m := &Ingredient{Name: name, Unit: unit, Quantity: item.Quantity}
		merged[k] = m
		res = append(res, m)
	}

	out := make([]Ingredient, len(res))
	for i, m := range res {
		out[i] = *m
	}
	slices.SortStableFunc(out, func(a, b Ingredient) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.Unit, b.Unit))
	})
	return out
}

// Route groups priced items into stops following the store walking order.
// Items in unknown sections are collected in the last stop
func Route(items []PricedItem) []Stop {
	bySection := map[string][]PricedItem{}
	for _, item := range items {
		section := item.Section
		if !slices.Contains(sectionOrder, section) {
			section = "other"
		}
		bySection[section] = append(bySection[section], item)
	}

	res := []Stop{}
	for _, section := range sectionOrder {
		found := bySection[section]
		if len(found) == 0 {
			continue
		}
		stop := Stop{Section: section, Items: found}
		for _, item := range found {
			stop.Subtotal += item.Cost
		}
		stop.Subtotal = roundCents(stop.Subtotal)
		res = append(res, stop)
	}
	return res
}

func canonicalUnit(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	if alias, ok := unitAliases[u]; ok {
		return alias
	}
	return u
}

func requestFrom(input any) (Request, error) {
	switch req := input.(type) {
	case Request:
		return req, nil
	case *Request:
		if req != nil {
			return *req, nil
		}
	}
	return Request{}, api.Permanent(
		fmt.Errorf("%w: unexpected input %T", ErrInvalidInput, input),
	)
}

func missing(name api.StepName) error {
	return api.Permanent(fmt.Errorf("%w: %s", ErrMissingResult, name))
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
