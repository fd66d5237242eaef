package shopping

import "github.com/kode4food/stepflow/pkg/api"

type (
	// Request asks for a shopping plan covering a set of meals
	Request struct {
		Meals    []string `json:"meals"`
		Servings int      `json:"servings,omitempty"`
		Budget   float64  `json:"budget,omitempty"`
	}

	// Ingredient is one line of a shopping list
	Ingredient struct {
		Name     string  `json:"name"`
		Unit     string  `json:"unit"`
		Quantity float64 `json:"quantity"`
	}

	// PricedItem is an ingredient with its estimated cost
	PricedItem struct {
		Ingredient
		Currency  string  `json:"currency"`
		Section   string  `json:"section"`
		UnitPrice float64 `json:"unit_price"`
		Cost      float64 `json:"cost"`
	}

	// Estimate is the priced shopping list
	Estimate struct {
		Currency string       `json:"currency"`
		Items    []PricedItem `json:"items"`
		Total    float64      `json:"total"`
	}

	// Stop groups the items found in one store section
	Stop struct {
		Section  string       `json:"section"`
		Items    []PricedItem `json:"items"`
		Subtotal float64      `json:"subtotal"`
	}

	// Plan is the caller-visible shopping plan
	Plan struct {
		RunID      api.RunID `json:"run_id,omitempty"`
		Message    string    `json:"message,omitempty"`
		Currency   string    `json:"currency,omitempty"`
		Meals      []string  `json:"meals,omitempty"`
		Route      []Stop    `json:"route"`
		Requested  int       `json:"requested_items"`
		ItemCount  int       `json:"item_count"`
		Total      float64   `json:"total"`
		OverBudget bool      `json:"over_budget"`
		Fallback   bool      `json:"fallback"`
	}
)

// DefaultPlan is returned when a plan could not be produced
func DefaultPlan() *Plan {
	return &Plan{
		Message: "We couldn't put a shopping plan together right now. " +
			"Please try again in a few minutes.",
		Route:    []Stop{},
		Fallback: true,
	}
}
