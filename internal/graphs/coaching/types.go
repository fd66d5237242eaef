package coaching

import "github.com/kode4food/stepflow/pkg/api"

type (
	// Request describes an athlete's recent training and eating
	Request struct {
		Name              string    `json:"name"`
		Goal              string    `json:"goal"`
		FormScores        []float64 `json:"form_scores,omitempty"`
		Meals             []string  `json:"meals,omitempty"`
		SessionsPlanned   int       `json:"sessions_planned"`
		SessionsCompleted int       `json:"sessions_completed"`
	}

	// FormAnalysis rates exercise technique on a scale of 0 to 10
	FormAnalysis struct {
		Summary string  `json:"summary"`
		Score   float64 `json:"score"`
	}

	// AdherenceAnalysis reports how closely the plan was followed
	AdherenceAnalysis struct {
		Summary string  `json:"summary"`
		Rate    float64 `json:"rate"`
	}

	// NutritionAnalysis rates recent meals against the goal
	NutritionAnalysis struct {
		Rating  string `json:"rating"`
		Summary string `json:"summary"`
	}

	// Message is the caller-visible coaching message
	Message struct {
		RunID    api.RunID `json:"run_id,omitempty"`
		Text     string    `json:"text"`
		Degraded bool      `json:"degraded"`
		Fallback bool      `json:"fallback"`
	}
)

const defaultText = "Great work staying with your training. Keep showing " +
	"up, focus on steady form, and fuel yourself well. We'll have more " +
	"detailed feedback for you next time."

// DefaultMessage is returned when no analysis could be produced
func DefaultMessage() *Message {
	return &Message{
		Text:     defaultText,
		Fallback: true,
	}
}
