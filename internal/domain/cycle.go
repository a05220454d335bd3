package domain

import "time"

// Phase names a stage of the trading cycle.
type Phase string

const (
	PhaseInform   Phase = "inform"
	PhaseEvaluate Phase = "evaluate"
	PhaseAct      Phase = "act"
	PhaseSkip     Phase = "skip"
)

// CycleReport summarises one pass through the trading cycle. It is published
// to the event bus and served by the status API. For failed cycles Phase is
// where the failure happened.
type CycleReport struct {
	ID          string            `json:"id"`
	AssetPair   string            `json:"asset_pair"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  time.Time         `json:"finished_at"`
	Observation *PriceObservation `json:"observation,omitempty"`
	Risk        *RiskAssessment   `json:"risk,omitempty"`
	Phase       Phase             `json:"phase"`
	Signal      Signal            `json:"signal"`
	Order       *OrderRecord      `json:"order,omitempty"`
	Error       string            `json:"error,omitempty"`

	// InsufficientData marks a hold caused by a window too short to decide on.
	InsufficientData bool `json:"insufficient_data,omitempty"`
}

// Failed reports whether the cycle was abandoned because of an error.
func (r CycleReport) Failed() bool { return r.Error != "" }
