package v1

import "time"

// Attempt is the API representation of a recorded ingestion attempt.
type Attempt struct {
	Id        int64     `json:"id"`
	Scenario  string    `json:"scenario"`
	StableId  string    `json:"stableId"`
	User      string    `json:"user"`
	File      string    `json:"file"`
	Expected  []string  `json:"expected"`
	Observed  string    `json:"observed"`
	Passed    bool      `json:"passed"`
	ElapsedMs int64     `json:"elapsedMs"`
	Error     *string   `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type AttemptListResponse struct {
	Page      int       `json:"page"`
	PageCount int       `json:"pageCount"`
	Total     int       `json:"total"`
	Attempts  []Attempt `json:"attempts"`
}

type GetAttemptsParams struct {
	Scenario *[]string
	Passed   *bool
	Page     *int
	PageSize *int
}

// HealthStatus is "ok" or "degraded".
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "ok"
	HealthStatusDegraded HealthStatus = "degraded"
)

type Health struct {
	Status HealthStatus `json:"status"`
	Error  *string      `json:"error,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
