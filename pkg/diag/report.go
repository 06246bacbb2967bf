package diag

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Report is the machine readable result of a lint run.
type Report struct {
	ID          uuid.UUID `json:"id"`
	GeneratedAt time.Time `json:"generated_at"`
	Findings    []Finding `json:"findings"`
	Summary     Summary   `json:"summary"`
}

func NewReport(findings []Finding) *Report {
	if findings == nil {
		findings = []Finding{}
	}
	Sort(findings)
	return &Report{
		ID:          uuid.New(),
		GeneratedAt: time.Now().UTC(),
		Findings:    findings,
		Summary:     Summarize(findings),
	}
}

// JSON renders the report with two space indentation.
func (r *Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
