package domain

import "time"

// Stage names a step of the batch pipeline.
type Stage string

const (
	StageIngest    Stage = "ingest"
	StageNormalize Stage = "normalize"
	StageLoad      Stage = "load"
	StageVerify    Stage = "verify"
	StageAggregate Stage = "aggregate"
	StageScore     Stage = "score"
	StageClassify  Stage = "classify"
	StageAnalyze   Stage = "analyze"
	StageReport    Stage = "report"
	StagePersist   Stage = "persist"
)

// RunReport is everything one pipeline run produced. It is what report
// sinks persist and what the results API serves.
type RunReport struct {
	RunID         string           `json:"run_id"`
	ReferenceDate time.Time        `json:"reference_date"`
	StartedAt     time.Time        `json:"started_at"`
	FinishedAt    time.Time        `json:"finished_at"`
	Ingest        IngestStats      `json:"ingest"`
	Normalize     NormalizeStats   `json:"normalize"`
	Load          LoadStats        `json:"load"`
	Integrity     IntegrityReport  `json:"integrity"`
	Customers     []ScoredCustomer `json:"customers"`
	Portfolio     Portfolio        `json:"portfolio"`
}

// IngestStats counts what the source delivered. Unparsed rows never reach
// the normalizer, so they are not part of NormalizeStats.Total.
type IngestStats struct {
	Source   string `json:"source"`
	Rows     int    `json:"rows"`
	Unparsed int    `json:"unparsed"`
}

// Duration is the wall-clock time of the run.
func (r *RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
