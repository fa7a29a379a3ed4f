// v2
// internal/harness/result.go
package harness

// Metadata records how a run went, alongside the score. RunID correlates
// a results-file entry with the run's logs and dispatched command ids.
type Metadata struct {
	RunID              string  `json:"run_id"`
	ElapsedRealSeconds float64 `json:"elapsed_real_seconds"`
	ElapsedSimSeconds  float64 `json:"elapsed_sim_seconds"`
	MessagesProcessed  int     `json:"messages_processed"`
	CommandsIssued     int     `json:"commands_issued"`
	CommandsRejected   int     `json:"commands_rejected"`
	StrategyErrors     int     `json:"strategy_errors"`
	StrategyTimeouts   int     `json:"strategy_timeouts"`
	DispatchErrors     int     `json:"dispatch_errors"`
	TransportMode      string  `json:"transport_mode"`
	TopicRoot          string  `json:"topic_root"`
	FaultInjection     bool    `json:"fault_injection"`
	AbortReason        string  `json:"abort_reason,omitempty"`
}

// Result is the immutable outcome of one evaluation run. It serializes to
// a flat JSON structure for the results file.
type Result struct {
	TotalScore         float64            `json:"total_score"`
	CategoryScores     map[string]float64 `json:"category_scores"`
	ComponentBreakdown map[string]float64 `json:"component_breakdown"`
	Metadata           Metadata           `json:"metadata"`
}

// Aborted reports whether the run ended on a transport-fatal error.
func (r *Result) Aborted() bool { return r.Metadata.AbortReason != "" }
