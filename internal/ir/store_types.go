package ir

// NOTE: These are store-layer records, not part of the execution model.

// Verdict is the outcome of one iteration or of a whole test run.
type Verdict string

const (
	// VerdictPass: quiescence reached with no violation.
	VerdictPass Verdict = "pass"
	// VerdictFail: a fatal error or property violation was found.
	VerdictFail Verdict = "fail"
	// VerdictInconclusive: the step bound was hit before quiescence.
	VerdictInconclusive Verdict = "inconclusive"
)

// RunRecord summarizes one invocation of the testing engine.
type RunRecord struct {
	ID             string  `json:"id"`
	Program        string  `json:"program"`
	Strategy       string  `json:"strategy"`
	Seed           int64   `json:"seed"`
	Iterations     int     `json:"iterations"`
	Bugs           int     `json:"bugs"`
	Verdict        Verdict `json:"verdict"`
	RuntimeVersion string  `json:"runtime_version"`
}

// TraceRecord is a failing choice log retained for replay.
type TraceRecord struct {
	ID        string    `json:"id"` // Content-addressed (TraceID)
	RunID     string    `json:"run_id"`
	Program   string    `json:"program"`
	Iteration int       `json:"iteration"`
	ErrorCode ErrorCode `json:"error_code"`
	Message   string    `json:"message"`
	Steps     int       `json:"steps"`
	Choices   ChoiceLog `json:"choices,omitempty"`
}
