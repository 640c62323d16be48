package quiz

// Source records where a score of record came from.
type Source string

const (
	SourceServer Source = "server"
	SourceLocal  Source = "local"
)

// Reconciliation pairs the client-side estimate with the score of record.
type Reconciliation struct {
	// Record is the score that drives completion.
	Record Result
	Source Source

	// Estimate is the client-side score, nil when the quiz payload had no
	// answer key.
	Estimate *Result

	// Discrepancy is true when an estimate exists and disagrees with the
	// server on the correct count or on pass/fail.
	Discrepancy bool
}

// Reconcile makes the server score the value of record, keeping the
// client estimate for comparison.
func Reconcile(estimate *Result, server Result) Reconciliation {
	r := Reconciliation{Record: server, Source: SourceServer, Estimate: estimate}
	if estimate != nil {
		r.Discrepancy = estimate.CorrectCount != server.CorrectCount ||
			estimate.TotalQuestions != server.TotalQuestions ||
			estimate.Passed != server.Passed
	}
	return r
}

// Provisional uses the client estimate as the record when the server
// could not be reached. ok is false when there is no estimate to fall
// back on.
func Provisional(estimate *Result) (Reconciliation, bool) {
	if estimate == nil {
		return Reconciliation{}, false
	}
	return Reconciliation{Record: *estimate, Source: SourceLocal, Estimate: estimate}, true
}
