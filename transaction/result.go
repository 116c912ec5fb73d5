package transaction

// Outcome is the terminal status of a transaction or plan node.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailure Outcome = "FAILURE"
)

// Result is the outcome of executing a TransactionPlan (§4.3, §7).
// Every operation returns a Result-style outcome rather than
// panicking or using exceptions for control flow (§9).
type Result struct {
	Outcome Outcome
	// Err is set when Outcome is OutcomeFailure; it is the error
	// that caused the original failure (not a rollback error).
	Err error
	// RolledBack is true if rollback was attempted.
	RolledBack bool
	// NeedsManualIntervention is set when a compensation failed
	// under the ABORT policy, leaving some successful leaves
	// uncompensated.
	NeedsManualIntervention bool
	// CompensationErrors aggregates failures from compensations run
	// under the CONTINUE_AND_FLAG policy.
	CompensationErrors error
}

func success() Result {
	return Result{Outcome: OutcomeSuccess}
}

func failure(err error) Result {
	return Result{Outcome: OutcomeFailure, Err: err}
}
