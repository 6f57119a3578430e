package domain

// SubmissionStatus is the confirmation state of a submitted transaction set.
// Pending is the only non-terminal state; a client-side await timeout leaves
// the submission Pending, it is not a backend state.
type SubmissionStatus string

const (
	SubmissionPending   SubmissionStatus = "pending"
	SubmissionConfirmed SubmissionStatus = "confirmed"
	SubmissionFailed    SubmissionStatus = "failed"
)

// Terminal reports whether the status can no longer change.
func (s SubmissionStatus) Terminal() bool {
	return s == SubmissionConfirmed || s == SubmissionFailed
}

// Submission is the tracked metadata for one backend submission.
// Owned by the submission tracker; losing a record does not affect
// already-dispatched work.
type Submission struct {
	ID           string
	Strategy     Strategy
	TokenAddress string
	TxCount      int
	Status       SubmissionStatus
	CreatedAt    int64 // Unix seconds
}
