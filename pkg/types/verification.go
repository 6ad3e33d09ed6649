package types

import "time"

// VerificationOutcome is the merge-style partial update applied to a user
// record when a verification submission reaches a terminal decision.
type VerificationOutcome struct {
	IsVerified           bool
	VerifiedAt           time.Time
	VerificationDocument string
	VerificationVideo    string
}
