package repo

import "fmt"

// Business rejection codes raised by the atomic procedures.
const (
	CodeInsufficientFunds = "insufficient_funds"
	CodeAlreadyOwned      = "already_owned"
	CodeBadgeNotFound     = "badge_not_found"
	CodeProfileNotFound   = "profile_not_found"
	CodeTargetNotFound    = "target_not_found"
	CodeSelfFollow        = "self_follow"
)

// ProcedureError is the structured error an atomic procedure returns when it
// refuses to apply its effects.
type ProcedureError struct {
	Procedure string
	Code      string
	Message   string
}

func (e *ProcedureError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Procedure, e.Message, e.Code)
}
