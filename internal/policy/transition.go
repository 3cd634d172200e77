// AngelaMos | 2026
// transition.go

package policy

import (
	"fmt"
)

type TransitionCode string

const (
	TransitionSameStage       TransitionCode = "same_stage"
	TransitionReactivateClose TransitionCode = "reactivate_closed"
	TransitionSkipStages      TransitionCode = "skip_stages"
	TransitionOutsideScope    TransitionCode = "outside_role_scope"
)

const (
	msgSameStage       = "Deal is already in this stage"
	msgReactivateClose = "Cannot reactivate a closed deal"
	msgOutsideScope    = "Your role cannot move deals into this stage"
)

type TransitionError struct {
	From    Stage
	To      Stage
	Code    TransitionCode
	Message string
}

func (e *TransitionError) Error() string {
	return e.Message
}

func skipError(from, to Stage) *TransitionError {
	msg := "Cannot skip stages"
	if next, ok := from.Next(); ok {
		msg = fmt.Sprintf(
			"Cannot skip stages: the next stage is %s",
			next.DisplayName(),
		)
	}
	return &TransitionError{
		From:    from,
		To:      to,
		Code:    TransitionSkipStages,
		Message: msg,
	}
}

// ValidateTransition reports whether moving a deal from one stage to
// another is structurally legal. It returns nil, a *TransitionError, or an
// ErrUnknownStage wrap when either argument is not one of the nine stages.
func ValidateTransition(from, to Stage) error {
	if !from.Valid() {
		return fmt.Errorf("validate transition from %q: %w", from, ErrUnknownStage)
	}
	if !to.Valid() {
		return fmt.Errorf("validate transition to %q: %w", to, ErrUnknownStage)
	}

	if from == to {
		return &TransitionError{
			From: from, To: to, Code: TransitionSameStage, Message: msgSameStage,
		}
	}

	switch {
	case from.IsTerminal() && to.IsTerminal():
		return nil
	case from.IsTerminal():
		return &TransitionError{
			From:    from,
			To:      to,
			Code:    TransitionReactivateClose,
			Message: msgReactivateClose,
		}
	case to.IsTerminal():
		return nil
	}

	fromRank, _ := from.rank()
	toRank, _ := to.rank()

	if toRank == fromRank+1 || toRank < fromRank {
		return nil
	}

	return skipError(from, to)
}

// LegalTargets returns every stage reachable from current under the
// structural rules, in canonical order.
func LegalTargets(current Stage) []Stage {
	var out []Stage
	for _, st := range Stages() {
		if ValidateTransition(current, st) == nil {
			out = append(out, st)
		}
	}
	return out
}
