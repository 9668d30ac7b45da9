package statemachine

import (
	"errors"
	"fmt"

	"k8s.io/klog/v2"

	"github.com/dealflowbot/backend/internal/model"
)

// ApplicationStatus enumerates every status an application can hold.
type ApplicationStatus string

const (
	StatusCreated     ApplicationStatus = "CREATED"      // submitted, waiting for team-lead review
	StatusReturnedRop ApplicationStatus = "RETURNED_ROP" // returned by team-lead with a comment
	StatusToLawyer    ApplicationStatus = "TO_LAWYER"    // approved, waiting for lawyer review
	StatusLawyerTask  ApplicationStatus = "LAWYER_TASK"  // lawyer requested remediation from agent
	StatusClosed      ApplicationStatus = "CLOSED"       // terminal
)

// Transition names the events that move an application between statuses.
type Transition string

const (
	TransitionApprove      Transition = "approve"       // team-lead: CREATED -> TO_LAWYER
	TransitionReturn       Transition = "return"        // team-lead: CREATED -> RETURNED_ROP
	TransitionResubmit     Transition = "resubmit"      // agent: RETURNED_ROP -> CREATED
	TransitionAssignTask   Transition = "assign_task"   // lawyer: TO_LAWYER -> LAWYER_TASK
	TransitionCompleteTask Transition = "complete_task" // agent: LAWYER_TASK -> TO_LAWYER
	TransitionClose        Transition = "close"         // lawyer: TO_LAWYER -> CLOSED
)

var (
	// ErrAlreadyClosed is returned for any transition attempted on a
	// closed application. Distinct from not-found and from a generic
	// state mismatch so callers can surface it precisely.
	ErrAlreadyClosed = errors.New("application already closed")
	// ErrPermissionDenied is returned when the acting role does not match
	// the transition's required actor.
	ErrPermissionDenied = errors.New("role is not allowed to perform this transition")
)

// InvalidStateTransitionError reports a transition attempted from a
// status it is not defined for.
type InvalidStateTransitionError struct {
	Transition Transition
	Expected   ApplicationStatus
	Actual     ApplicationStatus
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid application state transition: %s requires status %s, current is %s",
		e.Transition, e.Expected, e.Actual)
}

// Rule binds a transition to its source status, target status and the
// only role allowed to fire it.
type Rule struct {
	From  ApplicationStatus
	To    ApplicationStatus
	Actor model.UserRole
}

var rules = map[Transition]Rule{
	TransitionApprove:      {From: StatusCreated, To: StatusToLawyer, Actor: model.RoleRop},
	TransitionReturn:       {From: StatusCreated, To: StatusReturnedRop, Actor: model.RoleRop},
	TransitionResubmit:     {From: StatusReturnedRop, To: StatusCreated, Actor: model.RoleAgent},
	TransitionAssignTask:   {From: StatusToLawyer, To: StatusLawyerTask, Actor: model.RoleLawyer},
	TransitionCompleteTask: {From: StatusLawyerTask, To: StatusToLawyer, Actor: model.RoleAgent},
	TransitionClose:        {From: StatusToLawyer, To: StatusClosed, Actor: model.RoleLawyer},
}

// RuleFor returns the rule for a transition.
func RuleFor(t Transition) (Rule, bool) {
	r, ok := rules[t]
	return r, ok
}

// ValidStatus reports whether s belongs to the defined status set.
func ValidStatus(s ApplicationStatus) bool {
	switch s {
	case StatusCreated, StatusReturnedRop, StatusToLawyer, StatusLawyerTask, StatusClosed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are permitted.
func IsTerminal(s ApplicationStatus) bool {
	return s == StatusClosed
}

// Authorize validates a requested transition against the current status
// and the acting role. The role check runs first so a permission error
// never leaks state information; CLOSED is absorbing and yields
// ErrAlreadyClosed regardless of the transition requested.
func Authorize(current ApplicationStatus, t Transition, actor model.UserRole) error {
	rule, ok := rules[t]
	if !ok {
		return fmt.Errorf("unknown transition: %s", t)
	}
	if actor != rule.Actor {
		klog.V(6).Infof("переход отклонён: transition=%s, role=%s, required=%s", t, actor, rule.Actor)
		return ErrPermissionDenied
	}
	if IsTerminal(current) {
		return ErrAlreadyClosed
	}
	if current != rule.From {
		return &InvalidStateTransitionError{Transition: t, Expected: rule.From, Actual: current}
	}
	return nil
}
