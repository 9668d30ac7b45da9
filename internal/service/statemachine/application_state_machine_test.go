package statemachine

import (
	"errors"
	"testing"

	"github.com/dealflowbot/backend/internal/model"
)

func TestAuthorizeHappyPath(t *testing.T) {
	cases := []struct {
		name       string
		current    ApplicationStatus
		transition Transition
		actor      model.UserRole
	}{
		{"approve", StatusCreated, TransitionApprove, model.RoleRop},
		{"return", StatusCreated, TransitionReturn, model.RoleRop},
		{"resubmit", StatusReturnedRop, TransitionResubmit, model.RoleAgent},
		{"assign task", StatusToLawyer, TransitionAssignTask, model.RoleLawyer},
		{"complete task", StatusLawyerTask, TransitionCompleteTask, model.RoleAgent},
		{"close", StatusToLawyer, TransitionClose, model.RoleLawyer},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := Authorize(tc.current, tc.transition, tc.actor); err != nil {
				t.Fatalf("expected transition to be allowed, got %v", err)
			}
		})
	}
}

func TestAuthorizeRejectsWrongSourceStatus(t *testing.T) {
	err := Authorize(StatusToLawyer, TransitionApprove, model.RoleRop)
	var transitionErr *InvalidStateTransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("expected InvalidStateTransitionError, got %v", err)
	}
	if transitionErr.Expected != StatusCreated || transitionErr.Actual != StatusToLawyer {
		t.Fatalf("unexpected error detail: %+v", transitionErr)
	}
}

func TestAuthorizeRoleCheckedBeforeStatus(t *testing.T) {
	// A wrong role must fail with a permission error even when the status
	// would also be wrong, so callers cannot probe application state.
	err := Authorize(StatusClosed, TransitionApprove, model.RoleAgent)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestClosedIsAbsorbing(t *testing.T) {
	for transition, rule := range rules {
		err := Authorize(StatusClosed, transition, rule.Actor)
		if !errors.Is(err, ErrAlreadyClosed) {
			t.Fatalf("transition %s on closed application: expected ErrAlreadyClosed, got %v", transition, err)
		}
	}
}

func TestAuthorizeUnknownTransition(t *testing.T) {
	if err := Authorize(StatusCreated, Transition("archive"), model.RoleAdmin); err == nil {
		t.Fatal("expected error for unknown transition")
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range []ApplicationStatus{StatusCreated, StatusReturnedRop, StatusToLawyer, StatusLawyerTask, StatusClosed} {
		if !ValidStatus(s) {
			t.Fatalf("status %s should be valid", s)
		}
	}
	if ValidStatus(ApplicationStatus("DRAFT")) {
		t.Fatal("unexpected status accepted")
	}
}

func TestIsTerminal(t *testing.T) {
	if !IsTerminal(StatusClosed) {
		t.Fatal("CLOSED must be terminal")
	}
	if IsTerminal(StatusCreated) {
		t.Fatal("CREATED must not be terminal")
	}
}
