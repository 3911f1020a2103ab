package diffraction

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dd0wney/cluso-diffraction/pkg/algorithms"
)

var (
	// ErrAxisScopeEmpty matches every AxisScopeEmptyError
	ErrAxisScopeEmpty = errors.New("axis scope is empty")
	// ErrNoAuditable matches every NoAuditableError
	ErrNoAuditable = errors.New("no auditable axis scope")
	// ErrInvalidRequest is returned for malformed audit requests
	ErrInvalidRequest = errors.New("invalid audit request")
)

// Exit codes
const (
	ExitOK             = 0
	ExitFailure        = 1
	ExitAxisScopeEmpty = 2
	ExitNoAuditable    = 3
)

// AxisScopeEmptyError reports that the poles admit no axis scope while
// strict axis mode forbids unconstrained results.
type AxisScopeEmptyError struct {
	A, B   string
	Policy AxisPolicy
	Axes   []string
	Status ScopeStatus
}

// Error implements the error interface.
func (e *AxisScopeEmptyError) Error() string {
	return fmt.Sprintf("poles %q and %q: %s axis scope [%s] is %s under strict axis mode",
		e.A, e.B, e.Policy, strings.Join(e.Axes, ", "), e.Status)
}

// Is matches ErrAxisScopeEmpty.
func (e *AxisScopeEmptyError) Is(target error) bool {
	return target == ErrAxisScopeEmpty
}

// NoAuditableError reports that a refine pass under strict axis mode
// recovered neither a valid axis scope nor, when the poles share no axis, a
// stable equilibrium inside the recovered scope.
type NoAuditableError struct {
	A, B        string
	Provisional string
	Scope       []string
	Reason      string
}

// Error implements the error interface.
func (e *NoAuditableError) Error() string {
	prov := e.Provisional
	if prov == "" {
		prov = "none"
	}
	what := "no auditable result"
	switch e.Reason {
	case RefineOutcomeExhausted, RefineOutcomeNoSource:
		what = "no axis scope"
	case RefineOutcomeUnstable:
		what = "no stable equilibrium in scope"
	}
	return fmt.Sprintf("poles %q and %q: refine from %q over [%s] recovered %s (%s)",
		e.A, e.B, prov, strings.Join(e.Scope, ", "), what, e.Reason)
}

// Is matches ErrNoAuditable.
func (e *NoAuditableError) Is(target error) bool {
	return target == ErrNoAuditable
}

// ExitCode maps an audit error onto the process exit code.
// Convergence errors are never fatal and map to ExitOK.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrAxisScopeEmpty):
		return ExitAxisScopeEmpty
	case errors.Is(err, ErrNoAuditable):
		return ExitNoAuditable
	case errors.Is(err, algorithms.ErrConvergence):
		return ExitOK
	default:
		return ExitFailure
	}
}
