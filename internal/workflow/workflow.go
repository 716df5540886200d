// Package workflow defines the phase state machine that drives a triad
// run. A task moves through planning, implementation, and review, and a
// review ends in approval or rejection. Every move between phases is an
// authorized transition: only the role that owns the current phase may
// hand the task to the next one.
package workflow

import (
	"strings"

	"github.com/Iron-Ham/triad/internal/errors"
)

// ----- Phases -----

// Phase is a stage of the task lifecycle.
type Phase string

const (
	// PhasePlanning means the architect is producing or revising the plan.
	PhasePlanning Phase = "planning"

	// PhaseImplementation means the implementer is executing the plan.
	PhaseImplementation Phase = "implementation"

	// PhaseReview means the auditor is evaluating the implementation.
	PhaseReview Phase = "review"

	// PhaseApproved means the auditor accepted the work. Terminal.
	PhaseApproved Phase = "approved"

	// PhaseRejected means the auditor sent the work back for replanning.
	PhaseRejected Phase = "rejected"
)

// String returns the phase name.
func (p Phase) String() string {
	return string(p)
}

// IsTerminal reports whether the phase has no outgoing transitions.
func (p Phase) IsTerminal() bool {
	return p == PhaseApproved
}

// Phases returns all phases in lifecycle order.
func Phases() []Phase {
	return []Phase{
		PhasePlanning,
		PhaseImplementation,
		PhaseReview,
		PhaseApproved,
		PhaseRejected,
	}
}

// ParsePhase converts a string to a Phase.
func ParsePhase(s string) (Phase, error) {
	for _, p := range Phases() {
		if s == string(p) {
			return p, nil
		}
	}
	return "", errors.Wrapf(errors.ErrUnknownPhase, "%q is not a phase (valid: %s)", s, joinPhases(Phases()))
}

// ----- Roles -----

// AgentRole identifies one of the three agents in the triad.
type AgentRole string

const (
	// RoleArchitect plans tasks and incorporates review feedback.
	RoleArchitect AgentRole = "architect"

	// RoleImplementer writes the code the plan calls for.
	RoleImplementer AgentRole = "implementer"

	// RoleAuditor reviews implementations and issues the verdict.
	RoleAuditor AgentRole = "auditor"
)

// String returns the role name.
func (r AgentRole) String() string {
	return string(r)
}

// Roles returns all agent roles in pipeline order.
func Roles() []AgentRole {
	return []AgentRole{RoleArchitect, RoleImplementer, RoleAuditor}
}

// ParseAgentRole converts a string to an AgentRole.
func ParseAgentRole(s string) (AgentRole, error) {
	for _, r := range Roles() {
		if s == string(r) {
			return r, nil
		}
	}
	return "", errors.Wrapf(errors.ErrUnknownAgent, "%q is not an agent role (valid: %s)", s, joinRoles(Roles()))
}

// ----- Transition table -----

// Transition is a directed edge between two phases.
type Transition struct {
	From Phase
	To   Phase
}

// transitions maps each allowed edge to the role authorized to make it.
// Edges absent from the map are invalid regardless of agent.
var transitions = map[Transition]AgentRole{
	{PhasePlanning, PhaseImplementation}: RoleArchitect,
	{PhaseImplementation, PhaseReview}:   RoleImplementer,
	{PhaseReview, PhaseApproved}:         RoleAuditor,
	{PhaseReview, PhaseRejected}:         RoleAuditor,
	{PhaseRejected, PhasePlanning}:       RoleArchitect,
}

// ValidateTransition checks that moving from current to target is allowed
// and that agent is authorized to make the move. An empty agent skips the
// authorization check, validating only the edge itself.
func ValidateTransition(current, target Phase, agent AgentRole) error {
	required, ok := transitions[Transition{From: current, To: target}]
	if !ok {
		return errors.NewTransitionError(string(current), string(target))
	}
	if agent != "" && agent != required {
		return errors.NewTransitionError(string(current), string(target)).
			WithAgent(string(agent)).
			WithRequiredAgent(string(required))
	}
	return nil
}

// RequiredAgent returns the role authorized to move from current to
// target, or false when the edge is not allowed.
func RequiredAgent(current, target Phase) (AgentRole, bool) {
	required, ok := transitions[Transition{From: current, To: target}]
	return required, ok
}

// ValidTargets returns the phases reachable from current, in lifecycle
// order. Terminal phases return an empty slice.
func ValidTargets(current Phase) []Phase {
	targets := make([]Phase, 0, 2)
	for _, p := range Phases() {
		if _, ok := transitions[Transition{From: current, To: p}]; ok {
			targets = append(targets, p)
		}
	}
	return targets
}

// activeAgents maps each phase to the role that acts during it. Approved
// has no active agent.
var activeAgents = map[Phase]AgentRole{
	PhasePlanning:       RoleArchitect,
	PhaseImplementation: RoleImplementer,
	PhaseReview:         RoleAuditor,
	PhaseRejected:       RoleArchitect,
}

// ActiveAgent returns the role expected to act in the given phase. The
// second return is false when no agent acts, which is the case for
// terminal phases.
func ActiveAgent(phase Phase) (AgentRole, bool) {
	r, ok := activeAgents[phase]
	return r, ok
}

// ----- Helpers -----

func joinPhases(phases []Phase) string {
	names := make([]string, len(phases))
	for i, p := range phases {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}

func joinRoles(roles []AgentRole) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}
