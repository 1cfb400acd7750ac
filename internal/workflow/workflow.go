// Package workflow drives citizen conversations through deadline checks,
// eligibility checks, document explanations and grievance drafts. The
// machine is pure; the service persists each transition before running the
// commands it produced.
package workflow

import (
	"sahayak/internal/workflow/machine"
	"sahayak/internal/workflow/models"
	"sahayak/internal/workflow/service"
	dErrors "sahayak/pkg/domain-errors"
)

type (
	Service      = service.Service
	Worker       = service.Worker
	Dependencies = service.Dependencies
	Session      = models.Session
	Event        = models.Event
	Command      = models.Command
	Flow         = models.Flow
	Step         = models.Step
	State        = models.State
	Prompt       = models.Prompt
	Outcome      = models.Outcome
	Advice       = models.Advice
	Config       = machine.Config
)

const (
	FlowDeadlineCheck       = models.FlowDeadlineCheck
	FlowEligibilityCheck    = models.FlowEligibilityCheck
	FlowDocumentExplanation = models.FlowDocumentExplanation
	FlowGrievanceDraft      = models.FlowGrievanceDraft
)

// Guidance maps a failure code to the plain-language cause and next step
// shown to the citizen.
func Guidance(code dErrors.Code) Advice { return models.GuidanceFor(code) }
