// Package machine is the workflow state machine: a pure function from a
// session and an event to the next session and the commands to run.
package machine

import (
	"fmt"
	"time"

	"sahayak/internal/workflow/models"
	"sahayak/pkg/domain"
	dErrors "sahayak/pkg/domain-errors"
	"sahayak/pkg/platform/sentinel"
)

type Config struct {
	// SilenceWindow is how long a session may wait on input before the
	// last prompt is repeated.
	SilenceWindow time.Duration
	// MaxPromptRepeats bounds silence re-prompts for one prompt. After that
	// the session waits quietly for the citizen to come back.
	MaxPromptRepeats int
	// StallAfter is how long a pending command may go unanswered before it
	// is dispatched again under a new call id.
	StallAfter time.Duration
	// MaxInputRetries bounds re-requests for mismatched or invalid input
	// within one step.
	MaxInputRetries int
	// Location decides the civil date of "today" for submission dates.
	Location *time.Location
}

func DefaultConfig() Config {
	return Config{
		SilenceWindow:    10 * time.Second,
		MaxPromptRepeats: 3,
		StallAfter:       2 * time.Minute,
		MaxInputRetries:  3,
		Location:         time.UTC,
	}
}

type Machine struct {
	cfg Config
}

func New(cfg Config) Machine {
	def := DefaultConfig()
	if cfg.SilenceWindow <= 0 {
		cfg.SilenceWindow = def.SilenceWindow
	}
	if cfg.MaxPromptRepeats <= 0 {
		cfg.MaxPromptRepeats = def.MaxPromptRepeats
	}
	if cfg.StallAfter <= 0 {
		cfg.StallAfter = def.StallAfter
	}
	if cfg.MaxInputRetries <= 0 {
		cfg.MaxInputRetries = def.MaxInputRetries
	}
	if cfg.Location == nil {
		cfg.Location = def.Location
	}
	return Machine{cfg: cfg}
}

var defaultMachine = New(DefaultConfig())

// Transition applies ev to s using the default configuration.
func Transition(s *models.Session, ev models.Event, now time.Time) (*models.Session, []models.Command, error) {
	return defaultMachine.Transition(s, ev, now)
}

// Transition applies ev to a copy of s. The input session is never
// modified. An event that no longer applies (a stale result, a timer with
// nothing to do) returns an unchanged copy and no commands.
func (m Machine) Transition(s *models.Session, ev models.Event, now time.Time) (*models.Session, []models.Command, error) {
	next := s.Clone()
	t := &transition{m: m, s: next, now: now}

	var err error
	switch e := ev.(type) {
	case models.Start:
		err = t.start(e)
	case models.Cancel:
		t.cancel()
	case models.Retry:
		err = t.retry()
	case models.TimerElapsed:
		t.timer()
	case models.Result:
		t.result(e)
	default:
		if !models.IsInput(ev) {
			return nil, nil, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("unsupported event %T", ev))
		}
		err = t.input(ev)
	}
	if err != nil {
		return nil, nil, err
	}
	return next, t.cmds, nil
}

// transition carries the session being built and the commands emitted.
type transition struct {
	m    Machine
	s    *models.Session
	now  time.Time
	cmds []models.Command
}

func (t *transition) emit(c models.Command) {
	t.cmds = append(t.cmds, c)
}

func (t *transition) touch() {
	t.s.LastActivityAt = t.now
}

func (t *transition) start(e models.Start) error {
	if !e.Flow.IsValid() {
		return dErrors.Field(dErrors.CodeInvalidInput, "flow", fmt.Sprintf("unknown task %q", e.Flow))
	}
	if !t.s.State.CanStartFlow() {
		return invalidState("Please finish or cancel the current task first.")
	}
	t.touch()
	t.reset()
	t.s.Instance++
	t.s.Flow = e.Flow
	t.await(e.Flow.FirstStep(), models.ReasonNone, nil)
	return nil
}

func (t *transition) cancel() {
	if t.s.State == models.StateIdle {
		return
	}
	t.touch()
	t.reset()
	t.s.State = models.StateIdle
	t.s.Flow = models.FlowNone
	t.s.Step = models.StepNone
	t.showPrompt(models.PromptFor(models.FlowNone, models.StepNone, t.s.Language))
}

func (t *transition) reset() {
	t.s.Facts = models.Facts{}
	t.s.Outcome = nil
	t.s.Failure = nil
	t.s.InputRetries = 0
	t.s.PendingCall = ""
	t.s.PendingSince = time.Time{}
}

func (t *transition) retry() error {
	switch t.s.State {
	case models.StateErrorRecoverable:
		t.touch()
		t.s.Failure = nil
		t.s.InputRetries = 0
		if isInputStep(t.s.Step) {
			t.await(t.s.Step, models.ReasonNone, nil)
		} else {
			t.dispatch(t.s.Step)
		}
		return nil
	case models.StateAwaitingInput:
		t.touch()
		t.showPrompt(models.PromptFor(t.s.Flow, t.s.Step, t.s.Language))
		return nil
	}
	return invalidState("There is nothing to retry right now.")
}

func (t *transition) timer() {
	switch t.s.State {
	case models.StateAwaitingInput:
		if t.s.Prompt == nil || t.s.PromptRepeats >= t.m.cfg.MaxPromptRepeats {
			return
		}
		if t.now.Sub(t.s.LastPromptAt) >= t.m.cfg.SilenceWindow {
			t.s.LastPromptAt = t.now
			t.s.PromptRepeats++
			t.emit(models.ShowPrompt{Prompt: *t.s.Prompt, Repeat: true})
		}
	case models.StateProcessing:
		if t.now.Sub(t.s.PendingSince) >= t.m.cfg.StallAfter {
			t.dispatch(t.s.Step)
		}
	}
}

func (t *transition) input(ev models.Event) error {
	switch t.s.State {
	case models.StateAwaitingInput:
	case models.StateErrorRecoverable:
		if !isInputStep(t.s.Step) {
			t.touch()
			t.rerequest(models.ReasonMismatch, nil)
			return nil
		}
		t.s.State = models.StateAwaitingInput
		t.s.Failure = nil
		t.s.InputRetries = 0
	case models.StateProcessing:
		return invalidState("Still working on your last step. Please wait a moment.")
	default:
		return invalidState("Please choose a task to start.")
	}
	t.touch()

	if text, ok := ev.(models.TextInput); ok {
		if !text.Clear {
			t.rerequest(models.ReasonUnclear, nil)
			return nil
		}
		structured, ok := t.fromText(text.Text)
		if !ok {
			t.rerequest(models.ReasonMismatch, nil)
			return nil
		}
		ev = structured
	}

	var handled bool
	switch t.s.Flow {
	case models.FlowDeadlineCheck:
		handled = t.deadlineInput(ev)
	case models.FlowEligibilityCheck:
		handled = t.eligibilityInput(ev)
	case models.FlowDocumentExplanation:
		handled = t.explanationInput(ev)
	case models.FlowGrievanceDraft:
		handled = t.grievanceInput(ev)
	}
	if !handled {
		t.rerequest(models.ReasonMismatch, nil)
	}
	return nil
}

// fromText reads free text as the input the current step awaits. Only the
// manual processing time is read this way; every other step needs
// structured input.
func (t *transition) fromText(text string) (models.Event, bool) {
	if t.s.Step == models.StepAwaitRule {
		return models.ManualRuleFromText(text)
	}
	return nil, false
}

func (t *transition) result(r models.Result) {
	if t.s.State != models.StateProcessing || r.Call() != t.s.PendingCall {
		return
	}
	switch t.s.Flow {
	case models.FlowDeadlineCheck:
		t.deadlineResult(r)
	case models.FlowEligibilityCheck:
		t.eligibilityResult(r)
	case models.FlowDocumentExplanation:
		t.explanationResult(r)
	case models.FlowGrievanceDraft:
		t.grievanceResult(r)
	}
}

// await moves to an input step and asks for input.
func (t *transition) await(step models.Step, reason models.PromptReason, missing []string) {
	if step != t.s.Step {
		t.s.InputRetries = 0
	}
	t.s.State = models.StateAwaitingInput
	t.s.Step = step
	t.s.PendingCall = ""
	t.s.PendingSince = time.Time{}
	p := models.PromptFor(t.s.Flow, step, t.s.Language)
	p.Reason = reason
	p.Missing = missing
	t.showPrompt(p)
}

func (t *transition) showPrompt(p models.Prompt) {
	t.s.Prompt = &p
	t.s.LastPromptAt = t.now
	t.s.PromptRepeats = 0
	t.emit(models.ShowPrompt{Prompt: p})
}

// rerequest repeats the current step's prompt. Past the retry bound the
// session moves to ErrorRecoverable; the next input resumes the step.
func (t *transition) rerequest(reason models.PromptReason, missing []string) {
	if t.s.InputRetries >= t.m.cfg.MaxInputRetries {
		t.s.State = models.StateErrorRecoverable
		if t.s.Failure == nil {
			t.s.Failure = &models.Failure{
				Code:    dErrors.CodeInvalidInput,
				Message: "The details could not be understood after several attempts.",
			}
		}
		t.showPrompt(models.Prompt{Key: "session.error_recoverable", Language: t.s.Language, Reason: reason, Missing: missing})
		return
	}
	t.s.InputRetries++
	p := models.PromptFor(t.s.Flow, t.s.Step, t.s.Language)
	if !isInputStep(t.s.Step) {
		p = models.Prompt{Key: "session.retry_or_cancel", Language: t.s.Language}
	}
	p.Reason = reason
	p.Missing = missing
	t.showPrompt(p)
}

// dispatch moves to a processing step and emits its command under a fresh
// call id.
func (t *transition) dispatch(step models.Step) {
	t.s.State = models.StateProcessing
	t.s.Step = step
	t.s.InputRetries = 0
	t.s.Calls++
	t.s.PendingCall = fmt.Sprintf("%d.%d", t.s.Instance, t.s.Calls)
	t.s.PendingSince = t.now
	t.s.Prompt = nil
	t.emit(commandFor(t.s))
}

// fail records a failure. Recoverable failures park the session at step,
// fatal ones end the flow instance.
func (t *transition) fail(step models.Step, f models.Failure) {
	t.s.Step = step
	t.s.PendingCall = ""
	t.s.PendingSince = time.Time{}
	t.s.Failure = &f
	key := "session.error_recoverable"
	if models.Recoverable(f.Code) {
		t.s.State = models.StateErrorRecoverable
	} else {
		t.s.State = models.StateErrorFatal
		key = "session.error_fatal"
	}
	t.showPrompt(models.Prompt{Key: key, Language: t.s.Language})
}

func (t *transition) complete(o models.Outcome) {
	if len(o.NextActions) > models.MaxNextActions {
		o.NextActions = o.NextActions[:models.MaxNextActions]
	}
	t.s.State = models.StateCompleted
	t.s.Step = models.StepDone
	t.s.PendingCall = ""
	t.s.PendingSince = time.Time{}
	t.s.InputRetries = 0
	t.s.Outcome = &o
	t.emit(models.FlowCompleted{Flow: t.s.Flow, Outcome: o})
	t.showPrompt(models.PromptFor(t.s.Flow, models.StepDone, t.s.Language))
}

func isInputStep(step models.Step) bool {
	switch step {
	case models.StepAwaitFacts, models.StepAwaitManualFacts, models.StepAwaitRule,
		models.StepAwaitParcels, models.StepAwaitDocument, models.StepSelectApplication:
		return true
	}
	return false
}

// commandFor derives the command for a processing step from the session
// alone, so a stalled command can always be dispatched again.
func commandFor(s *models.Session) models.Command {
	f := s.Facts
	switch s.Step {
	case models.StepAwaitExtraction:
		return models.ExtractDocument{CallID: s.PendingCall, DocumentID: f.DocumentID}
	case models.StepAwaitRule:
		return models.ResolveRule{CallID: s.PendingCall, Key: f.RuleKey()}
	case models.StepEvaluate:
		return models.TrackApplication{
			CallID:         s.PendingCall,
			RequestKey:     fmt.Sprintf("%s/%d", s.ID, s.Instance),
			Service:        f.Service,
			Jurisdiction:   f.Jurisdiction,
			SubmissionDate: f.SubmissionDate,
			ManualRule:     f.ManualRule,
		}
	case models.StepAwaitSchemes:
		if !f.ParcelsRecorded {
			return models.RecordParcels{CallID: s.PendingCall, Parcels: f.Parcels}
		}
		return models.RetrieveSchemes{CallID: s.PendingCall, Jurisdiction: f.Jurisdiction}
	case models.StepMatch:
		return models.MatchEligibility{CallID: s.PendingCall, Schemes: f.Schemes, Attested: f.Attested}
	case models.StepAwaitExplanation:
		return models.ExplainDocument{CallID: s.PendingCall, Fields: f.ExtractedFields, Language: s.Language}
	case models.StepAwaitDraft:
		var id domain.ApplicationID
		if f.ApplicationID != nil {
			id = *f.ApplicationID
		}
		return models.DraftGrievance{CallID: s.PendingCall, ApplicationID: id, Language: s.Language}
	}
	panic(fmt.Sprintf("workflow: no command for step %q", s.Step))
}

func invalidState(message string) error {
	return dErrors.Wrap(sentinel.ErrInvalidState, dErrors.CodeConflict, message)
}
