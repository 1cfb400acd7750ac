package models

import "strings"

// DefaultLanguage is used when the citizen's preference has no prompt set.
const DefaultLanguage = "en"

var supportedLanguages = map[string]struct{}{
	"en": {}, "hi": {}, "kn": {}, "ta": {}, "te": {}, "mr": {}, "bn": {}, "gu": {}, "ml": {}, "or": {}, "pa": {},
}

// NormalizeLanguage maps a BCP 47 tag such as "hi-IN" to a supported base
// language, falling back to DefaultLanguage.
func NormalizeLanguage(tag string) string {
	base, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(tag)), "-")
	if _, ok := supportedLanguages[base]; ok {
		return base
	}
	return DefaultLanguage
}

// PromptReason says why a prompt is being issued again.
type PromptReason string

const (
	ReasonNone        PromptReason = ""
	ReasonMismatch    PromptReason = "mismatch"
	ReasonUnclear     PromptReason = "unclear"
	ReasonInvalid     PromptReason = "invalid"
	ReasonMissing     PromptReason = "missing"
	ReasonUnavailable PromptReason = "unavailable"
	ReasonNotFound    PromptReason = "not_found"
	ReasonSilence     PromptReason = "silence"
)

// Prompt identifies what to ask the citizen. Rendering the key into text in
// Language is the presentation layer's job.
type Prompt struct {
	Key      string       `json:"key"`
	Language string       `json:"language"`
	Reason   PromptReason `json:"reason,omitempty"`
	Missing  []string     `json:"missing,omitempty"`
}

// PromptFor returns the prompt for step in flow, in language when supported.
func PromptFor(flow Flow, step Step, language string) Prompt {
	return Prompt{
		Key:      promptKey(flow, step),
		Language: NormalizeLanguage(language),
	}
}

func promptKey(flow Flow, step Step) string {
	switch step {
	case StepAwaitRule:
		return "deadline_check.enter_processing_time"
	case StepNone:
		return "session.choose_task"
	case StepDone:
		return "session.choose_next"
	}
	if flow == FlowNone {
		return "session.choose_task"
	}
	return string(flow) + "." + string(step)
}
