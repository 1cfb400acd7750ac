package models

import dErrors "sahayak/pkg/domain-errors"

// Advice explains a failure to the citizen: what went wrong and what to do.
type Advice struct {
	Cause    string `json:"cause"`
	NextStep string `json:"next_step"`
}

var advice = map[dErrors.Code]Advice{
	dErrors.CodeBadRequest: {
		Cause:    "We could not understand the request.",
		NextStep: "Please try again.",
	},
	dErrors.CodeValidation: {
		Cause:    "Some of the details given are not in the expected form.",
		NextStep: "Please check the highlighted details and enter them again.",
	},
	dErrors.CodeInvalidInput: {
		Cause:    "Some of the details given are not in the expected form.",
		NextStep: "Please check the highlighted details and enter them again.",
	},
	dErrors.CodeNotFound: {
		Cause:    "We could not find what you asked for.",
		NextStep: "Please check the details, or start again.",
	},
	dErrors.CodeConflict: {
		Cause:    "Your last step was being saved at the same moment as another change.",
		NextStep: "Please repeat your last step.",
	},
	dErrors.CodeForbidden: {
		Cause:    "This information belongs to a different account.",
		NextStep: "Please sign in with the account that started this conversation.",
	},
	dErrors.CodeUnauthorized: {
		Cause:    "You are not signed in.",
		NextStep: "Please sign in and try again.",
	},
	dErrors.CodeInternal: {
		Cause:    "Something went wrong on our side.",
		NextStep: "Please try again in a little while.",
	},
	dErrors.CodeUnavailable: {
		Cause:    "A service we depend on is not reachable right now.",
		NextStep: "You can enter the details yourself, or try again later.",
	},
	dErrors.CodeTimeout: {
		Cause:    "A service we depend on took too long to answer.",
		NextStep: "You can enter the details yourself, or try again later.",
	},
	dErrors.CodeInvariantViolation: {
		Cause:    "Something went wrong on our side.",
		NextStep: "Please try again in a little while.",
	},
	dErrors.CodeCalendarDataMissing: {
		Cause:    "The official holiday list for this place and year has not been published to us yet.",
		NextStep: "We cannot work out the deadline until it is. Please check again later.",
	},
	dErrors.CodeFutureSubmission: {
		Cause:    "The submission date is in the future.",
		NextStep: "Please enter the date on which the application was actually submitted.",
	},
	dErrors.CodeInvalidRule: {
		Cause:    "The processing time given is not usable.",
		NextStep: "Please enter the number of days and whether they are working days or calendar days.",
	},
	dErrors.CodeLowConfidence: {
		Cause:    "We could not read or hear some details clearly.",
		NextStep: "Please type the details that are missing.",
	},
}

// GuidanceFor maps a failure code to plain-language advice. Unknown codes get
// the generic advice for internal errors.
func GuidanceFor(code dErrors.Code) Advice {
	if a, ok := advice[code]; ok {
		return a
	}
	return advice[dErrors.CodeInternal]
}

// Recoverable reports whether a failure with code can be fixed by the citizen
// or by trying again.
func Recoverable(code dErrors.Code) bool {
	return code != dErrors.CodeCalendarDataMissing && code != dErrors.CodeInvariantViolation
}
