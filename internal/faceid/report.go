package faceid

import "errors"

// KindInternal is reported for errors that did not come out of a flow.
const KindInternal Kind = "internal_error"

// RegisterFailure is the result body of a rejected registration.
type RegisterFailure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Reason  Kind   `json:"reason"`
}

// MatchFailure is the result body of a match that could not be decided.
type MatchFailure struct {
	Matched bool   `json:"matched"`
	Stored  bool   `json:"stored"`
	Error   string `json:"error"`
	Reason  Kind   `json:"reason"`
}

// StatusFailure is the result body of a status lookup that failed.
type StatusFailure struct {
	Exists bool   `json:"exists"`
	Error  string `json:"error"`
	Reason Kind   `json:"reason"`
}

func NewRegisterFailure(err error) RegisterFailure {
	msg, kind := describe(err)
	return RegisterFailure{Error: msg, Reason: kind}
}

func NewMatchFailure(err error) MatchFailure {
	msg, kind := describe(err)
	return MatchFailure{Error: msg, Reason: kind}
}

func NewStatusFailure(err error) StatusFailure {
	msg, kind := describe(err)
	return StatusFailure{Error: msg, Reason: kind}
}

// describe returns the message shown to the caller. Backend failures carry
// their cause, rejections only the user facing text.
func describe(err error) (string, Kind) {
	var fe *Error
	if !errors.As(err, &fe) {
		return err.Error(), KindInternal
	}
	switch fe.Kind {
	case KindProviderError, KindStoreError:
		return fe.Error(), fe.Kind
	default:
		return fe.Message, fe.Kind
	}
}
