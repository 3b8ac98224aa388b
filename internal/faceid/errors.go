package faceid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind classifies why a registration or match was rejected.
type Kind string

const (
	KindInvalidInput     Kind = "invalid_input"
	KindNoFace           Kind = "no_face"
	KindMultipleFaces    Kind = "multiple_faces"
	KindSpoofDetected    Kind = "spoof_detected"
	KindPoorQuality      Kind = "poor_quality"
	KindInvalidEmbedding Kind = "invalid_embedding"
	KindNotRegistered    Kind = "not_registered"
	KindUnknownEmployee  Kind = "unknown_employee"
	KindProviderError    Kind = "provider_error"
	KindStoreError       Kind = "store_error"
)

// User facing messages shared with the HR frontend.
const (
	msgNoFace            = "No face detected in the image"
	msgNoFaceRegister    = "No face detected in the image. Please ensure the image contains a clear face."
	msgMultipleFaces     = "Multiple faces detected. Please ensure only one face is visible."
	msgSpoof             = "Please use a real face, not a photo or video"
	msgPoorQuality       = "Poor image quality or no face detected. Please try again."
	msgInvalidEncoding   = "Invalid face encoding detected"
	msgNotRegistered     = "No face data found for this employee. Please register first."
	msgMatchedStored     = "Face matched and encoding stored successfully"
	msgMatchedNotStored  = "Face matched but storage failed"
	msgNoMatch           = "Face does not match any stored encodings. Not storing unmatched face."
	msgRegistered        = "Face registered successfully"
	msgInvalidEmployeeID = "user_id must be a valid integer"
)

// Error is a rejection that ends a flow. Message is safe to show to the user.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of a flow error, or "" for anything else.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// ParseEmployeeID parses a positive integer employee id.
func ParseEmployeeID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, newError(KindInvalidInput, msgInvalidEmployeeID, nil)
	}
	return id, nil
}
