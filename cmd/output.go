package cmd

import (
	"encoding/json"
	"fmt"
	"io"
)

// exitError ends the process with code after the result was already written.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

var errHardFailure = &exitError{code: 1}

// writeResult prints v as the single JSON result of the invocation.
func writeResult(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("writing result: %w", err)
	}
	return nil
}

// writeFailure prints the failure body and signals a non-zero exit.
func writeFailure(w io.Writer, v any) error {
	if err := writeResult(w, v); err != nil {
		return err
	}
	return errHardFailure
}
