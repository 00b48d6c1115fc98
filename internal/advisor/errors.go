package advisor

import (
	"errors"
	"fmt"
)

// DataIntegrityError reports a reading that passed plausibility validation
// but matches none of the configured classification bands. It signals a gap
// in the band configuration, distinct from "no rule triggered", and is the
// one rule-engine failure that propagates to the caller.
type DataIntegrityError struct {
	Field string
	Value float64
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("no classification band covers %s=%g", e.Field, e.Value)
}

// IsDataIntegrity reports whether err is a DataIntegrityError.
func IsDataIntegrity(err error) bool {
	var die *DataIntegrityError
	return errors.As(err, &die)
}
