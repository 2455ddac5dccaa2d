package model

import (
	"errors"
	"fmt"
)

// ErrValidation is matched by every *ValidationError via errors.Is.
var ErrValidation = errors.New("validation failed")

// ErrInvalidCall is returned when an accessor is used on a record that
// structurally cannot answer it, e.g. asking a single event for its topic.
var ErrInvalidCall = errors.New("invalid call")

// Validation codes.  Every setter constraint has its own code so a failure
// can be traced back to the exact rule that rejected the value.
const (
	CodeEmptyTitle                = 1001
	CodeNegativePrice             = 1002
	CodeNegativeCreditPoints      = 1003
	CodeNegativeAttendeesMin      = 1004
	CodeNegativeAttendeesMax      = 1005
	CodeNegativeOfflineRegs       = 1006
	CodeInvalidStatus             = 1007
	CodeInvalidObjectType         = 1008
	CodeNegativeSeats             = 1009
	CodeNegativeTotalPrice        = 1010
	CodeNegativeAge               = 1011
	CodeAgeRange                  = 1012
	CodeNegativeCancelationPeriod = 1013
	CodeEntryAfterBegin           = 1014
	CodeEndBeforeBegin            = 1015
	CodeInvalidGender             = 1016
	CodeInvalidPublishSetting     = 1017
	CodeNegativeSingleViewPage    = 1018
	CodeEmptyUsername             = 1019
	CodeInvalidPriceCode          = 1020
	CodeAttendeesMinAboveMax      = 1021
	CodeNegativeEventType         = 1022
	CodeInvalidPaymentMethod      = 1023
	CodeInvalidOption             = 1024
	CodeMissingTopic              = 1025
)

// ValidationError describes a rejected setter value.
type ValidationError struct {
	Code   int    // distinct numeric code, see Code* constants
	Field  string // column the value was meant for
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (code %d)", e.Field, e.Reason, e.Code)
}

// Is lets callers test with errors.Is(err, ErrValidation).
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(code int, field, reason string) error {
	return &ValidationError{Code: code, Field: field, Reason: reason}
}

func requireTitle(field, v string) error {
	if v == "" {
		return invalid(CodeEmptyTitle, field, "must not be empty")
	}
	return nil
}

func requireNonNegative(code int, field string, v int64) error {
	if v < 0 {
		return invalid(code, field, "must be >= 0")
	}
	return nil
}
