package compiler

import (
	"errors"
	"fmt"
)

// ErrUnknownType is matched by every UnknownTypeError.
var ErrUnknownType = errors.New("unknown attribute type")

// UnknownTypeError is returned by StrictTypePolicy.
type UnknownTypeError struct {
	Token string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown attribute type %q", e.Token)
}

func (e *UnknownTypeError) Is(target error) bool {
	return target == ErrUnknownType
}

// InputValidationError means the diagram cannot be compiled at all. Nothing is
// emitted when it is returned.
type InputValidationError struct {
	Reason string
	Err    error
}

func (e *InputValidationError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *InputValidationError) Unwrap() error {
	return e.Err
}

// NewInputValidationError wraps err with a caller-facing reason.
func NewInputValidationError(reason string, err error) *InputValidationError {
	return &InputValidationError{Reason: reason, Err: err}
}

// IsInputValidation reports whether err is an InputValidationError.
func IsInputValidation(err error) bool {
	var target *InputValidationError
	return errors.As(err, &target)
}

// ResolutionAmbiguity is returned instead of a warning when the assembler
// runs with FailOnAmbiguity.
type ResolutionAmbiguity struct {
	Warning Warning
}

func (e *ResolutionAmbiguity) Error() string {
	return "ambiguous diagram: " + e.Warning.Message
}

// IsResolutionAmbiguity reports whether err is a ResolutionAmbiguity.
func IsResolutionAmbiguity(err error) bool {
	var target *ResolutionAmbiguity
	return errors.As(err, &target)
}

// WarningCode classifies a non-fatal resolution problem.
type WarningCode string

const (
	WarnUnknownElement      WarningCode = "unknown-element"
	WarnNonClassEndpoint    WarningCode = "non-class-endpoint"
	WarnUnknownKind         WarningCode = "unknown-relationship-kind"
	WarnUnsupportedCombo    WarningCode = "unsupported-multiplicity"
	WarnDuplicateForeignKey WarningCode = "duplicate-foreign-key"
	WarnMultipleParents     WarningCode = "multiple-parents"
	WarnInheritanceCycle    WarningCode = "inheritance-cycle"
	WarnMultiplePrimaryKeys WarningCode = "multiple-primary-keys"
	WarnDuplicateClassName  WarningCode = "duplicate-class-name"
	WarnChildPrimaryKey     WarningCode = "child-primary-key-dropped"
	WarnCompositeChild      WarningCode = "composite-child-identity"
	WarnCompositeReference  WarningCode = "composite-reference"
	WarnDuplicateAttribute  WarningCode = "duplicate-attribute"
	WarnDuplicateElement    WarningCode = "duplicate-element"
	WarnForeignKeyType      WarningCode = "foreign-key-type"
)

// Warning is a resolution problem that was skipped rather than failed.
// Ambiguous warnings become errors under FailOnAmbiguity.
type Warning struct {
	Code      WarningCode `json:"code"`
	EdgeID    string      `json:"edgeId,omitempty"`
	ClassID   string      `json:"classId,omitempty"`
	Message   string      `json:"message"`
	Ambiguous bool        `json:"ambiguous,omitempty"`
}

func (w Warning) String() string {
	return fmt.Sprintf("[%s] %s", w.Code, w.Message)
}
