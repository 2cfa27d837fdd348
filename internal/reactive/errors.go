package reactive

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ConstructionError reports why a flow could not be built from its flat
// form.
type ConstructionError struct {
	// Code identifies the error category.
	Code ConstructionErrorCode

	// FlowID is the id of the flow being built.
	FlowID uuid.UUID

	// EntityID is the missing entity (wrapper or relation endpoint).
	EntityID uuid.UUID

	// Relation is the textual id of the offending relation, if any.
	Relation string
}

// ConstructionErrorCode categorizes construction errors.
type ConstructionErrorCode string

const (
	// ErrCodeMissingWrapper indicates the wrapper id is not among the entities.
	ErrCodeMissingWrapper ConstructionErrorCode = "MISSING_WRAPPER_INSTANCE"

	// ErrCodeMissingOutbound indicates a relation's outbound entity is absent.
	ErrCodeMissingOutbound ConstructionErrorCode = "MISSING_OUTBOUND_ENTITY_INSTANCE"

	// ErrCodeMissingInbound indicates a relation's inbound entity is absent.
	ErrCodeMissingInbound ConstructionErrorCode = "MISSING_INBOUND_ENTITY_INSTANCE"
)

// Error implements the error interface.
func (e *ConstructionError) Error() string {
	switch e.Code {
	case ErrCodeMissingWrapper:
		return fmt.Sprintf("%s: wrapper entity %s not found in flow", e.Code, e.FlowID)
	default:
		return fmt.Sprintf("%s: entity %s referenced by relation %s not found in flow %s",
			e.Code, e.EntityID, e.Relation, e.FlowID)
	}
}

func hasCode(err error, code ConstructionErrorCode) bool {
	var ce *ConstructionError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// IsMissingWrapper reports whether err is a missing wrapper error.
func IsMissingWrapper(err error) bool { return hasCode(err, ErrCodeMissingWrapper) }

// IsMissingOutbound reports whether err is a missing outbound entity error.
func IsMissingOutbound(err error) bool { return hasCode(err, ErrCodeMissingOutbound) }

// IsMissingInbound reports whether err is a missing inbound entity error.
func IsMissingInbound(err error) bool { return hasCode(err, ErrCodeMissingInbound) }
