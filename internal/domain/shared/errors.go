package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code, so that
// errors.Is(err, ErrInvalidInput) matches any INVALID_INPUT error. A target
// with a Reason only matches errors raised for that reason.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && (t.Reason == "" || e.Reason == t.Reason)
}

// WithMessage returns a copy of the error carrying a more specific message
func (e *DomainError) WithMessage(message string) *DomainError {
	c := *e
	c.Message = message
	return &c
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewReasonError creates a domain error narrowed by a reason within its code
func NewReasonError(code, reason, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Reason:  reason,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound         = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists    = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput     = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidState     = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrBlockedByDebt    = NewDomainError("BLOCKED_BY_DEBT", "Transaction blocked by unresolved debt")
	ErrDuplicateRequest = NewDomainError("DUPLICATE_REQUEST", "Request has already been processed")
)

// InvalidInput returns an INVALID_INPUT error carrying a specific message.
func InvalidInput(message string) *DomainError {
	return NewDomainError(ErrInvalidInput.Code, message)
}
