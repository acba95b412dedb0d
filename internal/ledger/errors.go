package ledger

import (
	"errors"
	"fmt"
)

// Error kinds for rejected mutations.
const (
	KindInvalidField      = "invalid_field"
	KindProductNotFound   = "product_not_found"
	KindInsufficientStock = "insufficient_stock"
)

// InvalidFieldError rejects a mutation before or while applying it. Nothing
// is written when it is returned.
type InvalidFieldError struct {
	Field   string
	Kind    string
	Message string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalidField(field, format string, args ...any) *InvalidFieldError {
	return &InvalidFieldError{Field: field, Kind: KindInvalidField, Message: fmt.Sprintf(format, args...)}
}

// ErrorKind returns the kind of a ledger rejection, or "" for other errors.
func ErrorKind(err error) string {
	var fieldErr *InvalidFieldError
	if errors.As(err, &fieldErr) {
		return fieldErr.Kind
	}
	return ""
}
