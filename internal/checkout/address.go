package checkout

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/rogerio-castellano/storefront/internal/models"
)

type FieldError struct {
	Field       string `json:"field"`
	Description string `json:"description"`
}

// ValidationError lists every invalid address field.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Field
	}
	return fmt.Sprintf("invalid shipping address: %s", strings.Join(names, ", "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidAddress
}

func validateAddress(a models.Address) []FieldError {
	errs := []FieldError{}
	required := []struct {
		field, value string
	}{
		{"nombre_completo", a.FullName},
		{"telefono", a.Phone},
		{"direccion", a.Street},
		{"ciudad", a.City},
		{"estado", a.State},
		{"codigo_postal", a.PostalCode},
		{"pais", a.Country},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, FieldError{Field: r.field, Description: r.field + " is required"})
		}
	}

	if strings.TrimSpace(a.Email) == "" {
		errs = append(errs, FieldError{Field: "email", Description: "email is required"})
	} else if _, err := mail.ParseAddress(a.Email); err != nil {
		errs = append(errs, FieldError{Field: "email", Description: "email is not a valid address"})
	}
	return errs
}
