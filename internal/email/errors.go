package email

import (
	"fmt"

	"github.com/DodailSolutions/billbook/internal/domain"
)

var (
	// ErrNoRecipients is returned when an email has no To address.
	ErrNoRecipients = &domain.Error{Code: domain.EINVALID, Message: "Email has no recipients"}

	// ErrInvalidFromAddress is returned when the from address is invalid.
	ErrInvalidFromAddress = &domain.Error{Code: domain.EINVALID, Message: "Invalid from email address"}

	// ErrInvalidToAddress is returned when the to address is invalid.
	ErrInvalidToAddress = &domain.Error{Code: domain.EINVALID, Message: "Invalid to email address"}
)

// ErrTemplateNotFound creates a template not found error.
func ErrTemplateNotFound(templateName string) error {
	return &domain.Error{
		Code:    domain.ENOTFOUND,
		Message: fmt.Sprintf("Email template %s not found", templateName),
	}
}

// DeliveryError reports a provider-side failure.
type DeliveryError struct {
	Provider string
	Status   int
	Message  string
}

func (e *DeliveryError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: delivery failed (status %d): %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: delivery failed: %s", e.Provider, e.Message)
}
