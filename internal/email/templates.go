package email

import (
	"time"

	"github.com/shopspring/decimal"
)

// EmailTemplate is implemented by every email payload.
type EmailTemplate interface {
	Subject() string
	TemplateName() string
	Recipient() string
}

// WelcomeEmail is sent once a new account has been onboarded.
type WelcomeEmail struct {
	To           string
	Name         string
	BusinessName string
	DashboardURL string
}

func (e WelcomeEmail) Subject() string      { return "Welcome to BillBook" }
func (e WelcomeEmail) TemplateName() string { return "welcome.html" }
func (e WelcomeEmail) Recipient() string    { return e.To }

// PurchaseConfirmationEmail confirms a plan purchase.
type PurchaseConfirmationEmail struct {
	To         string
	PlanName   string
	Amount     decimal.Decimal
	Currency   string
	BillingURL string
}

func (e PurchaseConfirmationEmail) Subject() string {
	return "Your BillBook " + e.PlanName + " plan is active"
}
func (e PurchaseConfirmationEmail) TemplateName() string { return "purchase_confirmation.html" }
func (e PurchaseConfirmationEmail) Recipient() string    { return e.To }

// InvoiceLine is one row of an invoice email.
type InvoiceLine struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal
}

// InvoiceEmail delivers an invoice to a customer.
type InvoiceEmail struct {
	To            string
	CustomerName  string
	BusinessName  string
	BusinessEmail string
	InvoiceNumber string
	InvoiceDate   time.Time
	DueDate       *time.Time
	Currency      string
	Items         []InvoiceLine
	Subtotal      decimal.Decimal
	TaxPercentage decimal.Decimal
	TaxAmount     decimal.Decimal
	Total         decimal.Decimal
	Notes         string
	PaymentTerms  string
	FooterNotes   string
	PayURL        string
}

func (e InvoiceEmail) Subject() string {
	if e.BusinessName != "" {
		return "Invoice " + e.InvoiceNumber + " from " + e.BusinessName
	}
	return "Invoice " + e.InvoiceNumber
}
func (e InvoiceEmail) TemplateName() string { return "invoice.html" }
func (e InvoiceEmail) Recipient() string    { return e.To }

// ContactEmail forwards a public contact form submission to the support inbox.
type ContactEmail struct {
	To      string
	Name    string
	Email   string
	Topic   string
	Message string
}

func (e ContactEmail) Subject() string      { return "Contact form: " + e.Topic }
func (e ContactEmail) TemplateName() string { return "contact.html" }
func (e ContactEmail) Recipient() string    { return e.To }

// ReminderEmail nudges a customer about an upcoming or overdue invoice.
type ReminderEmail struct {
	To            string
	CustomerName  string
	BusinessName  string
	InvoiceNumber string
	DueDate       *time.Time
	Total         decimal.Decimal
	Currency      string
	Overdue       bool
	PayURL        string
}

func (e ReminderEmail) Subject() string {
	if e.Overdue {
		return "Overdue: invoice " + e.InvoiceNumber
	}
	return "Reminder: invoice " + e.InvoiceNumber + " is due soon"
}
func (e ReminderEmail) TemplateName() string { return "reminder.html" }
func (e ReminderEmail) Recipient() string    { return e.To }
