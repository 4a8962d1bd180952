package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"time"

	"github.com/DodailSolutions/billbook/internal/telemetry"
	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"date": func(v interface{}) string {
		switch t := v.(type) {
		case time.Time:
			return t.Format("02 Jan 2006")
		case *time.Time:
			if t == nil {
				return ""
			}
			return t.Format("02 Jan 2006")
		}
		return ""
	},
}

// Service handles email composition and sending
type Service struct {
	sender      Sender
	fromAddress string
	fromName    string
	templates   map[string]*template.Template
	logger      *slog.Logger
}

// NewService parses the embedded templates and returns a ready service.
func NewService(sender Sender, fromAddress, fromName string, logger *slog.Logger) (*Service, error) {
	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		return nil, fmt.Errorf("failed to read email templates: %w", err)
	}

	templates := make(map[string]*template.Template, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if name == "layout.html" {
			continue
		}
		tmpl, err := template.New(name).Funcs(templateFuncs).
			ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse email template %s: %w", name, err)
		}
		templates[name] = tmpl
	}

	return &Service{
		sender:      sender,
		fromAddress: fromAddress,
		fromName:    fromName,
		templates:   templates,
		logger:      logger.With("service", "email"),
	}, nil
}

// SendWelcome sends the onboarding welcome email
func (s *Service) SendWelcome(ctx context.Context, data WelcomeEmail) error {
	return s.send(ctx, "welcome", data, "")
}

// SendPurchaseConfirmation confirms a plan purchase
func (s *Service) SendPurchaseConfirmation(ctx context.Context, data PurchaseConfirmationEmail) error {
	return s.send(ctx, "purchase_confirmation", data, "")
}

// SendInvoice delivers an invoice to its customer. Replies go to the tenant.
func (s *Service) SendInvoice(ctx context.Context, data InvoiceEmail) error {
	return s.send(ctx, "invoice", data, data.BusinessEmail)
}

// SendContact forwards a contact form message. Replies go to the submitter.
func (s *Service) SendContact(ctx context.Context, data ContactEmail) error {
	return s.send(ctx, "contact", data, data.Email)
}

// SendReminder sends a due-date or overdue reminder
func (s *Service) SendReminder(ctx context.Context, data ReminderEmail) error {
	return s.send(ctx, "reminder", data, "")
}

func (s *Service) send(ctx context.Context, emailType string, data EmailTemplate, replyTo string) error {
	to := strings.TrimSpace(data.Recipient())
	if to == "" {
		return ErrNoRecipients
	}

	htmlBody, textBody, err := s.renderTemplate(data.TemplateName(), data)
	if err != nil {
		return fmt.Errorf("failed to render %s template: %w", emailType, err)
	}

	from := s.fromAddress
	if s.fromName != "" {
		from = fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)
	}

	_, err = s.sender.Send(ctx, &Email{
		To:       []string{to},
		From:     from,
		ReplyTo:  replyTo,
		Subject:  data.Subject(),
		HTMLBody: htmlBody,
		TextBody: textBody,
	})
	if err != nil {
		if telemetry.Business != nil {
			telemetry.Business.EmailFailed.WithLabelValues(emailType).Inc()
		}
		return fmt.Errorf("failed to send %s email: %w", emailType, err)
	}

	if telemetry.Business != nil {
		telemetry.Business.EmailSent.WithLabelValues(emailType).Inc()
	}
	s.logger.Debug("email sent", "type", emailType)
	return nil
}

// renderTemplate returns the HTML body and a plain text fallback.
func (s *Service) renderTemplate(templateName string, data interface{}) (string, string, error) {
	tmpl, ok := s.templates[templateName]
	if !ok {
		return "", "", ErrTemplateNotFound(templateName)
	}

	var htmlBuf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&htmlBuf, "email_layout", data); err != nil {
		return "", "", fmt.Errorf("failed to execute template %s: %w", templateName, err)
	}

	htmlBody := htmlBuf.String()
	return htmlBody, generatePlainText(htmlBody), nil
}

// generatePlainText creates a simple plain text version from HTML
func generatePlainText(html string) string {
	text := html

	for _, tag := range []string{"<br>", "<br/>", "<br />", "</tr>", "</div>"} {
		text = strings.ReplaceAll(text, tag, "\n")
	}
	for _, tag := range []string{"</p>", "</h1>", "</h2>", "</h3>"} {
		text = strings.ReplaceAll(text, tag, "\n\n")
	}
	text = strings.ReplaceAll(text, "</td>", " ")
	text = strings.ReplaceAll(text, "</th>", " ")

	for {
		start := strings.Index(text, "<")
		if start < 0 {
			break
		}
		end := strings.Index(text[start:], ">")
		if end < 0 {
			break
		}
		text = text[:start] + text[start+end+1:]
	}

	text = strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", "\"",
		"&#34;", "\"",
		"&#39;", "'",
	).Replace(text)

	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}

	return strings.Join(cleaned, "\n")
}
