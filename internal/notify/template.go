package notify

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"billbook/internal/report"
	"billbook/pkg/models"
)

const defaultSubject = "Your bill {{.ID}}"

const defaultBody = `Hello {{.CustomerName}},

thank you for your purchase. Here is your bill.

Bill ID: {{.ID}}
Date: {{date .CreatedAt}}

Items:
{{- range .Items}}
- {{.Name}} (Price: {{amount .UnitPrice}}, Quantity: {{.Quantity}})
{{- end}}

Total: {{amount .TotalAmount}}
{{if .CodeArtifactRef}}
The attached QR code carries the same details.
{{end}}`

var funcs = template.FuncMap{
	"amount": models.FormatAmount,
	"date":   func(t time.Time) string { return t.Format(report.TimeLayout) },
}

// Template renders the subject and body of a receipt email.
type Template struct {
	subject *template.Template
	body    *template.Template
}

// NewTemplate parses subject and body. Both are text/template sources
// executed against a models.Bill.
func NewTemplate(subject, body string) (*Template, error) {
	s, err := template.New("subject").Funcs(funcs).Parse(subject)
	if err != nil {
		return nil, fmt.Errorf("parse subject template: %w", err)
	}
	b, err := template.New("body").Funcs(funcs).Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse body template: %w", err)
	}
	return &Template{subject: s, body: b}, nil
}

// DefaultTemplate returns the built-in receipt template.
func DefaultTemplate() *Template {
	t, err := NewTemplate(defaultSubject, defaultBody)
	if err != nil {
		panic(err)
	}
	return t
}

// Render executes the template for bill.
func (t *Template) Render(bill models.Bill) (subject, body string, err error) {
	var buf bytes.Buffer
	if err := t.subject.Execute(&buf, bill); err != nil {
		return "", "", fmt.Errorf("render subject: %w", err)
	}
	subject = buf.String()

	buf.Reset()
	if err := t.body.Execute(&buf, bill); err != nil {
		return "", "", fmt.Errorf("render body: %w", err)
	}
	return subject, buf.String(), nil
}
