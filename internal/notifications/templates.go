package notifications

import (
	"bytes"
	"fmt"
	"html/template"
)

// Template names. One per message the pipeline can send.
const (
	TemplateCreatedRequester = "created_requester"
	TemplateCreatedOwner     = "created_owner"
	TemplateConfirmed        = "confirmed"
	TemplateRejected         = "rejected"
	TemplateCancelled        = "cancelled"
)

const layout = `{{define "layout"}}<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
<p>Hello {{.RecipientName}},</p>
{{template "content" .}}
<table style="border-collapse: collapse; margin-top: 12px;">
<tr><td style="padding: 2px 12px 2px 0;"><strong>Vehicle</strong></td><td>{{.Event.VehicleLabel}}</td></tr>
<tr><td style="padding: 2px 12px 2px 0;"><strong>Reservation</strong></td><td>{{.Event.ReservationID}}</td></tr>
{{if .Event.StartDate}}<tr><td style="padding: 2px 12px 2px 0;"><strong>Dates</strong></td><td>{{.Event.StartDate}} to {{.Event.EndDate}}</td></tr>
<tr><td style="padding: 2px 12px 2px 0;"><strong>Total</strong></td><td>{{printf "%.2f" .Event.Total}}</td></tr>{{end}}
{{if .Event.ExpirationDate}}<tr><td style="padding: 2px 12px 2px 0;"><strong>Hold expires</strong></td><td>{{.Event.ExpirationDate}}</td></tr>{{end}}
</table>
<p style="color: #888; font-size: 12px;">Vehicle Marketplace</p>
</body>
</html>{{end}}`

var contents = map[string]string{
	TemplateCreatedRequester: `<p>Your reservation request was received and is waiting for the owner's decision.</p>`,
	TemplateCreatedOwner:     `<p>{{.Event.RequesterName}} requested a reservation on your vehicle. Please confirm or reject it.</p>`,
	TemplateConfirmed:        `<p>Good news: the owner confirmed your reservation.</p>`,
	TemplateRejected:         `<p>The owner rejected your reservation.</p>`,
	TemplateCancelled:        `<p>The reservation was cancelled.</p>`,
}

var subjects = map[string]string{
	TemplateCreatedRequester: "Reservation request received",
	TemplateCreatedOwner:     "New reservation request",
	TemplateConfirmed:        "Reservation confirmed",
	TemplateRejected:         "Reservation rejected",
	TemplateCancelled:        "Reservation cancelled",
}

// Renderer turns reservation events into email bodies. Templates are parsed
// once at construction and are safe for concurrent use.
type Renderer struct {
	templates map[string]*template.Template
}

// NewRenderer parses every template.
func NewRenderer() (*Renderer, error) {
	base, err := template.New("email").Parse(layout)
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	r := &Renderer{templates: make(map[string]*template.Template, len(contents))}
	for name, body := range contents {
		t, err := template.Must(base.Clone()).New("content").Parse(body)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.templates[name] = t
	}
	return r, nil
}

// Render executes the named template and returns subject and HTML body.
func (r *Renderer) Render(name string, data TemplateData) (string, string, error) {
	t, ok := r.templates[name]
	if !ok {
		return "", "", fmt.Errorf("unknown template %q", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", "", fmt.Errorf("render %s: %w", name, err)
	}
	subject := subjects[name]
	if data.Event != nil && data.Event.VehicleLabel != "" {
		subject += ": " + data.Event.VehicleLabel
	}
	return subject, buf.String(), nil
}
