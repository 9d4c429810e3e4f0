package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"text/template"
)

type Email struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

type emailTemplate struct {
	subject *template.Template
	text    *template.Template
	html    *htmltemplate.Template
}

var templates = map[string]emailTemplate{
	RKBookingCreated: {
		subject: template.Must(template.New("s").Parse(
			`Appointment Confirmation for {{.Treatment}} on {{.Date}} at {{.Slot}} is confirmed!`)),
		text: template.Must(template.New("t").Parse(
			"Dear {{.PatientName}},\n\nYour appointment for {{.Treatment}} on {{.Date}} at {{.Slot}} is confirmed!\n\nThank you for choosing {{.Brand}}!")),
		html: htmltemplate.Must(htmltemplate.New("h").Parse(`<div>
  <h1>Dear {{.PatientName}},</h1>
  <p>Your appointment for {{.Treatment}} on {{.Date}} at {{.Slot}} is confirmed!</p>
  <p>Thank you for choosing {{.Brand}}!</p>
  <p>Best Regards,</p>
  <p>{{.Brand}}</p>
</div>`)),
	},
	RKBookingPaid: {
		subject: template.Must(template.New("s").Parse(
			`We have received your payment for {{.Treatment}} on {{.Date}} at {{.Slot}}!`)),
		text: template.Must(template.New("t").Parse(
			"Dear {{.PatientName}},\n\nWe have received your payment for {{.Treatment}} on {{.Date}} at {{.Slot}}!\n\nThank you for choosing {{.Brand}}!")),
		html: htmltemplate.Must(htmltemplate.New("h").Parse(`<div>
  <h1>Dear {{.PatientName}},</h1>
  <p>Thank you for your payment. Your appointment for {{.Treatment}} on {{.Date}} at {{.Slot}} is confirmed!</p>
  <h3>We have received your payment!</h3>
  <p>Thank you for choosing {{.Brand}}!</p>
  <p>Best Regards,</p>
  <p>{{.Brand}}</p>
</div>`)),
	},
}

type templateData struct {
	BookingEvent
	Brand string
}

// Render builds the patient e-mail for a routing key.
func Render(key string, ev BookingEvent, brand string) (Email, error) {
	tpl, ok := templates[key]
	if !ok {
		return Email{}, fmt.Errorf("no template for %q", key)
	}

	data := templateData{BookingEvent: ev, Brand: brand}
	var subject, text, html bytes.Buffer

	if err := tpl.subject.Execute(&subject, data); err != nil {
		return Email{}, fmt.Errorf("render subject: %w", err)
	}
	if err := tpl.text.Execute(&text, data); err != nil {
		return Email{}, fmt.Errorf("render text: %w", err)
	}
	if err := tpl.html.Execute(&html, data); err != nil {
		return Email{}, fmt.Errorf("render html: %w", err)
	}

	return Email{
		To:      ev.Patient,
		ToName:  ev.PatientName,
		Subject: subject.String(),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
