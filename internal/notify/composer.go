// Package notify composes and delivers customer email and staff alerts.
package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

type EmailType string

const (
	EmailOffer    EmailType = "offer"
	EmailReminder EmailType = "reminder"
)

// ParseEmailType maps anything other than "reminder" to the offer email.
func ParseEmailType(s string) EmailType {
	if strings.EqualFold(strings.TrimSpace(s), string(EmailReminder)) {
		return EmailReminder
	}
	return EmailOffer
}

// Email is a composed message.
type Email struct {
	Type    EmailType
	Subject string
	HTML    string
	Text    string
}

var bodyTemplate = template.Must(template.New("email").Parse(
	`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<h2 style="color: #333;">{{.Greeting}}</h2>
<p>{{.Lead}} <strong>{{.Domain}}</strong>.</p>
<p><strong>Paket:</strong> {{.Package}}</p>
<p>{{.Closing}}</p>
<hr />
<p style="color: #666; font-size: 12px;">Mvh, SEO Platform Team</p>
</div>`))

type emailCopy struct {
	Greeting string
	Lead     string
	Closing  string
	Domain   string
	Package  string
}

// Compose builds the Swedish offer or reminder email for a domain and package.
func Compose(t EmailType, domain, pkg string) (Email, error) {
	c := emailCopy{Domain: domain, Package: strings.ToUpper(pkg)}
	var subject string

	switch t {
	case EmailReminder:
		subject = fmt.Sprintf("Påminnelse: Din SEO-offert för %s", domain)
		c.Greeting = "Hej! 👋"
		c.Lead = "Vi ville bara påminna dig om din SEO-offert för"
		c.Closing = "Har du några frågor? Kontakta oss gärna!"
	default:
		t = EmailOffer
		subject = fmt.Sprintf("Din SEO-offert för %s", domain)
		c.Greeting = "Tack för ditt intresse! 🎉"
		c.Lead = "Vi har mottagit din offertförfrågan för"
		c.Closing = "Vi kontaktar dig snart med mer detaljer!"
	}

	var buf bytes.Buffer
	if err := bodyTemplate.Execute(&buf, c); err != nil {
		return Email{}, fmt.Errorf("render %s email: %w", t, err)
	}

	text := fmt.Sprintf("%s\n\n%s %s.\nPaket: %s\n%s\n\nMvh, SEO Platform Team\n",
		c.Greeting, c.Lead, domain, c.Package, c.Closing)

	return Email{Type: t, Subject: subject, HTML: buf.String(), Text: text}, nil
}
