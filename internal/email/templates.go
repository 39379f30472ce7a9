package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
}

type notificationEmailData struct {
	baseEmailData
	RecipientName string
	Body          string
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

func renderNotification(toName string, n Notification) (string, error) {
	return renderEmailTemplate("notification.html", notificationEmailData{
		baseEmailData: baseEmailData{
			Title:    n.Subject,
			Heading:  n.Heading,
			CTALabel: n.CTALabel,
			CTAURL:   n.CTAURL,
		},
		RecipientName: toName,
		Body:          n.Body,
	})
}
