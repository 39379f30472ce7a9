package email

import (
	"context"
	"testing"

	"production_backend/platform/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderNotificationEscapesBody(t *testing.T) {
	html, err := renderNotification("Ana", Notification{
		Subject:  "Design job assigned",
		Heading:  "You have a new design job",
		Body:     "Logo <b>refresh</b> for order 42",
		CTALabel: "Open job",
		CTAURL:   "https://app.example.com/design-jobs/1",
	})
	require.NoError(t, err)

	assert.Contains(t, html, "Hi Ana,")
	assert.Contains(t, html, "You have a new design job")
	assert.Contains(t, html, "Logo &lt;b&gt;refresh&lt;/b&gt; for order 42")
	assert.Contains(t, html, `href="https://app.example.com/design-jobs/1"`)
}

func TestRenderNotificationWithoutLink(t *testing.T) {
	html, err := renderNotification("", Notification{Subject: "s", Heading: "h", Body: "b"})
	require.NoError(t, err)
	assert.Contains(t, html, "Hi there,")
	assert.NotContains(t, html, "<a href")
}

func TestSMTPMessageHeaders(t *testing.T) {
	s := NewSMTPSender("smtp.example.com", 587, "", "", "noreply@example.com", "Production")
	msg, err := s.message("designer@example.com", "Subject line", "<p>x</p>")
	require.NoError(t, err)

	to, err := msg.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"designer@example.com"}, to)

	_, err = s.message("not an address", "Subject line", "<p>x</p>")
	assert.Error(t, err)
}

type emailCfg struct{ enabled bool }

func (c emailCfg) GetEmailEnabled() bool       { return c.enabled }
func (c emailCfg) GetSMTPHost() string         { return "smtp.example.com" }
func (c emailCfg) GetSMTPPort() int            { return 587 }
func (c emailCfg) GetSMTPUsername() string     { return "" }
func (c emailCfg) GetSMTPPassword() string     { return "" }
func (c emailCfg) GetEmailFromName() string    { return "Production" }
func (c emailCfg) GetEmailFromAddress() string { return "noreply@example.com" }

func TestNewSenderHonoursEnabledFlag(t *testing.T) {
	log := logger.New("test")
	assert.IsType(t, &NoopSender{}, NewSender(emailCfg{enabled: false}, log))
	assert.IsType(t, &SMTPSender{}, NewSender(emailCfg{enabled: true}, log))

	noop := NewNoopSender(log)
	assert.NoError(t, noop.SendNotificationEmail(context.Background(), "a@example.com", "A", Notification{Subject: "s"}))
}
