package mail

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMIMEAlternative(t *testing.T) {
	msg := &Message{
		From:     Recipient{Name: "Service", Address: "noreply@example.com"},
		To:       []Recipient{{Name: "Ada", Address: "ada@example.com"}},
		Subject:  "Hello",
		HTMLBody: "<p>Hello <b>Ada</b></p>",
		TextBody: "Hello Ada",
	}

	raw, messageID, err := BuildMIME(msg, "mail.example.com")
	require.NoError(t, err)

	body := string(raw)
	assert.Contains(t, body, "From: Service <noreply@example.com>")
	assert.Contains(t, body, "To: Ada <ada@example.com>")
	assert.Contains(t, body, "Subject: Hello")
	assert.Contains(t, body, "multipart/alternative")
	assert.Contains(t, body, "text/plain")
	assert.Contains(t, body, "text/html")
	assert.Contains(t, body, "Hello Ada")
	assert.Contains(t, body, "<b>Ada</b>")

	assert.True(t, strings.HasPrefix(messageID, "<"))
	assert.Contains(t, messageID, "@mail.example.com>")
	assert.Contains(t, body, messageID)
}

func TestBuildMIMEDerivesTextFromHTML(t *testing.T) {
	msg := &Message{
		From:     Recipient{Address: "noreply@example.com"},
		To:       []Recipient{{Address: "ada@example.com"}},
		Subject:  "Hello",
		HTMLBody: "<p>Plain rendering of markup</p>",
	}

	raw, _, err := BuildMIME(msg, "mail.example.com")
	require.NoError(t, err)

	body := string(raw)
	assert.Contains(t, body, "multipart/alternative")
	assert.Contains(t, body, "Plain rendering of markup")
}

func TestBuildMIMETextOnly(t *testing.T) {
	msg := &Message{
		From:     Recipient{Address: "noreply@example.com"},
		To:       []Recipient{{Address: "ada@example.com"}},
		Subject:  "Hello",
		TextBody: "just text",
	}

	raw, _, err := BuildMIME(msg, "mail.example.com")
	require.NoError(t, err)

	body := string(raw)
	assert.NotContains(t, body, "multipart")
	assert.Contains(t, body, "text/plain")
	assert.Contains(t, body, "just text")
}

func TestBuildMIMEWithAttachment(t *testing.T) {
	msg := &Message{
		From:     Recipient{Address: "noreply@example.com"},
		To:       []Recipient{{Address: "ada@example.com"}},
		Subject:  "Report",
		TextBody: "see attached",
		Attachments: []Attachment{
			{Filename: "report.csv", ContentType: "text/csv", Data: []byte("a,b\n1,2\n")},
		},
	}

	raw, _, err := BuildMIME(msg, "mail.example.com")
	require.NoError(t, err)

	body := string(raw)
	assert.Contains(t, body, "multipart/mixed")
	assert.Contains(t, body, `attachment; filename="report.csv"`)
	assert.Contains(t, body, "base64")
}
