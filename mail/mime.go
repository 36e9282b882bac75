package mail

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-message"
	"github.com/google/uuid"
	"github.com/k3a/html2text"
)

// BuildMIME assembles a Message into an RFC 822 byte stream. Messages with
// both bodies are emitted as multipart/alternative; attachments wrap the
// whole thing in multipart/mixed. The generated Message-ID is returned so
// callers can reference the delivery later.
func BuildMIME(msg *Message, hostname string) ([]byte, string, error) {
	textBody := msg.TextBody
	if textBody == "" && msg.HTMLBody != "" {
		// Derive a plain text alternative so text-only clients still get
		// something readable.
		textBody = html2text.HTML2Text(msg.HTMLBody)
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.New().String(), hostname)

	toAddrs := make([]string, 0, len(msg.To))
	for _, rcpt := range msg.To {
		toAddrs = append(toAddrs, rcpt.FullAddress())
	}

	var header message.Header
	header.Set("From", msg.From.FullAddress())
	header.Set("To", strings.Join(toAddrs, ", "))
	header.Set("Subject", msg.Subject)
	header.Set("Message-ID", messageID)
	header.Set("Date", time.Now().Format(time.RFC1123Z))
	header.Set("MIME-Version", "1.0")

	var buf bytes.Buffer

	if len(msg.Attachments) > 0 {
		header.Set("Content-Type", "multipart/mixed")
		w, err := message.CreateWriter(&buf, header)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create message writer: %w", err)
		}

		var altHeader message.Header
		altHeader.Set("Content-Type", "multipart/alternative")
		alt, err := w.CreatePart(altHeader)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create alternative part: %w", err)
		}
		if err := writeBodies(alt, textBody, msg.HTMLBody); err != nil {
			return nil, "", err
		}
		alt.Close()

		for _, att := range msg.Attachments {
			contentType := att.ContentType
			if contentType == "" {
				contentType = "application/octet-stream"
			}
			var attHeader message.Header
			attHeader.Set("Content-Type", contentType)
			attHeader.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", att.Filename))
			attHeader.Set("Content-Transfer-Encoding", "base64")
			part, err := w.CreatePart(attHeader)
			if err != nil {
				return nil, "", fmt.Errorf("failed to create attachment part: %w", err)
			}
			part.Write(att.Data)
			part.Close()
		}
		w.Close()
		return buf.Bytes(), messageID, nil
	}

	if msg.HTMLBody != "" && textBody != "" {
		header.Set("Content-Type", "multipart/alternative")
		w, err := message.CreateWriter(&buf, header)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create message writer: %w", err)
		}
		if err := writeBodies(w, textBody, msg.HTMLBody); err != nil {
			return nil, "", err
		}
		w.Close()
		return buf.Bytes(), messageID, nil
	}

	// Single body, no multipart wrapper needed.
	if msg.HTMLBody != "" {
		header.Set("Content-Type", "text/html; charset=utf-8")
	} else {
		header.Set("Content-Type", "text/plain; charset=utf-8")
	}
	w, err := message.CreateWriter(&buf, header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create message writer: %w", err)
	}
	if msg.HTMLBody != "" {
		w.Write([]byte(msg.HTMLBody))
	} else {
		w.Write([]byte(textBody))
	}
	w.Close()
	return buf.Bytes(), messageID, nil
}

// writeBodies emits the text and html parts of a multipart/alternative
// container, plain text first per convention.
func writeBodies(w *message.Writer, textBody, htmlBody string) error {
	if textBody != "" {
		var textHeader message.Header
		textHeader.Set("Content-Type", "text/plain; charset=utf-8")
		part, err := w.CreatePart(textHeader)
		if err != nil {
			return fmt.Errorf("failed to create text part: %w", err)
		}
		part.Write([]byte(textBody))
		part.Close()
	}
	if htmlBody != "" {
		var htmlHeader message.Header
		htmlHeader.Set("Content-Type", "text/html; charset=utf-8")
		part, err := w.CreatePart(htmlHeader)
		if err != nil {
			return fmt.Errorf("failed to create html part: %w", err)
		}
		part.Write([]byte(htmlBody))
		part.Close()
	}
	return nil
}
