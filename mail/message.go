// Package mail implements the outbound email service: message validation,
// MIME assembly, template rendering, and delivery through a pluggable
// provider with circuit breaker protection.
package mail

import (
	"errors"
	"fmt"
	"time"

	"github.com/emersion/go-smtp"
)

// Message categories used for stats and metrics labels.
const (
	CategoryTransactional = "transactional"
	CategoryWelcome       = "welcome"
	CategoryVerification  = "verification"
	CategoryInvite        = "invite"
)

// Recipient is a display name and address pair.
type Recipient struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address"`
}

// FullAddress renders the recipient for a From/To header.
func (r Recipient) FullAddress() string {
	if r.Name == "" {
		return r.Address
	}
	return fmt.Sprintf("%s <%s>", r.Name, r.Address)
}

// Attachment is an inline file carried by a message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is one outbound email before MIME assembly.
type Message struct {
	From        Recipient
	To          []Recipient
	Subject     string
	HTMLBody    string
	TextBody    string
	Category    string
	Attachments []Attachment
}

// Receipt describes an accepted delivery.
type Receipt struct {
	MessageID  string    `json:"message_id"`
	Provider   string    `json:"provider"`
	Recipients int       `json:"recipients"`
	AcceptedAt time.Time `json:"accepted_at"`
}

// DeliveryError wraps a provider error with information about whether it is
// permanent or temporary. Permanent errors (5xx SMTP codes) should not be
// retried. Temporary errors (4xx SMTP codes, network errors) can be.
type DeliveryError struct {
	Err       error
	Permanent bool // true for 5xx errors, false for 4xx/network errors
}

func (e *DeliveryError) Error() string {
	if e.Permanent {
		return fmt.Sprintf("permanent failure: %v", e.Err)
	}
	return fmt.Sprintf("temporary failure: %v", e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// IsPermanentError reports whether an error is a permanent failure (5xx SMTP
// error). 4xx errors and network/connection errors are temporary.
func IsPermanentError(err error) bool {
	if err == nil {
		return false
	}

	var deliveryErr *DeliveryError
	if errors.As(err, &deliveryErr) {
		return deliveryErr.Permanent
	}

	var smtpErr *smtp.SMTPError
	if errors.As(err, &smtpErr) {
		// 5xx = permanent, 4xx = temporary
		return !smtpErr.Temporary()
	}

	return false
}
