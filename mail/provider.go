package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/sony/gobreaker"

	"github.com/Koded0214h/MicroServices/config"
	"github.com/Koded0214h/MicroServices/logger"
)

// Provider delivers an assembled message to its recipients.
type Provider interface {
	Name() string
	Send(ctx context.Context, msg *Message) (*Receipt, error)
}

// SMTPProvider delivers through an external SMTP server with configurable
// TLS and a circuit breaker. A tripped breaker fails deliveries fast until
// the server recovers.
type SMTPProvider struct {
	host      string
	username  string
	password  string
	useTLS    bool
	startTLS  bool
	tlsVerify bool
	timeout   time.Duration
	hostname  string

	breaker *gobreaker.CircuitBreaker
}

// NewSMTPProvider builds an SMTP provider from configuration. The config is
// expected to have passed ValidateEmail.
func NewSMTPProvider(cfg config.EmailConfig) (*SMTPProvider, error) {
	timeout, err := cfg.SMTP.GetTimeout()
	if err != nil {
		return nil, fmt.Errorf("invalid smtp timeout: %w", err)
	}
	cbTimeout, err := cfg.CircuitBreaker.GetTimeout()
	if err != nil {
		return nil, fmt.Errorf("invalid circuit breaker timeout: %w", err)
	}

	threshold := uint32(cfg.CircuitBreaker.GetThreshold())
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "smtp_provider",
		MaxRequests: uint32(cfg.CircuitBreaker.GetMaxRequests()),
		Interval:    10 * time.Second,
		Timeout:     cbTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return &SMTPProvider{
		host:      cfg.SMTP.Host,
		username:  cfg.SMTP.Username,
		password:  cfg.SMTP.Password,
		useTLS:    cfg.SMTP.TLS,
		startTLS:  cfg.SMTP.StartTLS,
		tlsVerify: cfg.SMTP.TLSVerify,
		timeout:   timeout,
		hostname:  cfg.Hostname,
		breaker:   breaker,
	}, nil
}

func (p *SMTPProvider) Name() string {
	return "smtp"
}

// Send assembles the message and delivers it in a single SMTP transaction
// covering all recipients. The circuit breaker wraps the whole transaction.
func (p *SMTPProvider) Send(ctx context.Context, msg *Message) (*Receipt, error) {
	raw, messageID, err := BuildMIME(msg, p.hostname)
	if err != nil {
		return nil, &DeliveryError{Err: err, Permanent: true}
	}

	if err := ctx.Err(); err != nil {
		return nil, &DeliveryError{Err: err, Permanent: false}
	}

	_, err = p.breaker.Execute(func() (any, error) {
		return nil, p.deliver(msg, raw)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			logger.Warn("circuit breaker is open, skipping delivery", "host", p.host)
			return nil, &DeliveryError{Err: fmt.Errorf("smtp circuit breaker is open: %w", err), Permanent: false}
		}
		return nil, err
	}

	return &Receipt{
		MessageID:  messageID,
		Provider:   p.Name(),
		Recipients: len(msg.To),
		AcceptedAt: time.Now(),
	}, nil
}

// deliver performs the SMTP transaction: connect, authenticate, MAIL, one
// RCPT per recipient, DATA, QUIT.
func (p *SMTPProvider) deliver(msg *Message, raw []byte) error {
	var c *smtp.Client
	var err error

	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: !p.tlsVerify,
	}

	if p.useTLS {
		c, err = smtp.DialTLS(p.host, tlsConfig)
		if err != nil {
			return &DeliveryError{Err: fmt.Errorf("failed to connect to SMTP server with TLS: %w", err), Permanent: false}
		}
	} else if p.startTLS {
		c, err = smtp.DialStartTLS(p.host, tlsConfig)
		if err != nil {
			return &DeliveryError{Err: fmt.Errorf("failed to connect to SMTP server with STARTTLS: %w", err), Permanent: false}
		}
	} else {
		c, err = smtp.Dial(p.host)
		if err != nil {
			return &DeliveryError{Err: fmt.Errorf("failed to connect to SMTP server: %w", err), Permanent: false}
		}
	}
	defer c.Close()

	c.CommandTimeout = p.timeout
	c.SubmissionTimeout = p.timeout

	if p.username != "" {
		auth := sasl.NewPlainClient("", p.username, p.password)
		if err := c.Auth(auth); err != nil {
			// Rejected credentials will not fix themselves.
			return &DeliveryError{Err: fmt.Errorf("authentication failed: %w", err), Permanent: true}
		}
	}

	if err := c.Mail(msg.From.Address, nil); err != nil {
		return &DeliveryError{Err: fmt.Errorf("failed to set sender: %w", err), Permanent: IsPermanentError(err)}
	}
	for _, rcpt := range msg.To {
		if err := c.Rcpt(rcpt.Address, nil); err != nil {
			return &DeliveryError{Err: fmt.Errorf("failed to set recipient %s: %w", rcpt.Address, err), Permanent: IsPermanentError(err)}
		}
	}

	wc, err := c.Data()
	if err != nil {
		return &DeliveryError{Err: fmt.Errorf("failed to start data: %w", err), Permanent: IsPermanentError(err)}
	}
	if _, err := wc.Write(raw); err != nil {
		// Close the data writer even on failure so the final dot is sent.
		_ = wc.Close()
		return &DeliveryError{Err: fmt.Errorf("failed to write message: %w", err), Permanent: false}
	}
	if err := wc.Close(); err != nil {
		return &DeliveryError{Err: fmt.Errorf("failed to close data writer: %w", err), Permanent: IsPermanentError(err)}
	}

	// The message is already accepted at this point; a failed QUIT is not a
	// delivery failure.
	if err := c.Quit(); err != nil {
		logger.Warn("failed to send QUIT", "host", p.host, "error", err)
	}

	return nil
}
