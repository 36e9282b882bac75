package mail

import (
	"context"
	"errors"
	"fmt"
	netmail "net/mail"
	"strings"
	"sync"
	"time"

	"github.com/Koded0214h/MicroServices/logger"
	"github.com/Koded0214h/MicroServices/pkg/metrics"
)

// ErrValidation marks errors caused by a bad message rather than a failed
// delivery, so the API layer can map them to a 400.
var ErrValidation = errors.New("message validation failed")

const (
	// MaxSubjectLength bounds the subject line.
	MaxSubjectLength = 150
	// MaxRecipients bounds a single message's recipient list.
	MaxRecipients = 50
)

// spamTriggers are subject phrases that get messages rejected outright
// instead of hurting the sending domain's reputation.
var spamTriggers = []string{"!!!", "FREE", "WINNER", "URGENT", "ACT NOW"}

// DeliveryRecord is one entry in the delivery log.
type DeliveryRecord struct {
	MessageID string    `json:"message_id"`
	From      string    `json:"from"`
	To        []string  `json:"to"`
	Subject   string    `json:"subject"`
	Category  string    `json:"category"`
	Status    string    `json:"status"` // "sent" or "failed"
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DeliveryLog records delivery attempts and serves recent history.
type DeliveryLog interface {
	Record(ctx context.Context, rec DeliveryRecord) error
	Recent(ctx context.Context, limit int) ([]DeliveryRecord, error)
}

// Stats is a snapshot of the service's delivery counters.
type Stats struct {
	SentToday   int64            `json:"sent_today"`
	SentTotal   int64            `json:"sent_total"`
	FailedToday int64            `json:"failed_today"`
	FailedTotal int64            `json:"failed_total"`
	ByCategory  map[string]int64 `json:"by_category"`
}

// Service is the outbound email service: it validates messages, fills in
// sender defaults, delivers through the provider, and keeps counters and a
// delivery log.
type Service struct {
	provider    Provider
	renderer    *Renderer
	log         DeliveryLog
	from        Recipient
	frontendURL string

	mu          sync.Mutex
	day         time.Time
	sentToday   int64
	sentTotal   int64
	failedToday int64
	failedTotal int64
	byCategory  map[string]int64
}

// NewService wires the email service together. The delivery log may be a
// database-backed implementation or an in-memory one.
func NewService(provider Provider, renderer *Renderer, log DeliveryLog, from Recipient, frontendURL string) *Service {
	return &Service{
		provider:    provider,
		renderer:    renderer,
		log:         log,
		from:        from,
		frontendURL: frontendURL,
		day:         today(),
		byCategory:  make(map[string]int64),
	}
}

func today() time.Time {
	y, m, d := time.Now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

// Validate checks a message against the service's sending policy.
func Validate(msg *Message) error {
	if strings.TrimSpace(msg.Subject) == "" {
		return fmt.Errorf("%w: subject is required", ErrValidation)
	}
	if len(msg.Subject) > MaxSubjectLength {
		return fmt.Errorf("%w: subject exceeds %d characters", ErrValidation, MaxSubjectLength)
	}
	upperSubject := strings.ToUpper(msg.Subject)
	for _, trigger := range spamTriggers {
		if strings.Contains(upperSubject, trigger) {
			return fmt.Errorf("%w: subject contains spam trigger %q", ErrValidation, trigger)
		}
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("%w: at least one recipient is required", ErrValidation)
	}
	if len(msg.To) > MaxRecipients {
		return fmt.Errorf("%w: recipient count exceeds %d", ErrValidation, MaxRecipients)
	}
	for _, rcpt := range msg.To {
		if _, err := netmail.ParseAddress(rcpt.Address); err != nil {
			return fmt.Errorf("%w: invalid recipient address %q", ErrValidation, rcpt.Address)
		}
	}
	if msg.HTMLBody == "" && msg.TextBody == "" {
		return fmt.Errorf("%w: message body is required", ErrValidation)
	}
	return nil
}

// Send validates and delivers one message, updating counters and the
// delivery log. Validation failures are returned without touching the
// provider.
func (s *Service) Send(ctx context.Context, msg *Message) (*Receipt, error) {
	if msg.Category == "" {
		msg.Category = CategoryTransactional
	}
	if msg.From.Address == "" {
		msg.From = s.from
	}

	if err := Validate(msg); err != nil {
		return nil, err
	}

	start := time.Now()
	receipt, err := s.provider.Send(ctx, msg)
	metrics.EmailDeliveryDuration.Observe(time.Since(start).Seconds())

	rec := DeliveryRecord{
		From:      msg.From.Address,
		To:        addresses(msg.To),
		Subject:   msg.Subject,
		Category:  msg.Category,
		CreatedAt: time.Now(),
	}

	if err != nil {
		kind := "temporary"
		if IsPermanentError(err) {
			kind = "permanent"
		}
		metrics.EmailsFailedTotal.WithLabelValues(msg.Category, kind).Inc()
		s.count(msg.Category, false)

		rec.Status = "failed"
		rec.Error = err.Error()
		s.record(ctx, rec)

		logger.Error("email delivery failed", "category", msg.Category, "subject", msg.Subject, "error", err)
		return nil, err
	}

	metrics.EmailsSentTotal.WithLabelValues(msg.Category).Inc()
	s.count(msg.Category, true)

	rec.MessageID = receipt.MessageID
	rec.Status = "sent"
	s.record(ctx, rec)

	logger.Info("email sent", "category", msg.Category, "message_id", receipt.MessageID, "recipients", receipt.Recipients)
	return receipt, nil
}

func addresses(rcpts []Recipient) []string {
	out := make([]string, 0, len(rcpts))
	for _, r := range rcpts {
		out = append(out, r.Address)
	}
	return out
}

func (s *Service) record(ctx context.Context, rec DeliveryRecord) {
	if s.log == nil {
		return
	}
	if err := s.log.Record(ctx, rec); err != nil {
		logger.Warn("failed to record delivery", "error", err)
	}
}

// count updates the daily and total counters, rolling the daily ones over
// at midnight.
func (s *Service) count(category string, sent bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d := today(); !d.Equal(s.day) {
		s.day = d
		s.sentToday = 0
		s.failedToday = 0
	}

	if sent {
		s.sentToday++
		s.sentTotal++
		s.byCategory[category]++
	} else {
		s.failedToday++
		s.failedTotal++
	}
}

// Stats returns a snapshot of the delivery counters.
func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d := today(); !d.Equal(s.day) {
		s.day = d
		s.sentToday = 0
		s.failedToday = 0
	}

	byCategory := make(map[string]int64, len(s.byCategory))
	for k, v := range s.byCategory {
		byCategory[k] = v
	}
	return Stats{
		SentToday:   s.sentToday,
		SentTotal:   s.sentTotal,
		FailedToday: s.failedToday,
		FailedTotal: s.failedTotal,
		ByCategory:  byCategory,
	}
}

// RecentLogs returns the most recent delivery records, newest first.
func (s *Service) RecentLogs(ctx context.Context, limit int) ([]DeliveryRecord, error) {
	if s.log == nil {
		return nil, nil
	}
	return s.log.Recent(ctx, limit)
}

// MemoryLog is an in-memory DeliveryLog used when no database is
// configured. It keeps a bounded window of recent records.
type MemoryLog struct {
	mu      sync.Mutex
	records []DeliveryRecord
	max     int
}

// NewMemoryLog creates an in-memory delivery log capped at max records; a
// non-positive max defaults to 1000.
func NewMemoryLog(max int) *MemoryLog {
	if max <= 0 {
		max = 1000
	}
	return &MemoryLog{max: max}
}

func (l *MemoryLog) Record(ctx context.Context, rec DeliveryRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	if len(l.records) > l.max {
		l.records = l.records[len(l.records)-l.max:]
	}
	return nil
}

func (l *MemoryLog) Recent(ctx context.Context, limit int) ([]DeliveryRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if limit <= 0 || limit > len(l.records) {
		limit = len(l.records)
	}
	out := make([]DeliveryRecord, 0, limit)
	for i := len(l.records) - 1; i >= len(l.records)-limit; i-- {
		out = append(out, l.records[i])
	}
	return out, nil
}
