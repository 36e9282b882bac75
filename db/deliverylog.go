package db

import (
	"context"
	"fmt"

	"github.com/Koded0214h/MicroServices/mail"
)

// DeliveryLog is the Postgres implementation of mail.DeliveryLog.
type DeliveryLog struct {
	db *Database
}

// NewDeliveryLog creates a delivery log backed by the given database.
func NewDeliveryLog(database *Database) *DeliveryLog {
	return &DeliveryLog{db: database}
}

// Record inserts one delivery attempt.
func (l *DeliveryLog) Record(ctx context.Context, rec mail.DeliveryRecord) error {
	_, err := l.db.Pool.Exec(ctx, `
		INSERT INTO delivery_log (message_id, sender, recipients, subject, category, status, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.MessageID, rec.From, rec.To, rec.Subject, rec.Category, rec.Status, rec.Error, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert delivery record: %w", err)
	}
	return nil
}

// Recent returns the most recent delivery records, newest first.
func (l *DeliveryLog) Recent(ctx context.Context, limit int) ([]mail.DeliveryRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := l.db.Pool.Query(ctx, `
		SELECT message_id, sender, recipients, subject, category, status, error, created_at
		FROM delivery_log
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query delivery log: %w", err)
	}
	defer rows.Close()

	var records []mail.DeliveryRecord
	for rows.Next() {
		var rec mail.DeliveryRecord
		if err := rows.Scan(&rec.MessageID, &rec.From, &rec.To, &rec.Subject, &rec.Category, &rec.Status, &rec.Error, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan delivery record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
