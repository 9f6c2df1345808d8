package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hookguard/hookguard/internal/apierror"
	"github.com/hookguard/hookguard/model"
)

// RecordAttempt inserts an immutable attempt row. A unique_violation on the
// dedup index means another writer recorded the same delivery first; it is
// surfaced as a Conflict so the caller can map it to already_processed.
func (d Datasource) RecordAttempt(ctx context.Context, record *model.AttemptRecord) (*model.AttemptRecord, error) {
	payloadJSON, err := json.Marshal(record.Payload)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "Failed to encode payload", err)
	}

	record.AttemptID = model.GenerateUUIDWithSuffix("att")
	record.CreatedAt = time.Now()

	externalID := sql.NullString{String: record.ExternalID, Valid: record.ExternalID != ""}
	errorMessage := sql.NullString{String: record.ErrorMessage, Valid: record.ErrorMessage != ""}

	_, err = d.Conn.ExecContext(ctx, `
		INSERT INTO webhook_attempts (attempt_id, service, external_id, event, status, payload, error_message, attempt, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, record.AttemptID, record.Service, externalID, record.Event, record.Status, payloadJSON, errorMessage, record.Attempt, record.CreatedAt)

	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok {
			switch pqErr.Code.Name() {
			case "unique_violation":
				return nil, apierror.NewAPIError(apierror.ErrConflict, "Attempt for this delivery already recorded", err)
			default:
				return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Database error occurred", err)
			}
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Database error occurred", err)
	}

	return record, nil
}

// GetAttemptByID fetches one attempt, consulting the cache first. Attempt
// rows never change after insert, so cached copies cannot go stale.
func (d Datasource) GetAttemptByID(ctx context.Context, id string) (*model.AttemptRecord, error) {
	cacheKey := fmt.Sprintf("attempt:%s", id)
	if d.Cache != nil {
		var cached model.AttemptRecord
		if err := d.Cache.Get(ctx, cacheKey, &cached); err == nil && cached.AttemptID != "" {
			return &cached, nil
		}
	}

	row := d.Conn.QueryRowContext(ctx, `
		SELECT attempt_id, service, external_id, event, status, payload, error_message, attempt, created_at
		FROM webhook_attempts
		WHERE attempt_id = $1
	`, id)

	record, err := scanAttempt(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Attempt with ID '%s' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Database error occurred", err)
	}

	if d.Cache != nil {
		_ = d.Cache.Set(ctx, cacheKey, record, 10*time.Minute)
	}
	return record, nil
}

// GetAttemptByExternalID is the idempotency guard's fast-path lookup.
// Returns nil with no error when no record exists; the unique index remains
// the authoritative check on insert.
func (d Datasource) GetAttemptByExternalID(ctx context.Context, service, externalID string) (*model.AttemptRecord, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT attempt_id, service, external_id, event, status, payload, error_message, attempt, created_at
		FROM webhook_attempts
		WHERE service = $1 AND external_id = $2
		ORDER BY created_at ASC
		LIMIT 1
	`, service, externalID)

	record, err := scanAttempt(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Database error occurred", err)
	}
	return record, nil
}

// ListAttempts returns attempts matching the filter, newest first.
func (d Datasource) ListAttempts(ctx context.Context, filter model.AttemptFilter) ([]model.AttemptRecord, error) {
	query := `
		SELECT attempt_id, service, external_id, event, status, payload, error_message, attempt, created_at
		FROM webhook_attempts
		WHERE 1=1`
	args := []interface{}{}
	idx := 1

	if filter.Service != "" {
		query += fmt.Sprintf(" AND service = $%d", idx)
		args = append(args, filter.Service)
		idx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, filter.Status)
		idx++
	}
	if filter.Event != "" {
		query += fmt.Sprintf(" AND event = $%d", idx)
		args = append(args, filter.Event)
		idx++
	}
	if !filter.From.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", idx)
		args = append(args, filter.From)
		idx++
	}
	if !filter.To.IsZero() {
		query += fmt.Sprintf(" AND created_at <= $%d", idx)
		args = append(args, filter.To)
		idx++
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, filter.Offset)

	rows, err := d.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Database error occurred", err)
	}
	defer rows.Close()

	records := []model.AttemptRecord{}
	for rows.Next() {
		record, err := scanAttempt(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Database error occurred", err)
		}
		records = append(records, *record)
	}

	return records, rows.Err()
}

// CountRecentFailures computes the failure window for a (service, event)
// pair on demand; nothing is materialized.
func (d Datasource) CountRecentFailures(ctx context.Context, service, event string, window time.Duration) (int, error) {
	var count int
	err := d.Conn.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM webhook_attempts
		WHERE service = $1 AND event = $2 AND status = 'failed' AND created_at > $3
	`, service, event, time.Now().Add(-window)).Scan(&count)
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Database error occurred", err)
	}
	return count, nil
}

// GetLatestFailedAttempt returns the most recent failed attempt for the
// pair; the notification payload is built from it.
func (d Datasource) GetLatestFailedAttempt(ctx context.Context, service, event string) (*model.AttemptRecord, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT attempt_id, service, external_id, event, status, payload, error_message, attempt, created_at
		FROM webhook_attempts
		WHERE service = $1 AND event = $2 AND status = 'failed'
		ORDER BY created_at DESC
		LIMIT 1
	`, service, event)

	record, err := scanAttempt(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "No failed attempts found", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Database error occurred", err)
	}
	return record, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAttempt(row rowScanner) (*model.AttemptRecord, error) {
	record := model.AttemptRecord{}
	var externalID sql.NullString
	var errorMessage sql.NullString
	var payloadJSON []byte

	err := row.Scan(&record.AttemptID, &record.Service, &externalID, &record.Event, &record.Status, &payloadJSON, &errorMessage, &record.Attempt, &record.CreatedAt)
	if err != nil {
		return nil, err
	}

	record.ExternalID = externalID.String
	record.ErrorMessage = errorMessage.String
	if len(payloadJSON) > 0 {
		if err := json.Unmarshal(payloadJSON, &record.Payload); err != nil {
			return nil, err
		}
	}

	return &record, nil
}
