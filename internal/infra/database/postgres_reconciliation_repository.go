package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"calendar_quiz_funnel/internal/domain/payment"
)

var ErrReconciliationNotFound = fmt.Errorf("pending reconciliation not found")

// PostgresReconciliationRepository stores the retry queue for confirmation
// writes that failed after a financially completed payment.
type PostgresReconciliationRepository struct {
	db *sql.DB
}

func NewPostgresReconciliationRepository(db *sql.DB) *PostgresReconciliationRepository {
	return &PostgresReconciliationRepository{db: db}
}

// Enqueue inserts a pending write. (provider_ref, email) is unique, so a
// retried webhook delivery cannot queue the same write twice.
func (r *PostgresReconciliationRepository) Enqueue(ctx context.Context, p *payment.PendingReconciliation) error {
	answersJSON, err := marshalAnswers(p.Answers)
	if err != nil {
		return fmt.Errorf("error encoding answers for reconciliation of %s: %w", p.Email, err)
	}

	query := `INSERT INTO pending_reconciliations (provider_ref, email, calendar_template_id, gift, answers)
               VALUES ($1, $2, $3, $4, $5)
               ON CONFLICT (provider_ref, email) DO NOTHING
               RETURNING id, created_at`

	err = r.db.QueryRowContext(ctx, query, p.ProviderRef, p.Email, p.TemplateID, p.Gift, answersJSON).
		Scan(&p.ID, &p.CreatedAt)
	if err == sql.ErrNoRows {
		// Already queued by an earlier delivery of the same signal.
		return nil
	}
	if err != nil {
		return fmt.Errorf("error enqueueing reconciliation for %s: %w", p.Email, err)
	}
	return nil
}

func (r *PostgresReconciliationRepository) ListDue(ctx context.Context, limit int) ([]*payment.PendingReconciliation, error) {
	query := `SELECT id, provider_ref, email, calendar_template_id, gift, answers, attempts, created_at
               FROM pending_reconciliations
               ORDER BY created_at
               LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing pending reconciliations: %w", err)
	}
	defer rows.Close()

	pending := make([]*payment.PendingReconciliation, 0)
	for rows.Next() {
		p := &payment.PendingReconciliation{}
		var answersJSON []byte
		if err := rows.Scan(&p.ID, &p.ProviderRef, &p.Email, &p.TemplateID, &p.Gift, &answersJSON, &p.Attempts, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning pending reconciliation: %w", err)
		}
		if len(answersJSON) > 0 {
			if err := json.Unmarshal(answersJSON, &p.Answers); err != nil {
				return nil, fmt.Errorf("error decoding answers for reconciliation %d: %w", p.ID, err)
			}
		}
		pending = append(pending, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending reconciliations: %w", err)
	}
	return pending, nil
}

func (r *PostgresReconciliationRepository) MarkDone(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM pending_reconciliations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting reconciliation %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking rows affected for reconciliation %d: %w", id, err)
	}
	if affected == 0 {
		return ErrReconciliationNotFound
	}
	return nil
}

func (r *PostgresReconciliationRepository) MarkAttempt(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE pending_reconciliations SET attempts = attempts + 1, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error recording reconciliation attempt for %d: %w", id, err)
	}
	return nil
}
