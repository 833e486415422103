package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"calendar_quiz_funnel/internal/domain/quiz"
	"calendar_quiz_funnel/internal/domain/user"
)

// Custom errors
var ErrUserNotFound = fmt.Errorf("user not found")

type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// Upsert creates or updates the record keyed by u.Email. The ON CONFLICT
// clause keeps the table free of duplicate emails regardless of races
// between concurrent sessions for the same address.
func (r *PostgresUserRepository) Upsert(ctx context.Context, u *user.User) error {
	answersJSON, err := marshalAnswers(u.Answers)
	if err != nil {
		return fmt.Errorf("error encoding answers for %s: %w", u.Email, err)
	}

	query := `INSERT INTO emails (email, paid, gift, calendar_template_id, answers)
               VALUES ($1, $2, $3, $4, $5)
               ON CONFLICT (email) DO UPDATE
               SET paid = EXCLUDED.paid,
                   gift = EXCLUDED.gift,
                   calendar_template_id = EXCLUDED.calendar_template_id,
                   answers = EXCLUDED.answers
               RETURNING id, created_at`

	err = r.db.QueryRowContext(ctx, query, u.Email, u.Paid, u.Gift, u.CalendarTemplateID, answersJSON).
		Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return fmt.Errorf("error upserting user %s: %w", u.Email, err)
	}
	return nil
}

func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	query := `SELECT id, email, paid, gift, calendar_template_id, answers, created_at
               FROM emails WHERE email = $1`

	u := &user.User{}
	var answersJSON []byte
	err := r.db.QueryRowContext(ctx, query, email).
		Scan(&u.ID, &u.Email, &u.Paid, &u.Gift, &u.CalendarTemplateID, &answersJSON, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("error getting user by email: %w", err)
	}

	if len(answersJSON) > 0 {
		if err := json.Unmarshal(answersJSON, &u.Answers); err != nil {
			return nil, fmt.Errorf("error decoding answers for %s: %w", email, err)
		}
	}
	return u, nil
}

func (r *PostgresUserRepository) MarkPaid(ctx context.Context, email, calendarTemplateID string, gift bool) error {
	query := `UPDATE emails
               SET paid = TRUE, gift = $2, calendar_template_id = $3
               WHERE email = $1`

	result, err := r.db.ExecContext(ctx, query, email, gift, calendarTemplateID)
	if err != nil {
		return fmt.Errorf("error marking user %s paid: %w", email, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking rows affected for %s: %w", email, err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func marshalAnswers(answers quiz.Answers) ([]byte, error) {
	if answers == nil {
		return nil, nil
	}
	return json.Marshal(answers)
}
