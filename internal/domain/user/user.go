package user

import (
	"database/sql"
	"time"

	"calendar_quiz_funnel/internal/domain/quiz"
)

// User is the durable purchaser/recipient record, keyed by email.
// Corresponds to the 'emails' table.
type User struct {
	ID                 int64
	Email              string
	Paid               bool
	Gift               bool
	CalendarTemplateID sql.NullString
	Answers            quiz.Answers
	CreatedAt          time.Time
}
