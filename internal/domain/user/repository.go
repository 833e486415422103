package user

import "context"

// Repository defines the operations the funnel needs from the user store.
type Repository interface {
	// Upsert creates or updates the record for u.Email. It never duplicates
	// a row by email.
	Upsert(ctx context.Context, u *User) error
	// FindByEmail returns the record for the given email, or the store's
	// not-found sentinel.
	FindByEmail(ctx context.Context, email string) (*User, error)
	// MarkPaid sets the paid flag, gift flag and resolved template on an
	// existing record.
	MarkPaid(ctx context.Context, email, calendarTemplateID string, gift bool) error
}
