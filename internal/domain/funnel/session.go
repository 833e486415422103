package funnel

import (
	"fmt"
	"sync"
	"time"

	"calendar_quiz_funnel/internal/domain/quiz"
)

// Session is the transient per-user progression through the funnel. It lives
// in process memory only; the durable bits (email, paid flag, template id)
// are persisted through the user store and the snapshot cache.
type Session struct {
	mu sync.Mutex

	ID          string
	Step        Step
	Answers     quiz.Answers
	Email       string
	TemplateID  string
	FriendEmail string
	Paid        bool
	CreatedAt   time.Time

	// Analyzer exists only while the session is in StepAnalyzing.
	Analyzer *Analyzer
}

// NewSession returns a fresh session positioned at the first question.
func NewSession(id string) *Session {
	return &Session{
		ID:        id,
		Step:      StepQuestion1,
		Answers:   make(quiz.Answers),
		CreatedAt: time.Now(),
	}
}

// Lock takes the session's own mutex. The funnel is a single logical flow
// per user, but the analyzer runner advances the session from a goroutine,
// so mutations go through here.
func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// Apply runs the event through Transition and, on success, folds the
// event's payload into the session. Callers hold the session lock.
func (s *Session) Apply(event Event) error {
	next, err := Transition(s.Step, event)
	if err != nil {
		return err
	}

	switch e := event.(type) {
	case AnswerSubmitted:
		key, _ := s.Step.QuestionKey()
		if e.Key != key {
			return fmt.Errorf("%w: expected answer for %q, got %q", ErrInvalidTransition, key, e.Key)
		}
		s.Answers[e.Key] = e.Value
	case EmailSubmitted:
		s.Email = e.Email
		s.Analyzer = NewAnalyzer()
	case AnalysisCompleted:
		s.Analyzer = nil
	case PaymentSucceeded, PaymentResumed:
		s.Paid = true
		s.Analyzer = nil
	}

	s.Step = next
	return nil
}
