package funnel

import (
	"fmt"

	"calendar_quiz_funnel/internal/domain/quiz"
)

// Step is the funnel's explicit position: seven question screens, email
// capture, the analyzing interstitial, the paywall and the post-payment
// confirmation screen.
type Step int

const (
	StepQuestion1 Step = iota + 1
	StepQuestion2
	StepQuestion3
	StepQuestion4
	StepQuestion5
	StepQuestion6
	StepQuestion7
	StepEmailCapture
	StepAnalyzing
	StepPaywall
	StepConfirmation
)

func (s Step) String() string {
	if idx, ok := s.QuestionIndex(); ok {
		return fmt.Sprintf("QUESTION_%d", idx)
	}
	switch s {
	case StepEmailCapture:
		return "EMAIL_CAPTURE"
	case StepAnalyzing:
		return "ANALYZING"
	case StepPaywall:
		return "PAYWALL"
	case StepConfirmation:
		return "CONFIRMATION"
	default:
		return fmt.Sprintf("UNKNOWN_STEP_%d", int(s))
	}
}

// QuestionIndex returns the 1-based question number when the step is one of
// the seven question screens.
func (s Step) QuestionIndex() (int, bool) {
	if s >= StepQuestion1 && s <= StepQuestion7 {
		return int(s), true
	}
	return 0, false
}

// QuestionKey returns the quiz key asked at this step.
func (s Step) QuestionKey() (quiz.Key, bool) {
	idx, ok := s.QuestionIndex()
	if !ok {
		return "", false
	}
	return quiz.Order[idx-1], true
}

// ErrInvalidTransition is returned when an event is not legal in the current
// step; the session state is left unchanged.
var ErrInvalidTransition = fmt.Errorf("event not valid in current funnel step")

// Event is something that can move the funnel forward.
type Event interface {
	eventName() string
}

// AnswerSubmitted records the option chosen on a question screen.
type AnswerSubmitted struct {
	Key   quiz.Key
	Value string
}

// EmailSubmitted carries a syntactically valid, duplicate-checked email past
// the capture screen. Scoring has already fixed the session template by the
// time this event is applied.
type EmailSubmitted struct {
	Email string
}

// AnalysisCompleted fires autonomously when the analyzer reaches 100%.
type AnalysisCompleted struct{}

// PaymentSucceeded is the gateway's confirmed-payment signal.
type PaymentSucceeded struct{}

// PaymentResumed is the direct-entry path: a payment-success marker detected
// on load jumps the session straight to confirmation.
type PaymentResumed struct{}

func (AnswerSubmitted) eventName() string   { return "ANSWER_SUBMITTED" }
func (EmailSubmitted) eventName() string    { return "EMAIL_SUBMITTED" }
func (AnalysisCompleted) eventName() string { return "ANALYSIS_COMPLETED" }
func (PaymentSucceeded) eventName() string  { return "PAYMENT_SUCCEEDED" }
func (PaymentResumed) eventName() string    { return "PAYMENT_RESUMED" }

// Transition is the single place funnel ordering is decided. It returns the
// next step for a legal (step, event) pair and ErrInvalidTransition for
// everything else.
func Transition(current Step, event Event) (Step, error) {
	switch event.(type) {
	case AnswerSubmitted:
		if _, ok := current.QuestionIndex(); ok {
			return current + 1, nil
		}
	case EmailSubmitted:
		if current == StepEmailCapture {
			return StepAnalyzing, nil
		}
	case AnalysisCompleted:
		if current == StepAnalyzing {
			return StepPaywall, nil
		}
	case PaymentSucceeded:
		if current == StepPaywall {
			return StepConfirmation, nil
		}
	case PaymentResumed:
		// Resumption is legal from any step: the success marker outranks
		// whatever transient progress the session held.
		return StepConfirmation, nil
	}
	return current, fmt.Errorf("%w: %s at %s", ErrInvalidTransition, event.eventName(), current)
}
