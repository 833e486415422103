package app

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"calendar_quiz_funnel/internal/domain/catalog"
	"calendar_quiz_funnel/internal/domain/funnel"
	"calendar_quiz_funnel/internal/domain/quiz"
	"calendar_quiz_funnel/internal/domain/user"
	idb "calendar_quiz_funnel/internal/infra/database"
	"calendar_quiz_funnel/internal/infra/sessioncache"
)

// Custom application-level errors for the funnel service
var ErrSessionNotFound = fmt.Errorf("funnel session not found")
var ErrNothingToResume = fmt.Errorf("no payment snapshot to resume from")
var ErrInvalidEmail = fmt.Errorf("email address is not valid")
var ErrAlreadyPurchased = fmt.Errorf("this email has already purchased a calendar")
var ErrUnknownQuestion = fmt.Errorf("unknown question key")
var ErrUnknownOption = fmt.Errorf("value is not one of the question's options")
var ErrQuizIncomplete = fmt.Errorf("not all questions have been answered")
var ErrUserStoreUnavailable = fmt.Errorf("user store unavailable")
var ErrAnalyzerNotWaiting = fmt.Errorf("analyzer is not waiting for acknowledgment")

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether the address matches the funnel's two-part
// local@domain.tld shape.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// AnalyzerTiming controls the analyzing screen's timers. Tests shrink these
// to drive the runner quickly.
type AnalyzerTiming struct {
	TickInterval  time.Duration
	Step          float64
	PauseDwell    time.Duration
	PhaseInterval time.Duration
	CompleteDelay time.Duration
}

func DefaultAnalyzerTiming() AnalyzerTiming {
	return AnalyzerTiming{
		TickInterval:  20 * time.Millisecond,
		Step:          funnel.DefaultStep,
		PauseDwell:    2 * time.Second,
		PhaseInterval: 800 * time.Millisecond,
		CompleteDelay: 500 * time.Millisecond,
	}
}

// FunnelService drives the funnel state machine: question sequencing, email
// capture with the duplicate-paid veto, the scoring boundary, the analyzing
// screen and payment-success resumption.
type FunnelService struct {
	users   user.Repository
	matcher *catalog.Matcher
	store   *sessioncache.Store
	logger  *logrus.Logger

	// Timing is read when a session enters the analyzing step.
	Timing AnalyzerTiming

	mu      sync.Mutex
	runners map[string]context.CancelFunc
}

func NewFunnelService(
	users user.Repository,
	matcher *catalog.Matcher,
	store *sessioncache.Store,
	logger *logrus.Logger,
) *FunnelService {
	return &FunnelService{
		users:   users,
		matcher: matcher,
		store:   store,
		logger:  logger,
		Timing:  DefaultAnalyzerTiming(),
		runners: make(map[string]context.CancelFunc),
	}
}

// Start creates a fresh session positioned at the first question.
func (s *FunnelService) Start() *funnel.Session {
	sess := funnel.NewSession(uuid.NewString())
	s.store.SaveSession(sess)
	s.logger.Infof("Funnel session %s started", sess.ID)
	return sess
}

// Get returns the live session with the given id.
func (s *FunnelService) Get(id string) (*funnel.Session, error) {
	sess, ok := s.store.GetSession(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// SubmitAnswer records one option choice and advances to the next screen.
// The key must be the question asked at the session's current step and the
// value one of that question's four options.
func (s *FunnelService) SubmitAnswer(id string, key quiz.Key, value string) (*funnel.Session, error) {
	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	question, ok := quiz.ByKey(key)
	if !ok {
		return nil, ErrUnknownQuestion
	}
	if !question.HasOption(value) {
		return nil, ErrUnknownOption
	}

	sess.Lock()
	defer sess.Unlock()
	if err := sess.Apply(funnel.AnswerSubmitted{Key: key, Value: value}); err != nil {
		return nil, err
	}
	return sess, nil
}

// SubmitEmail is the email-capture transition. A syntactically invalid email
// or an existing paid record vetoes it; otherwise the scoring engine fixes
// the session's template (exactly once), the user store gets an upsert and
// the session advances to the analyzing screen.
func (s *FunnelService) SubmitEmail(ctx context.Context, id, email string) (*funnel.Session, error) {
	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	email = strings.TrimSpace(email)
	if !ValidEmail(email) {
		return nil, ErrInvalidEmail
	}

	sess.Lock()
	defer sess.Unlock()

	if sess.Step != funnel.StepEmailCapture {
		return nil, fmt.Errorf("%w: EMAIL_SUBMITTED at %s", funnel.ErrInvalidTransition, sess.Step)
	}
	if !sess.Answers.Complete() {
		return nil, ErrQuizIncomplete
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil && err != idb.ErrUserNotFound {
		// If the existence check itself fails we cannot rule out a prior
		// purchase, so the transition is vetoed rather than optimistic.
		s.logger.Errorf("Duplicate-purchase check failed for %s: %v", email, err)
		return nil, fmt.Errorf("%w: %v", ErrUserStoreUnavailable, err)
	}
	if existing != nil && existing.Paid {
		s.logger.Infof("Email capture blocked for %s: already purchased", email)
		return nil, ErrAlreadyPurchased
	}

	// Scoring happens exactly once per session, here at the email-capture
	// boundary. The template is never recomputed afterward.
	template := s.matcher.Select(sess.Answers)
	sess.TemplateID = template.ID
	s.logger.Infof("Session %s scored to template %s (%s)", sess.ID, template.Type, template.ID)

	record := &user.User{
		Email:              email,
		Paid:               false,
		CalendarTemplateID: sql.NullString{String: template.ID, Valid: true},
		Answers:            sess.Answers.Clone(),
	}
	if err := s.users.Upsert(ctx, record); err != nil {
		// The user can still pay; the confirmation write reconciles later.
		s.logger.Errorf("Failed to upsert user %s: %v", email, err)
	}

	s.store.SaveSnapshot(sess.ID, sessioncache.Snapshot{
		Email:              email,
		CalendarTemplateID: template.ID,
	})

	if err := sess.Apply(funnel.EmailSubmitted{Email: email}); err != nil {
		return nil, err
	}
	s.startAnalyzer(sess)
	return sess, nil
}

// AcknowledgeAnalyzer clears the 90% gate on the analyzing screen.
func (s *FunnelService) AcknowledgeAnalyzer(id string) (*funnel.Session, error) {
	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()
	if sess.Analyzer == nil {
		return nil, ErrAnalyzerNotWaiting
	}
	if err := sess.Analyzer.Acknowledge(); err != nil {
		return nil, ErrAnalyzerNotWaiting
	}
	return sess, nil
}

// Resume is the direct-entry path after an external payment redirect: the
// session jumps straight to confirmation, reconstituting email and template
// id from the snapshot cache. Scoring is not re-run. The paid-marking write
// is optimistic; the webhook and the reconciliation sweeper back it up.
func (s *FunnelService) Resume(ctx context.Context, id string) (*funnel.Session, error) {
	snap, ok := s.store.GetSnapshot(id)
	if !ok || snap.Email == "" {
		return nil, ErrNothingToResume
	}

	sess, ok := s.store.GetSession(id)
	if !ok {
		// The in-memory session did not survive; rebuild just enough of it
		// to show the confirmation screen.
		sess = funnel.NewSession(id)
		s.store.SaveSession(sess)
	}
	s.stopAnalyzer(id)

	sess.Lock()
	sess.Email = snap.Email
	sess.TemplateID = snap.CalendarTemplateID
	if err := sess.Apply(funnel.PaymentResumed{}); err != nil {
		sess.Unlock()
		return nil, err
	}
	sess.Unlock()

	snap.Paid = true
	s.store.SaveSnapshot(id, snap)

	if snap.CalendarTemplateID != "" {
		if err := s.users.MarkPaid(ctx, snap.Email, snap.CalendarTemplateID, false); err != nil {
			s.logger.Errorf("Optimistic paid-marking failed for %s on resume: %v", snap.Email, err)
		}
	}
	s.logger.Infof("Session %s resumed to confirmation for %s", id, snap.Email)
	return sess, nil
}

// Reset destroys the session and its snapshot. Snapshots survive everything
// except this explicit reset.
func (s *FunnelService) Reset(id string) {
	s.stopAnalyzer(id)
	s.store.Reset(id)
}

// Close cancels every running analyzer. Called on shutdown.
func (s *FunnelService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, cancel := range s.runners {
		cancel()
		delete(s.runners, id)
	}
}

func (s *FunnelService) startAnalyzer(sess *funnel.Session) {
	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.runners[sess.ID] = cancel
	s.mu.Unlock()
	go s.runAnalyzer(ctx, sess)
}

func (s *FunnelService) stopAnalyzer(id string) {
	s.mu.Lock()
	if cancel, ok := s.runners[id]; ok {
		cancel()
		delete(s.runners, id)
	}
	s.mu.Unlock()
}

// runAnalyzer drives the analyzing screen in real time: a progress ticker
// and an independent phase-text ticker, both stopped when the state is
// exited so no tick leaks into a later step. Timed checkpoints resume after
// a dwell; the 90% checkpoint waits for the user's acknowledgment. Reaching
// 100% fires the autonomous Analyzing -> Paywall transition.
func (s *FunnelService) runAnalyzer(ctx context.Context, sess *funnel.Session) {
	progress := time.NewTicker(s.Timing.TickInterval)
	phases := time.NewTicker(s.Timing.PhaseInterval)
	defer progress.Stop()
	defer phases.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-phases.C:
			sess.Lock()
			if sess.Analyzer != nil {
				sess.Analyzer.RotatePhase()
			}
			sess.Unlock()

		case <-progress.C:
			sess.Lock()
			if sess.Analyzer == nil {
				sess.Unlock()
				return
			}
			checkpoint := sess.Analyzer.Advance(s.Timing.Step)
			sess.Unlock()

			switch checkpoint {
			case funnel.CheckpointEarly, funnel.CheckpointLate:
				dwell := time.AfterFunc(s.Timing.PauseDwell, func() {
					sess.Lock()
					if sess.Analyzer != nil {
						sess.Analyzer.Resume()
					}
					sess.Unlock()
				})
				defer dwell.Stop()

			case funnel.CheckpointDone:
				select {
				case <-ctx.Done():
					return
				case <-time.After(s.Timing.CompleteDelay):
				}
				sess.Lock()
				err := sess.Apply(funnel.AnalysisCompleted{})
				sess.Unlock()
				if err != nil {
					s.logger.Errorf("Session %s could not leave the analyzing step: %v", sess.ID, err)
				} else {
					s.logger.Infof("Session %s analysis complete, at paywall", sess.ID)
				}
				s.stopAnalyzer(sess.ID)
				return
			}
		}
	}
}
