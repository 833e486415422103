package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Reconciler replays confirmation writes that failed after a completed
// payment. Implemented by the payment service.
type Reconciler interface {
	RetryPending(ctx context.Context) error
}

// ReconciliationSweeper periodically drains the pending-reconciliation
// queue so a confirmed payment never stays unmarked just because the user
// store hiccuped at webhook time.
type ReconciliationSweeper struct {
	cronEngine *cron.Cron
	reconciler Reconciler
	logger     *logrus.Logger
	cronSpec   string
}

func NewReconciliationSweeper(reconciler Reconciler, logger *logrus.Logger, cronSpec string) *ReconciliationSweeper {
	return &ReconciliationSweeper{
		cronEngine: cron.New(cron.WithLocation(time.Local)),
		reconciler: reconciler,
		logger:     logger,
		cronSpec:   cronSpec,
	}
}

func (s *ReconciliationSweeper) Start() {
	s.logger.Info("Starting reconciliation sweeper...")

	_, err := s.cronEngine.AddFunc(s.cronSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		if err := s.reconciler.RetryPending(ctx); err != nil {
			s.logger.Errorf("Reconciliation sweep failed: %v", err)
		}
	})
	if err != nil {
		s.logger.Fatalf("Could not add reconciliation sweep cron job: %v", err)
	}

	s.cronEngine.Start()
	s.logger.Infof("Reconciliation sweeper started (spec %q)", s.cronSpec)
}

func (s *ReconciliationSweeper) Stop() {
	s.logger.Info("Stopping reconciliation sweeper...")
	ctx := s.cronEngine.Stop() // Waits for a running sweep to finish.
	<-ctx.Done()
	s.logger.Info("Reconciliation sweeper stopped.")
}
