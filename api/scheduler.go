/*
scheduler.go - Periodic budget audit

PURPOSE:
  Periodically rebuilds the valued tree of every project and reports
  data-quality findings: orphan lines, lines on a parent cycle and lines
  that could not be valued (for example a deleted tax scheme).

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Read-only: findings are logged, nothing is repaired
  - Per-line warnings come from budget.Service.Tree; the scheduler adds
    one summary line per project with findings

CONFIGURATION:
  - Interval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewAuditScheduler(store, handler.Budget, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - budget/aggregate.go: Report
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yomi/budget-engine/budget"
	"github.com/yomi/budget-engine/store/sqlite"
)

// ProjectAudit is the outcome of auditing one project.
type ProjectAudit struct {
	ProjectID budget.ProjectID
	Lines     int
	Report    budget.Report
	Err       error
}

// AuditScheduler rebuilds every project's budget on a ticker.
type AuditScheduler struct {
	Store    *sqlite.Store
	Budget   *budget.Service
	Interval time.Duration
	Enabled  bool

	logger *zap.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewAuditScheduler creates a new scheduler.
func NewAuditScheduler(store *sqlite.Store, svc *budget.Service, logger *zap.Logger) *AuditScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditScheduler{
		Store:    store,
		Budget:   svc,
		Interval: time.Hour,
		Enabled:  true,
		logger:   logger.Named("audit"),
	}
}

// Start begins the scheduler.
func (as *AuditScheduler) Start() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if !as.Enabled || as.Interval <= 0 {
		as.logger.Info("budget audit disabled")
		return
	}
	if as.ticker != nil {
		return
	}

	as.ticker = time.NewTicker(as.Interval)
	as.stop = make(chan struct{})
	as.wg.Add(1)
	go as.run(as.ticker, as.stop)

	as.logger.Info("budget audit started", zap.Duration("interval", as.Interval))
}

// Stop stops the scheduler and waits for a running audit to finish.
func (as *AuditScheduler) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.ticker == nil {
		return
	}
	as.ticker.Stop()
	close(as.stop)
	as.wg.Wait()
	as.ticker = nil
	as.logger.Info("budget audit stopped")
}

func (as *AuditScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer as.wg.Done()

	// Run immediately on start
	as.RunNow(context.Background())

	for {
		select {
		case <-ticker.C:
			as.RunNow(context.Background())
		case <-stop:
			return
		}
	}
}

// RunNow audits every project once and returns the per-project results.
func (as *AuditScheduler) RunNow(ctx context.Context) []ProjectAudit {
	projects, err := as.Store.ListProjects(ctx)
	if err != nil {
		as.logger.Error("list projects", zap.Error(err))
		return nil
	}

	audits := make([]ProjectAudit, 0, len(projects))
	dirty := 0
	for _, p := range projects {
		audit := ProjectAudit{ProjectID: p.ID}
		forest, report, err := as.Budget.Tree(ctx, p.ID)
		if err != nil {
			audit.Err = err
			as.logger.Error("build budget", zap.String("project_id", string(p.ID)), zap.Error(err))
			audits = append(audits, audit)
			continue
		}
		audit.Lines = forest.Len()
		audit.Report = report
		audits = append(audits, audit)

		if report.Clean() {
			continue
		}
		dirty++
		as.logger.Warn("budget has findings",
			zap.String("project_id", string(p.ID)),
			zap.Int("lines", audit.Lines),
			zap.Int("orphans", len(report.Orphans)),
			zap.Int("unreachable", len(report.Unreachable)),
			zap.Int("failed", len(report.Failed)))
	}

	as.logger.Info("budget audit completed",
		zap.Int("projects", len(projects)),
		zap.Int("with_findings", dirty))
	return audits
}
