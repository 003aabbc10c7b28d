// Package scheduler runs the portfolio report on a cron schedule and answers
// chat commands.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/mdc5017/QuantFinanceCourse/internal/pipeline"
	"github.com/mdc5017/QuantFinanceCourse/internal/report"
)

// Notifier delivers messages and charts.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
	SendPhoto(ctx context.Context, caption string, png []byte) error
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron     *cron.Cron
	Pipeline *pipeline.Pipeline
	Notifier Notifier
	Ctx      context.Context
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, p *pipeline.Pipeline, n Notifier) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Pipeline: p,
		Notifier: n,
		Ctx:      ctx,
	}
}

// RegisterAll registers the portfolio report task.
func (s *Scheduler) RegisterAll(reportCron string) error {
	if _, err := s.Cron.AddFunc(reportCron, s.reportTask); err != nil {
		return fmt.Errorf("register report task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunReportNow executes the report task immediately.
func (s *Scheduler) RunReportNow() {
	s.reportTask()
}

func (s *Scheduler) reportTask() {
	log.Println("[INFO] running portfolio report")
	res, err := s.Pipeline.Run(s.Ctx)
	if err != nil {
		log.Printf("[ERROR] portfolio report: %v", err)
		s.trySend(fmt.Sprintf("❌ Portfolio report failed: %v", err))
		return
	}
	s.trySend(report.FormatPortfolioHTML(res.Optimal, len(res.Samples), res.Elapsed))

	photos := []struct {
		caption string
		render  func() ([]byte, error)
	}{
		{"Optimal weights", func() ([]byte, error) { return report.WeightsChart(res.Optimal) }},
		{"Random portfolios and the optimum", func() ([]byte, error) { return report.FrontierChart(res.Samples, res.Optimal) }},
	}
	for _, p := range photos {
		png, err := p.render()
		if err != nil {
			log.Printf("[WARN] %s chart: %v", p.caption, err)
			continue
		}
		if err := s.Notifier.SendPhoto(s.Ctx, p.caption, png); err != nil {
			log.Printf("[ERROR] send %s chart: %v", p.caption, err)
		}
	}
}

func (s *Scheduler) varReport() string {
	r, err := s.Pipeline.RunVaR(s.Ctx)
	if err != nil {
		log.Printf("[ERROR] var report: %v", err)
		return fmt.Sprintf("❌ VaR failed: %v", err)
	}
	return report.FormatVaRHTML(*r)
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	// "/optimize@MyBot" is how Telegram addresses commands in groups
	name, _, _ := strings.Cut(fields[0], "@")
	switch name {
	case "/optimize", "/report":
		s.reportTask()
		return ""
	case "/var":
		return s.varReport()
	case "/symbols":
		return "Portfolio: " + strings.Join(s.Pipeline.Settings.Symbols, ", ")
	default:
		return helpText
	}
}

const helpText = "Available commands:\n• /optimize - run the Markowitz report\n• /var - value at risk of the tracked position\n• /symbols - list portfolio symbols"

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
