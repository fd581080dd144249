package service

import (
	"context"

	"golang-stock-advisor/pkg/common"
	"golang-stock-advisor/pkg/logger"
	"golang-stock-advisor/pkg/utils"

	"github.com/robfig/cron/v3"
)

// Job schedules, weekdays in Tokyo exchange time. The survival, entry and
// exit jobs fire every minute inside their window.
var jobSchedules = map[string]string{
	common.JobCandidateScan: "50 14 * * 1-5",
	common.JobSurvivalTest:  "0-15 15 * * 1-5",
	common.JobEntrySignal:   "5-14 15 * * 1-5",
	common.JobExitSignal:    "0-30 9 * * 1-5",
}

// CronScheduler owns the recurring intraday job firings. Each job runs with
// at most one instance; an overlapping firing is skipped, which also
// coalesces late-running windows into a single run.
type CronScheduler interface {
	Start() error
	Stop() context.Context
}

type cronScheduler struct {
	log      *logger.Logger
	intraday IntradayService
	cron     *cron.Cron
}

// NewCronScheduler creates the scheduler with all four intraday jobs
// registered.
func NewCronScheduler(log *logger.Logger, intraday IntradayService) CronScheduler {
	c := cron.New(
		cron.WithLocation(utils.JST()),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	return &cronScheduler{
		log:      log,
		intraday: intraday,
		cron:     c,
	}
}

func (s *cronScheduler) Start() error {
	for _, name := range s.intraday.JobNames() {
		spec, ok := jobSchedules[name]
		if !ok {
			continue
		}
		jobName := name
		_, err := s.cron.AddFunc(spec, func() {
			ctx := context.Background()
			message, err := s.intraday.RunJob(ctx, jobName)
			if err != nil {
				s.log.ErrorContext(ctx, "Intraday job failed", logger.StringField("job", jobName), logger.ErrorField(err))
				return
			}
			s.log.InfoContext(ctx, "Intraday job finished", logger.StringField("job", jobName), logger.StringField("result", message))
		})
		if err != nil {
			return err
		}
		s.log.Info("Intraday job registered", logger.StringField("job", jobName), logger.StringField("schedule", spec))
	}

	s.cron.Start()
	return nil
}

// Stop prevents new firings and returns a context that completes when the
// in-flight jobs have finished.
func (s *cronScheduler) Stop() context.Context {
	return s.cron.Stop()
}
