package processor

import (
	"context"

	"productcatalog/catalog-worker-service/internal/app/catalog-worker/service"
	"productcatalog/pkg/logger"

	"github.com/robfig/cron/v3"
)

// cronLogger направляет сообщения планировщика в zerolog
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

// CronScheduler запускает периодическую проверку остатков.
// Расписание с секундами: "0 */5 * * * *" - каждые 5 минут
type CronScheduler struct {
	cron     *cron.Cron
	stockSvc service.StockServiceInterface
}

func NewCronScheduler(stockSvc service.StockServiceInterface) *CronScheduler {
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLogger(cronLogger{}),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{})),
	)

	return &CronScheduler{
		cron:     c,
		stockSvc: stockSvc,
	}
}

func (s *CronScheduler) Start(ctx context.Context, schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.scan(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	logger.Info().Str("schedule", schedule).Msg("Cron scheduler started")

	// Первая проверка сразу, чтобы метрика и снимок не ждали расписания
	s.scan(ctx)

	return nil
}

func (s *CronScheduler) scan(ctx context.Context) {
	if _, err := s.stockSvc.ScanLowStock(ctx); err != nil {
		logger.Error().Err(err).Msg("Low stock scan failed")
	}
}

func (s *CronScheduler) Stop() {
	logger.Info().Msg("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info().Msg("Cron scheduler stopped")
}

func (s *CronScheduler) GetEntries() []cron.Entry {
	return s.cron.Entries()
}
