package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"bymarket/adradar/config"
	"bymarket/adradar/internal/extractor"
	"bymarket/adradar/internal/storage"
	"bymarket/adradar/logger"
	apperrors "bymarket/adradar/pkg/errors"
	"bymarket/adradar/services/notifier"
)

// Resolver resolves a platform identifier to its extractor.
// Satisfied by *extractor.Registry.
type Resolver interface {
	Lookup(platform extractor.Platform) (extractor.Extractor, bool)
}

// Scheduler drives repeated polling cycles over all active tracked
// queries. Only one cycle runs at a time; a tick that fires while a
// cycle is still in flight is skipped entirely with a warning.
type Scheduler struct {
	gateway  storage.Gateway
	resolver Resolver
	notifier notifier.Notifier
	log      *logger.Logger

	interval    time.Duration
	batchSize   int
	threshold   int
	notifyCap   int
	batchPause  time.Duration
	notifyPause time.Duration

	cron *cron.Cron
	wg   sync.WaitGroup
}

// New creates a scheduler from the runtime configuration.
func New(gateway storage.Gateway, resolver Resolver, nt notifier.Notifier, cfg config.Config) *Scheduler {
	return &Scheduler{
		gateway:     gateway,
		resolver:    resolver,
		notifier:    nt,
		log:         logger.ForScheduler(),
		interval:    cfg.PollInterval,
		batchSize:   cfg.BatchSize,
		threshold:   cfg.DeactivationThreshold,
		notifyCap:   cfg.NotifyCap,
		batchPause:  time.Second,
		notifyPause: cfg.NotifyPause,
	}
}

// Start registers the cycle job and starts the timer. One cycle runs
// immediately so a restart does not wait a full interval; it goes
// through the same skip-if-still-running wrapper as the ticks, so the
// first tick firing mid-bootstrap is skipped instead of overlapping.
func (s *Scheduler) Start(ctx context.Context) error {
	s.cron = cron.New()

	job := cron.NewChain(cron.SkipIfStillRunning(cronLogger{log: s.log})).
		Then(cron.FuncJob(func() { s.runCycleLogged(ctx) }))

	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddJob(spec, job); err != nil {
		return fmt.Errorf("cron.AddJob: %w", err)
	}

	s.cron.Start()
	s.log.Info().Str("spec", spec).Msg("Polling scheduler started")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		job.Run()
	}()
	return nil
}

// Stop stops the timer and returns a context that is done once every
// in-flight cycle, the bootstrap run included, has finished.
func (s *Scheduler) Stop() context.Context {
	s.log.Info().Msg("Polling scheduler stopping")
	ctx, cancel := context.WithCancel(context.Background())
	if s.cron == nil {
		cancel()
		return ctx
	}

	cronCtx := s.cron.Stop()
	go func() {
		defer cancel()
		<-cronCtx.Done()
		s.wg.Wait()
	}()
	return ctx
}

func (s *Scheduler) runCycleLogged(ctx context.Context) {
	start := time.Now()
	if err := s.RunCycle(ctx); err != nil {
		// Persistence unavailable: the whole cycle is aborted and the
		// next tick retries from scratch.
		s.log.Error().Err(err).Msg("Polling cycle aborted")
		return
	}
	s.log.Debug().Dur("elapsed", time.Since(start)).Msg("Polling cycle finished")
}

// RunCycle executes one polling cycle over all active tracked queries.
// Queries run in fixed-size concurrent batches with a pause between
// batches, bounding peak outbound connections to the batch size. No
// per-query failure ever escapes the cycle.
func (s *Scheduler) RunCycle(ctx context.Context) error {
	queries, err := s.gateway.ListActiveQueries(ctx)
	if err != nil {
		return apperrors.NewPersistence("load active queries", err)
	}
	if len(queries) == 0 {
		return nil
	}

	s.log.Info().Int("queries", len(queries)).Msg("Polling cycle started")

	for start := 0; start < len(queries); start += s.batchSize {
		end := start + s.batchSize
		if end > len(queries) {
			end = len(queries)
		}

		s.runBatch(ctx, queries[start:end])

		if end < len(queries) {
			if !s.sleep(ctx, s.batchPause) {
				return nil
			}
		}
	}

	// Bound the notification backlog after every cycle.
	if err := s.notifier.TrimStream(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to trim notification stream")
	}
	return nil
}

// runBatch polls every query in the batch concurrently and waits for
// all of them to finish, success or failure, independently.
func (s *Scheduler) runBatch(ctx context.Context, batch []storage.TrackedQuery) {
	done := make(chan struct{})
	for _, q := range batch {
		go func(q storage.TrackedQuery) {
			defer func() { done <- struct{}{} }()
			s.pollQuery(ctx, q)
		}(q)
	}
	for range batch {
		<-done
	}
}

// pollQuery runs one extraction for one tracked query and applies the
// success or failure bookkeeping.
func (s *Scheduler) pollQuery(ctx context.Context, q storage.TrackedQuery) {
	ext, ok := s.resolver.Lookup(q.Platform)
	if !ok {
		s.recordFailure(ctx, q, apperrors.NewValidation(string(q.Platform), "no extractor registered").WithQuery(q.ID))
		return
	}

	ads, err := ext.Extract(ctx, q.URL)
	if err != nil {
		s.recordFailure(ctx, q, err)
		return
	}

	if err := s.gateway.RecordPoll(ctx, q.ID); err != nil {
		s.log.Error().Err(err).Int64("query_id", q.ID).Msg("Failed to record poll")
	}
	if q.FailureCount > 0 {
		if err := s.gateway.ResetFailures(ctx, q.ID); err != nil {
			s.log.Error().Err(err).Int64("query_id", q.ID).Msg("Failed to reset failure counter")
		}
	}

	// Zero extracted records is a perfectly successful poll.
	if len(ads) == 0 {
		return
	}

	var fresh []storage.PersistedAd
	for _, ad := range ads {
		inserted, persisted, err := s.gateway.InsertAdIfAbsent(ctx, q.ID, ad)
		if err != nil {
			s.log.Error().Err(err).
				Int64("query_id", q.ID).
				Str("external_id", ad.ExternalID).
				Msg("Failed to persist ad")
			continue
		}
		if inserted {
			fresh = append(fresh, *persisted)
		}
	}
	if len(fresh) == 0 {
		return
	}

	s.deliver(ctx, q, selectForDelivery(fresh, s.notifyCap))
}

// deliver hands the selected records to the notification collaborator,
// pausing between deliveries so the transport does not collapse rapid
// messages together. Delivery failures are logged, never raised.
func (s *Scheduler) deliver(ctx context.Context, q storage.TrackedQuery, ads []storage.PersistedAd) {
	for i, ad := range ads {
		if i > 0 && !s.sleep(ctx, s.notifyPause) {
			return
		}
		if err := s.notifier.Notify(q.OwnerID, ad); err != nil {
			s.log.Warn().Err(err).
				Int64("query_id", q.ID).
				Int64("owner_id", q.OwnerID).
				Str("external_id", ad.ExternalID).
				Msg("Notification delivery failed")
		}
	}
}

// recordFailure increments the query's consecutive-failure counter and
// deactivates it at the threshold. The failure is logged with enough
// context for diagnosis and never escapes the cycle.
func (s *Scheduler) recordFailure(ctx context.Context, q storage.TrackedQuery, cause error) {
	s.log.Warn().Err(cause).
		Int64("query_id", q.ID).
		Str("platform", string(q.Platform)).
		Str("error_kind", string(apperrors.KindOf(cause))).
		Msg("Query poll failed")

	count, err := s.gateway.IncrementFailures(ctx, q.ID)
	if err != nil {
		s.log.Error().Err(err).Int64("query_id", q.ID).Msg("Failed to increment failure counter")
		return
	}
	if count >= s.threshold {
		if err := s.gateway.Deactivate(ctx, q.ID); err != nil {
			s.log.Error().Err(err).Int64("query_id", q.ID).Msg("Failed to deactivate query")
			return
		}
		s.log.Warn().
			Int64("query_id", q.ID).
			Int("failures", count).
			Msg("Query deactivated after consecutive failures")
	}
}

// selectForDelivery orders newly inserted records chronologically by
// their own publication timestamp (oldest first, records without one
// first) and caps delivery at the most recently published limit ads, so
// a long-dormant query suddenly returning many historical-looking
// results does not flood its subscriber.
func selectForDelivery(fresh []storage.PersistedAd, limit int) []storage.PersistedAd {
	sort.SliceStable(fresh, func(i, j int) bool {
		ti, tj := publishedOrZero(fresh[i]), publishedOrZero(fresh[j])
		return ti.Before(tj)
	})
	if len(fresh) > limit {
		fresh = fresh[len(fresh)-limit:]
	}
	return fresh
}

func publishedOrZero(ad storage.PersistedAd) time.Time {
	if ad.PublishedAt == nil {
		return time.Time{}
	}
	return *ad.PublishedAt
}

// sleep waits for d unless the context is cancelled first.
func (s *Scheduler) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// cronLogger adapts zerolog to the cron.Logger interface. The only Info
// message the skip wrapper emits is the skipped-tick notice, which we
// surface as a warning.
type cronLogger struct {
	log *logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Warn().Interface("details", keysAndValues).Msgf("Cycle still running, tick skipped: %s", msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error().Err(err).Interface("details", keysAndValues).Msg(msg)
}
