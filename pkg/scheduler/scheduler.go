// Package scheduler fires periodic crawls for registered sources.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sitewatch/sitewatch/internal/models"
)

const defaultCheckInterval = 60 * time.Second

const (
	day   = 24 * time.Hour
	week  = 7 * day
	month = 30 * day
)

// CrawlFunc runs one crawl for a source and reports how many documents it
// stored.
type CrawlFunc func(ctx context.Context, sourceID string) (int, error)

type Config struct {
	Crawl         CrawlFunc
	CheckInterval time.Duration
	Logger        *zap.Logger

	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

type entry struct {
	source  models.Source
	nextRun time.Time
}

// Scheduler polls registered sources on a fixed check interval and fires a
// crawl whenever one is due. Each fired crawl runs in its own goroutine so a
// slow or panicking crawl never blocks the poll loop or its neighbors. A
// source whose crawl outlasts its interval is not fired again until the
// running crawl finishes.
type Scheduler struct {
	crawl         CrawlFunc
	checkInterval time.Duration
	logger        *zap.Logger
	now           func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
	running map[string]bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(config Config) *Scheduler {
	if config.CheckInterval <= 0 {
		config.CheckInterval = defaultCheckInterval
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		crawl:         config.Crawl,
		checkInterval: config.CheckInterval,
		logger:        config.Logger,
		now:           config.Now,
		entries:       make(map[string]*entry),
		running:       make(map[string]bool),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Register adds a source to the schedule. Registering an already-known
// source updates its settings but keeps its pending fire time, so repeated
// registration never postpones a crawl.
func (s *Scheduler) Register(src *models.Source) error {
	if !src.Frequency.Valid() {
		return fmt.Errorf("register %s: unknown frequency %q", src.ID, src.Frequency)
	}
	at, err := time.Parse("15:04", src.ScheduleTime)
	if err != nil {
		return fmt.Errorf("register %s: invalid schedule time %q", src.ID, src.ScheduleTime)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[src.ID]; ok {
		e.source = *src
		return nil
	}
	s.entries[src.ID] = &entry{
		source:  *src,
		nextRun: firstRun(src.Frequency, at, s.now()),
	}
	s.logger.Info("source scheduled",
		zap.String("id", src.ID),
		zap.String("frequency", string(src.Frequency)),
		zap.Time("next_run", s.entries[src.ID].nextRun),
	)
	return nil
}

// Unregister drops a source from the schedule. Unknown IDs are ignored.
func (s *Scheduler) Unregister(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

// NextRun reports when the given source fires next.
func (s *Scheduler) NextRun(id string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return time.Time{}, false
	}
	return e.nextRun, true
}

// Len reports how many sources are registered.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Start launches the poll loop. It returns immediately.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.poll()
	s.logger.Info("scheduler started", zap.Duration("check_interval", s.checkInterval))
}

// Stop cancels the poll loop and any in-flight crawls, then waits for them.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) poll() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.fireDue()
		}
	}
}

func (s *Scheduler) fireDue() {
	now := s.now()

	s.mu.Lock()
	var due []string
	for id, e := range s.entries {
		if e.nextRun.After(now) {
			continue
		}
		// A source still crawling keeps its fire pending for a later
		// tick; at most one crawl per source is in flight.
		if s.running[id] {
			continue
		}
		due = append(due, id)
		s.running[id] = true
		// Missed ticks collapse into a single fire.
		step := interval(e.source.Frequency)
		for !e.nextRun.After(now) {
			e.nextRun = e.nextRun.Add(step)
		}
	}
	s.mu.Unlock()

	for _, id := range due {
		s.wg.Add(1)
		go s.fire(id)
	}
}

func (s *Scheduler) fire(id string) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.running, id)
		s.mu.Unlock()
	}()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled crawl panicked",
				zap.String("id", id),
				zap.Any("panic", r),
			)
		}
	}()

	count, err := s.crawl(s.ctx, id)
	if err != nil {
		s.logger.Error("scheduled crawl failed", zap.String("id", id), zap.Error(err))
		return
	}
	s.logger.Info("scheduled crawl finished",
		zap.String("id", id),
		zap.Int("documents", count),
	)
}

// firstRun picks the initial fire time. Hourly sources fire one hour after
// registration. The others fire at the next wall-clock occurrence of their
// configured time of day.
func firstRun(freq models.Frequency, at time.Time, now time.Time) time.Time {
	if freq == models.Hourly {
		return now.Add(time.Hour)
	}
	next := time.Date(now.Year(), now.Month(), now.Day(), at.Hour(), at.Minute(), 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(day)
	}
	return next
}

func interval(freq models.Frequency) time.Duration {
	switch freq {
	case models.Hourly:
		return time.Hour
	case models.Weekly:
		return week
	case models.Monthly:
		return month
	default:
		return day
	}
}
