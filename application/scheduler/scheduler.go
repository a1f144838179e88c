// application/scheduler/scheduler.go
package scheduler

import (
	"context"
	"sync"
	"time"

	"london-hotel-monitor-bot/pkg/logger"
)

const (
	defaultTick       = 30 * time.Second
	defaultJobTimeout = 30 * time.Minute
)

// Schedule определяет расписание задачи
type Schedule struct {
	// DailyAt: задача запускается раз в день в заданное UTC время
	// Every: задача запускается с заданным интервалом
	kind     scheduleKind
	hour     int
	minute   int
	interval time.Duration
}

type scheduleKind int

const (
	kindDaily    scheduleKind = iota // раз в сутки в HH:MM UTC
	kindInterval                     // каждые N единиц времени
)

// DailyAt создает расписание "каждый день в HH:MM UTC"
func DailyAt(hour, minute int) Schedule {
	return Schedule{kind: kindDaily, hour: hour, minute: minute}
}

// Every создает расписание "каждые N времени"
func Every(d time.Duration) Schedule {
	return Schedule{kind: kindInterval, interval: d}
}

// nextRun вычисляет время следующего запуска относительно now
func (s Schedule) nextRun(now time.Time) time.Time {
	switch s.kind {
	case kindDaily:
		next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, s.minute, 0, 0, time.UTC)
		if !next.After(now) {
			next = next.Add(24 * time.Hour)
		}
		return next
	case kindInterval:
		return now.Add(s.interval)
	default:
		return now.Add(24 * time.Hour)
	}
}

// Job описывает одну планируемую задачу
type Job struct {
	Name        string
	Description string
	Schedule    Schedule
	// RunOnStart запускает задачу при первом тике, не дожидаясь расписания
	RunOnStart bool
	Handler    func(ctx context.Context) error

	mu      sync.Mutex
	nextRun time.Time
	lastRun time.Time
	lastErr error
	runs    int
	running bool
}

// Status возвращает текущее состояние задачи
func (j *Job) Status() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return JobStatus{
		Name:        j.Name,
		Description: j.Description,
		NextRun:     j.nextRun,
		LastRun:     j.lastRun,
		LastErr:     j.lastErr,
		Runs:        j.runs,
		Running:     j.running,
	}
}

// JobStatus снапшот состояния задачи
type JobStatus struct {
	Name        string
	Description string
	NextRun     time.Time
	LastRun     time.Time
	LastErr     error
	Runs        int
	Running     bool
}

// Option настройка планировщика
type Option func(*Scheduler)

// WithTick задает период проверки расписания
func WithTick(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.tickEvery = d
		}
	}
}

// WithJobTimeout ограничивает время одного запуска
func WithJobTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.jobTimeout = d
		}
	}
}

// WithClock подменяет часы (для тестов)
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// Scheduler управляет периодическими задачами приложения
type Scheduler struct {
	jobs       []*Job
	mu         sync.RWMutex
	tickEvery  time.Duration
	jobTimeout time.Duration
	now        func() time.Time

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New создает новый планировщик
func New(opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		tickEvery:  defaultTick,
		jobTimeout: defaultJobTimeout,
		now:        time.Now,
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register добавляет задачу в планировщик.
// Должен вызываться до Start().
func (s *Scheduler) Register(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	if job.RunOnStart {
		job.nextRun = now
	} else {
		job.nextRun = job.Schedule.nextRun(now)
	}
	s.jobs = append(s.jobs, job)

	logger.Info("📋 [Scheduler] Registered job %q, first run at %s",
		job.Name, job.nextRun.Format("2006-01-02 15:04:05 UTC"))
}

// Start запускает цикл планировщика в фоновой горутине
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()

	s.mu.RLock()
	n := len(s.jobs)
	s.mu.RUnlock()
	logger.Info("✅ [Scheduler] Started (%d jobs)", n)
}

// Stop отменяет текущие задачи и ждет их завершения
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		s.wg.Wait()
		logger.Info("🛑 [Scheduler] Stopped")
	})
}

// Jobs возвращает статус всех задач
func (s *Scheduler) Jobs() []JobStatus {
	s.mu.RLock()
	jobs := make([]*Job, len(s.jobs))
	copy(jobs, s.jobs)
	s.mu.RUnlock()

	statuses := make([]JobStatus, len(jobs))
	for i, j := range jobs {
		statuses[i] = j.Status()
	}
	return statuses
}

// loop основной цикл: на каждом тике запускает задачи, у которых наступило время
func (s *Scheduler) loop() {
	ticker := time.NewTicker(s.tickEvery)
	defer ticker.Stop()

	s.tick()

	for {
		select {
		case <-ticker.C:
			s.tick()
		case <-s.ctx.Done():
			return
		}
	}
}

// tick запускает просроченные задачи; задача, которая еще выполняется, пропускается
func (s *Scheduler) tick() {
	now := s.now().UTC()

	s.mu.RLock()
	jobs := make([]*Job, len(s.jobs))
	copy(jobs, s.jobs)
	s.mu.RUnlock()

	for _, job := range jobs {
		job.mu.Lock()
		due := !job.running && !now.Before(job.nextRun)
		if due {
			job.running = true
		}
		job.mu.Unlock()

		if due {
			s.wg.Add(1)
			go s.run(job)
		}
	}
}

// run выполняет одну задачу и обновляет ее состояние
func (s *Scheduler) run(job *Job) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(s.ctx, s.jobTimeout)
	defer cancel()

	logger.Info("▶️  [Scheduler] Running job %q", job.Name)
	start := s.now()

	err := job.Handler(ctx)

	elapsed := s.now().Sub(start)

	job.mu.Lock()
	job.lastRun = start
	job.lastErr = err
	job.runs++
	job.running = false
	job.nextRun = job.Schedule.nextRun(s.now().UTC())
	nextRun := job.nextRun
	job.mu.Unlock()

	if err != nil {
		logger.Error("❌ [Scheduler] Job %q failed after %v: %v", job.Name, elapsed, err)
	} else {
		logger.Info("✅ [Scheduler] Job %q done in %v. Next run: %s",
			job.Name, elapsed, nextRun.Format("2006-01-02 15:04:05 UTC"))
	}
}
