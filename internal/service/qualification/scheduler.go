package qualification

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
)

// Sweeper запускает один прогон квалификации
type Sweeper interface {
	Sweep(ctx context.Context) (*SweepReport, error)
}

const sweepLockKey = "qualification:sweep_lock"

const lockReleaseTimeout = 5 * time.Second

// SweepLocker захватывает блокировку прогона между экземплярами сервиса.
// Значение ключа: токен прогона, снимается блокировка только своим токеном.
type SweepLocker interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	DeleteIfEquals(ctx context.Context, key string, value string) (bool, error)
}

// Scheduler периодически запускает прогон внутри процесса.
// Внешний cron-эндпоинт продолжает работать параллельно: прогоны идемпотентны.
type Scheduler struct {
	config    *Config
	sweeper   Sweeper
	scheduler gocron.Scheduler
	locker    SweepLocker
}

// NewScheduler создает планировщик прогонов
func NewScheduler(config *Config, sweeper Sweeper) (*Scheduler, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.SweepInterval <= 0 {
		return nil, fmt.Errorf("sweep interval must be positive, got %v", config.SweepInterval)
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Scheduler{
		config:    config,
		sweeper:   sweeper,
		scheduler: sched,
	}, nil
}

// UseLock включает блокировку, чтобы несколько экземпляров не запускали прогон одновременно
func (s *Scheduler) UseLock(locker SweepLocker) {
	s.locker = locker
}

func (s *Scheduler) lockTTL() time.Duration {
	if s.config.SweepTimeout > 0 {
		return s.config.SweepTimeout
	}
	return s.config.SweepInterval
}

// Start регистрирует задачу и запускает планировщик.
// Singleton-режим не дает медленному прогону наложиться на следующий.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(s.config.SweepInterval),
		gocron.NewTask(s.runSweep),
		gocron.WithName("qualification-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule qualification sweep: %w", err)
	}
	s.scheduler.Start()
	log.Printf("[Scheduler] Прогон квалификации запланирован каждые %v", s.config.SweepInterval)
	return nil
}

// Shutdown останавливает планировщик и дожидается текущих задач
func (s *Scheduler) Shutdown() error {
	return s.scheduler.Shutdown()
}

func (s *Scheduler) runSweep() {
	ctx := context.Background()
	if s.config.SweepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.SweepTimeout)
		defer cancel()
	}

	if s.locker != nil {
		token := uuid.NewString()
		acquired, err := s.locker.SetNX(ctx, sweepLockKey, token, s.lockTTL())
		if err != nil {
			// Redis недоступен: прогоны идемпотентны, продолжаем без блокировки
			log.Printf("[Scheduler] Не удалось захватить блокировку прогона: %v", err)
		} else if !acquired {
			log.Printf("[Scheduler] Прогон уже выполняется другим экземпляром, пропуск")
			return
		} else {
			defer s.releaseLock(token)
		}
	}

	report, err := s.sweeper.Sweep(ctx)
	if err != nil {
		log.Printf("[Scheduler] Ошибка прогона квалификации: %v", err)
		return
	}
	log.Printf("[Scheduler] Прогон квалификации завершен, обработано записей отчета: %d", len(report.Items))
}

// releaseLock снимает блокировку, если она все еще принадлежит этому прогону.
// Если TTL истек и блокировку взял другой экземпляр, ключ не трогаем.
func (s *Scheduler) releaseLock(token string) {
	ctx, cancel := context.WithTimeout(context.Background(), lockReleaseTimeout)
	defer cancel()

	released, err := s.locker.DeleteIfEquals(ctx, sweepLockKey, token)
	if err != nil {
		log.Printf("[Scheduler] Не удалось снять блокировку прогона: %v", err)
		return
	}
	if !released {
		log.Printf("[Scheduler] Блокировка прогона истекла и принадлежит другому экземпляру")
	}
}
