// Package scheduler
package scheduler

import (
	"context"
	"io"
	"log"
	"os"
	"time"

	businessflow "github.com/princecjqlara/Tokkobeta/business_flow"
	"github.com/princecjqlara/Tokkobeta/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// SyncScheduler periodically sweeps the active pages and refreshes their
// contact lists from the Graph API
type SyncScheduler struct {
	syncFlow businessflow.SyncFlow
	logger   *log.Logger
	interval time.Duration
}

func NewSyncScheduler(syncFlow businessflow.SyncFlow, logCfg config.LoggingConfig, interval time.Duration) *SyncScheduler {
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	s := &SyncScheduler{
		syncFlow: syncFlow,
		interval: interval,
	}
	s.initLogger(logCfg)

	return s
}

// initLogger configures a logger that writes to stdout and, when a file path
// is configured, a rotating log file
func (s *SyncScheduler) initLogger(cfg config.LoggingConfig) {
	var w io.Writer = os.Stdout
	if cfg.FilePath != "" && (cfg.Output == "file" || cfg.Output == "both") {
		rotator := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		if cfg.Output == "file" {
			w = rotator
		} else {
			w = io.MultiWriter(os.Stdout, rotator)
		}
	}

	s.logger = log.New(w, "scheduler ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
}

// Start launches the scheduler loop in a background goroutine and returns a stop function
func (s *SyncScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()

	return cancel
}

func (s *SyncScheduler) runOnce(ctx context.Context) {
	start := time.Now()

	result, err := s.syncFlow.SyncAllPages(ctx)
	if err != nil {
		s.logger.Printf("scheduler: sync sweep failed: %v", err)
		return
	}

	if len(result.Pages) == 0 && result.Skipped == 0 {
		return
	}
	s.logger.Printf("scheduler: sync sweep finished: pages=%d skipped=%d took=%s",
		len(result.Pages), result.Skipped, time.Since(start).Round(time.Millisecond))
}
