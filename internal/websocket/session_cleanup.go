package websocket

import (
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/firdraft/usecase"
)

// CaptureSource lists the live capture sessions
type CaptureSource interface {
	Captures() []*usecase.CaptureSession
}

// CaptureCleanupService stops captures that were left listening too long
type CaptureCleanupService struct {
	source      CaptureSource
	maxDuration time.Duration
	interval    time.Duration
	logger      *zap.Logger
	stopChan    chan struct{}
}

// NewCaptureCleanupService creates a new capture cleanup service
func NewCaptureCleanupService(source CaptureSource, maxDuration time.Duration, logger *zap.Logger) *CaptureCleanupService {
	interval := maxDuration / 4
	if interval < time.Second {
		interval = time.Second
	}
	if interval > time.Minute {
		interval = time.Minute
	}
	return &CaptureCleanupService{
		source:      source,
		maxDuration: maxDuration,
		interval:    interval,
		logger:      logger,
		stopChan:    make(chan struct{}),
	}
}

// Start begins the background cleanup process
func (s *CaptureCleanupService) Start() {
	go s.cleanupLoop()
	s.logger.Info("Capture cleanup service started",
		zap.Duration("maxDuration", s.maxDuration),
		zap.Duration("interval", s.interval))
}

// Stop gracefully stops the cleanup service
func (s *CaptureCleanupService) Stop() {
	close(s.stopChan)
	s.logger.Info("Capture cleanup service stopped")
}

// cleanupLoop runs the cleanup process periodically
func (s *CaptureCleanupService) cleanupLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.runCleanup()
		}
	}
}

// runCleanup stops every capture listening past the limit and returns how many
func (s *CaptureCleanupService) runCleanup() int {
	stopped := 0
	for _, capture := range s.source.Captures() {
		elapsed, listening := capture.ListeningFor()
		if !listening || elapsed < s.maxDuration {
			continue
		}
		// Stop keeps whatever was said: the transcript still goes to generation
		if err := capture.Stop(); err != nil {
			continue
		}
		stopped++
		s.logger.Info("Stopped stale capture",
			zap.String("sessionID", capture.Snapshot().SessionID),
			zap.Duration("elapsed", elapsed))
	}
	return stopped
}
