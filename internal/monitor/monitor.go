package monitor

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/vajra-sim/vajra/internal/engine"
	"github.com/vajra-sim/vajra/internal/influx"
	"github.com/vajra-sim/vajra/internal/logging"
	"github.com/vajra-sim/vajra/pkg/core"
)

// SessionStat describes one live simulation session.
type SessionStat struct {
	ID              string        `json:"id"`
	Engine          engine.Stats  `json:"engine"`
	LastTick        time.Duration `json:"lastTickNs"`
	Overruns        uint64        `json:"overruns"`
	PendingCommands int           `json:"pendingCommands"`
}

// SessionProvider lists live sessions.
type SessionProvider interface {
	SessionStats() []SessionStat
}

// PerformanceWriter receives one sample per session per interval.
type PerformanceWriter interface {
	WritePerformance(s influx.PerformanceSample) error
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	LogManager *logging.SlogManager
	Sessions   SessionProvider
	// Influx may be nil; IsInfluxValid gates writes when set.
	Influx        PerformanceWriter
	IsInfluxValid func() bool
	StatusFile    string
	Interval      time.Duration
	Now           func() time.Time
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetProgramStatus returns the status file lines and one performance
// sample per session.
func (s *Service) GetProgramStatus() (output []string, samples []influx.PerformanceSample) {
	now := s.deps.Now().UTC()
	var stats []SessionStat
	if s.deps.Sessions != nil {
		stats = s.deps.Sessions.SessionStats()
	}

	running := 0
	for _, st := range stats {
		if st.Engine.Status == core.StatusRunning {
			running++
		}
		samples = append(samples, influx.PerformanceSample{
			SessionID:  st.ID,
			ScenarioID: st.Engine.ScenarioID,
			Status:     string(st.Engine.Status),
			Ticks:      st.Engine.Ticks,
			SimTime:    st.Engine.Elapsed,
			TickMs:     float64(st.LastTick.Microseconds()) / 1000,
			Friendlies: st.Engine.Friendlies,
			Enemies:    st.Engine.Enemies,
			Events:     st.Engine.Events,
			Time:       now,
		})
	}

	output = append(output, fmt.Sprintf("%s status at %s", logging.ServiceName, now.Format(time.RFC3339)))
	output = append(output, fmt.Sprintf("sessions: %d (running %d)", len(stats), running))

	if stats == nil {
		stats = []SessionStat{}
	}
	statsStr, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		statsStr = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
	}
	output = append(output, string(statsStr))

	return output, samples
}

// Tick writes one status snapshot to w and, when valid, to Influx.
func (s *Service) Tick(w io.Writer) {
	lines, samples := s.GetProgramStatus()

	if w != nil {
		if f, ok := w.(*os.File); ok {
			_ = f.Truncate(0)
			_, _ = f.Seek(0, 0)
		}
		for _, line := range lines {
			_, _ = io.WriteString(w, line+"\n")
		}
	}

	if s.deps.Influx == nil || (s.deps.IsInfluxValid != nil && !s.deps.IsInfluxValid()) {
		return
	}
	for _, sample := range samples {
		if err := s.deps.Influx.WritePerformance(sample); err != nil {
			s.deps.LogManager.Logger().Error("Error writing performance sample", "session", sample.SessionID, "error", err)
		}
	}
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	logger := s.deps.LogManager.Logger()

	var statusFile *os.File
	if s.deps.StatusFile != "" {
		var err error
		statusFile, err = os.Create(s.deps.StatusFile)
		if err != nil {
			logger.Error("Error creating status file", "path", s.deps.StatusFile, "error", err)
			statusFile = nil
		}
	}

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()
		if statusFile != nil {
			defer statusFile.Close()
		}

		logger.Debug("Starting status monitor goroutine", "interval", s.deps.Interval)
		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if statusFile != nil {
					s.Tick(statusFile)
				} else {
					s.Tick(nil)
				}
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
