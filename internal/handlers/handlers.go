package handlers

import (
	"errors"
	"fmt"

	"github.com/vajra-sim/vajra/internal/dispatcher"
	"github.com/vajra-sim/vajra/internal/logging"
	"github.com/vajra-sim/vajra/pkg/core"
	"github.com/vajra-sim/vajra/pkg/streaming"
)

// CommandRecordResult routes a finished run to the result store.
const CommandRecordResult = "record_result"

// ErrBadPayload is returned when an event carries the wrong payload type.
var ErrBadPayload = errors.New("unexpected event payload")

// Simulation is the engine surface driven by client commands.
type Simulation interface {
	Start(sc *core.Scenario) error
	Pause() error
	Resume() error
	Reset()
	SetSpeedMultiplier(v float64) float64
	SetAILevel(level string) error
}

// Scenarios supplies scenario layouts.
type Scenarios interface {
	Get(id string) (*core.Scenario, error)
	Custom(friendly, enemy int) *core.Scenario
}

// ResultWriter persists finished runs.
type ResultWriter interface {
	RecordResult(r *core.ResultRecord) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Scenarios  Scenarios
	LogManager *logging.SlogManager
}

// Service binds client commands to one simulation.
type Service struct {
	deps         Dependencies
	sim          Simulation
	writeLogFunc func(functionName, data, level string)
}

// NewService creates a new handler service
func NewService(deps Dependencies, sim Simulation) *Service {
	s := &Service{
		deps: deps,
		sim:  sim,
	}
	// Default writeLog function uses the logging manager
	s.writeLogFunc = func(functionName, data, level string) {
		if deps.LogManager != nil {
			deps.LogManager.WriteLog(functionName, data, level)
		}
	}
	return s
}

func (s *Service) writeLog(functionName, data, level string) {
	s.writeLogFunc(functionName, data, level)
}

// RegisterHandlers registers all client command handlers with the
// dispatcher. They run synchronously on the caller's tick.
func (s *Service) RegisterHandlers(d *dispatcher.Dispatcher) {
	d.Register(streaming.CommandStart, s.handleStart, dispatcher.Logged())
	d.Register(streaming.CommandPause, s.handlePause, dispatcher.Logged())
	d.Register(streaming.CommandResume, s.handleResume, dispatcher.Logged())
	d.Register(streaming.CommandReset, s.handleReset, dispatcher.Logged())
	d.Register(streaming.CommandSetSpeed, s.handleSetSpeed, dispatcher.Logged())
	d.Register(streaming.CommandSetAILevel, s.handleSetAILevel, dispatcher.Logged())
}

func command(e dispatcher.Event) (streaming.Command, error) {
	cmd, ok := e.Payload.(streaming.Command)
	if !ok {
		return streaming.Command{}, fmt.Errorf("%w: %T for %s", ErrBadPayload, e.Payload, e.Command)
	}
	return cmd, nil
}

func (s *Service) handleStart(e dispatcher.Event) (any, error) {
	functionName := streaming.CommandStart

	cmd, err := command(e)
	if err != nil {
		return nil, err
	}

	var sc *core.Scenario
	if cmd.Custom() {
		sc = s.deps.Scenarios.Custom(*cmd.NumFriendly, *cmd.NumEnemy)
	} else {
		sc, err = s.deps.Scenarios.Get(cmd.ScenarioID)
		if err != nil {
			s.writeLog(functionName, fmt.Sprintf(`Scenario lookup failed: %v`, err), "WARN")
			return nil, err
		}
	}

	if err := s.sim.Start(sc); err != nil {
		s.writeLog(functionName, fmt.Sprintf(`Scenario %s not started: %v`, sc.ID, err), "WARN")
		return nil, err
	}
	s.writeLog(functionName, fmt.Sprintf(`Started scenario %s`, sc.ID), "INFO")
	return sc.ID, nil
}

func (s *Service) handlePause(e dispatcher.Event) (any, error) {
	return nil, s.sim.Pause()
}

func (s *Service) handleResume(e dispatcher.Event) (any, error) {
	return nil, s.sim.Resume()
}

func (s *Service) handleReset(e dispatcher.Event) (any, error) {
	s.sim.Reset()
	return nil, nil
}

func (s *Service) handleSetSpeed(e dispatcher.Event) (any, error) {
	cmd, err := command(e)
	if err != nil {
		return nil, err
	}
	if cmd.Multiplier == nil {
		return nil, fmt.Errorf("%w: missing multiplier", ErrBadPayload)
	}
	return s.sim.SetSpeedMultiplier(*cmd.Multiplier), nil
}

func (s *Service) handleSetAILevel(e dispatcher.Event) (any, error) {
	cmd, err := command(e)
	if err != nil {
		return nil, err
	}
	if err := s.sim.SetAILevel(cmd.Level); err != nil {
		s.writeLog(streaming.CommandSetAILevel, err.Error(), "WARN")
		return nil, err
	}
	return cmd.Level, nil
}

// RegisterStorage routes result records to w through a blocking buffered
// queue, so slow stores never run on a simulation tick.
func RegisterStorage(d *dispatcher.Dispatcher, w ResultWriter, bufferSize int) {
	d.Register(CommandRecordResult, func(e dispatcher.Event) (any, error) {
		rec, ok := e.Payload.(core.ResultRecord)
		if !ok {
			return nil, fmt.Errorf("%w: %T for %s", ErrBadPayload, e.Payload, e.Command)
		}
		return nil, w.RecordResult(&rec)
	}, dispatcher.Buffered(bufferSize), dispatcher.Blocking(), dispatcher.Logged())
}

// DispatchRecorder hands result records to the dispatcher.
type DispatchRecorder struct {
	d *dispatcher.Dispatcher
}

// NewDispatchRecorder returns a recorder that dispatches CommandRecordResult.
func NewDispatchRecorder(d *dispatcher.Dispatcher) *DispatchRecorder {
	return &DispatchRecorder{d: d}
}

// RecordResult queues a copy of r for storage.
func (r *DispatchRecorder) RecordResult(rec *core.ResultRecord) error {
	_, err := r.d.Dispatch(dispatcher.Event{Command: CommandRecordResult, Payload: *rec})
	return err
}
