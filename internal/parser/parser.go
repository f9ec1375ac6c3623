package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"

	"github.com/vajra-sim/vajra/pkg/streaming"
)

var (
	ErrMalformedCommand = errors.New("malformed command")
	ErrUnknownCommand   = errors.New("unknown command")
)

// Parser provides pure []byte -> streaming.Command conversion.
// It has zero external dependencies beyond a logger.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new parser with only a logger dependency
func NewParser(logger *slog.Logger) *Parser {
	return &Parser{logger: logger}
}

// ParseCommand decodes and validates one client message. Field names are
// matched case-insensitively by encoding/json; the command name is
// trimmed and lower-cased.
func (p *Parser) ParseCommand(raw []byte) (streaming.Command, error) {
	var cmd streaming.Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return cmd, fmt.Errorf("%w: %w", ErrMalformedCommand, err)
	}
	cmd.Command = strings.ToLower(strings.TrimSpace(cmd.Command))
	cmd.ScenarioID = strings.TrimSpace(cmd.ScenarioID)

	if cmd.Command == "" {
		return cmd, fmt.Errorf("%w: missing command", ErrMalformedCommand)
	}
	if !slices.Contains(streaming.Commands, cmd.Command) {
		return cmd, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Command)
	}

	if err := validate(cmd); err != nil {
		return cmd, err
	}

	p.logger.Debug("Parsed command", "command", cmd.Command, "scenario", cmd.ScenarioID)
	return cmd, nil
}

func validate(cmd streaming.Command) error {
	switch cmd.Command {
	case streaming.CommandStart:
		if (cmd.NumFriendly == nil) != (cmd.NumEnemy == nil) {
			return fmt.Errorf("%w: start needs both num_friendly and num_enemy", ErrMalformedCommand)
		}
		if !cmd.Custom() && cmd.ScenarioID == "" {
			return fmt.Errorf("%w: start needs scenario_id or unit counts", ErrMalformedCommand)
		}
	case streaming.CommandSetSpeed:
		if cmd.Multiplier == nil || math.IsNaN(*cmd.Multiplier) || math.IsInf(*cmd.Multiplier, 0) {
			return fmt.Errorf("%w: set_speed needs a finite multiplier", ErrMalformedCommand)
		}
	case streaming.CommandSetAILevel:
		if strings.TrimSpace(cmd.Level) == "" {
			return fmt.Errorf("%w: set_ai_level needs level", ErrMalformedCommand)
		}
	}
	return nil
}
