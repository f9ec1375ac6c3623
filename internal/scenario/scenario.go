// Package scenario turns blueprint counts into concrete unit layouts.
package scenario

import (
	_ "embed"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vajra-sim/vajra/pkg/core"
)

// MaxCustomUnits caps each side of a custom battle.
const MaxCustomUnits = 20

var ErrUnknownScenario = errors.New("unknown scenario")

//go:embed blueprints.yaml
var builtinBlueprints []byte

// Blueprint describes a scenario by unit counts.
type Blueprint struct {
	ID                string `yaml:"id"`
	Name              string `yaml:"name"`
	Friendly          int    `yaml:"friendly"`
	EnemyAirToAir     int    `yaml:"enemy_air_to_air"`
	EnemyGroundAttack int    `yaml:"enemy_ground_attack"`
	Assets            int    `yaml:"assets"`
}

type blueprintFile struct {
	Scenarios []Blueprint `yaml:"scenarios"`
}

// Provider generates scenarios inside a fixed world.
type Provider struct {
	width, height float64
	rng           *rand.Rand
	blueprints    map[string]Blueprint
}

// Option configures a Provider.
type Option func(*Provider)

// WithRand sets the random source for enemy spawn positions.
func WithRand(r *rand.Rand) Option {
	return func(p *Provider) { p.rng = r }
}

// New builds a provider from the embedded blueprints, or from file when
// it is non-empty.
func New(width, height float64, file string, opts ...Option) (*Provider, error) {
	data := builtinBlueprints
	if file != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read scenario file: %w", err)
		}
		data = b
	}

	blueprints, err := parseBlueprints(data)
	if err != nil {
		return nil, err
	}

	p := &Provider{width: width, height: height, blueprints: blueprints}
	for _, opt := range opts {
		opt(p)
	}
	if p.rng == nil {
		p.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return p, nil
}

func parseBlueprints(data []byte) (map[string]Blueprint, error) {
	var f blueprintFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse scenario blueprints: %w", err)
	}

	out := make(map[string]Blueprint, len(f.Scenarios))
	for _, bp := range f.Scenarios {
		if bp.ID == "" {
			return nil, errors.New("scenario blueprint without id")
		}
		if _, dup := out[bp.ID]; dup {
			return nil, fmt.Errorf("duplicate scenario blueprint %q", bp.ID)
		}
		if bp.Friendly < 0 || bp.EnemyAirToAir < 0 || bp.EnemyGroundAttack < 0 || bp.Assets < 0 {
			return nil, fmt.Errorf("scenario blueprint %q has negative counts", bp.ID)
		}
		if bp.Name == "" {
			bp.Name = bp.ID
		}
		out[bp.ID] = bp
	}
	return out, nil
}

// List returns the catalogue sorted by id.
func (p *Provider) List() []core.ScenarioInfo {
	infos := make([]core.ScenarioInfo, 0, len(p.blueprints))
	for _, bp := range p.blueprints {
		infos = append(infos, core.ScenarioInfo{ID: bp.ID, Name: bp.Name})
	}
	slices.SortFunc(infos, func(a, b core.ScenarioInfo) int { return strings.Compare(a.ID, b.ID) })
	return infos
}

// Get lays out the blueprint with the given id. Enemy positions are random.
func (p *Provider) Get(id string) (*core.Scenario, error) {
	bp, ok := p.blueprints[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScenario, id)
	}
	return p.layout(bp, p.assetRow(bp.Assets, p.width/float64(bp.Assets+1))), nil
}

// Custom lays out an ad-hoc battle. Both counts are clamped to
// [0, MaxCustomUnits]; half the enemies attack the ground.
func (p *Provider) Custom(friendly, enemy int) *core.Scenario {
	friendly = clampCount(friendly)
	enemy = clampCount(enemy)
	bp := Blueprint{
		ID:                "custom",
		Name:              fmt.Sprintf("Custom Battle (%dv%d)", friendly, enemy),
		Friendly:          friendly,
		EnemyGroundAttack: enemy / 2,
		EnemyAirToAir:     enemy - enemy/2,
		Assets:            2,
	}
	return p.layout(bp, p.assetRow(bp.Assets, p.width/3))
}

func clampCount(n int) int {
	return max(0, min(n, MaxCustomUnits))
}

func (p *Provider) assetRow(n int, spacing float64) []core.AssetSpec {
	assets := make([]core.AssetSpec, 0, n)
	for i := range n {
		assets = append(assets, core.AssetSpec{
			ID:       fmt.Sprintf("A%d", i+1),
			Position: core.Position{X: spacing * float64(i+1), Y: p.height - 50},
		})
	}
	return assets
}

func (p *Provider) layout(bp Blueprint, assets []core.AssetSpec) *core.Scenario {
	sc := &core.Scenario{
		ID:     bp.ID,
		Name:   bp.Name,
		Assets: assets,
	}

	spacing := p.width / float64(bp.Friendly+1)
	for i := range bp.Friendly {
		sc.Friendly = append(sc.Friendly, core.UnitSpec{
			ID:       fmt.Sprintf("F%d", i+1),
			Team:     core.TeamFriendly,
			Kind:     core.KindInterceptor,
			Position: core.Position{X: spacing * float64(i+1), Y: p.height - 100},
		})
	}

	for i := range bp.EnemyGroundAttack {
		sc.Enemy = append(sc.Enemy, p.enemy(fmt.Sprintf("E-GA%d", i+1), core.KindGroundAttack))
	}
	for i := range bp.EnemyAirToAir {
		sc.Enemy = append(sc.Enemy, p.enemy(fmt.Sprintf("E-AA%d", i+1), core.KindAirToAir))
	}
	return sc
}

func (p *Provider) enemy(id string, kind core.Kind) core.UnitSpec {
	return core.UnitSpec{
		ID:   id,
		Team: core.TeamEnemy,
		Kind: kind,
		Position: core.Position{
			X: 100 + p.rng.Float64()*(p.width-200),
			Y: 100 + p.rng.Float64()*150,
		},
	}
}
