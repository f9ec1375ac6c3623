package scenario

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vajra-sim/vajra/pkg/core"
)

func newProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := New(1200, 800, "", WithRand(rand.New(rand.NewSource(7))))
	require.NoError(t, err)
	return p
}

func TestList(t *testing.T) {
	p := newProvider(t)
	assert.Equal(t, []core.ScenarioInfo{
		{ID: "asset_under_threat", Name: "Asset Under Threat (6v4)"},
		{ID: "large_swarm_threat", Name: "Large Swarm (10v13)"},
		{ID: "small_swarm", Name: "Small Swarm (3v2)"},
	}, p.List())
}

func TestGet_Layout(t *testing.T) {
	p := newProvider(t)

	sc, err := p.Get("large_swarm_threat")
	require.NoError(t, err)
	assert.Equal(t, "Large Swarm (10v13)", sc.Name)
	require.Len(t, sc.Friendly, 10)
	require.Len(t, sc.Enemy, 13)
	require.Len(t, sc.Assets, 2)

	assert.Equal(t, core.AssetSpec{ID: "A1", Position: core.Position{X: 400, Y: 750}}, sc.Assets[0])
	assert.Equal(t, core.AssetSpec{ID: "A2", Position: core.Position{X: 800, Y: 750}}, sc.Assets[1])

	for i, f := range sc.Friendly {
		assert.Equal(t, core.TeamFriendly, f.Team)
		assert.Equal(t, core.KindInterceptor, f.Kind)
		assert.Equal(t, 700.0, f.Position.Y)
		assert.InDelta(t, 1200.0/11*float64(i+1), f.Position.X, 1e-9)
	}
	assert.Equal(t, "F1", sc.Friendly[0].ID)
	assert.Equal(t, "F10", sc.Friendly[9].ID)

	assert.Equal(t, "E-GA1", sc.Enemy[0].ID)
	assert.Equal(t, "E-GA8", sc.Enemy[7].ID)
	assert.Equal(t, "E-AA1", sc.Enemy[8].ID)
	for _, e := range sc.Enemy {
		assert.Equal(t, core.TeamEnemy, e.Team)
		assert.GreaterOrEqual(t, e.Position.X, 100.0)
		assert.LessOrEqual(t, e.Position.X, 1100.0)
		assert.GreaterOrEqual(t, e.Position.Y, 100.0)
		assert.LessOrEqual(t, e.Position.Y, 250.0)
	}
	assert.Equal(t, core.KindGroundAttack, sc.Enemy[0].Kind)
	assert.Equal(t, core.KindAirToAir, sc.Enemy[12].Kind)
}

func TestGet_Unknown(t *testing.T) {
	p := newProvider(t)
	sc, err := p.Get("nope")
	assert.ErrorIs(t, err, ErrUnknownScenario)
	assert.Nil(t, sc)
}

func TestGet_Deterministic(t *testing.T) {
	a, err := New(1200, 800, "", WithRand(rand.New(rand.NewSource(3))))
	require.NoError(t, err)
	b, err := New(1200, 800, "", WithRand(rand.New(rand.NewSource(3))))
	require.NoError(t, err)

	sa, err := a.Get("small_swarm")
	require.NoError(t, err)
	sb, err := b.Get("small_swarm")
	require.NoError(t, err)
	assert.Equal(t, sa, sb)
}

func TestCustom(t *testing.T) {
	p := newProvider(t)

	sc := p.Custom(4, 5)
	assert.Equal(t, "custom", sc.ID)
	assert.Equal(t, "Custom Battle (4v5)", sc.Name)
	assert.Len(t, sc.Friendly, 4)
	require.Len(t, sc.Enemy, 5)
	assert.Equal(t, core.KindGroundAttack, sc.Enemy[1].Kind)
	assert.Equal(t, core.KindAirToAir, sc.Enemy[2].Kind)
	require.Len(t, sc.Assets, 2)
	assert.Equal(t, 400.0, sc.Assets[0].Position.X)
	assert.Equal(t, 800.0, sc.Assets[1].Position.X)

	sc = p.Custom(99, -3)
	assert.Len(t, sc.Friendly, MaxCustomUnits)
	assert.Empty(t, sc.Enemy)
	assert.Equal(t, "Custom Battle (20v0)", sc.Name)

	assert.True(t, p.Custom(0, 0).Empty())
}

func TestNew_FileOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenarios.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
scenarios:
  - id: duel
    friendly: 1
    enemy_air_to_air: 1
`), 0o644))

	p, err := New(1200, 800, path)
	require.NoError(t, err)
	assert.Equal(t, []core.ScenarioInfo{{ID: "duel", Name: "duel"}}, p.List())

	sc, err := p.Get("duel")
	require.NoError(t, err)
	assert.Empty(t, sc.Assets)
	assert.Len(t, sc.Enemy, 1)

	_, err = p.Get("small_swarm")
	assert.ErrorIs(t, err, ErrUnknownScenario)
}

func TestNew_InvalidBlueprints(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"missing id": "scenarios:\n  - name: x\n",
		"duplicate":  "scenarios:\n  - id: a\n  - id: a\n",
		"negative":   "scenarios:\n  - id: a\n    friendly: -1\n",
		"not yaml":   "scenarios: [",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			_, err := New(1200, 800, path)
			assert.Error(t, err)
		})
	}

	_, err := New(1200, 800, filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
