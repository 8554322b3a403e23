package automation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/craftsim/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBatch(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "batch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadBatch(t *testing.T) {
	path := writeBatch(t, `
name: smoke
steps:
  - preset: shuttle
    duration: 0.5
    save: true
  - preset: circuit
    integrator: euler
    duration: 0.5
`)
	b, err := LoadBatch(path)
	require.NoError(t, err)
	assert.Equal(t, "smoke", b.Name)
	require.Len(t, b.Steps, 2)
	assert.True(t, b.Steps[0].Save)
	assert.Equal(t, "euler", b.Steps[1].Integrator)

	_, err = LoadBatch(writeBatch(t, "name: empty\n"))
	assert.Error(t, err)
}

func TestRunBatch(t *testing.T) {
	b := &Batch{Steps: []Step{
		{Preset: "shuttle", Duration: 0.5, Save: true},
		{Preset: "circuit", Integrator: "euler", Duration: 0.5},
	}}
	store := storage.New(t.TempDir())

	results, err := RunBatch(context.Background(), b, store, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.NotEmpty(t, results[0].RunID)
	assert.Empty(t, results[1].RunID)
	assert.Equal(t, 30, results[1].Result.StepsTaken)

	meta, err := store.Load(results[0].RunID)
	require.NoError(t, err)
	assert.Equal(t, "shuttle", meta.Scenario)
	assert.Equal(t, "shuttle", meta.Tracked)
}

func TestRunBatchErrors(t *testing.T) {
	_, err := RunBatch(context.Background(), &Batch{Steps: []Step{{}}}, nil, nil)
	assert.Error(t, err)

	_, err = RunBatch(context.Background(), &Batch{Steps: []Step{{Preset: "warp"}}}, nil, nil)
	assert.Error(t, err)

	results, err := RunBatch(context.Background(), &Batch{Steps: []Step{
		{Preset: "shuttle", Duration: 0.1},
		{Preset: "shuttle", Duration: 0.1, Save: true},
	}}, nil, nil)
	assert.Error(t, err)
	assert.Len(t, results, 1)
}

func TestRunSweep(t *testing.T) {
	results, err := RunSweep(context.Background(), &EngineSweep{
		Preset:   "shuttle",
		Param:    "mass",
		ParamMin: 5000,
		ParamMax: 15000,
		NumSteps: 3,
		Duration: 1,
	}, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, 10000.0, results[1].ParamValue)

	for _, r := range results {
		assert.False(t, r.Diverged)
		assert.Contains(t, r.Metrics, "mean_speed")
	}
	// With the artificial limit off, a lighter craft gains speed faster.
	assert.Greater(t, results[0].Metrics["mean_speed"], results[2].Metrics["mean_speed"])

	_, err = RunSweep(context.Background(), &EngineSweep{Preset: "shuttle", Param: "warp", NumSteps: 2}, nil)
	assert.Error(t, err)
	_, err = RunSweep(context.Background(), &EngineSweep{Preset: "shuttle", Param: "mass", NumSteps: 1}, nil)
	assert.Error(t, err)
}
