package regress

import (
	"context"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regress/config"
	"regress/fit"
	"regress/report"
	"regress/synth"
	"regress/types"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestRegressorEndToEnd(t *testing.T) {
	gen := synth.Default()
	gen.Seed = 42
	gen.Responding = []string{"asym_bcm", "asym_bpm"}
	tab, channels, err := synth.Generate(gen)
	require.NoError(t, err)

	opts := config.DefaultOptions()
	opts.RecordCap = 0
	opts.Workers = 2
	opts.Tolerance = 1e-6
	r := NewRegressor(channels, tab, opts)
	r.Logger = quietLogger()
	record := report.NewRecord()
	r.Observer = record

	rep, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, tab.Digest(), rep.Digest)
	assert.Equal(t, 1000, rep.Entries)
	require.Len(t, rep.Channels, 2)

	truth := append(append([]float64{}, gen.Coefficients...), gen.Intercept)
	for _, ch := range rep.Channels {
		assert.True(t, ch.Converged, ch.Name)
		assert.Equal(t, types.RegressedPrefix+ch.Name, ch.Column)
		assert.InDelta(t, 1.0, ch.ReducedChi2, 0.2, ch.Name)
		require.Len(t, ch.Parameters, 4)
		for j, p := range ch.Parameters {
			require.Greater(t, p.Error, 0.0)
			assert.LessOrEqual(t, math.Abs(p.Value-truth[j])/p.Error, 3.0, "%s %s", ch.Name, p.Name)
		}
		assert.Equal(t, types.ConstantTermName, ch.Parameters[3].Name)
		assert.Len(t, ch.Rows, 1000)
		// 回归后分布比原始分布窄
		assert.Less(t, ch.Regressed.RMS, ch.Original.RMS)
		tr, ok := record.Trace(ch.Name)
		require.True(t, ok)
		assert.Len(t, tr.Iterations, ch.Iterations)
	}
}

func TestRegressorDeterministic(t *testing.T) {
	tab, channels, err := synth.Generate(synth.Default())
	require.NoError(t, err)
	run := func() *types.Report {
		r := NewRegressor(channels, tab, config.DefaultOptions())
		r.Logger = quietLogger()
		rep, err := r.Run(context.Background())
		require.NoError(t, err)
		return rep
	}
	a, b := run(), run()
	assert.Equal(t, a.Channels[0].Parameters, b.Channels[0].Parameters)
	assert.Equal(t, a.Channels[0].Rows, b.Channels[0].Rows)
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestRegressorSingular(t *testing.T) {
	tab, channels, err := synth.Generate(synth.Default())
	require.NoError(t, err)
	channels.Manipulated[1] = channels.Manipulated[0]
	r := NewRegressor(channels, tab, config.DefaultOptions())
	r.Logger = quietLogger()
	rep, err := r.Run(context.Background())
	assert.Nil(t, rep)
	var serr *fit.SingularMatrixError
	require.True(t, errors.As(err, &serr), "%v", err)
	assert.Equal(t, "asym_bcm", serr.Channel)
}

func TestRegressorNotConvergedKept(t *testing.T) {
	tab, channels, err := synth.Generate(synth.Default())
	require.NoError(t, err)
	opts := config.DefaultOptions()
	opts.MaxIterations = 1
	r := NewRegressor(channels, tab, opts)
	r.Logger = quietLogger()
	rep, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, rep.Channels[0].Converged)
	assert.Equal(t, 1, rep.Channels[0].Iterations)
}

func TestRegressorFlaggedRecords(t *testing.T) {
	gen := synth.Default()
	gen.FlagRate = 0.2
	gen.BadRate = 0.05
	tab, channels, err := synth.Generate(gen)
	require.NoError(t, err)
	r := NewRegressor(channels, tab, config.DefaultOptions())
	r.Logger = quietLogger()
	rep, err := r.Run(context.Background())
	require.NoError(t, err)
	stats := rep.Channels[0].Stats
	assert.Equal(t, 1000, stats.Read)
	assert.Positive(t, stats.Flagged)
	assert.Positive(t, stats.BadManipulated)
	assert.Equal(t, stats.Read-stats.Excluded(), stats.Accumulated)
	assert.Len(t, rep.Channels[0].Rows, stats.Emitted)
	flagged, err := r.flagged()
	require.NoError(t, err)
	assert.Equal(t, stats.Flagged, flagged)
}

func TestLoadAndPublish(t *testing.T) {
	dir := t.TempDir()
	tab, channels, err := synth.Generate(synth.Default())
	require.NoError(t, err)
	dataFile := filepath.Join(dir, "run.csv.zst")
	require.NoError(t, tab.Save(dataFile))
	configFile := filepath.Join(dir, "regressionInput.txt")
	file, err := os.Create(configFile)
	require.NoError(t, err)
	require.NoError(t, channels.Export(file))
	require.NoError(t, file.Close())

	opts := config.DefaultOptions()
	opts.OutputDir = filepath.Join(dir, "out")
	opts.Charts = true
	opts.Plots = true
	opts.Compress = true
	r, err := Load(configFile, dataFile, opts)
	require.NoError(t, err)
	r.Logger = quietLogger()
	assert.Equal(t, dataFile, r.Source)
	rep, err := r.Run(context.Background())
	require.NoError(t, err)

	sinks, closeFn, err := Sinks(opts)
	require.NoError(t, err)
	defer closeFn()
	require.Len(t, sinks, 4)
	require.NoError(t, Publish(context.Background(), rep, sinks...))
	for _, name := range []string{"report.json", "report.html", "reg_asym_bcm.csv.zst", "reg_asym_bcm.png", "asym_bcm.png"} {
		assert.FileExists(t, filepath.Join(opts.OutputDir, name))
	}

	_, err = Load(filepath.Join(dir, "missing.txt"), dataFile, opts)
	assert.Error(t, err)
}
