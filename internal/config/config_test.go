package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/citymap/internal/geo"
	"github.com/sells-group/citymap/internal/pipeline"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "great_circle", cfg.Pipeline.Mode)
	assert.InDelta(t, 10.0, cfg.Pipeline.RadiusKM, 0.001)
	assert.Equal(t, "label_and_coordinate", cfg.Pipeline.Rule)
	assert.Equal(t, "global", cfg.Pipeline.Scope)
	assert.Equal(t, 5, cfg.Pipeline.Buckets)
	assert.False(t, cfg.Pipeline.Strict)
	assert.Equal(t, 1, cfg.Pipeline.Concurrency)
	assert.True(t, cfg.Pipeline.ScaleCorrection)
	assert.Equal(t, 64, cfg.Pipeline.Segments)
	assert.Equal(t, 7, cfg.Pipeline.GeohashPrecision)
	assert.Equal(t, "out", cfg.Output.Dir)
	assert.Equal(t, "citymap", cfg.Output.Basename)
	assert.Equal(t, []string{"csv", "geojson"}, cfg.Output.Formats)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Empty(t, cfg.Input.Rentals)
	assert.Empty(t, cfg.Input.DownloadDir)
	assert.Equal(t, 60*time.Second, cfg.Input.Timeout)
	assert.Equal(t, 3, cfg.Input.MaxRetries)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
input:
  rentals: data/apartments_rent_pl_2023_11.csv
  offers: data/justjoinit-2023-09-25.json
pipeline:
  mode: projected_buffer
  radius_km: 20
  scope: city
  scale_correction: false
output:
  formats: [xlsx, shp]
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/apartments_rent_pl_2023_11.csv", cfg.Input.Rentals)
	assert.Equal(t, "data/justjoinit-2023-09-25.json", cfg.Input.Offers)
	assert.Equal(t, "projected_buffer", cfg.Pipeline.Mode)
	assert.InDelta(t, 20.0, cfg.Pipeline.RadiusKM, 0.001)
	assert.Equal(t, "city", cfg.Pipeline.Scope)
	assert.False(t, cfg.Pipeline.ScaleCorrection)
	assert.Equal(t, []string{"xlsx", "shp"}, cfg.Output.Formats)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	// Defaults still apply for unset values
	assert.Equal(t, 5, cfg.Pipeline.Buckets)
	assert.Equal(t, "label_and_coordinate", cfg.Pipeline.Rule)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
pipeline:
  rule: label
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("CITYMAP_PIPELINE_RULE", "coordinate")
	t.Setenv("CITYMAP_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "coordinate", cfg.Pipeline.Rule)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("CITYMAP_PIPELINE_BUCKETS", "4")
	t.Setenv("CITYMAP_PIPELINE_SCALE_CORRECTION", "false")
	t.Setenv("CITYMAP_INPUT_OFFERS", "offers.json")
	t.Setenv("CITYMAP_INPUT_TIMEOUT", "5m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Pipeline.Buckets)
	assert.False(t, cfg.Pipeline.ScaleCorrection)
	assert.Equal(t, "offers.json", cfg.Input.Offers)
	assert.Equal(t, 5*time.Minute, cfg.Input.Timeout)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("pipeline: [unclosed"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Input.Offers = "offers.json"
	cfg.Pipeline.Mode = "great_circle"
	cfg.Pipeline.RadiusKM = 10
	cfg.Pipeline.Rule = "label_and_coordinate"
	cfg.Pipeline.Scope = "global"
	cfg.Pipeline.Buckets = 5
	cfg.Pipeline.Concurrency = 1
	cfg.Pipeline.ScaleCorrection = true
	cfg.Pipeline.Segments = 64
	cfg.Pipeline.GeohashPrecision = 7
	cfg.Output.Dir = "out"
	cfg.Output.Formats = []string{"csv"}
	return cfg
}

func TestValidateRun_AllPresent(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("run"))
}

func TestValidateRun_MissingInputs(t *testing.T) {
	cfg := validDefaults()
	cfg.Input.Offers = ""
	cfg.Output.Dir = ""
	cfg.Output.Formats = []string{"pdf"}

	err := cfg.Validate("run")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "input.rentals or input.offers is required")
	assert.Contains(t, err.Error(), "output.dir is required")
	assert.Contains(t, err.Error(), "output.formats")
}

func TestValidateProbe_IgnoresInputs(t *testing.T) {
	cfg := validDefaults()
	cfg.Input.Offers = ""
	assert.NoError(t, cfg.Validate("probe"))
	assert.NoError(t, cfg.Validate("cities"))
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidatePipelineBounds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PipelineConfig)
		want   string
	}{
		{"mode", func(p *PipelineConfig) { p.Mode = "euclid" }, "pipeline.mode"},
		{"rule", func(p *PipelineConfig) { p.Rule = "fuzzy" }, "pipeline.rule"},
		{"scope", func(p *PipelineConfig) { p.Scope = "region" }, "pipeline.scope"},
		{"radius", func(p *PipelineConfig) { p.RadiusKM = 0 }, "pipeline.radius_km must be > 0"},
		{"buckets low", func(p *PipelineConfig) { p.Buckets = 0 }, "pipeline.buckets must be between 1 and 100"},
		{"buckets high", func(p *PipelineConfig) { p.Buckets = 101 }, "pipeline.buckets must be between 1 and 100"},
		{"concurrency", func(p *PipelineConfig) { p.Concurrency = 65 }, "pipeline.concurrency must be between 1 and 64"},
		{"segments", func(p *PipelineConfig) { p.Segments = 4 }, "pipeline.segments must be >= 8"},
		{"geohash", func(p *PipelineConfig) { p.GeohashPrecision = 13 }, "pipeline.geohash_precision"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			tt.mutate(&cfg.Pipeline)
			err := cfg.Validate("probe")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestPipelineOptions(t *testing.T) {
	cfg := validDefaults()
	cfg.Pipeline.Mode = "Projected-Buffer"
	cfg.Pipeline.Rule = "label-or-coordinate"
	cfg.Pipeline.Scope = "CITY"
	cfg.Pipeline.Strict = true

	opts, err := cfg.Pipeline.Options()
	require.NoError(t, err)
	assert.Equal(t, geo.ModeProjectedBuffer, opts.Mode)
	assert.Equal(t, pipeline.RuleLabelOrCoordinate, opts.Rule)
	assert.Equal(t, pipeline.ScopeCity, opts.Scope)
	assert.True(t, opts.Strict)
	assert.True(t, opts.ScaleCorrection)
	assert.InDelta(t, 10.0, opts.RadiusKM, 0.001)
	assert.Equal(t, uint(7), opts.GeohashPrecision)

	cfg.Pipeline.Rule = "fuzzy"
	_, err = cfg.Pipeline.Options()
	assert.Error(t, err)
}
