package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "coverage_vulnerability", cfg.Analysis.Index)
	assert.Equal(t, "population_points", cfg.Analysis.Demand)
	assert.Equal(t, "towers", cfg.Analysis.Infra)
	assert.InDelta(t, 5.0, cfg.Analysis.RadiusKM, 1e-9)
	assert.InDelta(t, 0.1, cfg.Analysis.StepDegrees, 1e-9)
	assert.Equal(t, "great_circle", cfg.Analysis.DistanceModel)
	assert.InDelta(t, 6378.1, cfg.Analysis.EarthRadiusKM, 1e-9)
	assert.Equal(t, 15, cfg.Analysis.TopK)
	assert.Equal(t, 10, cfg.Analysis.BottomK)
	assert.Equal(t, 8, cfg.Analysis.Workers)
	assert.Zero(t, cfg.Analysis.Nearest.MaxSearchKM)
	assert.Equal(t, "postgres", cfg.Source.Driver)
	assert.Equal(t, "geo.regions", cfg.Source.RegionsTable)
	assert.Equal(t, "geo", cfg.Source.PointsSchema)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 128, cfg.Server.CacheEntries)
	assert.Equal(t, 30, cfg.Server.CacheTTLMinutes)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
analysis:
  index: tnsi
  region: Tamil Nadu
  radius_km: 30
  step_km: 30
  distance_model: planar
  earth_radius_km: 6371
  nearest:
    max_search_km: 50
  bbox: [76.0, 8.0, 80.5, 13.5]
source:
  driver: sqlite
log:
  level: debug
  format: console
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "tnsi", cfg.Analysis.Index)
	assert.Equal(t, "Tamil Nadu", cfg.Analysis.Region)
	assert.InDelta(t, 30.0, cfg.Analysis.RadiusKM, 1e-9)
	assert.InDelta(t, 30.0/111.0, cfg.Analysis.StepInDegrees(), 1e-12)
	assert.Equal(t, "planar", cfg.Analysis.DistanceModel)
	assert.InDelta(t, 50.0, cfg.Analysis.Nearest.MaxSearchKM, 1e-9)
	assert.Equal(t, []float64{76.0, 8.0, 80.5, 13.5}, cfg.Analysis.BBox)
	assert.Equal(t, "sqlite", cfg.Source.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Defaults still apply for unset values
	assert.Equal(t, 15, cfg.Analysis.TopK)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
source:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("COVERAGE_SOURCE_DRIVER", "file")
	t.Setenv("COVERAGE_LOG_LEVEL", "warn")
	t.Setenv("COVERAGE_ANALYSIS_TOP_K", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "file", cfg.Source.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 3, cfg.Analysis.TopK)
}

func TestLoadEnvFiles(t *testing.T) {
	dir := chdirTemp(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("COVERAGE_SOURCE_DATABASE_URL=postgres://localhost/coverage\n"), 0600))
	t.Setenv("COVERAGE_SOURCE_DATABASE_URL", "")
	require.NoError(t, os.Unsetenv("COVERAGE_SOURCE_DATABASE_URL"))

	require.NoError(t, LoadEnvFiles())
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/coverage", cfg.Source.DatabaseURL)
}

func TestLoadEnvFiles_MissingIsIgnored(t *testing.T) {
	chdirTemp(t)
	assert.NoError(t, LoadEnvFiles("does-not-exist.env"))
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
	cfg.Analysis = AnalysisConfig{
		Index: "coverage_vulnerability", Region: "Tamil Nadu",
		Demand: "population_points", Infra: "towers",
		RadiusKM: 5, StepDegrees: 0.1, TopK: 15, BottomK: 10, Workers: 8,
	}
	cfg.Source.Driver = "postgres"
	cfg.Source.DatabaseURL = "postgres://localhost/test"
	cfg.Server.Port = 8080
	cfg.Server.CacheEntries = 128
	return cfg
}

func TestValidateAnalyze_AllPresent(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("analyze"))
}

func TestValidateAnalyze_MissingFields(t *testing.T) {
	cfg := validDefaults()
	cfg.Source.DatabaseURL = ""
	cfg.Analysis.Region = ""
	cfg.Analysis.Infra = ""

	err := cfg.Validate("analyze")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "source.database_url is required")
	assert.Contains(t, err.Error(), "analysis.region or analysis.bbox is required")
	assert.Contains(t, err.Error(), "analysis.infra is required")
}

func TestValidateAnalyze_InfrastructureIndexNeedsNoArea(t *testing.T) {
	cfg := validDefaults()
	cfg.Analysis.Region = ""
	cfg.Analysis.Index = "network_stress"
	assert.NoError(t, cfg.Validate("analyze"))
}

func TestValidateAnalyze_BBoxReplacesRegion(t *testing.T) {
	cfg := validDefaults()
	cfg.Analysis.Region = ""
	cfg.Analysis.BBox = []float64{76, 8, 80.5, 13.5}
	assert.NoError(t, cfg.Validate("analyze"))

	cfg.Analysis.BBox = []float64{76, 8}
	err := cfg.Validate("analyze")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "analysis.bbox must have 4 values")
}

func TestValidateAnalysisBounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Analysis.StepDegrees = 0
	cfg.Analysis.RadiusKM = -1
	cfg.Analysis.TopK = -1
	cfg.Analysis.Workers = 1000
	cfg.Analysis.Nearest.FallbackKM = -2

	err := cfg.Validate("plan")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step_degrees or analysis.step_km must be > 0")
	assert.Contains(t, err.Error(), "radius_km must be >= 0")
	assert.Contains(t, err.Error(), "top_k and analysis.bottom_k must be >= 0")
	assert.Contains(t, err.Error(), "workers must be between 0 and 256")
	assert.Contains(t, err.Error(), "nearest values must be >= 0")
}

func TestValidateSourceDrivers(t *testing.T) {
	cfg := validDefaults()

	cfg.Source.Driver = "sqlite"
	cfg.Source.SQLitePath = ""
	err := cfg.Validate("grid")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "source.sqlite_path is required")

	cfg.Source.Driver = "file"
	cfg.Source.Dir = "./data"
	assert.NoError(t, cfg.Validate("grid"))

	cfg.Source.Driver = "mongo"
	err = cfg.Validate("grid")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "source.driver must be")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateLoad(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("load"))

	cfg.Source.DatabaseURL = ""
	err := cfg.Validate("load")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "source.database_url is required")
}

func TestValidateLoad_Drivers(t *testing.T) {
	cfg := validDefaults()
	cfg.Source.Driver = "sqlite"
	cfg.Source.SQLitePath = "coverage.db"
	assert.NoError(t, cfg.Validate("load"))

	cfg.Source.Driver = "file"
	cfg.Source.Dir = "data"
	err := cfg.Validate("load")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "postgres or sqlite")
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
