package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/coverage-cli/internal/coverage"
)

// Config holds the full application configuration.
type Config struct {
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Source   SourceConfig   `yaml:"source" mapstructure:"source"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// AnalysisConfig holds the default analysis request.
type AnalysisConfig struct {
	Index         string        `yaml:"index" mapstructure:"index"`
	Region        string        `yaml:"region" mapstructure:"region"`
	Demand        string        `yaml:"demand" mapstructure:"demand"`
	Infra         string        `yaml:"infra" mapstructure:"infra"`
	RadiusKM      float64       `yaml:"radius_km" mapstructure:"radius_km"`
	StepDegrees   float64       `yaml:"step_degrees" mapstructure:"step_degrees"`
	StepKM        float64       `yaml:"step_km" mapstructure:"step_km"`
	DistanceModel string        `yaml:"distance_model" mapstructure:"distance_model"`
	EarthRadiusKM float64       `yaml:"earth_radius_km" mapstructure:"earth_radius_km"`
	TopK          int           `yaml:"top_k" mapstructure:"top_k"`
	BottomK       int           `yaml:"bottom_k" mapstructure:"bottom_k"`
	Direction     string        `yaml:"direction" mapstructure:"direction"`
	Workers       int           `yaml:"workers" mapstructure:"workers"`
	Nearest       NearestConfig `yaml:"nearest" mapstructure:"nearest"`
	BBox          []float64     `yaml:"bbox" mapstructure:"bbox"`
}

// NearestConfig bounds nearest-infrastructure lookups.
type NearestConfig struct {
	MaxSearchKM float64 `yaml:"max_search_km" mapstructure:"max_search_km"`
	FallbackKM  float64 `yaml:"fallback_km" mapstructure:"fallback_km"`
}

// SourceConfig configures where boundaries and point sets are read from.
type SourceConfig struct {
	Driver       string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL  string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath   string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	Dir          string `yaml:"dir" mapstructure:"dir"`
	RegionsTable string `yaml:"regions_table" mapstructure:"regions_table"`
	PointsSchema string `yaml:"points_schema" mapstructure:"points_schema"`
	MaxConns     int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns     int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int      `yaml:"port" mapstructure:"port"`
	CacheEntries    int      `yaml:"cache_entries" mapstructure:"cache_entries"`
	CacheTTLMinutes int      `yaml:"cache_ttl_minutes" mapstructure:"cache_ttl_minutes"`
	RateLimit       float64  `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst       int      `yaml:"rate_burst" mapstructure:"rate_burst"`
	CORSOrigins     []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// StepInDegrees resolves the grid step. A positive StepKM wins over
// StepDegrees and is converted at 111 km per degree.
func (a AnalysisConfig) StepInDegrees() float64 {
	if a.StepKM > 0 {
		return a.StepKM / 111.0
	}
	return a.StepDegrees
}

// LoadEnvFiles loads .env style files into the process environment. Missing
// files are skipped; variables already set are not overwritten.
func LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return eris.Wrapf(err, "config: load env file %s", p)
		}
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("COVERAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("analysis.index", "coverage_vulnerability")
	v.SetDefault("analysis.demand", "population_points")
	v.SetDefault("analysis.infra", "towers")
	v.SetDefault("analysis.radius_km", 5.0)
	v.SetDefault("analysis.step_degrees", 0.1)
	v.SetDefault("analysis.step_km", 0.0)
	v.SetDefault("analysis.distance_model", "great_circle")
	v.SetDefault("analysis.earth_radius_km", 6378.1)
	v.SetDefault("analysis.top_k", 15)
	v.SetDefault("analysis.bottom_k", 10)
	v.SetDefault("analysis.direction", "")
	v.SetDefault("analysis.workers", 8)
	v.SetDefault("analysis.nearest.max_search_km", 0.0)
	v.SetDefault("analysis.nearest.fallback_km", 0.0)
	v.SetDefault("source.driver", "postgres")
	v.SetDefault("source.sqlite_path", "coverage.db")
	v.SetDefault("source.dir", "./data")
	v.SetDefault("source.regions_table", "geo.regions")
	v.SetDefault("source.points_schema", "geo")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cache_entries", 128)
	v.SetDefault("server.cache_ttl_minutes", 30)
	v.SetDefault("server.rate_limit", 5.0)
	v.SetDefault("server.rate_burst", 10)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the settings a command needs are present and in range.
// mode is one of analyze, plan, grid, serve, load.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "analyze", "plan", "serve":
		errs = append(errs, c.validateSource()...)
		errs = append(errs, c.validateAnalysis()...)
		if mode == "analyze" && needsArea(c.Analysis.Index) {
			if c.Analysis.Region == "" && len(c.Analysis.BBox) == 0 {
				errs = append(errs, "analysis.region or analysis.bbox is required")
			}
		}
		if mode == "serve" {
			errs = append(errs, c.validateServer()...)
		}
	case "grid":
		errs = append(errs, c.validateSource()...)
		if c.Analysis.StepInDegrees() <= 0 {
			errs = append(errs, "analysis.step_degrees or analysis.step_km must be > 0")
		}
	case "load":
		if c.Source.Driver == "file" {
			errs = append(errs, "load requires source.driver postgres or sqlite")
		} else {
			errs = append(errs, c.validateSource()...)
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// needsArea reports whether the index samples a grid. Unknown indices are
// reported by the analysis request itself.
func needsArea(index string) bool {
	k, err := coverage.ParseKind(index)
	if err != nil {
		return true
	}
	return k.Definition().Subject == coverage.SubjectCell
}

func (c *Config) validateSource() []string {
	var errs []string
	switch c.Source.Driver {
	case "postgres":
		if c.Source.DatabaseURL == "" {
			errs = append(errs, "source.database_url is required")
		}
	case "sqlite":
		if c.Source.SQLitePath == "" {
			errs = append(errs, "source.sqlite_path is required")
		}
	case "file":
		if c.Source.Dir == "" {
			errs = append(errs, "source.dir is required")
		}
	default:
		errs = append(errs, "source.driver must be postgres, sqlite, or file")
	}
	return errs
}

func (c *Config) validateAnalysis() []string {
	var errs []string
	a := c.Analysis
	if a.Index == "" {
		errs = append(errs, "analysis.index is required")
	}
	if a.Demand == "" {
		errs = append(errs, "analysis.demand is required")
	}
	if a.Infra == "" {
		errs = append(errs, "analysis.infra is required")
	}
	if a.RadiusKM < 0 {
		errs = append(errs, "analysis.radius_km must be >= 0")
	}
	if a.StepInDegrees() <= 0 {
		errs = append(errs, "analysis.step_degrees or analysis.step_km must be > 0")
	}
	if a.TopK < 0 || a.BottomK < 0 {
		errs = append(errs, "analysis.top_k and analysis.bottom_k must be >= 0")
	}
	if a.Workers < 0 || a.Workers > 256 {
		errs = append(errs, "analysis.workers must be between 0 and 256")
	}
	if a.Nearest.MaxSearchKM < 0 || a.Nearest.FallbackKM < 0 {
		errs = append(errs, "analysis.nearest values must be >= 0")
	}
	if n := len(a.BBox); n != 0 && n != 4 {
		errs = append(errs, "analysis.bbox must have 4 values [min_lon, min_lat, max_lon, max_lat]")
	}
	return errs
}

func (c *Config) validateServer() []string {
	var errs []string
	if c.Server.Port <= 0 {
		errs = append(errs, "server.port must be > 0")
	}
	if c.Server.CacheEntries < 0 {
		errs = append(errs, "server.cache_entries must be >= 0")
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, "server.rate_limit must be >= 0")
	}
	return errs
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
