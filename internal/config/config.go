package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/citymap/internal/export"
	"github.com/sells-group/citymap/internal/geo"
	"github.com/sells-group/citymap/internal/pipeline"
)

// Config holds the full application configuration.
type Config struct {
	Input    InputConfig    `yaml:"input" mapstructure:"input"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// InputConfig locates the input datasets.
// Rentals and Offers may be local paths or http(s)/ftp URLs, optionally
// naming a zip member as "archive.zip#file.csv".
type InputConfig struct {
	Rentals     string        `yaml:"rentals" mapstructure:"rentals"` // .csv or .xlsx
	Offers      string        `yaml:"offers" mapstructure:"offers"`   // .json array
	Cities      string        `yaml:"cities" mapstructure:"cities"`   // optional catalog yaml
	Sheet       string        `yaml:"sheet" mapstructure:"sheet"`     // xlsx worksheet name
	DownloadDir string        `yaml:"download_dir" mapstructure:"download_dir"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxRetries  int           `yaml:"max_retries" mapstructure:"max_retries"`
}

// PipelineConfig configures city assignment and salary bucketing.
type PipelineConfig struct {
	Mode             string  `yaml:"mode" mapstructure:"mode"`
	RadiusKM         float64 `yaml:"radius_km" mapstructure:"radius_km"`
	Rule             string  `yaml:"rule" mapstructure:"rule"`
	Scope            string  `yaml:"scope" mapstructure:"scope"`
	Buckets          int     `yaml:"buckets" mapstructure:"buckets"`
	Strict           bool    `yaml:"strict" mapstructure:"strict"`
	Concurrency      int     `yaml:"concurrency" mapstructure:"concurrency"`
	ScaleCorrection  bool    `yaml:"scale_correction" mapstructure:"scale_correction"`
	Segments         int     `yaml:"segments" mapstructure:"segments"`
	GeohashPrecision int     `yaml:"geohash_precision" mapstructure:"geohash_precision"`
}

// OutputConfig configures result files.
type OutputConfig struct {
	Dir      string   `yaml:"dir" mapstructure:"dir"`
	Basename string   `yaml:"basename" mapstructure:"basename"`
	Formats  []string `yaml:"formats" mapstructure:"formats"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CITYMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("input.rentals", "")
	v.SetDefault("input.offers", "")
	v.SetDefault("input.cities", "")
	v.SetDefault("input.sheet", "")
	v.SetDefault("input.download_dir", "")
	v.SetDefault("input.timeout", "60s")
	v.SetDefault("input.max_retries", 3)
	v.SetDefault("pipeline.mode", string(geo.ModeGreatCircle))
	v.SetDefault("pipeline.radius_km", 10.0)
	v.SetDefault("pipeline.rule", string(pipeline.RuleLabelAndCoordinate))
	v.SetDefault("pipeline.scope", string(pipeline.ScopeGlobal))
	v.SetDefault("pipeline.buckets", 5)
	v.SetDefault("pipeline.strict", false)
	v.SetDefault("pipeline.concurrency", 1)
	v.SetDefault("pipeline.scale_correction", true)
	v.SetDefault("pipeline.segments", geo.DefaultBufferSegments)
	v.SetDefault("pipeline.geohash_precision", pipeline.DefaultGeohashPrecision)
	v.SetDefault("output.dir", "out")
	v.SetDefault("output.basename", "citymap")
	v.SetDefault("output.formats", []string{"csv", "geojson"})
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

// Validate checks the settings a command needs. mode is the command name:
// "run", "probe", or "cities".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "run":
		if c.Input.Rentals == "" && c.Input.Offers == "" {
			errs = append(errs, "input.rentals or input.offers is required")
		}
		if c.Input.MaxRetries < 0 {
			errs = append(errs, "input.max_retries must be >= 0")
		}
		if c.Output.Dir == "" {
			errs = append(errs, "output.dir is required")
		}
		if _, err := export.ParseFormats(c.Output.Formats); err != nil {
			errs = append(errs, fmt.Sprintf("output.formats: %v", err))
		}
		errs = append(errs, c.Pipeline.validate()...)
	case "probe":
		errs = append(errs, c.Pipeline.validate()...)
	case "cities":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (p PipelineConfig) validate() []string {
	var errs []string
	if _, err := geo.ParseMode(p.Mode); err != nil {
		errs = append(errs, "pipeline.mode must be great_circle or projected_buffer")
	}
	if _, err := pipeline.ParseRule(p.Rule); err != nil {
		errs = append(errs, "pipeline.rule must be label, coordinate, label_and_coordinate, or label_or_coordinate")
	}
	if _, err := pipeline.ParseScope(p.Scope); err != nil {
		errs = append(errs, "pipeline.scope must be global or city")
	}
	if p.RadiusKM <= 0 {
		errs = append(errs, "pipeline.radius_km must be > 0")
	}
	if p.Buckets < 1 || p.Buckets > 100 {
		errs = append(errs, "pipeline.buckets must be between 1 and 100")
	}
	if p.Concurrency < 1 || p.Concurrency > 64 {
		errs = append(errs, "pipeline.concurrency must be between 1 and 64")
	}
	if p.Segments != 0 && p.Segments < 8 {
		errs = append(errs, "pipeline.segments must be >= 8")
	}
	if p.GeohashPrecision < 1 || p.GeohashPrecision > 12 {
		errs = append(errs, "pipeline.geohash_precision must be between 1 and 12")
	}
	return errs
}

// Options converts the pipeline settings into run options.
func (p PipelineConfig) Options() (pipeline.Options, error) {
	mode, err := geo.ParseMode(p.Mode)
	if err != nil {
		return pipeline.Options{}, eris.Wrap(err, "config: pipeline.mode")
	}
	rule, err := pipeline.ParseRule(p.Rule)
	if err != nil {
		return pipeline.Options{}, eris.Wrap(err, "config: pipeline.rule")
	}
	scope, err := pipeline.ParseScope(p.Scope)
	if err != nil {
		return pipeline.Options{}, eris.Wrap(err, "config: pipeline.scope")
	}

	precision := p.GeohashPrecision
	if precision < 0 {
		precision = 0
	}
	return pipeline.Options{
		Mode:             mode,
		RadiusKM:         p.RadiusKM,
		Rule:             rule,
		Scope:            scope,
		Buckets:          p.Buckets,
		Strict:           p.Strict,
		Concurrency:      p.Concurrency,
		ScaleCorrection:  p.ScaleCorrection,
		Segments:         p.Segments,
		GeohashPrecision: uint(precision),
	}, nil
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
