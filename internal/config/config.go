package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/popforecast/internal/model"
)

// Recognized ranges for the analysis controls.
const (
	MinTrainCutoff    = 2010
	MaxTrainCutoff    = 2020
	MinProjectionEnd  = 2030
	MaxProjectionEnd  = 2060
	EvaluationEndYear = 2025
)

// Config holds the full application configuration.
type Config struct {
	Data     DataConfig      `yaml:"data" mapstructure:"data"`
	Extracts []ExtractConfig `yaml:"extracts" mapstructure:"extracts"`
	Analysis AnalysisConfig  `yaml:"analysis" mapstructure:"analysis"`
	Cache    CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Report   ReportConfig    `yaml:"report" mapstructure:"report"`
	Server   ServerConfig    `yaml:"server" mapstructure:"server"`
	Log      LogConfig       `yaml:"log" mapstructure:"log"`
}

// DataConfig locates the source spreadsheets.
type DataConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
	// ReadAttempts bounds how often an unreadable file is re-read before
	// the load fails. Zero means a single attempt.
	ReadAttempts   int `yaml:"read_attempts" mapstructure:"read_attempts"`
	RetryBackoffMs int `yaml:"retry_backoff_ms" mapstructure:"retry_backoff_ms"`
}

// ExtractConfig describes one source spreadsheet. File is relative to
// data.dir unless absolute.
type ExtractConfig struct {
	Name             string `yaml:"name" mapstructure:"name"`
	Period           string `yaml:"period" mapstructure:"period"`
	File             string `yaml:"file" mapstructure:"file"`
	Sheet            string `yaml:"sheet" mapstructure:"sheet"`
	HeaderRow        int    `yaml:"header_row" mapstructure:"header_row"`     // 0-based
	FirstColumn      *int   `yaml:"first_column" mapstructure:"first_column"` // 0-based; nil means 1
	CompositeRewrite bool   `yaml:"composite_rewrite" mapstructure:"composite_rewrite"`
}

// Column returns the first mapped column index.
func (e ExtractConfig) Column() int {
	if e.FirstColumn == nil {
		return 1
	}
	return *e.FirstColumn
}

// AnalysisConfig holds the model controls and the territory filter.
type AnalysisConfig struct {
	TrainCutoffYear   int    `yaml:"train_cutoff_year" mapstructure:"train_cutoff_year"`
	ProjectionEndYear int    `yaml:"projection_end_year" mapstructure:"projection_end_year"`
	TargetRegion      string `yaml:"target_region" mapstructure:"target_region"`
	AreaCategory      string `yaml:"area_category" mapstructure:"area_category"`
	CompositeSuffix   string `yaml:"composite_suffix" mapstructure:"composite_suffix"`
}

// CacheConfig bounds the analysis memo.
type CacheConfig struct {
	MaxAnalyses int `yaml:"max_analyses" mapstructure:"max_analyses"`
}

// ReportConfig configures table rendering.
type ReportConfig struct {
	Locale string `yaml:"locale" mapstructure:"locale"`
}

// ServerConfig configures the dashboard server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	RateLimit      float64  `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per second
	RateBurst      int      `yaml:"rate_burst" mapstructure:"rate_burst"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	// RefreshSchedule is a cron expression ("*/5 * * * *", "@every 10m")
	// for re-checking the source files. Empty disables it.
	RefreshSchedule string `yaml:"refresh_schedule" mapstructure:"refresh_schedule"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultExtracts are the four DANE departmental projection files.
func DefaultExtracts() []map[string]any {
	return []map[string]any{
		{"name": "df1", "period": "1985-1992", "file": "DCD-area-proypoblacion-dep-1985-1992.xlsx", "header_row": 11, "first_column": 1},
		{"name": "df2", "period": "1993-2004", "file": "DCD-areaproypoblacion-dep-1993-2004.xlsx", "header_row": 11, "first_column": 1},
		{"name": "df3", "period": "2005-2017", "file": "DCD-area-proypoblacion-dep-2005-2017_VP.xlsx", "header_row": 11, "first_column": 1},
		{"name": "df4", "period": "2018-2050", "file": "PPED-AreaDep-2018-2050_VP.xlsx", "sheet": "PobDepartamentalxÁrea", "header_row": 7, "first_column": 1, "composite_rewrite": true},
	}
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("POPFORECAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data.dir", "data")
	v.SetDefault("data.read_attempts", 3)
	v.SetDefault("data.retry_backoff_ms", 200)
	v.SetDefault("extracts", DefaultExtracts())
	v.SetDefault("analysis.train_cutoff_year", 2015)
	v.SetDefault("analysis.projection_end_year", 2050)
	v.SetDefault("analysis.target_region", "Antioquia")
	v.SetDefault("analysis.area_category", "Total")
	v.SetDefault("analysis.composite_suffix", "Urabá")
	v.SetDefault("cache.max_analyses", 32)
	v.SetDefault("report.locale", "en")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit", 10)
	v.SetDefault("server.rate_burst", 20)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.refresh_schedule", "")
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

// Validate checks the settings a command mode depends on. Every problem is
// reported in one error.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "analyze", "serve":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Data.ReadAttempts < 0 {
		problems = append(problems, "data.read_attempts must be >= 0")
	}
	if c.Data.RetryBackoffMs < 0 {
		problems = append(problems, "data.retry_backoff_ms must be >= 0")
	}
	if len(c.Extracts) == 0 {
		problems = append(problems, "extracts must not be empty")
	}
	seen := make(map[string]bool, len(c.Extracts))
	for i, e := range c.Extracts {
		if e.Name == "" {
			problems = append(problems, fmt.Sprintf("extracts[%d].name is required", i))
		} else if seen[e.Name] {
			problems = append(problems, fmt.Sprintf("extracts[%d].name %q is duplicated", i, e.Name))
		}
		seen[e.Name] = true
		if e.File == "" {
			problems = append(problems, fmt.Sprintf("extracts[%d].file is required", i))
		}
		if e.HeaderRow < 0 {
			problems = append(problems, fmt.Sprintf("extracts[%d].header_row must be >= 0", i))
		}
		if e.Column() < 0 {
			problems = append(problems, fmt.Sprintf("extracts[%d].first_column must be >= 0", i))
		}
	}

	if c.Analysis.TargetRegion == "" {
		problems = append(problems, "analysis.target_region is required")
	}
	if c.Analysis.AreaCategory == "" {
		problems = append(problems, "analysis.area_category is required")
	}
	if err := CheckTrainCutoff(c.Analysis.TrainCutoffYear); err != nil {
		problems = append(problems, "analysis.train_cutoff_year: "+err.Error())
	}
	if err := CheckProjectionEnd(c.Analysis.ProjectionEndYear); err != nil {
		problems = append(problems, "analysis.projection_end_year: "+err.Error())
	}
	if c.Cache.MaxAnalyses <= 0 {
		problems = append(problems, "cache.max_analyses must be > 0")
	}

	if mode == "serve" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be > 0 and <= 65535")
		}
		if c.Server.RateLimit <= 0 {
			problems = append(problems, "server.rate_limit must be > 0")
		}
		if c.Server.RateBurst <= 0 {
			problems = append(problems, "server.rate_burst must be > 0")
		}
		if spec := strings.TrimSpace(c.Server.RefreshSchedule); spec != "" {
			if _, err := cron.ParseStandard(spec); err != nil {
				problems = append(problems, fmt.Sprintf("server.refresh_schedule %q: %v", spec, err))
			}
		}
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// CheckTrainCutoff rejects a cutoff year outside the recognized range.
func CheckTrainCutoff(year int) error {
	if year < MinTrainCutoff || year > MaxTrainCutoff {
		return &model.InvalidArgumentError{
			Field:  "train cutoff year",
			Value:  year,
			Reason: fmt.Sprintf("must be between %d and %d", MinTrainCutoff, MaxTrainCutoff),
		}
	}
	return nil
}

// CheckProjectionEnd rejects a projection end year outside the recognized range.
func CheckProjectionEnd(year int) error {
	if year < MinProjectionEnd || year > MaxProjectionEnd {
		return &model.InvalidArgumentError{
			Field:  "projection end year",
			Value:  year,
			Reason: fmt.Sprintf("must be between %d and %d", MinProjectionEnd, MaxProjectionEnd),
		}
	}
	return nil
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
