// Package config loads application configuration from file and environment.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Places    PlacesConfig    `yaml:"places" mapstructure:"places"`
	FHRS      FHRSConfig      `yaml:"fhrs" mapstructure:"fhrs"`
	Scan      ScanConfig      `yaml:"scan" mapstructure:"scan"`
	Match     MatchConfig     `yaml:"match" mapstructure:"match"`
	Districts DistrictsConfig `yaml:"districts" mapstructure:"districts"`
	Report    ReportConfig    `yaml:"report" mapstructure:"report"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// PlacesConfig holds Google Places API settings for directory acquisition.
type PlacesConfig struct {
	Key          string  `yaml:"key" mapstructure:"key"`
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	RadiusMeters float64 `yaml:"radius_meters" mapstructure:"radius_meters"`
	MaxResults   int     `yaml:"max_results" mapstructure:"max_results"`
}

// FHRSConfig holds Food Hygiene Rating Scheme API settings.
type FHRSConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	RadiusMiles float64 `yaml:"radius_miles" mapstructure:"radius_miles"`
	PageSize    int     `yaml:"page_size" mapstructure:"page_size"`
	CountryID   int     `yaml:"country_id" mapstructure:"country_id"`
}

// ScanConfig configures the grid scan over the target metropolitan area.
type ScanConfig struct {
	MinLat       float64 `yaml:"min_lat" mapstructure:"min_lat"`
	MaxLat       float64 `yaml:"max_lat" mapstructure:"max_lat"`
	MinLng       float64 `yaml:"min_lng" mapstructure:"min_lng"`
	MaxLng       float64 `yaml:"max_lng" mapstructure:"max_lng"`
	Rows         int     `yaml:"rows" mapstructure:"rows"`
	Cols         int     `yaml:"cols" mapstructure:"cols"`
	RateLimit    float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	TargetPlaces int     `yaml:"target_places" mapstructure:"target_places"`
}

// DistanceBucket maps a great-circle distance ceiling (meters) to a score.
type DistanceBucket struct {
	UpToMeters float64 `yaml:"up_to_meters" mapstructure:"up_to_meters"`
	Score      float64 `yaml:"score" mapstructure:"score"`
}

// MatchConfig configures the record-linkage engine.
//
// The combined score is NameWeight*name + DistanceWeight*distance +
// PostcodeWeight*postcode. All three signals are in [0,1] and the weights sum
// to WeightTotal, so the combined score lives on [0, WeightTotal] and
// MinMatchScore is calibrated to that same scale. The defaults use a unit
// total with an acceptance floor of 0.5.
type MatchConfig struct {
	MaxDistanceMeters float64 `yaml:"max_distance_meters" mapstructure:"max_distance_meters"`
	MinMatchScore     float64 `yaml:"min_match_score" mapstructure:"min_match_score"`

	NameWeight     float64 `yaml:"name_weight" mapstructure:"name_weight"`
	DistanceWeight float64 `yaml:"distance_weight" mapstructure:"distance_weight"`
	PostcodeWeight float64 `yaml:"postcode_weight" mapstructure:"postcode_weight"`
	WeightTotal    float64 `yaml:"weight_total" mapstructure:"weight_total"`

	// Name-similarity blend between the token-sort edit-distance ratio and
	// Jaro-Winkler. LevWeight 1 / JaroWinklerWeight 0 gives the pure
	// edit-distance ratio.
	LevWeight         float64 `yaml:"lev_weight" mapstructure:"lev_weight"`
	JaroWinklerWeight float64 `yaml:"jaro_winkler_weight" mapstructure:"jaro_winkler_weight"`

	DistanceBuckets []DistanceBucket `yaml:"distance_buckets" mapstructure:"distance_buckets"`

	Workers int `yaml:"workers" mapstructure:"workers"`
}

// DistrictsConfig configures the borough boundary import.
type DistrictsConfig struct {
	ShapefileURL string `yaml:"shapefile_url" mapstructure:"shapefile_url"`
	NameField    string `yaml:"name_field" mapstructure:"name_field"`
}

// ReportConfig configures summary reporting.
type ReportConfig struct {
	// HighConfidence is the combined-score floor above which a match is
	// counted as high confidence, on the same scale as MinMatchScore.
	HighConfidence float64 `yaml:"high_confidence" mapstructure:"high_confidence"`
}

// ServerConfig configures the results server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("LINKAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "linkage.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("places.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("places.radius_meters", 2000)
	v.SetDefault("places.max_results", 20)
	v.SetDefault("fhrs.base_url", "https://api.ratings.food.gov.uk")
	v.SetDefault("fhrs.radius_miles", 1.3)
	v.SetDefault("fhrs.page_size", 500)
	v.SetDefault("fhrs.country_id", 1)
	// Greater London bounding box.
	v.SetDefault("scan.min_lat", 51.28)
	v.SetDefault("scan.max_lat", 51.70)
	v.SetDefault("scan.min_lng", -0.51)
	v.SetDefault("scan.max_lng", 0.33)
	v.SetDefault("scan.rows", 10)
	v.SetDefault("scan.cols", 10)
	v.SetDefault("scan.rate_limit", 2)
	v.SetDefault("scan.target_places", 0)
	v.SetDefault("match.max_distance_meters", 500)
	v.SetDefault("match.min_match_score", 0.5)
	v.SetDefault("match.name_weight", 0.7)
	v.SetDefault("match.distance_weight", 0.2)
	v.SetDefault("match.postcode_weight", 0.1)
	v.SetDefault("match.weight_total", 1.0)
	v.SetDefault("match.lev_weight", 1.0)
	v.SetDefault("match.jaro_winkler_weight", 0.0)
	v.SetDefault("match.workers", 8)
	v.SetDefault("districts.shapefile_url", "https://data.london.gov.uk/download/statistical-gis-boundary-files-london/9ba8c833-6370-4b11-abdc-314aa020d5e0/statistical-gis-boundaries-london.zip")
	v.SetDefault("districts.name_field", "NAME")
	v.SetDefault("report.high_confidence", 0.9)

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
