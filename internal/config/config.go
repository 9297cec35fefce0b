// Package config provides configuration utilities for the application.
package config

import (
	"fmt"
	"regexp"

	"github.com/spf13/viper"

	"shelfwatch/internal/cascade"
	"shelfwatch/internal/common"
	"shelfwatch/internal/model"
)

// Resolution holds the tunable thresholds of the resolution engine. All
// values are empirically tuned defaults; deployments override them via the
// config file or SHELFWATCH_* environment variables.
type Resolution struct {
	ExistingFloor        float64
	ConfidenceThreshold  float64
	FuzzySimilarityFloor float64
	TightPriceTolerance  float64
	ImagePriceTolerance  float64
	MinImageOverlap      float64
	Workers              int
}

// Redis holds assessment queue connection settings.
type Redis struct {
	Addr     string
	Password string
	QueueKey string
	DB       int
}

// Options is the full application configuration.
type Options struct {
	CodePatterns map[string]string
	DatabasePath string
	Redis        Redis
	Resolution   Resolution
}

// SetDefaults registers every configuration default with viper. Called once
// from the CLI before any command runs.
func SetDefaults() {
	viper.SetDefault("database.path", "~/.local/share/shelfwatch/shelfwatch.db")

	viper.SetDefault("resolution.existing_floor", 0.95)
	viper.SetDefault("resolution.confidence_threshold", model.DefaultConfidenceThreshold)
	viper.SetDefault("resolution.fuzzy_similarity_floor", cascade.DefaultFuzzySimilarityFloor)
	viper.SetDefault("resolution.tight_price_tolerance", cascade.DefaultTightPriceTolerance)
	viper.SetDefault("resolution.image_price_tolerance", cascade.DefaultImagePriceTolerance)
	viper.SetDefault("resolution.min_image_overlap", cascade.DefaultMinImageOverlap)
	viper.SetDefault("resolution.workers", 8)

	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.queue_key", "shelfwatch:assessment")
}

// Load reads the resolved configuration out of viper.
func Load() (*Options, error) {
	opts := &Options{
		DatabasePath: ExpandPath(viper.GetString("database.path")),
		CodePatterns: viper.GetStringMapString("retailers.code_patterns"),
		Redis: Redis{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
			QueueKey: viper.GetString("redis.queue_key"),
		},
		Resolution: Resolution{
			ExistingFloor:        viper.GetFloat64("resolution.existing_floor"),
			ConfidenceThreshold:  viper.GetFloat64("resolution.confidence_threshold"),
			FuzzySimilarityFloor: viper.GetFloat64("resolution.fuzzy_similarity_floor"),
			TightPriceTolerance:  viper.GetFloat64("resolution.tight_price_tolerance"),
			ImagePriceTolerance:  viper.GetFloat64("resolution.image_price_tolerance"),
			MinImageOverlap:      viper.GetFloat64("resolution.min_image_overlap"),
			Workers:              viper.GetInt("resolution.workers"),
		},
	}

	if err := opts.validate(); err != nil {
		return nil, err
	}

	return opts, nil
}

func (o *Options) validate() error {
	r := o.Resolution
	if r.ConfidenceThreshold <= 0 || r.ConfidenceThreshold >= r.ExistingFloor {
		return fmt.Errorf("%w: confidence_threshold %.2f must be in (0, existing_floor %.2f)",
			common.ErrInvalidConfig, r.ConfidenceThreshold, r.ExistingFloor)
	}
	if r.ExistingFloor > 1.0 {
		return fmt.Errorf("%w: existing_floor %.2f exceeds 1.0", common.ErrInvalidConfig, r.ExistingFloor)
	}
	if r.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive", common.ErrInvalidConfig)
	}
	return nil
}

// CascadeOptions converts the resolution settings into cascade thresholds.
func (o *Options) CascadeOptions() cascade.Options {
	return cascade.Options{
		FuzzySimilarityFloor: o.Resolution.FuzzySimilarityFloor,
		TightPriceTolerance:  o.Resolution.TightPriceTolerance,
		MinImageOverlap:      o.Resolution.MinImageOverlap,
	}
}

// CompileCodePatterns compiles the per-retailer product-code patterns. An
// invalid pattern is a configuration error, reported with the retailer name.
func (o *Options) CompileCodePatterns() (map[string]*regexp.Regexp, error) {
	compiled := make(map[string]*regexp.Regexp, len(o.CodePatterns))
	for retailer, pattern := range o.CodePatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: code pattern for retailer %q: %v", common.ErrInvalidConfig, retailer, err)
		}
		compiled[retailer] = re
	}
	return compiled, nil
}
