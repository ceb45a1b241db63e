package od

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the tolerances, caps and damping parameters of the orbit
// determination. The zero value is not usable, start from DefaultConfig.
type Config struct {
	PrecisionEta        float64         `mapstructure:"precision_eta"`         // Gauss's method root-find tolerance
	MaxIterations       int             `mapstructure:"max_iterations"`        // shared iteration cap
	DecimalDelta        float64         `mapstructure:"decimal_delta"`         // relative Jacobian step
	MaxTimeDiff         float64         `mapstructure:"max_time_diff"`         // seconds
	DampingMultiplier   float64         `mapstructure:"damping_multiplier"`    // ν
	InitialDamping      float64         `mapstructure:"initial_damping"`       // λ
	DampingCeiling      float64         `mapstructure:"damping_ceiling"`       // λ escalation stops here
	LineSearchTolerance float64         `mapstructure:"line_search_tolerance"` // bisection width
	MinPerigee          float64         `mapstructure:"min_perigee"`           // Earth radii
	MaxApogee           float64         `mapstructure:"max_apogee"`            // Earth radii
	LastObservationCost bool            `mapstructure:"last_observation_cost"` // only score the last observation
	Body                CelestialObject `mapstructure:"-"`
}

// DefaultConfig returns the configuration all published results were computed with.
func DefaultConfig() Config {
	return Config{
		PrecisionEta:        1e-9,
		MaxIterations:       10000,
		DecimalDelta:        1e-6,
		MaxTimeDiff:         1.0,
		DampingMultiplier:   2.0,
		InitialDamping:      0.1,
		DampingCeiling:      9,
		LineSearchTolerance: 0.001,
		MinPerigee:          1,
		MaxApogee:           7,
		Body:                Earth,
	}
}

// Validate returns an error if any parameter would make the numerics meaningless.
func (c Config) Validate() error {
	switch {
	case c.PrecisionEta <= 0:
		return fmt.Errorf("precision_eta must be positive, got %g", c.PrecisionEta)
	case c.MaxIterations < 0:
		return fmt.Errorf("max_iterations must not be negative, got %d", c.MaxIterations)
	case c.DecimalDelta <= 0:
		return fmt.Errorf("decimal_delta must be positive, got %g", c.DecimalDelta)
	case c.DampingMultiplier <= 1:
		return fmt.Errorf("damping_multiplier must be greater than one, got %g", c.DampingMultiplier)
	case c.InitialDamping <= 0:
		return fmt.Errorf("initial_damping must be positive, got %g", c.InitialDamping)
	case c.LineSearchTolerance <= 0 || c.LineSearchTolerance >= 1:
		return fmt.Errorf("line_search_tolerance must be in (0, 1), got %g", c.LineSearchTolerance)
	case c.MinPerigee >= c.MaxApogee:
		return fmt.Errorf("min_perigee (%g) must be below max_apogee (%g)", c.MinPerigee, c.MaxApogee)
	case c.Body.GM() <= 0 || c.Body.Radius <= 0:
		return fmt.Errorf("invalid central body %q", c.Body.Name)
	}
	return nil
}

// LoadConfig reads the configuration file at path (any format viper supports)
// on top of DefaultConfig. Environment variables prefixed with OD_ override
// the file, e.g. OD_MAX_ITERATIONS. An empty path only applies the environment.
func LoadConfig(path string) (Config, error) {
	conf := DefaultConfig()
	v := viper.New()
	v.SetDefault("precision_eta", conf.PrecisionEta)
	v.SetDefault("max_iterations", conf.MaxIterations)
	v.SetDefault("decimal_delta", conf.DecimalDelta)
	v.SetDefault("max_time_diff", conf.MaxTimeDiff)
	v.SetDefault("damping_multiplier", conf.DampingMultiplier)
	v.SetDefault("initial_damping", conf.InitialDamping)
	v.SetDefault("damping_ceiling", conf.DampingCeiling)
	v.SetDefault("line_search_tolerance", conf.LineSearchTolerance)
	v.SetDefault("min_perigee", conf.MinPerigee)
	v.SetDefault("max_apogee", conf.MaxApogee)
	v.SetDefault("last_observation_cost", conf.LastObservationCost)
	v.SetDefault("central_body", conf.Body.Name)
	v.SetEnvPrefix("OD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return conf, fmt.Errorf("reading %s: %w", path, err)
		}
	}
	if err := v.Unmarshal(&conf); err != nil {
		return conf, fmt.Errorf("decoding %s: %w", path, err)
	}
	body, err := CelestialObjectFromString(v.GetString("central_body"))
	if err != nil {
		return conf, err
	}
	conf.Body = body
	return conf, conf.Validate()
}
