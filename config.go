package bed

import (
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/thalesfsp/bed/errors"
	"github.com/thalesfsp/bed/recommender"
)

// Config declares a recommender to be constructed through the registry.
type Config struct {
	Recommender RecommenderConfig `yaml:"recommender" validate:"required"`
}

// RecommenderConfig names a registered recommender type and carries its
// type-specific parameters.
type RecommenderConfig struct {
	// Type is the registry discriminator, e.g. "SEQUENTIAL_GREEDY".
	Type string `yaml:"type" validate:"required"`

	// Params holds type-specific construction parameters, e.g.
	// surrogate, acquisition_function, num_candidates, seed.
	Params map[string]any `yaml:"params"`
}

var validate = validator.New()

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.Configuration, "read config %q", path)
	}
	return ParseConfig(data)
}

// ParseConfig parses a YAML configuration document.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, errors.Configuration, "parse config")
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, errors.Wrap(err, errors.Configuration, "invalid config")
	}

	return &cfg, nil
}

// Build constructs the configured recommender through the registry.
func (c *Config) Build() (recommender.Recommender, error) {
	return recommender.New(c.Recommender.Type, c.Recommender.Params)
}
