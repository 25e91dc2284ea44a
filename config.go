package streamgen

import (
	"io/ioutil"
	"time"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config defines generator run profile.
type Config struct {
	UniverseSize int `yaml:"universe_size"`

	// SampleSize is a number of records to send. Zero means the whole universe.
	SampleSize int `yaml:"sample_size"`

	PacingDelay     time.Duration `yaml:"pacing_delay"`
	DestinationPort int           `yaml:"destination_port"`
	Interface       string        `yaml:"interface"`
	OnSendError     string        `yaml:"on_send_error"`

	// Seed makes sequences reproducible. Zero means time based seed.
	Seed int64 `yaml:"seed"`

	MetricsPort int    `yaml:"metrics_port"`
	Environment string `yaml:"environment"`
}

// DefaultConfig returns config of the reference join test run.
func DefaultConfig() Config {
	return Config{
		UniverseSize:    DefaultUniverseSize,
		PacingDelay:     DefaultPacing,
		DestinationPort: EventPort,
		Interface:       "eth0",
		OnSendError:     ContinueOnError.String(),
		Environment:     "development",
	}
}

// LoadConfig reads YAML profile from path on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	body, err := ioutil.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to read config")
	}

	return ParseConfig(body, DefaultConfig())
}

// ParseConfig unmarshals YAML body over base.
func ParseConfig(body []byte, base Config) (Config, error) {
	c := base
	if err := yaml.Unmarshal(body, &c); err != nil {
		return Config{}, errors.Wrap(err, "failed to unpack config")
	}

	return c, nil
}

// Samples returns effective number of records per run.
func (c Config) Samples() int {
	if c.SampleSize == 0 {
		return c.UniverseSize
	}

	return c.SampleSize
}

// Policy returns parsed OnSendError.
func (c Config) Policy() (SendErrorPolicy, error) {
	return ParseSendErrorPolicy(c.OnSendError)
}

// Validate checks config values that don't depend on the random source.
func (c Config) Validate() error {
	if c.PacingDelay < 0 {
		return errors.Wrapf(ErrInvalidConfig, "negative pacing delay %v", c.PacingDelay)
	}
	if c.DestinationPort <= 0 || c.DestinationPort > 0xFFFF {
		return errors.Wrapf(ErrInvalidConfig, "destination port %d out of range", c.DestinationPort)
	}
	if c.MetricsPort < 0 || c.MetricsPort > 0xFFFF {
		return errors.Wrapf(ErrInvalidConfig, "metrics port %d out of range", c.MetricsPort)
	}
	if c.SampleSize < 0 {
		return errors.Wrapf(ErrInvalidConfig, "negative sample size %d", c.SampleSize)
	}
	if _, err := c.Policy(); err != nil {
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}

	return nil
}
