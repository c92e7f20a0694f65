package config

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/fanctl/internal/domain/thermal"
	"github.com/oshokin/fanctl/internal/ipmi"
	"github.com/oshokin/fanctl/internal/logger"
	"github.com/oshokin/fanctl/internal/sensor"
)

// Config holds the process-wide controller settings.
type Config struct {
	// Interval is the control loop cadence and the default probe interval.
	Interval time.Duration `yaml:"interval"`
	// CommandTimeout bounds every ipmitool/nvidia-smi invocation.
	CommandTimeout time.Duration `yaml:"command_timeout"`
	// StaleAfter drops readings older than this from the max. Zero keeps them forever.
	StaleAfter time.Duration `yaml:"stale_after"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// Curve maps the hottest reading to a duty cycle.
	Curve thermal.FanCurve `yaml:"curve"`
	// IPMITool configures the actuator.
	IPMITool IPMITool `yaml:"ipmitool"`
	// Sources lists the monitored sensor sources.
	Sources []Source `yaml:"sources"`
	// HealthAddress enables the gRPC health endpoint when set (e.g. "127.0.0.1:7710").
	HealthAddress string `yaml:"health_address,omitempty"`
	// StatusFile stores the latest control cycle as JSON when set.
	StatusFile string `yaml:"status_file,omitempty"`
	// CompetingControllers are process names that also drive fans.
	CompetingControllers []string `yaml:"competing_controllers,omitempty"`
}

// IPMITool configures the fan actuator.
type IPMITool struct {
	// Path is the ipmitool executable.
	Path string `yaml:"path"`
	// Zones are the fan zones set every cycle, in order.
	Zones []string `yaml:"zones"`
	// ZonePrefix precedes zone and percent in the raw command.
	ZonePrefix []string `yaml:"zone_prefix"`
	// FullMode is sent once at startup so the BMC does not override us.
	FullMode []string `yaml:"full_mode"`
}

// Source describes one sensor probe.
type Source struct {
	// Name identifies the probe in logs.
	Name string `yaml:"name"`
	// Kind is "poll" or "stream".
	Kind string `yaml:"kind"`
	// Parser is "baseboard" or "accelerator".
	Parser string `yaml:"parser"`
	// Command and Args are the tool invocation.
	Command string   `yaml:"command"`
	Args    []string `yaml:"args,omitempty"`
	// Labels maps baseboard sensor names to table keys.
	Labels map[string]string `yaml:"labels,omitempty"`
	// Prefix replaces "gpu" in accelerator keys, so a second GPU source
	// writes "egpu0" instead of colliding on "gpu0".
	Prefix string `yaml:"prefix,omitempty"`
	// Interval overrides the global interval for this probe.
	Interval time.Duration `yaml:"interval,omitempty"`
	// IdleTimeout restarts a silent stream; defaults to three intervals.
	IdleTimeout time.Duration `yaml:"idle_timeout,omitempty"`
}

const (
	// DefaultConfigFilename is the default settings path.
	DefaultConfigFilename = "fanctl.yaml"

	// DefaultInterval matches the reference 10 second cadence.
	DefaultInterval = 10 * time.Second

	// DefaultCommandTimeout bounds external tool calls.
	DefaultCommandTimeout = 5 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errNoSources is returned when nothing is monitored.
	errNoSources = errors.New("at least one sensor source must be configured")
	// errNoZones is returned when there is nothing to actuate.
	errNoZones = errors.New("at least one fan zone must be configured")
	// errDuplicateSource is returned for repeated source names.
	errDuplicateSource = errors.New("duplicate source name")
	// errInvalidSource is returned for incomplete source definitions.
	errInvalidSource = errors.New("invalid source")
	// errKeyCollision is returned when two sources write the same table key.
	errKeyCollision = errors.New("sources write the same temperature key")
	// errNegativeDuration is returned for negative durations.
	errNegativeDuration = errors.New("durations must not be negative")
	// errUnknownLogLevel is returned for unparseable log levels.
	errUnknownLogLevel = errors.New("unknown log level")
)

// Default returns the reference setup: ipmitool baseboard sensors, the
// (2x - 60)% curve and both Supermicro zones.
func Default() *Config {
	return &Config{
		Interval:       DefaultInterval,
		CommandTimeout: DefaultCommandTimeout,
		LogLevel:       "info",
		Curve:          thermal.DefaultFanCurve(),
		IPMITool: IPMITool{
			Path:       ipmi.DefaultPath,
			Zones:      slices.Clone(ipmi.DefaultZones),
			ZonePrefix: slices.Clone(ipmi.DefaultZonePrefix),
			FullMode:   slices.Clone(ipmi.DefaultFullMode),
		},
		Sources: []Source{BaseboardSource()},
		CompetingControllers: []string{
			"fancontrol",
			"ipmi-fan-control",
		},
	}
}

// BaseboardSource polls `ipmitool sensor`.
func BaseboardSource() Source {
	return Source{
		Name:    "baseboard",
		Kind:    string(sensor.KindPoll),
		Parser:  sensor.ParserBaseboard,
		Command: ipmi.DefaultPath,
		Args:    []string{"sensor"},
	}
}

// AcceleratorSource streams `nvidia-smi dmon` at the given interval.
func AcceleratorSource(interval time.Duration) Source {
	seconds := max(int(interval/time.Second), 1)

	return Source{
		Name:    "gpu",
		Kind:    string(sensor.KindStream),
		Parser:  sensor.ParserAccelerator,
		Command: "nvidia-smi",
		Args:    []string{"dmon", "-s", "p", "-d", strconv.Itoa(seconds)},
	}
}

// Load reads configuration from the provided path and validates it.
// Keys missing from the file keep their Default values.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Default.
// fanctl runs with the reference setup when no config file is present.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}

	return cfg, err
}

// Save writes cfg to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings and fills in defaults.
//
//nolint:cyclop // A flat list of checks reads better than helpers.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.Interval < 0 || cfg.CommandTimeout < 0 || cfg.StaleAfter < 0 {
		return errNegativeDuration
	}

	if cfg.Interval == 0 {
		cfg.Interval = DefaultInterval
	}

	if cfg.CommandTimeout == 0 {
		cfg.CommandTimeout = DefaultCommandTimeout
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%w: %q", errUnknownLogLevel, cfg.LogLevel)
	}

	if err := cfg.Curve.Validate(); err != nil {
		return fmt.Errorf("invalid curve: %w", err)
	}

	if cfg.IPMITool.Path == "" {
		cfg.IPMITool.Path = ipmi.DefaultPath
	}

	if len(cfg.IPMITool.Zones) == 0 {
		return errNoZones
	}

	if len(cfg.Sources) == 0 {
		return errNoSources
	}

	seen := make(map[string]struct{}, len(cfg.Sources))

	for i := range cfg.Sources {
		source := &cfg.Sources[i]

		if err := validateSource(source); err != nil {
			return err
		}

		if _, dup := seen[source.Name]; dup {
			return fmt.Errorf("%w: %s", errDuplicateSource, source.Name)
		}

		seen[source.Name] = struct{}{}
	}

	if err := checkDisjointKeys(cfg.Sources); err != nil {
		return err
	}

	if cfg.HealthAddress != "" {
		if _, _, err := net.SplitHostPort(cfg.HealthAddress); err != nil {
			return fmt.Errorf("invalid health address: %w", err)
		}
	}

	return nil
}

// validateSource checks one source and fills in its defaults.
func validateSource(source *Source) error {
	if source.Name == "" {
		return fmt.Errorf("%w: name is required", errInvalidSource)
	}

	if source.Command == "" {
		return fmt.Errorf("%w: %s: command is required", errInvalidSource, source.Name)
	}

	if source.Interval < 0 || source.IdleTimeout < 0 {
		return fmt.Errorf("%w: %s: %w", errInvalidSource, source.Name, errNegativeDuration)
	}

	switch sensor.Kind(source.Kind) {
	case "":
		source.Kind = string(sensor.KindPoll)
	case sensor.KindPoll, sensor.KindStream:
	default:
		return fmt.Errorf("%w: %s: unknown kind %q", errInvalidSource, source.Name, source.Kind)
	}

	if _, err := sensor.NewParser(source.Parser, source.Labels, source.Prefix); err != nil {
		return fmt.Errorf("%w: %s: %w", errInvalidSource, source.Name, err)
	}

	if source.Prefix != "" && source.Parser != sensor.ParserAccelerator {
		return fmt.Errorf("%w: %s: prefix applies to the %s parser only",
			errInvalidSource, source.Name, sensor.ParserAccelerator)
	}

	return nil
}

// checkDisjointKeys fails when two sources could write the same table key.
// A shared key would make one source silently overwrite the other.
func checkDisjointKeys(sources []Source) error {
	// keys maps every baseboard table key to the source writing it.
	keys := make(map[string]string)
	// accelerators are the key families of the accelerator sources.
	accelerators := make([]sensor.AcceleratorParser, 0, len(sources))
	acceleratorNames := make([]string, 0, len(sources))

	for _, source := range sources {
		if source.Parser == sensor.ParserAccelerator {
			parser := sensor.AcceleratorParser{Prefix: cmp.Or(source.Prefix, sensor.DefaultAcceleratorPrefix)}

			for i, other := range accelerators {
				if parser.Owns(other.Prefix+"0") || other.Owns(parser.Prefix+"0") {
					return fmt.Errorf("%w: %s and %s use overlapping prefixes %q and %q",
						errKeyCollision, acceleratorNames[i], source.Name, other.Prefix, parser.Prefix)
				}
			}

			accelerators = append(accelerators, parser)
			acceleratorNames = append(acceleratorNames, source.Name)

			continue
		}

		labels := source.Labels
		if len(labels) == 0 {
			labels = sensor.DefaultBaseboardLabels()
		}

		for _, label := range slices.Sorted(maps.Keys(labels)) {
			key := labels[label]

			if owner, ok := keys[key]; ok && owner != source.Name {
				return fmt.Errorf("%w: %s and %s both write %q", errKeyCollision, owner, source.Name, key)
			}

			keys[key] = source.Name
		}
	}

	for _, key := range slices.Sorted(maps.Keys(keys)) {
		for i, parser := range accelerators {
			if parser.Owns(key) {
				return fmt.Errorf("%w: %s and %s both write %q", errKeyCollision, keys[key], acceleratorNames[i], key)
			}
		}
	}

	return nil
}
