package core

import (
	"fmt"
	"time"

	opts "github.com/goliatone/go-options"
)

const (
	DefaultPollMaxAttempts = 60
	DefaultPollInitialWait = 5 * time.Second
	DefaultPollMaxWait     = 60 * time.Second
	DefaultPollTimeout     = 30 * time.Minute
)

// PollSettings are the configurable poll defaults. MaxAttempts 0 means
// "use the default" and a negative value means unlimited.
type PollSettings struct {
	MaxAttempts int           `koanf:"max_attempts" mapstructure:"max_attempts"`
	InitialWait time.Duration `koanf:"initial_wait" mapstructure:"initial_wait"`
	MaxWait     time.Duration `koanf:"max_wait" mapstructure:"max_wait"`
	Timeout     time.Duration `koanf:"timeout" mapstructure:"timeout"`
}

func DefaultPollSettings() PollSettings {
	return PollSettings{
		MaxAttempts: DefaultPollMaxAttempts,
		InitialWait: DefaultPollInitialWait,
		MaxWait:     DefaultPollMaxWait,
		Timeout:     DefaultPollTimeout,
	}
}

func (s PollSettings) Validate() error {
	if s.InitialWait < 0 {
		return fmt.Errorf("core: poll.initial_wait must not be negative")
	}
	if s.MaxWait < 0 {
		return fmt.Errorf("core: poll.max_wait must not be negative")
	}
	if s.Timeout < 0 {
		return fmt.Errorf("core: poll.timeout must not be negative")
	}
	return nil
}

// WaitGrowthFunc computes the next wait from the previous one and the number
// of attempts made so far. Negative results become zero.
type WaitGrowthFunc func(previous time.Duration, attempt int) time.Duration

// DoublingGrowth doubles the previous wait.
func DoublingGrowth(previous time.Duration, _ int) time.Duration {
	return previous * 2
}

// PollConfig is built fresh for every poll call. A zero Deadline means
// start time plus Timeout.
type PollConfig struct {
	PollSettings
	Deadline   time.Time
	WaitGrowth WaitGrowthFunc

	customGrowth bool
	capGrowth    bool
}

func DefaultPollConfig() PollConfig {
	return PollConfig{
		PollSettings: DefaultPollSettings(),
		WaitGrowth:   DoublingGrowth,
	}
}

// MergePollConfig overlays the set fields of overrides onto defaults.
// Zero-valued override fields keep the default.
func MergePollConfig(defaults PollConfig, overrides PollConfig) (PollConfig, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			pollSettingsToLayerMap(defaults.PollSettings, true),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("call", 20),
			pollSettingsToLayerMap(overrides.PollSettings, false),
			opts.WithSnapshotID[map[string]any]("call"),
		),
	)
	if err != nil {
		return PollConfig{}, fmt.Errorf("core: poll options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return PollConfig{}, fmt.Errorf("core: poll options merge failed: %w", err)
	}

	out := PollConfig{
		PollSettings: PollSettings{
			MaxAttempts: layerInt(merged.Value, "max_attempts", defaults.MaxAttempts),
			InitialWait: layerDuration(merged.Value, "initial_wait", defaults.InitialWait),
			MaxWait:     layerDuration(merged.Value, "max_wait", defaults.MaxWait),
			Timeout:     layerDuration(merged.Value, "timeout", defaults.Timeout),
		},
		Deadline:   defaults.Deadline,
		WaitGrowth: defaults.WaitGrowth,
	}
	if !overrides.Deadline.IsZero() {
		out.Deadline = overrides.Deadline
	}
	out.customGrowth = defaults.customGrowth
	out.capGrowth = defaults.capGrowth || overrides.MaxWait > 0
	if overrides.WaitGrowth != nil {
		out.WaitGrowth = overrides.WaitGrowth
		out.customGrowth = true
	}
	return out.normalized(), nil
}

func (c PollConfig) normalized() PollConfig {
	fallback := DefaultPollSettings()
	if c.MaxAttempts == 0 {
		c.MaxAttempts = fallback.MaxAttempts
	}
	if c.InitialWait <= 0 {
		c.InitialWait = fallback.InitialWait
	}
	if c.MaxWait <= 0 {
		c.MaxWait = fallback.MaxWait
	}
	if c.Timeout <= 0 {
		c.Timeout = fallback.Timeout
	}
	if c.WaitGrowth == nil {
		c.WaitGrowth = DoublingGrowth
	}
	return c
}

func (c PollConfig) deadline(startedAt time.Time) time.Time {
	if !c.Deadline.IsZero() {
		return c.Deadline
	}
	return startedAt.Add(c.Timeout)
}

func pollSettingsToLayerMap(settings PollSettings, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || settings.MaxAttempts != 0 {
		layer["max_attempts"] = settings.MaxAttempts
	}
	if includeZero || settings.InitialWait != 0 {
		layer["initial_wait"] = settings.InitialWait
	}
	if includeZero || settings.MaxWait != 0 {
		layer["max_wait"] = settings.MaxWait
	}
	if includeZero || settings.Timeout != 0 {
		layer["timeout"] = settings.Timeout
	}
	return layer
}

func layerInt(values map[string]any, key string, fallback int) int {
	switch typed := values[key].(type) {
	case int:
		return typed
	case int64:
		return int(typed)
	case float64:
		return int(typed)
	default:
		return fallback
	}
}

func layerDuration(values map[string]any, key string, fallback time.Duration) time.Duration {
	switch typed := values[key].(type) {
	case time.Duration:
		return typed
	case int64:
		return time.Duration(typed)
	case int:
		return time.Duration(typed)
	case float64:
		return time.Duration(typed)
	case string:
		parsed, err := time.ParseDuration(typed)
		if err != nil {
			return fallback
		}
		return parsed
	default:
		return fallback
	}
}
