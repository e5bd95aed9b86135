package adapter

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// DefaultAcquireTimeout bounds how long obtaining a pooled connection may
// take.
const DefaultAcquireTimeout = 5 * time.Second

// Options holds the pool knobs. Zero values leave the driver defaults.
type Options struct {
	// AcquireTimeout bounds obtaining a connection from the pool.
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout"`

	MaxOpen         int           `mapstructure:"max_open"`
	MaxIdle         int           `mapstructure:"max_idle"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{AcquireTimeout: DefaultAcquireTimeout}
}

// DecodeOptions reads pool options from a generic map, as produced by the
// config layer. Durations may be given as strings ("10s") or nanoseconds.
// Missing keys keep their defaults.
func DecodeOptions(raw map[string]any) (Options, error) {
	opts := DefaultOptions()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &opts,
	})
	if err != nil {
		return Options{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return Options{}, fmt.Errorf("invalid pool options: %w", err)
	}
	if opts.AcquireTimeout <= 0 {
		opts.AcquireTimeout = DefaultAcquireTimeout
	}
	if opts.MaxOpen < 0 || opts.MaxIdle < 0 {
		return Options{}, fmt.Errorf("invalid pool options: connection limits must not be negative")
	}
	return opts, nil
}
