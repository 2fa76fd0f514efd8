package prioexec

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// ShutdownMode decides where the shutdown sentinel ranks among queued run
// messages.
type ShutdownMode int

const (
	// ShutdownImmediate ranks shutdown above every run message. Workers
	// stop as soon as they next receive, leaving queued tasks stalled.
	ShutdownImmediate ShutdownMode = iota

	// ShutdownDrain ranks shutdown below every run message. Workers stop
	// only once no runnable message is queued.
	ShutdownDrain
)

func (m ShutdownMode) String() string {
	switch m {
	case ShutdownImmediate:
		return "immediate"
	case ShutdownDrain:
		return "drain"
	default:
		return "unknown"
	}
}

func (m *ShutdownMode) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "immediate":
		*m = ShutdownImmediate
	case "drain":
		*m = ShutdownDrain
	default:
		return fmt.Errorf("prioexec: unknown shutdown mode %q", s)
	}
	return nil
}

// Options configure a Pool.
//
// All zero values are replaced with sensible defaults in FillDefaults.
type Options struct {
	Workers int `yaml:"workers"`

	// PinWorkers pins worker i to CPU i modulo the CPU count (Linux only).
	PinWorkers bool `yaml:"pin_workers"`

	ShutdownMode ShutdownMode `yaml:"shutdown_mode"`

	// Ctx carries the logger used by the pool and its workers.
	Ctx context.Context `yaml:"-"`

	// OnTaskPanic receives a *TaskPanicError whenever a poll panics.
	OnTaskPanic func(error) `yaml:"-"`

	// OnInternalError receives non-task failures such as CPU pinning errors.
	OnInternalError func(error) `yaml:"-"`
}

func (o *Options) FillDefaults() {
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.Ctx == nil {
		o.Ctx = context.Background()
	}
}

// LoadOptions reads Options from a YAML file. Environment variables in the
// file are expanded before parsing.
func LoadOptions(path string) (Options, error) {
	var opts Options
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, err
	}

	data = []byte(os.ExpandEnv(string(data)))

	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("prioexec: parse %s: %w", path, err)
	}
	opts.FillDefaults()
	return opts, nil
}
