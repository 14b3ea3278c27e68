// Package config defines how the controller is configured: task timing, host wiring and where the
// telemetry trace and logs go. Nothing here tunes the controller; gains and setpoint always start
// at zero.
package config

import (
	"time"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/speedctl/logging"
)

// Config is the full set of host settings.
type Config struct {
	// InputPeriod is how often the input task samples the panel when no button edge wakes it.
	InputPeriod time.Duration
	// ControlPeriod is the fixed control tick.
	ControlPeriod time.Duration
	// ControlReceiveTimeout bounds the control task's wait for a fresh operator snapshot.
	ControlReceiveTimeout time.Duration
	// DisplayTimeout bounds the display task's wait for a new snapshot.
	DisplayTimeout time.Duration

	WatchdogPeriod  time.Duration
	WatchdogTimeout time.Duration

	// StatsInterval is how often task statistics are logged. Zero turns the reporter off.
	StatsInterval time.Duration

	// Simulate runs against a simulated motor and a fake panel driven from stdin.
	Simulate bool

	// TelemetryFile receives the "<current>,<target>" trace. Empty means stdout.
	TelemetryFile string
	// LogFile, when set, receives logs in addition to whichever console stream is free.
	LogFile string
	// PanelFile is where the terminal panel is drawn, e.g. another tty. Empty means stderr.
	PanelFile string
	// MaxFileSizeMB is the size at which TelemetryFile and LogFile are rotated.
	MaxFileSizeMB int
	// LogLevel is one of debug, info, warn or error. Empty means info.
	LogLevel string
	Debug    bool

	Pins  PinConfig
	Motor MotorConfig
}

// MotorConfig describes the motor driver and tachometer.
type MotorConfig struct {
	PWMFrequencyHz int           `mapstructure:"pwm_freq_hz"`
	TachWindow     time.Duration `mapstructure:"tach_window"`
	// MaxRPM and TimeConstant shape the simulated motor.
	MaxRPM       int           `mapstructure:"sim_max_rpm"`
	TimeConstant time.Duration `mapstructure:"sim_time_constant"`
}

// Default returns the configuration the controller runs with when nothing is overridden.
func Default() Config {
	return Config{
		InputPeriod:           50 * time.Millisecond,
		ControlPeriod:         time.Second,
		ControlReceiveTimeout: 50 * time.Millisecond,
		DisplayTimeout:        100 * time.Millisecond,
		WatchdogPeriod:        500 * time.Millisecond,
		WatchdogTimeout:       2 * time.Second,
		StatsInterval:         time.Minute,
		MaxFileSizeMB:         10,
		Pins:                  DefaultPins(),
		Motor: MotorConfig{
			PWMFrequencyHz: 20000,
			TachWindow:     200 * time.Millisecond,
			MaxRPM:         1000,
			TimeConstant:   2 * time.Second,
		},
	}
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	for _, p := range []struct {
		field string
		value time.Duration
	}{
		{"input_period", conf.InputPeriod},
		{"control_period", conf.ControlPeriod},
		{"display_timeout", conf.DisplayTimeout},
		{"watchdog_period", conf.WatchdogPeriod},
		{"watchdog_timeout", conf.WatchdogTimeout},
	} {
		if p.value <= 0 {
			return utils.NewConfigValidationError(path, errors.Errorf("%s must be positive, got %v", p.field, p.value))
		}
	}
	if conf.ControlReceiveTimeout < 0 || conf.ControlReceiveTimeout >= conf.ControlPeriod {
		return utils.NewConfigValidationError(path, errors.Errorf(
			"control_receive_timeout %v must be at least zero and shorter than control_period %v",
			conf.ControlReceiveTimeout, conf.ControlPeriod))
	}
	if conf.WatchdogTimeout <= conf.WatchdogPeriod {
		return utils.NewConfigValidationError(path, errors.Errorf(
			"watchdog_timeout %v must be longer than watchdog_period %v", conf.WatchdogTimeout, conf.WatchdogPeriod))
	}
	if conf.StatsInterval < 0 {
		return utils.NewConfigValidationError(path, errors.New("stats_interval can not be negative"))
	}
	if (conf.TelemetryFile != "" || conf.LogFile != "") && conf.MaxFileSizeMB <= 0 {
		return utils.NewConfigValidationError(path, errors.New("max_file_size_mb must be positive"))
	}
	if conf.LogLevel != "" {
		if _, err := logging.LevelFromString(conf.LogLevel); err != nil {
			return utils.NewConfigValidationError(path, err)
		}
	}
	if err := conf.Motor.Validate(path + ".motor"); err != nil {
		return err
	}
	if conf.Simulate {
		return nil
	}
	return conf.Pins.Validate(path + ".pins")
}

// Level is the log level to run at. Debug wins over LogLevel.
func (conf *Config) Level() logging.Level {
	if conf.Debug {
		return logging.DEBUG
	}
	level, err := logging.LevelFromString(conf.LogLevel)
	if err != nil {
		return logging.INFO
	}
	return level
}

// Validate ensures the motor settings are usable.
func (conf *MotorConfig) Validate(path string) error {
	if conf.PWMFrequencyHz <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "pwm_freq_hz")
	}
	if conf.TachWindow <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "tach_window")
	}
	if conf.MaxRPM <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "sim_max_rpm")
	}
	if conf.TimeConstant <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "sim_time_constant")
	}
	return nil
}
