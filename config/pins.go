package config

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// NumSwitches is the width of the switch word.
const NumSwitches = 16

// PinConfig names the GPIO pins the panel and motor are wired to. Names are whatever the host's
// GPIO registry accepts, e.g. "GPIO17".
type PinConfig struct {
	// Switches holds one pin per switch word bit, bit 0 first. An empty name leaves that bit
	// unwired and reading 0.
	Switches []string `mapstructure:"switches"`

	Up     string `mapstructure:"up"`
	Down   string `mapstructure:"down"`
	Left   string `mapstructure:"left"`
	Right  string `mapstructure:"right"`
	Center string `mapstructure:"center"`

	EncoderA   string `mapstructure:"encoder_a"`
	EncoderB   string `mapstructure:"encoder_b"`
	EncoderAux string `mapstructure:"encoder_aux"`

	PWM       string `mapstructure:"pwm"`
	Direction string `mapstructure:"direction"`
	Tach      string `mapstructure:"tach"`
}

// DefaultPins wires the bits the decoder uses (0 to 5 and the crash switch) on a Raspberry Pi
// header.
func DefaultPins() PinConfig {
	switches := make([]string, NumSwitches)
	copy(switches, []string{"GPIO4", "GPIO17", "GPIO27", "GPIO22", "GPIO5", "GPIO6"})
	switches[15] = "GPIO26"
	return PinConfig{
		Switches:   switches,
		Up:         "GPIO23",
		Down:       "GPIO24",
		Left:       "GPIO25",
		Right:      "GPIO8",
		Center:     "GPIO7",
		EncoderA:   "GPIO20",
		EncoderB:   "GPIO21",
		EncoderAux: "GPIO16",
		PWM:        "GPIO18",
		Direction:  "GPIO13",
		Tach:       "GPIO19",
	}
}

// Validate ensures every required pin is named and no pin is used twice.
func (conf *PinConfig) Validate(path string) error {
	if len(conf.Switches) > NumSwitches {
		return utils.NewConfigValidationError(path, errors.Errorf("at most %d switches, got %d", NumSwitches, len(conf.Switches)))
	}
	required := []struct {
		field string
		pin   string
	}{
		{"up", conf.Up},
		{"down", conf.Down},
		{"left", conf.Left},
		{"right", conf.Right},
		{"center", conf.Center},
		{"encoder_a", conf.EncoderA},
		{"encoder_b", conf.EncoderB},
		{"encoder_aux", conf.EncoderAux},
		{"pwm", conf.PWM},
		{"direction", conf.Direction},
		{"tach", conf.Tach},
	}
	used := map[string]string{}
	claim := func(field, pin string) error {
		if other, ok := used[pin]; ok {
			return utils.NewConfigValidationError(path, errors.Errorf("pin %q used by both %s and %s", pin, other, field))
		}
		used[pin] = field
		return nil
	}
	for _, r := range required {
		if r.pin == "" {
			return utils.NewConfigValidationFieldRequiredError(path, r.field)
		}
		if err := claim(r.field, r.pin); err != nil {
			return err
		}
	}
	for bit, pin := range conf.Switches {
		if pin == "" {
			continue
		}
		if err := claim(fmt.Sprintf("switches.%d", bit), pin); err != nil {
			return err
		}
	}
	return nil
}

// DecodeAssignments applies "key=value" assignments onto out, which must be a pointer to a struct
// with mapstructure tags such as *PinConfig or *MotorConfig. Fields not mentioned keep their
// current value. Lists are comma separated and durations use time.ParseDuration syntax.
func DecodeAssignments(assignments []string, out interface{}) error {
	if len(assignments) == 0 {
		return nil
	}
	raw := make(map[string]interface{}, len(assignments))
	for _, a := range assignments {
		key, value, ok := strings.Cut(a, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return errors.Errorf("expected key=value, got %q", a)
		}
		raw[strings.ToLower(key)] = strings.TrimSpace(value)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return errors.Wrap(decoder.Decode(raw), "decoding assignments")
}
