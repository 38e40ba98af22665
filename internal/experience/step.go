package experience

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// StepType tags the variant of a step.
type StepType string

const (
	StepInput     StepType = "input"
	StepChoice    StepType = "choice"
	StepCapture   StepType = "capture"
	StepTransform StepType = "transform"
)

// StepConfig is the type-specific payload of a step variant.
type StepConfig interface {
	Validate() error
	stepConfig()
}

// Step is a single unit of guest interaction within an experience. Order
// within a snapshot is significant and guest-visible.
type Step struct {
	ID     string
	Type   StepType
	Config StepConfig
}

const maxLabelLen = 200

// InputConfig asks the guest for free text.
type InputConfig struct {
	Label       string `json:"label"`
	Placeholder string `json:"placeholder,omitempty"`
	Multiline   bool   `json:"multiline,omitempty"`
	MaxLength   int    `json:"maxLength,omitempty"`
}

func (c InputConfig) Validate() error {
	if strings.TrimSpace(c.Label) == "" {
		return errors.New("input step requires a label")
	}
	if len(c.Label) > maxLabelLen {
		return fmt.Errorf("input label exceeds %d characters", maxLabelLen)
	}
	if c.MaxLength < 0 {
		return errors.New("input maxLength cannot be negative")
	}
	return nil
}

// ChoiceConfig asks the guest to pick one of several options.
type ChoiceConfig struct {
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

func (c ChoiceConfig) Validate() error {
	if strings.TrimSpace(c.Prompt) == "" {
		return errors.New("choice step requires a prompt")
	}
	if len(c.Options) < 2 {
		return errors.New("choice step requires at least two options")
	}
	for _, o := range c.Options {
		if strings.TrimSpace(o) == "" {
			return errors.New("choice options cannot be blank")
		}
	}
	return nil
}

// CaptureConfig takes a photo from the guest's camera.
type CaptureConfig struct {
	Facing    string `json:"facing,omitempty"`
	Countdown int    `json:"countdown,omitempty"`
}

func (c CaptureConfig) Validate() error {
	switch c.Facing {
	case "", "front", "back":
	default:
		return fmt.Errorf("unknown camera facing %q", c.Facing)
	}
	if c.Countdown < 0 || c.Countdown > 10 {
		return errors.New("capture countdown must be between 0 and 10 seconds")
	}
	return nil
}

// TransformConfig runs an AI transformation over a previously captured photo.
type TransformConfig struct {
	SourceStep string  `json:"sourceStep"`
	Style      string  `json:"style"`
	Prompt     string  `json:"prompt,omitempty"`
	Strength   float64 `json:"strength,omitempty"`
}

func (c TransformConfig) Validate() error {
	if strings.TrimSpace(c.SourceStep) == "" {
		return errors.New("transform step requires a sourceStep")
	}
	if strings.TrimSpace(c.Style) == "" {
		return errors.New("transform step requires a style")
	}
	if c.Strength < 0 || c.Strength > 1 {
		return errors.New("transform strength must be between 0 and 1")
	}
	return nil
}

func (InputConfig) stepConfig()     {}
func (ChoiceConfig) stepConfig()    {}
func (CaptureConfig) stepConfig()   {}
func (TransformConfig) stepConfig() {}

// stepEnvelope is the wire form of a step: stable id, type tag, and a
// type-specific config object.
type stepEnvelope struct {
	ID     string          `json:"id"`
	Type   StepType        `json:"type"`
	Config json.RawMessage `json:"config"`
}

func (s Step) MarshalJSON() ([]byte, error) {
	cfg, err := json.Marshal(s.Config)
	if err != nil {
		return nil, err
	}
	return json.Marshal(stepEnvelope{ID: s.ID, Type: s.Type, Config: cfg})
}

func (s *Step) UnmarshalJSON(data []byte) error {
	var env stepEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	cfg, err := decodeConfig(env.Type, env.Config)
	if err != nil {
		return err
	}
	s.ID = env.ID
	s.Type = env.Type
	s.Config = cfg
	return nil
}

func decodeConfig(t StepType, raw json.RawMessage) (StepConfig, error) {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	switch t {
	case StepInput:
		var c InputConfig
		return c, json.Unmarshal(raw, &c)
	case StepChoice:
		var c ChoiceConfig
		return c, json.Unmarshal(raw, &c)
	case StepCapture:
		var c CaptureConfig
		return c, json.Unmarshal(raw, &c)
	case StepTransform:
		var c TransformConfig
		return c, json.Unmarshal(raw, &c)
	}
	return nil, fmt.Errorf("unknown step type %q", t)
}

// Validate checks the step and its config. Step ids must be non-blank;
// uniqueness across a snapshot is checked by ValidateSteps.
func (s Step) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return errors.New("step id is required")
	}
	if s.Config == nil {
		return fmt.Errorf("step %s has no config", s.ID)
	}
	return s.Config.Validate()
}

// ValidateSteps checks every step in order and rejects duplicate ids.
// Transform steps must reference an earlier capture step.
func ValidateSteps(steps []Step) error {
	seen := make(map[string]bool, len(steps))
	captured := make(map[string]bool)
	for i, st := range steps {
		if err := st.Validate(); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
		if seen[st.ID] {
			return fmt.Errorf("duplicate step id %q", st.ID)
		}
		seen[st.ID] = true
		if st.Type == StepCapture {
			captured[st.ID] = true
		}
		if tc, ok := st.Config.(TransformConfig); ok && !captured[tc.SourceStep] {
			return fmt.Errorf("step %d: transform sourceStep %q is not an earlier capture step", i+1, tc.SourceStep)
		}
	}
	return nil
}
