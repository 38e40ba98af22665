package experience

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestStepRoundTripTaggedUnion(t *testing.T) {
	in := Step{ID: "pick", Type: StepChoice, Config: ChoiceConfig{
		Prompt:  "Favorite color?",
		Options: []string{"red", "blue"},
	}}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out Step
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	cfg, ok := out.Config.(ChoiceConfig)
	if !ok {
		t.Fatalf("expected ChoiceConfig, got %T", out.Config)
	}
	if cfg.Prompt != "Favorite color?" || len(cfg.Options) != 2 {
		t.Errorf("config did not survive the round trip: %+v", cfg)
	}
}

func TestStepUnknownTypeRejected(t *testing.T) {
	var s Step
	err := json.Unmarshal([]byte(`{"id":"x","type":"hologram","config":{}}`), &s)
	if err == nil || !strings.Contains(err.Error(), "unknown step type") {
		t.Fatalf("expected unknown step type error, got %v", err)
	}
}

func TestStepValidation(t *testing.T) {
	bad := []Step{
		{ID: "", Type: StepInput, Config: InputConfig{Label: "x"}},
		{ID: "a", Type: StepInput, Config: InputConfig{}},
		{ID: "b", Type: StepChoice, Config: ChoiceConfig{Prompt: "p", Options: []string{"only"}}},
		{ID: "c", Type: StepCapture, Config: CaptureConfig{Facing: "sideways"}},
		{ID: "d", Type: StepTransform, Config: TransformConfig{Style: "noir"}},
		{ID: "e", Type: StepTransform, Config: TransformConfig{SourceStep: "x", Style: "noir", Strength: 1.5}},
	}
	for _, s := range bad {
		if err := s.Validate(); err == nil {
			t.Errorf("step %q: expected validation error", s.ID)
		}
	}
}

func TestValidateStepsDuplicateID(t *testing.T) {
	steps := []Step{
		{ID: "a", Type: StepInput, Config: InputConfig{Label: "x"}},
		{ID: "a", Type: StepInput, Config: InputConfig{Label: "y"}},
	}
	if err := ValidateSteps(steps); err == nil {
		t.Fatal("expected duplicate id error")
	}
}

func TestValidateStepsTransformNeedsEarlierCapture(t *testing.T) {
	// Transform before its capture source.
	steps := []Step{
		{ID: "fx", Type: StepTransform, Config: TransformConfig{SourceStep: "cam", Style: "noir"}},
		{ID: "cam", Type: StepCapture, Config: CaptureConfig{}},
	}
	if err := ValidateSteps(steps); err == nil {
		t.Fatal("expected ordering error")
	}

	// Correct order passes.
	steps = []Step{
		{ID: "cam", Type: StepCapture, Config: CaptureConfig{}},
		{ID: "fx", Type: StepTransform, Config: TransformConfig{SourceStep: "cam", Style: "noir"}},
	}
	if err := ValidateSteps(steps); err != nil {
		t.Fatalf("expected valid steps, got %v", err)
	}
}

func TestSlotAllows(t *testing.T) {
	cases := []struct {
		slot    Slot
		profile Profile
		want    bool
	}{
		{SlotMain, ProfileFreeform, true},
		{SlotMain, ProfileSurvey, true},
		{SlotMain, ProfileInformational, false},
		{SlotPregate, ProfileInformational, true},
		{SlotPregate, ProfileSurvey, true},
		{SlotPregate, ProfileFreeform, false},
		{SlotPreshare, ProfileInformational, true},
		{SlotPreshare, ProfileFreeform, false},
	}
	for _, c := range cases {
		if got := SlotAllows(c.slot, c.profile); got != c.want {
			t.Errorf("SlotAllows(%s, %s) = %v, want %v", c.slot, c.profile, got, c.want)
		}
	}
}

func TestNextSlot(t *testing.T) {
	if next, ok := NextSlot(SlotPregate); !ok || next != SlotMain {
		t.Errorf("pregate should lead to main, got %s %v", next, ok)
	}
	if next, ok := NextSlot(SlotMain); !ok || next != SlotPreshare {
		t.Errorf("main should lead to preshare, got %s %v", next, ok)
	}
	if _, ok := NextSlot(SlotPreshare); ok {
		t.Error("preshare is the last slot")
	}
}

func TestCorrelationParam(t *testing.T) {
	if CorrelationParam(SlotPregate) != "pregate" {
		t.Error("pregate sessions correlate as ?pregate=")
	}
	if CorrelationParam(SlotMain) != "session" {
		t.Error("main sessions correlate as ?session=")
	}
}
