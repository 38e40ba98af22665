package experience

import "testing"

func threeSteps() []Step {
	return []Step{
		{ID: "s1", Type: StepInput, Config: InputConfig{Label: "Name"}},
		{ID: "s2", Type: StepChoice, Config: ChoiceConfig{Prompt: "Pick", Options: []string{"a", "b"}}},
		{ID: "s3", Type: StepCapture, Config: CaptureConfig{}},
	}
}

func TestIsCompleteBoundaries(t *testing.T) {
	steps := threeSteps()
	for i := 0; i < len(steps); i++ {
		if IsComplete(i, steps) {
			t.Errorf("index %d: expected not complete", i)
		}
	}
	for _, i := range []int{3, 4, 100} {
		if !IsComplete(i, steps) {
			t.Errorf("index %d: expected complete", i)
		}
	}
}

func TestIsCompleteEmptyList(t *testing.T) {
	if !IsComplete(0, nil) {
		t.Error("empty step list should be complete at index 0")
	}
}

func TestCurrentStep(t *testing.T) {
	steps := threeSteps()

	st := CurrentStep(steps, 1)
	if st == nil || st.ID != "s2" {
		t.Fatalf("expected step s2, got %+v", st)
	}

	for _, i := range []int{-1, 3, 50} {
		if CurrentStep(steps, i) != nil {
			t.Errorf("index %d: expected nil step", i)
		}
	}
	if CurrentStep(nil, 0) != nil {
		t.Error("empty list: expected nil step")
	}
}

func TestAdvanceSequential(t *testing.T) {
	steps := threeSteps()

	idx := 0
	for want := 1; want <= 3; want++ {
		idx = Advance(idx, steps)
		if idx != want {
			t.Fatalf("expected index %d, got %d", want, idx)
		}
	}

	// Completion is terminal: advancing past the end stays clamped.
	if got := Advance(idx, steps); got != 3 {
		t.Errorf("expected index to stay at 3, got %d", got)
	}
}

func TestAdvanceClampsStaleIndex(t *testing.T) {
	steps := threeSteps()

	// A resumed index beyond the (possibly edited) step list clamps to
	// the terminal position instead of erroring.
	if got := Advance(99, steps); got != 3 {
		t.Errorf("expected 3, got %d", got)
	}
	if got := Advance(-5, steps); got != 1 {
		t.Errorf("expected negative index to normalize then advance to 1, got %d", got)
	}
}

func TestClamp(t *testing.T) {
	steps := threeSteps()
	cases := []struct{ in, want int }{
		{-1, 0}, {0, 0}, {2, 2}, {3, 3}, {7, 3},
	}
	for _, c := range cases {
		if got := Clamp(c.in, steps); got != c.want {
			t.Errorf("Clamp(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}
