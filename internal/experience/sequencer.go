package experience

// The sequencer walks an ordered step list with a 0-based cursor. Indices
// may arrive out of range from stale resumption data, so every function
// clamps rather than panics.

// Clamp normalizes index into [0, len(steps)]. An index at len(steps) is
// the terminal "complete" position.
func Clamp(index int, steps []Step) int {
	if index < 0 {
		return 0
	}
	if index > len(steps) {
		return len(steps)
	}
	return index
}

// CurrentStep returns the step at index, or nil when index is out of range
// or the list is empty.
func CurrentStep(steps []Step, index int) *Step {
	if index < 0 || index >= len(steps) {
		return nil
	}
	return &steps[index]
}

// Advance moves the cursor forward by exactly one, clamped to len(steps).
// There is no skip or jump; traversal is strictly sequential.
func Advance(index int, steps []Step) int {
	return Clamp(Clamp(index, steps)+1, steps)
}

// IsComplete reports whether the cursor has moved past the last step.
// An empty step list is complete at index 0. Completion is terminal:
// no transition leaves it.
func IsComplete(index int, steps []Step) bool {
	return index >= len(steps)
}
