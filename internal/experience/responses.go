package experience

import (
	"bytes"
	"encoding/json"
)

var jsonNull = json.RawMessage("null")

// ResponseSet maps step ids to captured response values. A stored JSON
// null means the guest explicitly cleared the answer; an absent key means
// the step was never answered. Values are raw JSON so variants can carry
// whatever shape their step type produces.
type ResponseSet map[string]json.RawMessage

// Set returns a new set with the response for stepID replaced. A nil or
// empty value records an explicit null. The receiver is not mutated, so
// snapshots handed to callers never alias in-flight writes.
func (r ResponseSet) Set(stepID string, value json.RawMessage) ResponseSet {
	out := make(ResponseSet, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	if len(value) == 0 {
		out[stepID] = jsonNull
	} else {
		out[stepID] = value
	}
	return out
}

// Get returns the most recently set value for stepID. ok is false only
// when the step was never answered; a cleared answer returns JSON null
// with ok true.
func (r ResponseSet) Get(stepID string) (json.RawMessage, bool) {
	v, ok := r[stepID]
	return v, ok
}

// Cleared reports whether stepID holds an explicit null.
func (r ResponseSet) Cleared(stepID string) bool {
	v, ok := r[stepID]
	return ok && bytes.Equal(v, jsonNull)
}

// OutputSet maps step ids to produced media references (storage keys or
// URLs). Same last-write-wins semantics as ResponseSet.
type OutputSet map[string]string

// Set returns a new set with the output for stepID replaced.
func (o OutputSet) Set(stepID, ref string) OutputSet {
	out := make(OutputSet, len(o)+1)
	for k, v := range o {
		out[k] = v
	}
	out[stepID] = ref
	return out
}
