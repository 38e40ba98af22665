// Package experience defines the core domain types and rules for guest
// experiences: step variants, the step sequencer, response tracking,
// slot/profile compatibility, and draft/publish versioning.
// It has zero external dependencies — everything here is pure Go.
package experience

// Profile constrains which slot an experience may occupy.
type Profile string

const (
	ProfileFreeform      Profile = "freeform"
	ProfileInformational Profile = "informational"
	ProfileSurvey        Profile = "survey"
)

// Slot is a position in the guest journey an experience can be assigned to.
type Slot string

const (
	SlotMain     Slot = "main"
	SlotPregate  Slot = "pregate"
	SlotPreshare Slot = "preshare"
)

// ValidProfile reports whether p is a known profile.
func ValidProfile(p Profile) bool {
	switch p {
	case ProfileFreeform, ProfileInformational, ProfileSurvey:
		return true
	}
	return false
}

// ValidSlot reports whether s is a known slot.
func ValidSlot(s Slot) bool {
	switch s {
	case SlotMain, SlotPregate, SlotPreshare:
		return true
	}
	return false
}

// SlotAllows reports whether an experience with profile p may be assigned
// to slot s. The main slot takes freeform and survey experiences; pregate
// and preshare take informational and survey.
func SlotAllows(s Slot, p Profile) bool {
	switch s {
	case SlotMain:
		return p == ProfileFreeform || p == ProfileSurvey
	case SlotPregate, SlotPreshare:
		return p == ProfileInformational || p == ProfileSurvey
	}
	return false
}

// JourneyOrder is the order slots run in: pregate, then main, then preshare.
var JourneyOrder = []Slot{SlotPregate, SlotMain, SlotPreshare}

// NextSlot returns the slot that follows s in the guest journey, or false
// when s is the last one.
func NextSlot(s Slot) (Slot, bool) {
	for i, cur := range JourneyOrder {
		if cur == s && i+1 < len(JourneyOrder) {
			return JourneyOrder[i+1], true
		}
	}
	return "", false
}

// CorrelationParam is the URL query parameter a completed session's id is
// passed under when the guest is routed to the next slot. Pregate sessions
// are correlated as ?pregate=<id>; everything else as ?session=<id>.
func CorrelationParam(s Slot) string {
	if s == SlotPregate {
		return "pregate"
	}
	return "session"
}

// Snapshot is one versioned configuration of an experience. Guests only
// ever see published snapshots; admins edit the draft.
type Snapshot struct {
	Intro string `json:"intro,omitempty"`
	Outro string `json:"outro,omitempty"`
	Steps []Step `json:"steps"`
}

// SlotMap is one versioned slot wiring of an event: experience ids keyed
// by slot, empty meaning unassigned.
type SlotMap struct {
	Main     string `json:"main,omitempty"`
	Pregate  string `json:"pregate,omitempty"`
	Preshare string `json:"preshare,omitempty"`
}

// Get returns the experience id assigned to slot s.
func (m SlotMap) Get(s Slot) string {
	switch s {
	case SlotMain:
		return m.Main
	case SlotPregate:
		return m.Pregate
	case SlotPreshare:
		return m.Preshare
	}
	return ""
}

// Set assigns experience id to slot s.
func (m *SlotMap) Set(s Slot, id string) {
	switch s {
	case SlotMain:
		m.Main = id
	case SlotPregate:
		m.Pregate = id
	case SlotPreshare:
		m.Preshare = id
	}
}
