package experience

import (
	"testing"
	"time"
)

func TestDeriveStatus(t *testing.T) {
	now := time.Now()
	fresh := now.Add(-time.Hour)
	stale := now.Add(-48 * time.Hour)

	if got := DeriveStatus(SessionActive, fresh, now, AbandonCutoff); got != SessionActive {
		t.Errorf("fresh active session: got %s", got)
	}
	if got := DeriveStatus(SessionActive, stale, now, AbandonCutoff); got != SessionAbandoned {
		t.Errorf("stale active session: got %s", got)
	}
	if got := DeriveStatus(SessionCreated, stale, now, AbandonCutoff); got != SessionAbandoned {
		t.Errorf("stale created session: got %s", got)
	}
	// Completed is terminal regardless of age.
	if got := DeriveStatus(SessionCompleted, stale, now, AbandonCutoff); got != SessionCompleted {
		t.Errorf("completed session: got %s", got)
	}
}
