package states

import (
	"testing"
	"time"
)

func TestManagerPurge(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	m := NewManager()
	m.now = func() time.Time { return now }

	m.SetState(1, UserPromoWaitCode, "old")
	now = now.Add(2 * time.Hour)
	m.SetState(2, UserPromoWaitCode, nil)

	if removed := m.Purge(time.Hour); removed != 1 {
		t.Errorf("Purge() = %d, want 1", removed)
	}
	if got := m.GetState(1); got != StateNone {
		t.Errorf("GetState(1) = %q, want %q", got, StateNone)
	}
	if got := m.GetState(2); got != UserPromoWaitCode {
		t.Errorf("GetState(2) = %q, want %q", got, UserPromoWaitCode)
	}
}

func TestSetStateKeepsData(t *testing.T) {
	m := NewManager()
	m.SetState(1, UserPromoWaitCode, "payload")
	m.SetState(1, UserPromoWaitCode, nil)

	if got := m.GetData(1); got != "payload" {
		t.Errorf("GetData(1) = %v, want payload", got)
	}
	m.Clear(1)
	if m.Len() != 0 {
		t.Errorf("Len() = %d after Clear, want 0", m.Len())
	}
}
