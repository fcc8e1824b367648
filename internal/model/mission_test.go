package model

import (
	"testing"
	"time"
)

func TestNewMission(t *testing.T) {
	expiry := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	m := NewMission(7, PlayScore, expiry)

	if m.UserID != 7 || m.Type != PlayScore {
		t.Fatalf("unexpected identity: %+v", m)
	}
	if m.Target != 1000 {
		t.Fatalf("target = %d, want 1000", m.Target)
	}
	if m.Progress != 0 || m.Completed || m.CompletedAt != nil {
		t.Fatalf("new mission not pristine: %+v", m)
	}
	if !m.ExpiredAt.Equal(expiry) {
		t.Fatalf("expiredAt = %v, want %v", m.ExpiredAt, expiry)
	}
}

func TestAllMissionTypes(t *testing.T) {
	types := AllMissionTypes()
	if len(types) != MissionTypeCount() {
		t.Fatalf("len = %d, want %d", len(types), MissionTypeCount())
	}
	for _, typ := range types {
		if _, ok := SpecFor(typ); !ok {
			t.Fatalf("no spec registered for %s", typ)
		}
	}
	if _, ok := SpecFor(MissionType("NOPE")); ok {
		t.Fatal("unknown type should have no spec")
	}
}

func TestAdvanceProgress(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	tests := []struct {
		name          string
		mission       Mission
		newProgress   int
		canComplete   bool
		wantChanged   bool
		wantProgress  int
		wantCompleted bool
	}{
		{
			name:         "progress advances",
			mission:      Mission{Progress: 1, Target: 3, ExpiredAt: future},
			newProgress:  2,
			canComplete:  true,
			wantChanged:  true,
			wantProgress: 2,
		},
		{
			name:         "lower progress ignored",
			mission:      Mission{Progress: 2, Target: 3, ExpiredAt: future},
			newProgress:  1,
			canComplete:  true,
			wantChanged:  false,
			wantProgress: 2,
		},
		{
			name:         "equal progress is a no-op",
			mission:      Mission{Progress: 2, Target: 3, ExpiredAt: future},
			newProgress:  2,
			canComplete:  true,
			wantChanged:  false,
			wantProgress: 2,
		},
		{
			name:          "completes at target",
			mission:       Mission{Progress: 2, Target: 3, ExpiredAt: future},
			newProgress:   3,
			canComplete:   true,
			wantChanged:   true,
			wantProgress:  3,
			wantCompleted: true,
		},
		{
			name:          "completes past target",
			mission:       Mission{Progress: 0, Target: 1000, ExpiredAt: future},
			newProgress:   1500,
			canComplete:   true,
			wantChanged:   true,
			wantProgress:  1500,
			wantCompleted: true,
		},
		{
			name:         "guard withheld keeps it active at target",
			mission:      Mission{Progress: 0, Target: 1000, ExpiredAt: future},
			newProgress:  1200,
			canComplete:  false,
			wantChanged:  true,
			wantProgress: 1200,
		},
		{
			name:          "guard satisfied later completes without progress change",
			mission:       Mission{Progress: 1200, Target: 1000, ExpiredAt: future},
			newProgress:   1200,
			canComplete:   true,
			wantChanged:   true,
			wantProgress:  1200,
			wantCompleted: true,
		},
		{
			name:         "expired mission is frozen",
			mission:      Mission{Progress: 2, Target: 3, ExpiredAt: past},
			newProgress:  3,
			canComplete:  true,
			wantChanged:  false,
			wantProgress: 2,
		},
		{
			name:          "completed mission is frozen",
			mission:       Mission{Progress: 3, Target: 3, Completed: true, ExpiredAt: future},
			newProgress:   5,
			canComplete:   true,
			wantChanged:   false,
			wantProgress:  3,
			wantCompleted: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tt.mission
			changed := m.AdvanceProgress(tt.newProgress, tt.canComplete, now)
			if changed != tt.wantChanged {
				t.Fatalf("changed = %v, want %v", changed, tt.wantChanged)
			}
			if m.Progress != tt.wantProgress {
				t.Fatalf("progress = %d, want %d", m.Progress, tt.wantProgress)
			}
			if m.Completed != tt.wantCompleted {
				t.Fatalf("completed = %v, want %v", m.Completed, tt.wantCompleted)
			}
			if tt.wantCompleted && m.CompletedAt == nil {
				t.Fatal("completedAt not stamped")
			}
		})
	}
}

func TestAdvanceProgressStampsNow(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	m := Mission{Progress: 2, Target: 3, ExpiredAt: now.Add(time.Hour)}
	if !m.AdvanceProgress(3, true, now) {
		t.Fatal("expected change")
	}
	if m.CompletedAt == nil || !m.CompletedAt.Equal(now) {
		t.Fatalf("completedAt = %v, want %v", m.CompletedAt, now)
	}
}

func TestIsExpired(t *testing.T) {
	at := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	m := Mission{ExpiredAt: at}
	if m.IsExpired(at) {
		t.Fatal("boundary instant must not count as expired")
	}
	if !m.IsExpired(at.Add(time.Second)) {
		t.Fatal("past the boundary must count as expired")
	}
	var zero Mission
	if zero.IsExpired(at) {
		t.Fatal("zero expiry never expires")
	}
}
