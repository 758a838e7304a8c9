package users

import "testing"

func TestLevelFor(t *testing.T) {
	tests := []struct {
		referred int
		want     int
	}{
		{0, 1},
		{1, 2},
		{2, 2},
		{3, 3},
		{9, 3},
		{10, 4},
		{29, 4},
		{30, 5},
		{1000, 5},
	}

	for _, tt := range tests {
		if got := LevelFor(tt.referred); got != tt.want {
			t.Errorf("LevelFor(%d) = %d, want %d", tt.referred, got, tt.want)
		}
	}
}

func TestIsVIP(t *testing.T) {
	if IsVIP(3) {
		t.Errorf("IsVIP(3) = true, want false")
	}
	if !IsVIP(4) || !IsVIP(5) {
		t.Errorf("IsVIP(4|5) = false, want true")
	}
	if LevelFor(VIPReferralThreshold) != LevelVIP {
		t.Errorf("VIPReferralThreshold does not map to LevelVIP")
	}
}

func TestNextLevel(t *testing.T) {
	tests := []struct {
		referred    int
		wantLevel   int
		wantMissing int
	}{
		{0, 2, 1},
		{1, 3, 2},
		{5, 4, 5},
		{12, 5, 18},
		{30, 5, 0},
	}

	for _, tt := range tests {
		level, missing := NextLevel(tt.referred)
		if level != tt.wantLevel || missing != tt.wantMissing {
			t.Errorf("NextLevel(%d) = %d, %d, want %d, %d", tt.referred, level, missing, tt.wantLevel, tt.wantMissing)
		}
	}
}
