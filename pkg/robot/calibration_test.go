package robot

import (
	"testing"

	"github.com/gwillem/hexapod/pkg/kinematics"
)

func TestDefaultCalibration(t *testing.T) {
	cal := DefaultCalibration()

	tests := []struct {
		leg            LegName
		knee, hip, arm int
	}{
		{LeftFront, 11, 17, 29},
		{LeftMiddle, 12, 18, 30},
		{LeftBack, 13, 19, 31},
		{RightFront, 14, 20, 32},
		{RightMiddle, 15, 21, 33},
		{RightBack, 16, 22, 34},
	}
	for _, tt := range tests {
		lc := cal[tt.leg]
		if lc.Knee.ID != tt.knee || lc.Hip.ID != tt.hip || lc.Arm.ID != tt.arm {
			t.Errorf("%s: got ids %d/%d/%d, want %d/%d/%d", tt.leg,
				lc.Knee.ID, lc.Hip.ID, lc.Arm.ID, tt.knee, tt.hip, tt.arm)
		}
	}
	if err := cal.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestCalibration_ServoIDs(t *testing.T) {
	ids := DefaultCalibration().ServoIDs()
	if len(ids) != 18 {
		t.Fatalf("got %d ids, want 18", len(ids))
	}
	want := []int{11, 17, 29, 12, 18, 30}
	for i, id := range want {
		if ids[i] != id {
			t.Errorf("ids[%d] = %d, want %d", i, ids[i], id)
		}
	}
}

func TestCalibration_ByID(t *testing.T) {
	cal := DefaultCalibration()

	name, joint, ok := cal.ByID(20)
	if !ok || name != RightFront || joint != kinematics.Hip {
		t.Errorf("ByID(20) = %s, %s, %v, want right_front, hip, true", name, joint, ok)
	}
	if _, _, ok := cal.ByID(1); ok {
		t.Error("ByID(1) found a joint, want none")
	}
}

func TestCalibration_Validate(t *testing.T) {
	dup := DefaultCalibration()
	lc := dup[LeftBack]
	lc.Hip.ID = 11
	dup[LeftBack] = lc

	missing := DefaultCalibration()
	delete(missing, RightMiddle)

	badID := DefaultCalibration()
	lc = badID[LeftFront]
	lc.Knee.ID = 254
	badID[LeftFront] = lc

	for name, cal := range map[string]Calibration{"duplicate": dup, "missing": missing, "broadcast id": badID} {
		if err := cal.Validate(); err == nil {
			t.Errorf("%s: Validate succeeded, want error", name)
		}
	}
}

func TestLegCalibration_NoArm(t *testing.T) {
	lc := LegCalibration{Knee: ServoCalibration{ID: 1}, Hip: ServoCalibration{ID: 2}}
	if lc.HasArm() {
		t.Error("HasArm() = true, want false")
	}
	if got := len(lc.Joints()); got != 2 {
		t.Errorf("got %d joints, want 2", got)
	}
}

func TestServoCalibration_Position(t *testing.T) {
	tests := []struct {
		offset int
		rad    float64
		want   int
	}{
		{0, 0, 512},
		{10, 0, 522},
		{-10, 0, 502},
		{-600, 0, 0},               // clamped low
		{600, 0, 1023},             // clamped high
		{20, -2.61799387799, 1023}, // -150 degrees plus trim
	}

	for _, tt := range tests {
		cal := ServoCalibration{ID: 1, Offset: tt.offset}
		if got := cal.Position(tt.rad); got != tt.want {
			t.Errorf("Position(%v) with offset %d = %d, want %d", tt.rad, tt.offset, got, tt.want)
		}
	}
}

func TestServoCalibration_RoundTrip(t *testing.T) {
	cal := ServoCalibration{ID: 3, Offset: 7}
	for pos := 7; pos <= 1023; pos += 97 {
		got := cal.Position(cal.Angle(pos))
		if got != pos {
			t.Errorf("round trip %d -> %d", pos, got)
		}
	}
}
