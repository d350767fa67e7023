package segment

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDurationAndCenter(t *testing.T) {
	s := Segment{Init: 10, End: 10}
	require.Equal(t, float32(1), s.Duration())
	require.Equal(t, float32(10), s.Center())

	s = Segment{Init: 0, End: 15}
	require.Equal(t, float32(16), s.Duration())
	require.Equal(t, float32(8), s.Center())
}

func TestFormatConversions(t *testing.T) {
	// center/duration -> bounds -> center/duration must round-trip
	s := FromCenter(8, 16)
	require.Equal(t, Segment{Init: 0, End: 15}, s)
	require.Equal(t, float32(8), s.Center())
	require.Equal(t, float32(16), s.Duration())

	// odd duration
	s = FromCenter(10, 5)
	require.Equal(t, Segment{Init: 8, End: 12}, s)

	require.Equal(t, Segment{Init: 5, End: 9}, FromInitDuration(5, 5))
}

func TestIoU(t *testing.T) {
	a := Segment{Init: 0, End: 9}

	// identical
	require.InDelta(t, 1.0, a.IoU(a), 1e-6)

	// disjoint
	require.Equal(t, float32(0), a.IoU(Segment{Init: 20, End: 29}))

	// adjacent (no shared frame)
	require.Equal(t, float32(0), a.IoU(Segment{Init: 10, End: 19}))

	// half overlap: frames 5..9 shared, union 0..14
	require.InDelta(t, 5.0/15.0, a.IoU(Segment{Init: 5, End: 14}), 1e-6)

	// containment
	require.InDelta(t, 0.5, a.IoU(Segment{Init: 0, End: 4}), 1e-6)
}

func TestIntersectionRatio(t *testing.T) {
	a := Segment{Init: 0, End: 9}
	require.InDelta(t, 0.5, a.IntersectionRatio(Segment{Init: 5, End: 100}), 1e-6)
	require.Equal(t, float32(0), a.IntersectionRatio(Segment{Init: 50, End: 60}))
}

func TestIoUMatrix(t *testing.T) {
	targets := []Segment{{Init: 0, End: 9}, {Init: 10, End: 19}}
	tests := []Segment{{Init: 0, End: 9}, {Init: 5, End: 14}, {Init: 100, End: 109}}
	m := IoUMatrix(targets, tests)
	require.Len(t, m, 2)
	require.Len(t, m[0], 3)
	require.InDelta(t, 1.0, m[0][0], 1e-6)
	require.InDelta(t, 5.0/15.0, m[0][1], 1e-6)
	require.Equal(t, float32(0), m[0][2])
	require.InDelta(t, 5.0/15.0, m[1][1], 1e-6)

	require.Empty(t, IoUMatrix(nil, tests))
}

func TestUnitScaling(t *testing.T) {
	// A segment spanning a whole 16 frame window maps to center 0.5, duration 1
	s := Segment{Init: 0, End: 15}
	c, d := UnitScale(s, 16, 0)
	require.InDelta(t, 8.0/15.0, c, 1e-6)
	require.InDelta(t, 1.0, d, 1e-6)

	back := UnitRescale(c, d, 16, 0)
	require.Equal(t, s, back)

	// Offset windows
	s = Segment{Init: 132, End: 139}
	c, d = UnitScale(s, 16, 128)
	back = UnitRescale(c, d, 16, 128)
	require.Equal(t, s, back)
}

func TestClip(t *testing.T) {
	s := Segment{Init: -5, End: 200}
	require.Equal(t, Segment{Init: 0, End: 99}, s.Clip(100))
}

func TestNMS(t *testing.T) {
	segs := []Segment{
		{Init: 0, End: 99},    // score 0.9
		{Init: 5, End: 104},   // score 0.8, heavy overlap with first
		{Init: 200, End: 299}, // score 0.7, disjoint
		{Init: 210, End: 309}, // score 0.95, overlaps the previous
	}
	scores := []float32{0.9, 0.8, 0.7, 0.95}

	retain := NMS(segs, scores, 0.5)
	require.Equal(t, []int{3, 0}, retain)

	// Scores of retained proposals are non-increasing
	for i := 1; i < len(retain); i++ {
		require.GreaterOrEqual(t, scores[retain[i-1]], scores[retain[i]])
	}

	// Threshold 1.0 never suppresses partial overlaps
	retain = NMS(segs, scores, 0.999)
	require.Len(t, retain, 4)

	require.Empty(t, NMS(nil, nil, 0.5))
}
