package export

// AxisLayout controls x-axis label density for a chart of n points.
type AxisLayout struct {
	// Interval is the number of labels skipped between shown labels.
	Interval int
	Angle    int
	Height   int
}

// AxisLayoutFor thins labels as the point count grows.
func AxisLayoutFor(n int) AxisLayout {
	var l AxisLayout
	switch {
	case n > 60:
		l.Interval = ceilDiv(n, 15)
	case n > 30:
		l.Interval = ceilDiv(n, 10)
	case n > 15:
		l.Interval = 1
	}
	if n > 20 {
		l.Angle, l.Height = -45, 80
	} else {
		l.Angle, l.Height = -30, 60
	}
	return l
}

// StaggerLevels is how many vertical slots release labels rotate through.
func StaggerLevels(releases int) int {
	switch {
	case releases <= 10:
		return 5
	case releases <= 20:
		return 8
	case releases <= 30:
		return 10
	default:
		return 12
	}
}

// Release label geometry in pixels.
const (
	labelBaseOffset = 40
	labelSpacing    = 15
)

// TopMargin is the space reserved above the plot for staggered labels.
func TopMargin(releases int) int {
	return max(80, labelBaseOffset+StaggerLevels(releases)*labelSpacing+30)
}

// LabelOffset is the distance above its point for the i-th release label.
func LabelOffset(i, releases int) int {
	return labelBaseOffset + (i%StaggerLevels(releases))*labelSpacing
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
