package viewmodel

// TrendLabels are the x-axis labels of the weekly chart
var TrendLabels = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// Trend is the weekly chart input. There is no stored history, so the series
// are synthesized from the current counts and Synthetic is always true.
type Trend struct {
	Labels    []string `json:"labels"`
	Total     []int    `json:"total"`
	Active    []int    `json:"active"`
	Synthetic bool     `json:"synthetic"`
}

// SyntheticTrend builds the placeholder weekly series ending at the current
// device and active counts
func SyntheticTrend(stats Stats) Trend {
	n, a := stats.DeviceCount, stats.ActiveCount
	return Trend{
		Labels:    append([]string(nil), TrendLabels...),
		Total:     clamp([]int{n - 5, n - 4, n - 3, n - 2, n - 1, n, n}),
		Active:    clamp([]int{a - 2, a - 1, a - 3, a - 1, a, a - 1, a}),
		Synthetic: true,
	}
}

func clamp(points []int) []int {
	for i, v := range points {
		if v < 0 {
			points[i] = 0
		}
	}
	return points
}

func (t Trend) clone() Trend {
	return Trend{
		Labels:    append([]string(nil), t.Labels...),
		Total:     append([]int(nil), t.Total...),
		Active:    append([]int(nil), t.Active...),
		Synthetic: t.Synthetic,
	}
}
