package viewmodel

import (
	"math"

	"github.com/housei/dashboard/domain/entities"
)

// Stats are the aggregates shown on the dashboard cards
type Stats struct {
	DeviceCount      int     `json:"device_count"`
	ActiveCount      int     `json:"active_count"`
	OnlineCount      int     `json:"online_count"`
	OnlinePercentage int     `json:"online_percentage"`
	TotalPower       float64 `json:"total_power"`
}

// ComputeStats derives the dashboard aggregates from a device list.
// Power only counts for devices that are switched on.
func ComputeStats(devices []entities.Device) Stats {
	stats := Stats{DeviceCount: len(devices)}
	for i := range devices {
		d := &devices[i]
		if d.Status == entities.DeviceStatusOn {
			stats.ActiveCount++
			stats.TotalPower += d.Power()
		}
		if d.IsOnline {
			stats.OnlineCount++
		}
	}
	if stats.DeviceCount > 0 {
		stats.OnlinePercentage = int(math.Round(float64(stats.OnlineCount) / float64(stats.DeviceCount) * 100))
	}
	return stats
}
