package viewmodel

import (
	"reflect"
	"testing"

	"github.com/housei/dashboard/domain/entities"
)

func TestComputeStats(t *testing.T) {
	tests := []struct {
		name    string
		devices []entities.Device
		want    Stats
	}{
		{
			name:    "empty list",
			devices: nil,
			want:    Stats{},
		},
		{
			name: "off devices never count power",
			devices: []entities.Device{
				{Status: entities.DeviceStatusOff, PowerUsage: watts(99), IsOnline: true},
			},
			want: Stats{DeviceCount: 1, OnlineCount: 1, OnlinePercentage: 100},
		},
		{
			name: "missing power counts as zero",
			devices: []entities.Device{
				{Status: entities.DeviceStatusOn},
				{Status: entities.DeviceStatusOn, PowerUsage: watts(7.5)},
			},
			want: Stats{DeviceCount: 2, ActiveCount: 2, TotalPower: 7.5},
		},
		{
			name: "percentage rounds",
			devices: []entities.Device{
				{IsOnline: true}, {}, {},
			},
			want: Stats{DeviceCount: 3, OnlineCount: 1, OnlinePercentage: 33},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeStats(tt.devices); got != tt.want {
				t.Errorf("ComputeStats() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSyntheticTrend(t *testing.T) {
	tests := []struct {
		name       string
		stats      Stats
		wantTotal  []int
		wantActive []int
	}{
		{
			name:       "large counts",
			stats:      Stats{DeviceCount: 10, ActiveCount: 6},
			wantTotal:  []int{5, 6, 7, 8, 9, 10, 10},
			wantActive: []int{4, 5, 3, 5, 6, 5, 6},
		},
		{
			name:       "clamped at zero",
			stats:      Stats{DeviceCount: 2, ActiveCount: 1},
			wantTotal:  []int{0, 0, 0, 0, 1, 2, 2},
			wantActive: []int{0, 0, 0, 0, 1, 0, 1},
		},
		{
			name:       "empty",
			stats:      Stats{},
			wantTotal:  []int{0, 0, 0, 0, 0, 0, 0},
			wantActive: []int{0, 0, 0, 0, 0, 0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SyntheticTrend(tt.stats)
			if !reflect.DeepEqual(got.Total, tt.wantTotal) {
				t.Errorf("Total = %v, want %v", got.Total, tt.wantTotal)
			}
			if !reflect.DeepEqual(got.Active, tt.wantActive) {
				t.Errorf("Active = %v, want %v", got.Active, tt.wantActive)
			}
			if !got.Synthetic {
				t.Error("trend must be marked synthetic")
			}
			if len(got.Labels) != 7 || got.Labels[0] != "Mon" || got.Labels[6] != "Sun" {
				t.Errorf("Labels = %v", got.Labels)
			}
		})
	}
}
