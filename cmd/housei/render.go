package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/housei/dashboard/domain/entities"
	"github.com/housei/dashboard/internal/viewmodel"
)

func printDashboard(w io.Writer, state viewmodel.State) {
	if state.Error != "" {
		fmt.Fprintf(w, "warning: %s\n", state.Error)
	}
	if !state.Loaded {
		fmt.Fprintln(w, "Loading devices...")
		return
	}

	printStats(w, state.Stats)
	fmt.Fprintln(w)

	if len(state.Devices) == 0 {
		fmt.Fprintln(w, "No devices registered")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tSTATUS\tONLINE\tPOWER\tSENSORS")
	for _, d := range state.Devices {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			d.ID, d.Name, d.Type, d.Status, onlineLabel(d.IsOnline), powerLabel(d), sensorSummary(d))
	}
	tw.Flush()
}

func printStats(w io.Writer, s viewmodel.Stats) {
	fmt.Fprintf(w, "Devices: %d  Active: %d  Online: %d (%d%%)  Power: %.1fW\n",
		s.DeviceCount, s.ActiveCount, s.OnlineCount, s.OnlinePercentage, s.TotalPower)
}

func printWatchLine(w io.Writer, state viewmodel.State) {
	stamp := time.Now().Format(time.TimeOnly)
	if state.Error != "" {
		fmt.Fprintf(w, "[%s] warning: %s\n", stamp, state.Error)
		return
	}
	fmt.Fprintf(w, "[%s] ", stamp)
	printStats(w, state.Stats)
}

func onlineLabel(online bool) string {
	if online {
		return "online"
	}
	return "offline"
}

func powerLabel(d entities.Device) string {
	if d.PowerUsage == nil {
		return "-"
	}
	return fmt.Sprintf("%.0fW", *d.PowerUsage)
}

// sensorSummary renders the last readings, falling back to the sensor names
// for devices that never reported
func sensorSummary(d entities.Device) string {
	data := d.SensorData
	if data == nil {
		if len(d.Sensors) == 0 {
			return "-"
		}
		names := make([]string, len(d.Sensors))
		for i, k := range d.Sensors {
			names[i] = string(k)
		}
		return strings.Join(names, ",")
	}

	var parts []string
	if data.Temperature != nil {
		parts = append(parts, fmt.Sprintf("temp=%.1fC", *data.Temperature))
	}
	if data.Humidity != nil {
		parts = append(parts, fmt.Sprintf("hum=%.0f%%", *data.Humidity))
	}
	if data.Gas != nil {
		parts = append(parts, fmt.Sprintf("gas=%.0f", *data.Gas))
	}
	if data.Flame != nil {
		parts = append(parts, fmt.Sprintf("flame=%t", *data.Flame))
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " ")
}
