package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/tapline/tapline/internal/domain/model"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version       string          `json:"version"`
	DaemonRunning bool            `json:"daemon_running"`
	Session       *model.Snapshot `json:"session,omitempty"`
	TapsAccepted  float64         `json:"taps_accepted"`
	TapsRejected  float64         `json:"taps_rejected"`
	TapsDuplicate float64         `json:"taps_duplicate"`
	LiveClients   float64         `json:"live_clients"`
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
	base := daemonURL(c.globals.Addr)

	var snap model.Snapshot
	err := doJSON("GET", base+"/session", nil, &snap)
	if errors.Is(err, errDaemonDown) {
		if c.globals.JSON {
			return json.NewEncoder(os.Stdout).Encode(statusJSON{Version: c.version})
		}
		fmt.Printf("Tapline Status\n==============\n")
		fmt.Printf("Version:  %s\n", c.version)
		fmt.Printf("Daemon:   not running (%s)\n", base)
		return nil
	}
	if err != nil {
		return err
	}

	mfs, scrapeErr := scrapeMetrics(base)
	if scrapeErr != nil {
		// The session endpoint answered, so surface the scrape failure
		// rather than reporting the daemon as down.
		return scrapeErr
	}

	out := statusJSON{
		Version:       c.version,
		DaemonRunning: true,
		Session:       &snap,
		TapsAccepted:  counterTotal(mfs, "tapline_tempo_taps_accepted_total"),
		TapsRejected:  counterTotal(mfs, "tapline_tempo_taps_rejected_total"),
		TapsDuplicate: counterTotal(mfs, "tapline_tempo_taps_duplicate_total"),
	}
	if clients, ok := gaugeValue(mfs, "tapline_tempo_live_clients"); ok {
		out.LiveClients = clients
	}

	if c.globals.JSON {
		return json.NewEncoder(os.Stdout).Encode(out)
	}
	return c.printHuman(out)
}

func (c *StatusCommand) printHuman(out statusJSON) error {
	snap := out.Session

	fmt.Printf("Tapline Status\n==============\n")
	fmt.Printf("Version:     %s\n", c.version)
	fmt.Printf("Daemon:      running\n")
	fmt.Printf("Session:     %s\n", snap.SessionID)
	fmt.Printf("Taps:        %d\n", snap.Taps)

	if snap.InstantBPM != nil {
		fmt.Printf("Instant:     %s bpm\n", model.FormatBPM(*snap.InstantBPM))
	}
	if snap.RollingAverage != nil {
		fmt.Printf("Rolling avg: %s bpm\n", model.FormatBPM(*snap.RollingAverage))
	}
	if snap.TargetBPM != nil {
		fmt.Printf("Target:      %s bpm\n", model.FormatBPM(*snap.TargetBPM))
		if snap.Accuracy != nil && snap.ShowAccuracy {
			fmt.Printf("Accuracy:    %d%%\n", *snap.Accuracy)
		}
	}

	fmt.Println()
	fmt.Printf("Accepted:    %.0f\n", out.TapsAccepted)
	fmt.Printf("Rejected:    %.0f\n", out.TapsRejected)
	fmt.Printf("Duplicates:  %.0f\n", out.TapsDuplicate)
	fmt.Printf("Live views:  %.0f\n", out.LiveClients)

	return nil
}
