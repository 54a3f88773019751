package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/tapline/tapline/internal/adapters/input"
	service "github.com/tapline/tapline/internal/app"
	"github.com/tapline/tapline/internal/domain/model"
	"github.com/tapline/tapline/pkg/logger"
)

// Execute implements the go-flags Commander interface for TapCommand.
func (c *TapCommand) Execute(args []string) error {
	if !c.globals.Verbose {
		_ = logger.SetLevelString("error")
	}

	source := model.Source(c.Source)
	if !source.Valid() {
		return fmt.Errorf("unknown source %q (use key, click, context, or synthetic)", c.Source)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var src input.Source
	switch {
	case c.Count > 0:
		src = input.NewSyntheticSource(c.Count, c.Interval)
	default:
		src = input.NewReaderSource(os.Stdin, source)
	}

	if c.Remote {
		return c.executeRemote(ctx, src, os.Stdout)
	}

	svc := service.New(
		service.WithPrefsPath(c.globals.Prefs),
	)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	return c.executeWithService(ctx, svc, src, os.Stdout)
}

// executeWithService runs the tap session against a provided service (for testing).
func (c *TapCommand) executeWithService(ctx context.Context, svc *service.Service, src input.Source, w io.Writer) error {
	showAccuracy := svc.Snapshot(ctx).ShowAccuracy

	err := src.Stream(ctx, func(tap model.Tap) error {
		result, duplicate, tapErr := svc.Tap(ctx, tap)
		if tapErr != nil {
			return tapErr
		}
		if duplicate {
			return nil
		}
		c.printResult(w, result, showAccuracy)
		return nil
	})
	if err != nil && ctx.Err() == nil {
		return err
	}

	return c.printSummary(w, svc.Snapshot(context.Background()))
}

// executeRemote forwards every tap to the daemon's /taps endpoint.
func (c *TapCommand) executeRemote(ctx context.Context, src input.Source, w io.Writer) error {
	base := daemonURL(c.globals.Addr)

	var initial model.Snapshot
	if getErr := doJSON("GET", base+"/session", nil, &initial); getErr != nil {
		return getErr
	}
	showAccuracy := initial.ShowAccuracy

	err := src.Stream(ctx, func(tap model.Tap) error {
		var result model.TapResult
		body := map[string]string{
			"event_id": tap.EventID,
			"source":   string(tap.Source),
		}
		if postErr := doJSON("POST", base+"/taps", body, &result); postErr != nil {
			return postErr
		}
		c.printResult(w, result, showAccuracy)
		return nil
	})
	if err != nil && ctx.Err() == nil {
		return err
	}

	var snap model.Snapshot
	if getErr := doJSON("GET", base+"/session", nil, &snap); getErr != nil {
		return getErr
	}
	return c.printSummary(w, snap)
}

func (c *TapCommand) printResult(w io.Writer, result model.TapResult, showAccuracy bool) {
	if c.globals.JSON {
		_ = json.NewEncoder(w).Encode(result)
		return
	}

	switch {
	case result.Rejected:
		fmt.Fprintf(w, "tap %-3d rejected (interval below floor)\n", result.Taps)
	case result.InstantBPM == nil:
		fmt.Fprintf(w, "tap %-3d baseline\n", result.Taps)
	default:
		line := fmt.Sprintf("tap %-3d %s bpm", result.Taps, model.FormatBPM(*result.InstantBPM))
		if result.RollingAverage != nil {
			line += fmt.Sprintf("   avg %s", model.FormatBPM(*result.RollingAverage))
		}
		if result.Accuracy != nil && showAccuracy {
			line += fmt.Sprintf("   accuracy %d%%", *result.Accuracy)
		}
		fmt.Fprintln(w, line)
	}
}

func (c *TapCommand) printSummary(w io.Writer, snap model.Snapshot) error {
	if c.globals.JSON {
		return json.NewEncoder(w).Encode(snap)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Session summary")
	fmt.Fprintf(w, "  taps:        %d\n", snap.Taps)
	if snap.InstantBPM != nil {
		fmt.Fprintf(w, "  instant:     %s bpm\n", model.FormatBPM(*snap.InstantBPM))
	}
	if snap.RollingAverage != nil {
		fmt.Fprintf(w, "  rolling avg: %s bpm\n", model.FormatBPM(*snap.RollingAverage))
	}
	if snap.TargetBPM != nil {
		line := fmt.Sprintf("  target:      %s bpm", model.FormatBPM(*snap.TargetBPM))
		if snap.Accuracy != nil && snap.ShowAccuracy {
			line += fmt.Sprintf(" (accuracy %d%%)", *snap.Accuracy)
		}
		fmt.Fprintln(w, line)
	}
	return nil
}
