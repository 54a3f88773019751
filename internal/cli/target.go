package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tapline/tapline/internal/adapters/prefs"
	"github.com/tapline/tapline/internal/domain/model"
	"github.com/tapline/tapline/internal/domain/tempo"
)

// Execute implements the go-flags Commander interface for TargetCommand.
func (c *TargetCommand) Execute(args []string) error {
	if !c.Clear && c.BPM < 1 {
		return tempo.ErrInvalidTarget
	}

	if c.Remote {
		return c.executeRemote(os.Stdout)
	}

	store, err := openPrefsStore(c.globals.Prefs)
	if err != nil {
		return err
	}
	defer store.Close()

	return c.executeWithStore(store)
}

// executeWithStore applies the target change to a provided store (for testing).
func (c *TargetCommand) executeWithStore(store prefs.Store) error {
	ctx := context.Background()

	if c.Clear {
		if err := store.Delete(ctx, prefs.KeyTargetBPM); err != nil {
			return fmt.Errorf("clear target: %w", err)
		}
		fmt.Println("target cleared")
		return nil
	}

	if err := prefs.SetTargetBPM(ctx, store, c.BPM); err != nil {
		return fmt.Errorf("set target: %w", err)
	}
	fmt.Printf("target set to %d bpm\n", c.BPM)
	return nil
}

// executeRemote applies the target change against the running daemon.
func (c *TargetCommand) executeRemote(w *os.File) error {
	base := daemonURL(c.globals.Addr)

	var snap model.Snapshot
	if c.Clear {
		if err := doJSON("DELETE", base+"/target", nil, &snap); err != nil {
			return err
		}
	} else {
		if err := doJSON("PUT", base+"/target", map[string]int{"bpm": c.BPM}, &snap); err != nil {
			return err
		}
	}

	if c.globals.JSON {
		return json.NewEncoder(w).Encode(snap)
	}
	if snap.TargetBPM != nil {
		fmt.Fprintf(w, "target set to %d bpm\n", *snap.TargetBPM)
	} else {
		fmt.Fprintln(w, "target cleared")
	}
	return nil
}
