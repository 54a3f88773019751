package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tapline/tapline/internal/adapters/prefs"
	"github.com/tapline/tapline/internal/domain/model"
)

// Execute implements the go-flags Commander interface for ResetCommand.
func (c *ResetCommand) Execute(args []string) error {
	if c.Local {
		store, err := openPrefsStore(c.globals.Prefs)
		if err != nil {
			return err
		}
		defer store.Close()
		return c.executeWithStore(store)
	}

	base := daemonURL(c.globals.Addr)
	var snap model.Snapshot
	if err := doJSON("POST", base+"/reset", nil, &snap); err != nil {
		return err
	}

	if c.globals.JSON {
		return json.NewEncoder(os.Stdout).Encode(snap)
	}
	fmt.Printf("session reset (%s)\n", snap.SessionID)
	return nil
}

// executeWithStore wipes a provided preference store (for testing).
func (c *ResetCommand) executeWithStore(store prefs.Store) error {
	if err := store.Clear(context.Background()); err != nil {
		return fmt.Errorf("clear preferences: %w", err)
	}
	fmt.Println("preferences cleared")
	return nil
}
