package cli

import "time"

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Addr    string `long:"addr" description:"Daemon address, e.g. http://127.0.0.1:9480 or :9480" default:"http://127.0.0.1:9480"`
	Prefs   string `long:"prefs" description:"Path to the preference database (local commands)" default:"tapline.db"`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable verbose output"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// TapCommand — run a tap session from stdin or a synthetic pacer.
type TapCommand struct {
	Count    int           `long:"count" description:"Emit this many synthetic taps instead of reading stdin"`
	Interval time.Duration `long:"interval" description:"Spacing between synthetic taps" default:"500ms"`
	Source   string        `long:"source" description:"Tap source label: key | click | context | synthetic" default:"key"`
	Remote   bool          `long:"remote" description:"Send taps to the daemon instead of estimating locally"`

	globals *GlobalFlags
	version string
}

// TargetCommand — set or clear the target BPM.
type TargetCommand struct {
	BPM    int  `long:"bpm" description:"Target tempo in beats per minute (at least 1)"`
	Clear  bool `long:"clear" description:"Clear the target instead of setting one"`
	Remote bool `long:"remote" description:"Apply against the daemon instead of the local preference store"`

	globals *GlobalFlags
	version string
}

// StatusCommand — show the daemon's session and counters.
type StatusCommand struct {
	globals *GlobalFlags
	version string
}

// ResetCommand — reset the live session or wipe the local preference store.
type ResetCommand struct {
	Local bool `long:"local" description:"Clear the local preference store instead of calling the daemon"`

	globals *GlobalFlags
	version string
}
