package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/HopIT-Hub/macrokey/internal/hook"
	"github.com/HopIT-Hub/macrokey/internal/keycombo"
	"github.com/HopIT-Hub/macrokey/internal/logging"
	"github.com/HopIT-Hub/macrokey/internal/profile"
)

// CLI represents the command-line interface structure
type CLI struct {
	Version     kong.VersionFlag `help:"Show version information"`
	Debug       bool             `help:"Enable debug logging to file" short:"d"`
	DebugFile   string           `help:"Custom path for debug log file (disables automatic cleanup)"`
	MaxLogFiles int              `help:"Maximum number of log files to keep (0 = unlimited)" default:"1000"`
	Settings    string           `help:"Path to settings.json" type:"path" env:"MACROKEY_SETTINGS"`

	Run      RunCmd      `cmd:"" help:"Start the tray application (default)" default:"1"`
	Validate ValidateCmd `cmd:"validate" help:"Check a profile file"`
	Keys     KeysCmd     `cmd:"keys" help:"Print the canonical form of key identifiers"`
}

// AfterApply initializes logging after CLI parsing.
func (c *CLI) AfterApply() error {
	logFilePath, err := logging.Initialize(c.Debug, c.DebugFile, c.MaxLogFiles)
	if err != nil {
		return err
	}
	if logFilePath != "" {
		fmt.Fprintf(os.Stderr, "debug log: %s\n", logFilePath)
	}
	return nil
}

// ValidateCmd loads a profile file the same way the app does and reports
// every binding that would not register.
type ValidateCmd struct {
	File string `arg:"" help:"Profile file" type:"existingfile"`
}

func (v *ValidateCmd) Run(cli *CLI) error {
	data, err := os.ReadFile(v.File)
	if err != nil {
		return err
	}
	store := profile.NewStore(nil)
	if err := store.Load(data); err != nil {
		return err
	}

	problems := 0
	var table keycombo.Table[int]
	for _, mp := range store.Profiles() {
		subs := append([]profile.SubProfile{mp.Main}, mp.SubProfiles[:]...)
		for i, sp := range subs {
			where := fmt.Sprintf("%s/%s", mp.Title, sp.Title)
			if i == 0 {
				where += " (active copy)"
			}
			table.Reset()
			for _, line := range checkSubProfile(&table, sp) {
				fmt.Printf("%s: %s\n", where, line)
				problems++
			}
			for j, b := range sp.Bindings {
				if b.Action.Kind.ID() == nil {
					fmt.Printf("%s: binding %d %q: no action\n", where, j, b.Name)
				}
			}
		}
	}
	if problems > 0 {
		return fmt.Errorf("%d invalid bindings", problems)
	}
	fmt.Printf("%s: %d main profiles OK\n", v.File, len(store.Profiles()))
	return nil
}

// checkSubProfile adds every binding of sp to table and describes the ones
// that would not register.
func checkSubProfile(table *keycombo.Table[int], sp profile.SubProfile) []string {
	var out []string
	for j, b := range sp.Bindings {
		if b.KeyActive == "" {
			continue
		}
		err := table.Add(b.KeyActive, j)
		if err == nil {
			continue
		}
		if first, ok := table.Get(b.KeyActive); ok {
			out = append(out, fmt.Sprintf("binding %d %q: %v (binding %d)", j, b.Name, err, first))
		} else {
			out = append(out, fmt.Sprintf("binding %d %q: %v", j, b.Name, err))
		}
	}
	return out
}

// KeysCmd canonicalises identifiers, e.g. Shift_Control_KeyA. With --watch
// it prints the identifier of every key or button pressed instead.
type KeysCmd struct {
	IDs   []string `arg:"" optional:"" help:"Key identifiers"`
	Watch bool     `help:"Print identifiers of pressed keys and buttons until interrupted"`
}

// printEvents writes the identifier of each observed event to w.
func printEvents(w io.Writer) func(keycombo.Event) {
	return func(ev keycombo.Event) {
		fmt.Fprintln(w, keycombo.Encode(ev))
	}
}

func (k *KeysCmd) watch() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := hook.NewManager()
	m.Observe = printEvents(os.Stdout)
	fmt.Fprintln(os.Stderr, "press keys or buttons, Ctrl+C to stop")
	return m.Run(ctx)
}

func (k *KeysCmd) Run(cli *CLI) error {
	if k.Watch {
		return k.watch()
	}
	if len(k.IDs) == 0 {
		return fmt.Errorf("no identifiers given, use --watch to record them")
	}
	var bad []string
	for _, id := range k.IDs {
		c, err := keycombo.Parse(id)
		if err != nil {
			fmt.Printf("%s\tinvalid: %v\n", id, err)
			bad = append(bad, id)
			continue
		}
		kind := "key"
		if c.Mouse() {
			kind = "mouse"
		}
		fmt.Printf("%s\t%s\t%s\n", id, c.String(), kind)
	}
	if len(bad) > 0 {
		return fmt.Errorf("invalid identifiers: %s", strings.Join(bad, ", "))
	}
	return nil
}
