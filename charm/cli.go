// ABOUTME: CLI commands for the Charm KV lead cache backend
// ABOUTME: Link, status, manual sync, auto-sync toggle and wipe over SSH key auth

package charm

import (
	"flag"
	"fmt"
	"io"
)

// LinkCommand links this device to a Charm account by syncing once.
// Charm authenticates with the device's SSH key, so there is no login step.
func LinkCommand(w io.Writer, c *Client, args []string) error {
	fs := flag.NewFlagSet("charm link", flag.ExitOnError)
	_ = fs.Parse(args)

	cfg := c.Config()
	fmt.Fprintf(w, "Linking to Charm Cloud (%s)...\n\n", cfg.Host)
	fmt.Fprintln(w, "Charm uses SSH key authentication.")

	if err := c.Sync(); err != nil {
		return fmt.Errorf("link failed: %w", err)
	}

	id, err := c.ID()
	if err != nil {
		fmt.Fprintln(w, "✓ Device linked (ID unavailable)")
	} else {
		fmt.Fprintf(w, "✓ Linked to account: %s\n", id)
	}

	fmt.Fprintf(w, "✓ Auto-sync: %v\n", cfg.AutoSync)
	fmt.Fprintln(w, "\nCached leads now sync with Charm Cloud.")

	return nil
}

// StatusCommand shows the charm configuration and connection state.
func StatusCommand(w io.Writer, c *Client, args []string) error {
	fs := flag.NewFlagSet("charm status", flag.ExitOnError)
	_ = fs.Parse(args)

	cfg := c.Config()
	fmt.Fprintln(w, "Charm Sync Status")
	fmt.Fprintln(w, "─────────────────")
	fmt.Fprintf(w, "Server:    %s\n", cfg.Host)
	fmt.Fprintf(w, "Auto-sync: %v\n", cfg.AutoSync)

	id, err := c.ID()
	if err != nil {
		fmt.Fprintln(w, "\nStatus: Not connected")
	} else {
		fmt.Fprintln(w, "\nStatus: Connected")
		fmt.Fprintf(w, "ID:        %s\n", id)
	}

	if keys, err := c.KeysWithPrefix("leads/"); err == nil {
		fmt.Fprintf(w, "Keys:      %d\n", len(keys))
	}

	return nil
}

// SyncCommand performs an immediate sync with the charm server.
func SyncCommand(w io.Writer, c *Client, args []string) error {
	fs := flag.NewFlagSet("charm sync", flag.ExitOnError)
	_ = fs.Parse(args)

	if err := c.Sync(); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	fmt.Fprintln(w, "✓ Synced")
	return nil
}

// AutoSyncCommand enables or disables auto-sync and saves the config to path.
func AutoSyncCommand(w io.Writer, c *Client, path string, args []string) error {
	fs := flag.NewFlagSet("charm auto", flag.ExitOnError)
	enable := fs.Bool("enable", false, "Enable auto-sync")
	disable := fs.Bool("disable", false, "Disable auto-sync")
	_ = fs.Parse(args)

	if *enable == *disable {
		fmt.Fprintln(w, "Usage: leadsync charm auto --enable|--disable")
		return nil
	}

	cfg := c.SetAutoSync(*enable)
	if err := cfg.SaveTo(path); err != nil {
		return fmt.Errorf("failed to save charm config: %w", err)
	}

	if *enable {
		fmt.Fprintln(w, "✓ Auto-sync enabled")
	} else {
		fmt.Fprintln(w, "✓ Auto-sync disabled")
	}
	return nil
}

// WipeCommand deletes every key in the local store.
func WipeCommand(w io.Writer, c *Client, args []string) error {
	fs := flag.NewFlagSet("charm wipe", flag.ExitOnError)
	confirm := fs.Bool("confirm", false, "Confirm data wipe")
	_ = fs.Parse(args)

	if !*confirm {
		fmt.Fprintln(w, "WARNING: This will delete ALL cached leads, including permanent archive ids!")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "To confirm, run:")
		fmt.Fprintln(w, "  leadsync charm wipe --confirm")
		return nil
	}

	if err := c.Reset(); err != nil {
		return fmt.Errorf("failed to reset KV store: %w", err)
	}

	fmt.Fprintln(w, "✓ All data wiped")
	return nil
}
