// pattern: Imperative Shell
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"

	"tessera/internal/config"
	"tessera/internal/instance"
)

// ResolveDataDir returns the directory for the lock and instance record.
// If configDir is specified, uses that; otherwise the tessera config dir.
func ResolveDataDir(configDir string) string {
	if configDir != "" {
		return configDir
	}
	return config.Dir()
}

// ConfigPath returns the config file used for configDir.
func ConfigPath(configDir string) string {
	if configDir != "" {
		return filepath.Join(configDir, "config.yaml")
	}
	return config.Path()
}

// BuildApp creates and configures the CLI application with all commands and groups.
func BuildApp(version string, configDir string) *App {
	app := NewApp(version)
	delegate := func() *Delegate { return &Delegate{ConfigDir: configDir} }

	app.AddCommand(&Command{
		Name:             "msg",
		Summary:          "Run compositor commands, e.g. tessera msg 'focus left; layout tabbed'",
		Usage:            "Usage: tessera msg [--json] <command>...",
		RequiresInstance: true,
		Run: func(args []string) error {
			fs := flag.NewFlagSet("msg", flag.ContinueOnError)
			fs.SetInterspersed(false)
			asJSON := fs.BoolP("json", "j", false, "print results as JSON")
			if err := fs.Parse(args); err != nil {
				return err
			}
			line := strings.Join(fs.Args(), " ")
			if strings.TrimSpace(line) == "" {
				return errors.New("usage: tessera msg <command>")
			}
			d := delegate()
			d.Run(func(c *instance.Client) error {
				ctx, cancel := requestContext()
				defer cancel()
				return runMsg(ctx, c, line, *asJSON, d.Stdout)
			})
			return nil
		},
	})

	app.AddCommand(&Command{
		Name:             "tree",
		Summary:          "Print the visible layout tree",
		Usage:            "Usage: tessera tree [--json]",
		RequiresInstance: true,
		Run: func(args []string) error {
			fs := flag.NewFlagSet("tree", flag.ContinueOnError)
			asJSON := fs.BoolP("json", "j", false, "print the tree as JSON")
			if err := fs.Parse(args); err != nil {
				return err
			}
			d := delegate()
			d.Run(func(c *instance.Client) error {
				ctx, cancel := requestContext()
				defer cancel()
				return runTree(ctx, c, *asJSON, d.Stdout)
			})
			return nil
		},
	})

	app.AddCommand(&Command{
		Name:             "workspaces",
		Summary:          "List workspaces as JSON",
		Usage:            "Usage: tessera workspaces",
		RequiresInstance: true,
		Run: func(args []string) error {
			d := delegate()
			d.Run(func(c *instance.Client) error {
				ctx, cancel := requestContext()
				defer cancel()
				ws, err := c.Workspaces(ctx)
				if err != nil {
					return err
				}
				return PrintJSON(d.Stdout, ws)
			})
			return nil
		},
	})

	app.AddCommand(&Command{
		Name:             "stats",
		Summary:          "Print transaction and frame counters as JSON",
		Usage:            "Usage: tessera stats",
		RequiresInstance: true,
		Run: func(args []string) error {
			d := delegate()
			d.Run(func(c *instance.Client) error {
				ctx, cancel := requestContext()
				defer cancel()
				st, err := c.Stats(ctx)
				if err != nil {
					return err
				}
				return PrintJSON(d.Stdout, st)
			})
			return nil
		},
	})

	app.AddCommand(&Command{
		Name:             "logs",
		Summary:          "Stream the compositor's log",
		Usage:            "Usage: tessera logs [-s/--scope seat] [-l/--level debug] [-n/--tail 50] [--no-color]",
		RequiresInstance: true,
		Run: func(args []string) error {
			fs := flag.NewFlagSet("logs", flag.ContinueOnError)
			scope := fs.StringP("scope", "s", "", "only entries whose scope starts with this")
			level := fs.StringP("level", "l", "", "minimum level (debug, info, warn, error)")
			tail := fs.IntP("tail", "n", 20, "replay this many recent entries first")
			noColor := fs.Bool("no-color", false, "strip terminal escapes from messages")
			if err := fs.Parse(args); err != nil {
				return err
			}
			d := delegate()
			client := d.Client()
			if client == nil {
				return nil
			}
			ctx, cancel := signalContext()
			defer cancel()
			return StreamLogs(ctx, client, LogStreamConfig{
				Scope:   *scope,
				Level:   *level,
				Tail:    *tail,
				NoColor: *noColor,
				Writer:  d.Stdout,
			})
		},
	})

	app.AddCommand(&Command{
		Name:             "events",
		Summary:          "Stream compositor events as JSON lines",
		Usage:            "Usage: tessera events [-t/--types window,workspace]",
		RequiresInstance: true,
		Run: func(args []string) error {
			fs := flag.NewFlagSet("events", flag.ContinueOnError)
			types := fs.StringSliceP("types", "t", nil, "event types to receive (default all)")
			if err := fs.Parse(args); err != nil {
				return err
			}
			d := delegate()
			client := d.Client()
			if client == nil {
				return nil
			}
			ctx, cancel := signalContext()
			defer cancel()
			return StreamEvents(ctx, client, *types, d.Stdout)
		},
	})

	app.AddCommand(&Command{
		Name:             "watch",
		Summary:          "Live view of the tree and event stream",
		Usage:            "Usage: tessera watch",
		RequiresInstance: true,
		Run: func(args []string) error {
			d := delegate()
			client := d.Client()
			if client == nil {
				return nil
			}
			cfg, err := config.LoadFrom(ConfigPath(configDir))
			if err != nil {
				fmt.Fprintf(d.Stderr, "warning: %v\n", err)
			}
			return runWatch(client, cfg.Theme)
		},
	})

	app.AddCommand(&Command{
		Name:    "check-config",
		Summary: "Validate the configuration and exit",
		Usage:   "Usage: tessera check-config",
		Run: func(args []string) error {
			return checkConfig(ConfigPath(configDir), os.Stdout)
		},
	})

	app.AddCommand(&Command{
		Name:    "cleanup",
		Summary: "Remove the stale lock and instance record of a crashed compositor",
		Usage:   "Usage: tessera cleanup",
		Run: func(args []string) error {
			return runCleanupCommand(configDir)
		},
	})

	app.AddCommand(&Command{
		Name:    "version",
		Summary: "Print version and exit",
		Usage:   "Usage: tessera version",
		Run: func(args []string) error {
			fmt.Println(version)
			return nil
		},
	})

	RegisterOutputCommands(app.AddGroup("output", "Plug, unplug and resize headless outputs"), configDir)
	RegisterClientCommands(app.AddGroup("client", "Open and close simulated client windows"), configDir)
	RegisterInputCommands(app.AddGroup("input", "Send synthetic pointer and keyboard input"), configDir)

	return app
}

// checkConfig loads and validates the config at path.
func checkConfig(path string, w io.Writer) error {
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%s:\n%w", path, err)
	}
	fmt.Fprintf(w, "%s: ok (%d outputs, theme %s)\n", path, len(cfg.Outputs), cfg.Theme)
	return nil
}

// runCleanupCommand removes the stale lock and record of a crashed instance.
func runCleanupCommand(configDir string) error {
	dataDir := ResolveDataDir(configDir)

	// Taking the lock proves no instance is running.
	inst, err := instance.Acquire(dataDir)
	if err != nil {
		return fmt.Errorf("%w; stop it first", err)
	}
	inst.Release()
	fmt.Println("Cleaned up stale lock and instance record.")
	return nil
}
