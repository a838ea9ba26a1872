// pattern: Imperative Shell
package cli

import (
	"fmt"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"

	"tessera/internal/instance"
	"tessera/internal/ipc"
	"tessera/internal/server"
)

// ParseMode parses WIDTHxHEIGHT[+X+Y], e.g. "1920x1080+1920+0".
func ParseMode(s string) (ipc.OutputRequest, error) {
	var o ipc.OutputRequest
	size, pos, hasPos := strings.Cut(s, "+")
	w, h, ok := strings.Cut(size, "x")
	if !ok {
		return o, fmt.Errorf("invalid mode %q: want WIDTHxHEIGHT[+X+Y]", s)
	}
	var err error
	if o.Width, err = strconv.ParseFloat(w, 64); err != nil || o.Width <= 0 {
		return o, fmt.Errorf("invalid width in %q", s)
	}
	if o.Height, err = strconv.ParseFloat(h, 64); err != nil || o.Height <= 0 {
		return o, fmt.Errorf("invalid height in %q", s)
	}
	if hasPos {
		x, y, ok := strings.Cut(pos, "+")
		if !ok {
			return o, fmt.Errorf("invalid position in %q", s)
		}
		if o.X, err = strconv.ParseFloat(x, 64); err != nil {
			return o, fmt.Errorf("invalid x in %q", s)
		}
		if o.Y, err = strconv.ParseFloat(y, 64); err != nil {
			return o, fmt.Errorf("invalid y in %q", s)
		}
	}
	return o, nil
}

// RegisterOutputCommands registers the output command group commands.
func RegisterOutputCommands(group *Group, configDir string) {
	group.AddCommand(&Command{
		Name:             "list",
		Summary:          "List outputs as JSON",
		Usage:            "Usage: tessera output list",
		RequiresInstance: true,
		Run: func(args []string) error {
			d := &Delegate{ConfigDir: configDir}
			d.Run(func(c *instance.Client) error {
				ctx, cancel := requestContext()
				defer cancel()
				outs, err := c.Outputs(ctx)
				if err != nil {
					return err
				}
				return PrintJSON(d.Stdout, outs)
			})
			return nil
		},
	})

	group.AddCommand(&Command{
		Name:             "add",
		Summary:          "Plug in a headless output",
		Usage:            "Usage: tessera output add <name> <WIDTHxHEIGHT[+X+Y]>",
		RequiresInstance: true,
		Run: func(args []string) error {
			if len(args) < 2 {
				return fmt.Errorf("usage: tessera output add <name> <WIDTHxHEIGHT[+X+Y]>")
			}
			o, err := ParseMode(args[1])
			if err != nil {
				return err
			}
			o.Name = args[0]
			d := &Delegate{ConfigDir: configDir}
			d.Run(func(c *instance.Client) error {
				ctx, cancel := requestContext()
				defer cancel()
				if err := c.AddOutput(ctx, o); err != nil {
					return err
				}
				fmt.Fprintf(d.Stdout, "Output %s added.\n", o.Name)
				return nil
			})
			return nil
		},
	})

	group.AddCommand(&Command{
		Name:             "resize",
		Summary:          "Change an output's mode or position",
		Usage:            "Usage: tessera output resize <name> <WIDTHxHEIGHT[+X+Y]>",
		RequiresInstance: true,
		Run: func(args []string) error {
			if len(args) < 2 {
				return fmt.Errorf("usage: tessera output resize <name> <WIDTHxHEIGHT[+X+Y]>")
			}
			o, err := ParseMode(args[1])
			if err != nil {
				return err
			}
			o.Name = args[0]
			d := &Delegate{ConfigDir: configDir}
			d.Run(func(c *instance.Client) error {
				ctx, cancel := requestContext()
				defer cancel()
				return c.ResizeOutput(ctx, o)
			})
			return nil
		},
	})

	group.AddCommand(&Command{
		Name:             "remove",
		Summary:          "Unplug an output; its workspaces move elsewhere",
		Usage:            "Usage: tessera output remove <name>",
		RequiresInstance: true,
		Run: func(args []string) error {
			if len(args) < 1 {
				return fmt.Errorf("usage: tessera output remove <name>")
			}
			d := &Delegate{ConfigDir: configDir}
			d.Run(func(c *instance.Client) error {
				ctx, cancel := requestContext()
				defer cancel()
				if err := c.RemoveOutput(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(d.Stdout, "Output %s removed.\n", args[0])
				return nil
			})
			return nil
		},
	})
}

// ParseClientFlags parses the flags of "client open".
func ParseClientFlags(args []string) (server.ClientSpec, error) {
	fs := flag.NewFlagSet("client open", flag.ContinueOnError)
	var spec server.ClientSpec
	fs.StringVar(&spec.Title, "title", "", "window title (default: the app id)")
	fs.IntVar(&spec.PID, "pid", 0, "process id the window claims")
	fs.StringVarP(&spec.Workspace, "workspace", "w", "", "workspace to open on")
	fs.BoolVarP(&spec.Floating, "floating", "f", false, "open floating")
	fs.BoolVar(&spec.Fullscreen, "fullscreen", false, "open fullscreen")
	fs.Float64Var(&spec.Width, "width", 0, "natural width")
	fs.Float64Var(&spec.Height, "height", 0, "natural height")
	fs.IntVar(&spec.AckDelayMS, "ack-delay", 0, "milliseconds before acknowledging each configure")
	fs.BoolVar(&spec.Frozen, "frozen", false, "never acknowledge configures")
	if err := fs.Parse(args); err != nil {
		return spec, err
	}
	if fs.NArg() != 1 {
		return spec, fmt.Errorf("usage: tessera client open <app-id> [flags]")
	}
	spec.AppID = fs.Arg(0)
	if spec.Title == "" {
		spec.Title = spec.AppID
	}
	if spec.AckDelayMS < 0 {
		return spec, fmt.Errorf("--ack-delay must not be negative")
	}
	return spec, nil
}

// RegisterClientCommands registers the client command group commands.
func RegisterClientCommands(group *Group, configDir string) {
	group.AddCommand(&Command{
		Name:             "open",
		Summary:          "Map a simulated client window and print its id",
		Usage:            "Usage: tessera client open <app-id> [--title T] [--pid N] [-w/--workspace W] [-f/--floating] [--fullscreen] [--ack-delay MS] [--frozen]",
		RequiresInstance: true,
		Run: func(args []string) error {
			spec, err := ParseClientFlags(args)
			if err != nil {
				return err
			}
			d := &Delegate{ConfigDir: configDir}
			d.Run(func(c *instance.Client) error {
				ctx, cancel := requestContext()
				defer cancel()
				id, err := c.OpenClient(ctx, spec)
				if err != nil {
					return err
				}
				fmt.Fprintln(d.Stdout, id)
				return nil
			})
			return nil
		},
	})

	group.AddCommand(&Command{
		Name:             "close",
		Summary:          "Close a simulated client window",
		Usage:            "Usage: tessera client close <window-id>",
		RequiresInstance: true,
		Run: func(args []string) error {
			if len(args) < 1 {
				return fmt.Errorf("usage: tessera client close <window-id>")
			}
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid window id %q", args[0])
			}
			d := &Delegate{ConfigDir: configDir}
			d.Run(func(c *instance.Client) error {
				ctx, cancel := requestContext()
				defer cancel()
				return c.CloseClient(ctx, id)
			})
			return nil
		},
	})
}

// ParseInput parses the arguments of an input subcommand.
func ParseInput(kind string, args []string) (server.Input, error) {
	ev := server.Input{Type: kind}
	need := func(n int, usage string) error {
		if len(args) != n {
			return fmt.Errorf("usage: tessera input %s %s", kind, usage)
		}
		return nil
	}
	pressed := func(s string) (bool, error) {
		switch s {
		case "press", "down":
			return true, nil
		case "release", "up":
			return false, nil
		}
		return false, fmt.Errorf("invalid state %q: want press or release", s)
	}
	var err error
	switch kind {
	case "motion":
		if err = need(2, "<x> <y>"); err != nil {
			return ev, err
		}
		if ev.X, err = strconv.ParseFloat(args[0], 64); err != nil {
			return ev, fmt.Errorf("invalid x %q", args[0])
		}
		if ev.Y, err = strconv.ParseFloat(args[1], 64); err != nil {
			return ev, fmt.Errorf("invalid y %q", args[1])
		}
	case "button", "key":
		if err = need(2, "<code> press|release"); err != nil {
			return ev, err
		}
		code, err := strconv.ParseUint(args[0], 0, 32)
		if err != nil {
			return ev, fmt.Errorf("invalid code %q", args[0])
		}
		if kind == "button" {
			ev.Button = uint32(code)
		} else {
			ev.Keycode = uint32(code)
		}
		if ev.Pressed, err = pressed(args[1]); err != nil {
			return ev, err
		}
	case "axis":
		if err = need(2, "vertical|horizontal <delta>"); err != nil {
			return ev, err
		}
		if args[0] != "vertical" && args[0] != "horizontal" {
			return ev, fmt.Errorf("invalid axis %q", args[0])
		}
		ev.Axis = args[0]
		if ev.Delta, err = strconv.ParseFloat(args[1], 64); err != nil {
			return ev, fmt.Errorf("invalid delta %q", args[1])
		}
	default:
		return ev, fmt.Errorf("unknown input %q", kind)
	}
	return ev, nil
}

// RegisterInputCommands registers the input command group commands.
func RegisterInputCommands(group *Group, configDir string) {
	for _, kind := range []struct{ name, summary, usage string }{
		{"motion", "Move the pointer to layout coordinates", "<x> <y>"},
		{"button", "Press or release a pointer button (e.g. 0x110)", "<code> press|release"},
		{"axis", "Scroll", "vertical|horizontal <delta>"},
		{"key", "Press or release a key", "<keycode> press|release"},
	} {
		group.AddCommand(&Command{
			Name:             kind.name,
			Summary:          kind.summary,
			Usage:            fmt.Sprintf("Usage: tessera input %s %s", kind.name, kind.usage),
			RequiresInstance: true,
			Run: func(args []string) error {
				ev, err := ParseInput(kind.name, args)
				if err != nil {
					return err
				}
				d := &Delegate{ConfigDir: configDir}
				d.Run(func(c *instance.Client) error {
					ctx, cancel := requestContext()
					defer cancel()
					return c.Input(ctx, ev)
				})
				return nil
			},
		})
	}
}
