// pattern: Functional Core
package cli

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
)

// Command represents a single CLI command with its metadata and handler.
type Command struct {
	Name             string
	Summary          string
	Usage            string
	RequiresInstance bool
	Run              func(args []string) error
}

// Group represents a group of related commands.
type Group struct {
	Name     string
	Summary  string
	Commands map[string]*Command
}

// App represents the top-level CLI application with groups and ungrouped commands.
type App struct {
	groups     map[string]*Group
	commands   map[string]*Command
	order      []string
	groupOrder []string
	version    string
	stderr     io.Writer
	exit       func(int)
}

// NewApp creates a new CLI application with the given version.
func NewApp(version string) *App {
	return &App{
		groups:   make(map[string]*Group),
		commands: make(map[string]*Command),
		version:  version,
		stderr:   os.Stderr,
		exit:     os.Exit,
	}
}

// AddGroup creates and registers a new command group.
func (a *App) AddGroup(name, summary string) *Group {
	g := &Group{
		Name:     name,
		Summary:  summary,
		Commands: make(map[string]*Command),
	}
	a.groups[name] = g
	a.groupOrder = append(a.groupOrder, name)
	return g
}

// AddCommand registers an ungrouped (top-level) command. Help lists
// commands in registration order.
func (a *App) AddCommand(cmd *Command) {
	a.commands[cmd.Name] = cmd
	a.order = append(a.order, cmd.Name)
}

// AddCommand registers a command in the group.
func (g *Group) AddCommand(cmd *Command) {
	g.Commands[cmd.Name] = cmd
}

// Execute dispatches the CLI arguments to the appropriate command.
// Returns true if the compositor should be started, false otherwise.
func (a *App) Execute(args []string) bool {
	// No args: run the compositor
	if len(args) == 0 {
		return true
	}

	cmdName := args[0]

	if cmd, ok := a.commands[cmdName]; ok {
		if wantsHelp(args[1:]) {
			fmt.Fprintf(a.stderr, "%s\n", cmd.Usage)
			return false
		}
		a.report(cmd.Run(args[1:]))
		return false
	}

	if group, ok := a.groups[cmdName]; ok {
		if len(args) < 2 || args[1] == "help" || args[1] == "--help" || args[1] == "-h" {
			group.PrintHelp(a.stderr)
			return false
		}

		if cmd, ok := group.Commands[args[1]]; ok {
			if wantsHelp(args[2:]) {
				fmt.Fprintf(a.stderr, "%s\n", cmd.Usage)
				return false
			}
			a.report(cmd.Run(args[2:]))
			return false
		}

		group.PrintHelp(a.stderr)
		a.exit(1)
		return false
	}

	a.PrintHelp(a.stderr)
	a.exit(1)
	return false
}

// report prints a usage or argument error returned by a command. Commands
// that talk to a running instance report their own failures.
func (a *App) report(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(a.stderr, "error: %v\n", err)
	a.exit(1)
}

func wantsHelp(args []string) bool {
	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			return true
		}
	}
	return false
}

// PrintHelp prints the top-level help text.
func (a *App) PrintHelp(w io.Writer) {
	fmt.Fprintf(w, "Usage: tessera [options] [command]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	fmt.Fprintf(w, "  %-13s %s\n", "(none)", "Run the compositor")
	for _, name := range a.order {
		cmd := a.commands[name]
		fmt.Fprintf(w, "  %-13s %s\n", cmd.Name, cmd.Summary)
	}

	if len(a.groups) > 0 {
		fmt.Fprintf(w, "\nCommand Groups (requires running instance):\n")
		for _, name := range a.groupOrder {
			group := a.groups[name]
			fmt.Fprintf(w, "  %-13s %s\n", group.Name, group.Summary)
		}
	}

	fmt.Fprintf(w, "\nUse \"tessera <group> help\" for group details.\n\n")
	fmt.Fprintf(w, "Options:\n")
}

// PrintHelp prints help for a specific group.
func (g *Group) PrintHelp(w io.Writer) {
	fmt.Fprintf(w, "Usage: tessera %s <command>\n\n", g.Name)
	fmt.Fprintf(w, "Commands:\n")
	names := slices.Sorted(maps.Keys(g.Commands))
	for _, name := range names {
		cmd := g.Commands[name]
		fmt.Fprintf(w, "  %-10s %s\n", cmd.Name, cmd.Summary)
	}
	fmt.Fprintf(w, "\nUse \"tessera %s <command> --help\" for command details.\n", g.Name)
}
