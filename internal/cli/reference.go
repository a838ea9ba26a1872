// pattern: Functional Core
package cli

import (
	"fmt"
	"io"
	"maps"
	"slices"
)

// PrintReference prints a guide to driving the compositor from scripts and
// tests, followed by a command reference pulled from registered commands.
func (a *App) PrintReference(w io.Writer) {
	fmt.Fprintln(w, "TESSERA SCRIPTING GUIDE")
	fmt.Fprintln(w, "=======================")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "OVERVIEW")
	fmt.Fprintln(w, "--------")
	fmt.Fprintln(w, "Running tessera with no command starts the compositor on headless outputs.")
	fmt.Fprintln(w, "One compositor runs per data directory (enforced by file lock). Every other")
	fmt.Fprintln(w, "command finds it through the instance record and talks to its IPC API.")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "COMMAND LANGUAGE")
	fmt.Fprintln(w, "----------------")
	fmt.Fprintln(w, "'tessera msg' takes the same commands as key bindings. Separate several with")
	fmt.Fprintln(w, "';'. A whole line is applied as one transaction, so clients see one frame:")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  tessera msg 'workspace 2; exec foot'")
	fmt.Fprintln(w, "  tessera msg 'focus left; move right; layout tabbed'")
	fmt.Fprintln(w, "  tessera msg 'resize grow width 40 px'")
	fmt.Fprintln(w, "  tessera msg 'floating toggle; border pixel 3'")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Each command reports success, invalid (not understood, nothing changed) or")
	fmt.Fprintln(w, "failure (understood but not possible right now).")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "SIMULATED CLIENTS")
	fmt.Fprintln(w, "-----------------")
	fmt.Fprintln(w, "Headless clients acknowledge configures after --ack-delay milliseconds.")
	fmt.Fprintln(w, "A --frozen client never does; its transaction applies at the timeout:")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  id=$(tessera client open foot --ack-delay 20)")
	fmt.Fprintln(w, "  tessera client open stuck --frozen")
	fmt.Fprintln(w, "  tessera events -t transaction    # shows applied / timed_out")
	fmt.Fprintln(w, "  tessera client close $id")
	fmt.Fprintln(w)

	a.printCommandReference(w)

	fmt.Fprintln(w, "EXIT CODES")
	fmt.Fprintln(w, "----------")
	fmt.Fprintln(w, "  0  Success")
	fmt.Fprintln(w, "  1  Error (invalid arguments, a command failed, etc.)")
	fmt.Fprintln(w, "  2  No running tessera instance found")
}

// printCommandReference prints the dynamic command reference section
// by iterating registered commands and groups.
func (a *App) printCommandReference(w io.Writer) {
	fmt.Fprintln(w, "COMMAND REFERENCE")
	fmt.Fprintln(w, "-----------------")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Top-level commands:")
	for _, name := range a.order {
		cmd := a.commands[name]
		fmt.Fprintf(w, "  %-14s %s\n", cmd.Name, cmd.Summary)
		fmt.Fprintf(w, "                 %s\n", cmd.Usage)
	}
	fmt.Fprintln(w)

	for _, groupName := range a.groupOrder {
		group := a.groups[groupName]
		fmt.Fprintf(w, "%s commands (%s):\n", group.Name, group.Summary)
		for _, name := range slices.Sorted(maps.Keys(group.Commands)) {
			cmd := group.Commands[name]
			fmt.Fprintf(w, "  %-14s %s\n", groupName+" "+cmd.Name, cmd.Summary)
			fmt.Fprintf(w, "                 %s\n", cmd.Usage)
		}
		fmt.Fprintln(w)
	}
}
