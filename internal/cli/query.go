// pattern: Imperative Shell
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tessera/internal/events"
	"tessera/internal/instance"
)

// requestContext bounds one-shot requests.
func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// CommandFailedError reports how many commands of a msg line failed.
type CommandFailedError struct {
	Failed int
	Total  int
}

func (e *CommandFailedError) Error() string {
	return fmt.Sprintf("%d of %d commands failed", e.Failed, e.Total)
}

// runMsg runs line and prints one result per command.
func runMsg(ctx context.Context, c *instance.Client, line string, asJSON bool, w io.Writer) error {
	results, err := c.Command(ctx, line)
	if err != nil {
		return err
	}
	if asJSON {
		if err := PrintJSON(w, results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if r.Success {
				fmt.Fprintf(w, "%s: %s\n", r.Command, r.Status)
			} else {
				fmt.Fprintf(w, "%s: %s: %s\n", r.Command, r.Status, r.Error)
			}
		}
	}
	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	if failed > 0 {
		return &CommandFailedError{Failed: failed, Total: len(results)}
	}
	return nil
}

func runTree(ctx context.Context, c *instance.Client, asJSON bool, w io.Writer) error {
	node, err := c.Tree(ctx)
	if err != nil {
		return err
	}
	if asJSON {
		return PrintJSON(w, node)
	}
	FormatTree(w, node)
	return nil
}

// FormatTree writes an indented text rendering of the tree, one entity per
// line. The root itself is not printed.
func FormatTree(w io.Writer, root events.TreeNode) {
	for _, out := range root.Nodes {
		out.Walk(func(n events.TreeNode, depth int) {
			fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), DescribeNode(n))
		})
	}
}

// DescribeNode renders one tree entry on a single line.
func DescribeNode(n events.TreeNode) string {
	var b strings.Builder
	switch n.Type {
	case "output":
		fmt.Fprintf(&b, "output %s", n.Name)
	case "workspace":
		fmt.Fprintf(&b, "workspace %s", n.Name)
	case "column":
		fmt.Fprintf(&b, "column %d [%s]", n.ID, n.Layout)
	case "window":
		fmt.Fprintf(&b, "window %d %s %q", n.ID, n.AppID, StripANSI(n.Name))
	default:
		fmt.Fprintf(&b, "%s %d", n.Type, n.ID)
	}
	fmt.Fprintf(&b, " %s", FormatRect(n.Rect))

	var flags []string
	if n.Focused {
		flags = append(flags, "focused")
	}
	if n.Active && n.Type != "window" {
		flags = append(flags, "visible")
	}
	if n.Urgent {
		flags = append(flags, "urgent")
	}
	if n.Fullscreen != "" {
		flags = append(flags, "fullscreen:"+n.Fullscreen)
	}
	if n.Preview != nil {
		flags = append(flags, "preview "+FormatRect(*n.Preview))
	}
	if len(flags) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(flags, ", "))
	}
	return b.String()
}

// FormatRect renders r as WxH+X+Y.
func FormatRect(r events.Rect) string {
	return fmt.Sprintf("%gx%g+%g+%g", r.Width, r.Height, r.X, r.Y)
}
