// pattern: Functional Core
package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

// testApp returns an app whose output and exit code are captured.
func testApp() (*App, *bytes.Buffer, *int) {
	app := NewApp("1.0.0")
	buf := &bytes.Buffer{}
	code := -1
	app.stderr = buf
	app.exit = func(c int) { code = c }
	return app, buf, &code
}

func TestApp_PrintHelp_ShowsGroupedCommands(t *testing.T) {
	app := NewApp("1.0.0")
	app.AddGroup("output", "Plug, unplug and resize headless outputs")
	app.AddGroup("client", "Open and close simulated client windows")

	buf := &bytes.Buffer{}
	app.PrintHelp(buf)
	output := buf.String()

	for _, want := range []string{
		"Command Groups (requires running instance)",
		"Run the compositor",
		"output",
		"client",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Help missing %q", want)
		}
	}
	if strings.Index(output, "output") > strings.Index(output, "client") {
		t.Error("groups should be listed in registration order")
	}
}

func TestApp_PrintHelp_CommandOrder(t *testing.T) {
	app := NewApp("1.0.0")
	for _, name := range []string{"msg", "tree", "version"} {
		app.AddCommand(&Command{Name: name, Summary: name + " summary"})
	}

	buf := &bytes.Buffer{}
	app.PrintHelp(buf)
	output := buf.String()

	msg := strings.Index(output, "msg summary")
	tree := strings.Index(output, "tree summary")
	version := strings.Index(output, "version summary")
	if msg < 0 || tree < 0 || version < 0 {
		t.Fatalf("help missing commands:\n%s", output)
	}
	if !(msg < tree && tree < version) {
		t.Errorf("commands out of registration order:\n%s", output)
	}
}

func TestApp_Execute_NoArgs_RunsCompositor(t *testing.T) {
	app := NewApp("1.0.0")
	if !app.Execute(nil) {
		t.Errorf("Execute(nil) = false, want true")
	}
}

func TestApp_Execute_UngroupedCommand_Dispatches(t *testing.T) {
	app, _, code := testApp()
	var got []string
	app.AddCommand(&Command{
		Name:  "msg",
		Usage: "Usage: tessera msg <command>",
		Run: func(args []string) error {
			got = args
			return nil
		},
	})

	if app.Execute([]string{"msg", "focus", "left"}) {
		t.Error("Execute with command = true, want false")
	}
	if strings.Join(got, " ") != "focus left" {
		t.Errorf("args = %v, want [focus left]", got)
	}
	if *code != -1 {
		t.Errorf("exit code = %d, want no exit", *code)
	}
}

func TestApp_Execute_GroupCommand_Dispatches(t *testing.T) {
	app, _, code := testApp()
	group := app.AddGroup("client", "Open and close simulated client windows")
	var got []string
	group.AddCommand(&Command{
		Name: "close",
		Run: func(args []string) error {
			got = args
			return nil
		},
	})

	app.Execute([]string{"client", "close", "42"})
	if len(got) != 1 || got[0] != "42" {
		t.Errorf("args = %v, want [42]", got)
	}
	if *code != -1 {
		t.Errorf("exit code = %d, want no exit", *code)
	}
}

func TestApp_Execute_CommandError_ExitsOne(t *testing.T) {
	app, buf, code := testApp()
	app.AddCommand(&Command{
		Name: "msg",
		Run:  func(args []string) error { return errors.New("usage: tessera msg <command>") },
	})

	app.Execute([]string{"msg"})
	if *code != 1 {
		t.Errorf("exit code = %d, want 1", *code)
	}
	if !strings.Contains(buf.String(), "error: usage: tessera msg <command>") {
		t.Errorf("stderr = %q, want the error", buf.String())
	}
}

func TestApp_Execute_Help(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		want     string
		wantCode int
	}{
		{"command --help", []string{"tree", "--help"}, "Usage: tessera tree", -1},
		{"command -h", []string{"tree", "-h"}, "Usage: tessera tree", -1},
		{"group alone", []string{"output"}, "Usage: tessera output <command>", -1},
		{"group help", []string{"output", "help"}, "Usage: tessera output <command>", -1},
		{"group command --help", []string{"output", "add", "--help"}, "Usage: tessera output add", -1},
		{"unknown group command", []string{"output", "frob"}, "Usage: tessera output <command>", 1},
		{"unknown command", []string{"frob"}, "Usage: tessera [options] [command]", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, buf, code := testApp()
			ran := false
			app.AddCommand(&Command{Name: "tree", Usage: "Usage: tessera tree [--json]", Run: func([]string) error { ran = true; return nil }})
			g := app.AddGroup("output", "Outputs")
			g.AddCommand(&Command{Name: "add", Usage: "Usage: tessera output add <name> <mode>", Run: func([]string) error { ran = true; return nil }})

			app.Execute(tt.args)
			if ran {
				t.Error("command ran, want help only")
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("stderr = %q, want %q", buf.String(), tt.want)
			}
			if *code != tt.wantCode {
				t.Errorf("exit code = %d, want %d", *code, tt.wantCode)
			}
		})
	}
}

func TestGroup_PrintHelp_Sorted(t *testing.T) {
	g := &Group{Name: "input", Commands: map[string]*Command{}}
	for _, n := range []string{"motion", "axis", "key", "button"} {
		g.AddCommand(&Command{Name: n, Summary: n})
	}
	buf := &bytes.Buffer{}
	g.PrintHelp(buf)
	out := buf.String()
	last := -1
	for _, n := range []string{"axis", "button", "key", "motion"} {
		i := strings.Index(out, "  "+n)
		if i < last {
			t.Errorf("%s listed out of order:\n%s", n, out)
		}
		last = i
	}
}

func TestBuildApp_RegistersCommands(t *testing.T) {
	app := BuildApp("1.2.3", t.TempDir())

	for _, name := range []string{"msg", "tree", "workspaces", "stats", "logs", "events", "watch", "check-config", "cleanup", "version"} {
		if _, ok := app.commands[name]; !ok {
			t.Errorf("command %q not registered", name)
		}
	}
	groups := map[string][]string{
		"output": {"list", "add", "resize", "remove"},
		"client": {"open", "close"},
		"input":  {"motion", "button", "axis", "key"},
	}
	for group, cmds := range groups {
		g, ok := app.groups[group]
		if !ok {
			t.Errorf("group %q not registered", group)
			continue
		}
		for _, c := range cmds {
			if _, ok := g.Commands[c]; !ok {
				t.Errorf("command %s %s not registered", group, c)
			}
		}
	}
}

func TestApp_PrintReference(t *testing.T) {
	app := BuildApp("1.2.3", t.TempDir())
	buf := &bytes.Buffer{}
	app.PrintReference(buf)
	out := buf.String()

	for _, want := range []string{
		"TESSERA SCRIPTING GUIDE",
		"COMMAND LANGUAGE",
		"COMMAND REFERENCE",
		"Usage: tessera msg",
		"output add",
		"client open",
		"input motion",
		"2  No running tessera instance found",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("reference missing %q", want)
		}
	}
}
