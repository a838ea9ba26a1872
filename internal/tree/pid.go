package tree

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// pidTable maps launched process ids to the workspace they were launched
// on, so their windows open there even after focus moves on.
type pidTable struct {
	byPID  map[int]string
	parent func(pid int) (int, bool)
}

func newPIDTable() *pidTable {
	return &pidTable{byPID: make(map[int]string), parent: procParent}
}

// RecordWorkspacePID remembers that windows of pid belong on the named
// workspace.
func (r *Root) RecordWorkspacePID(pid int, workspace string) {
	if pid <= 0 || workspace == "" {
		return
	}
	r.pids.byPID[pid] = workspace
	r.log.Debug("recorded pid workspace", "pid", pid, "workspace", workspace)
}

// WorkspaceForPID looks pid up, walking up its ancestry so windows of a
// launched shell's children are placed too.
func (r *Root) WorkspaceForPID(pid int) (string, bool) {
	seen := make(map[int]bool)
	for pid > 1 && !seen[pid] {
		if name, ok := r.pids.byPID[pid]; ok {
			return name, true
		}
		seen[pid] = true
		parent, ok := r.pids.parent(pid)
		if !ok {
			break
		}
		pid = parent
	}
	return "", false
}

// RemoveWorkspacePID forgets pid.
func (r *Root) RemoveWorkspacePID(pid int) {
	delete(r.pids.byPID, pid)
}

// RenamePIDWorkspaces follows a workspace rename.
func (r *Root) RenamePIDWorkspaces(oldName, newName string) {
	for pid, name := range r.pids.byPID {
		if name == oldName {
			r.pids.byPID[pid] = newName
		}
	}
}

// SetParentLookup replaces how a process's parent is found. The default
// reads /proc.
func (r *Root) SetParentLookup(fn func(pid int) (int, bool)) {
	r.pids.parent = fn
}

// procParent reads the parent pid from /proc/<pid>/stat.
func procParent(pid int) (int, bool) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return 0, false
	}
	// The command name may contain spaces; fields resume after its ')'.
	s := string(data)
	i := strings.LastIndexByte(s, ')')
	if i < 0 {
		return 0, false
	}
	fields := strings.Fields(s[i+1:])
	if len(fields) < 2 {
		return 0, false
	}
	ppid, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, false
	}
	return ppid, true
}

// forgetPIDIfLast drops pid's entry once no live window of that process
// remains.
func (r *Root) forgetPIDIfLast(pid int) {
	if pid <= 0 {
		return
	}
	for _, w := range r.windows {
		if w.pid == pid && !w.pending.Dead {
			return
		}
	}
	if _, ok := r.pids.byPID[pid]; ok {
		delete(r.pids.byPID, pid)
		r.log.Debug("forgot pid workspace", "pid", pid)
	}
}
