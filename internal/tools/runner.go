package tools

import (
	"os/exec"
	"strings"
)

// CommandLookup abstracts executable resolution for startup checks.
type CommandLookup interface {
	Lookup(name string) (string, error)
}

// PathLookup resolves commands against $PATH on the local host.
type PathLookup struct{}

func (PathLookup) Lookup(name string) (string, error) {
	return exec.LookPath(name)
}

// Missing returns the commands lookup cannot resolve, in input order.
func Missing(lookup CommandLookup, commands ...string) []string {
	var out []string
	seen := make(map[string]bool, len(commands))
	for _, name := range commands {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if _, err := lookup.Lookup(name); err != nil {
			out = append(out, name)
		}
	}
	return out
}
