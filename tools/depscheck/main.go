package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

type packageInfo struct {
	ImportPath string
	Imports    []string
}

// rule forbids packages under Scope from importing anything under one of
// the Forbidden prefixes.
type rule struct {
	Scope     string
	Forbidden []string
}

// The simulation reaches clients only through game.Outbound; it never sees a
// socket, an HTTP type or the session layer.
var rules = []rule{
	{
		Scope: "snak8s/internal/game",
		Forbidden: []string{
			"github.com/gorilla/websocket",
			"net/http",
			"snak8s/internal/net/ws",
			"snak8s/internal/session",
			"snak8s/internal/rooms",
		},
	},
	{
		Scope: "snak8s/internal/sim",
		Forbidden: []string{
			"github.com/gorilla/websocket",
			"snak8s/internal/game",
		},
	},
	{
		Scope: "snak8s/internal/net/proto",
		Forbidden: []string{
			"snak8s/internal/game",
			"github.com/gorilla/websocket",
		},
	},
}

func main() {
	cmd := exec.Command("go", "list", "-json", "./internal/...")
	cmd.Env = os.Environ()
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			os.Stderr.Write(exitErr.Stderr)
		}
		fmt.Fprintf(os.Stderr, "depscheck: failed to list packages: %v\n", err)
		os.Exit(1)
	}

	packages, err := decodePackages(bytes.NewReader(output))
	if err != nil {
		fmt.Fprintf(os.Stderr, "depscheck: failed to decode package info: %v\n", err)
		os.Exit(1)
	}

	violations := findViolations(packages, rules)
	if len(violations) > 0 {
		fmt.Fprintln(os.Stderr, "depscheck: found forbidden imports:")
		for _, violation := range violations {
			fmt.Fprintf(os.Stderr, "  %s\n", violation)
		}
		os.Exit(1)
	}
}

func decodePackages(r io.Reader) ([]packageInfo, error) {
	decoder := json.NewDecoder(r)
	var packages []packageInfo
	for {
		var pkg packageInfo
		if err := decoder.Decode(&pkg); err != nil {
			if errors.Is(err, io.EOF) {
				return packages, nil
			}
			return nil, err
		}
		packages = append(packages, pkg)
	}
}

func findViolations(packages []packageInfo, rules []rule) []string {
	var violations []string
	for _, pkg := range packages {
		for _, r := range rules {
			if !withinPath(pkg.ImportPath, r.Scope) {
				continue
			}
			for _, imp := range pkg.Imports {
				for _, forbidden := range r.Forbidden {
					if withinPath(imp, forbidden) {
						violations = append(violations, fmt.Sprintf("%s -> %s", pkg.ImportPath, imp))
					}
				}
			}
		}
	}
	sort.Strings(violations)
	return violations
}

func withinPath(importPath, prefix string) bool {
	return importPath == prefix || strings.HasPrefix(importPath, prefix+"/")
}
