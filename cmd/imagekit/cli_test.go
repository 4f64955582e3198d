// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

// TestMain registers imagekit and a fake Koji client as testscript commands.
func TestMain(m *testing.M) {
	testscript.Main(m, map[string]func(){
		"imagekit": func() { os.Exit(Main()) },
		"brew":     fakeBrew,
	})
}

// fakeBrew answers `brew call --json-output <method> ...` with the contents of
// the file named by BREW_ARCHIVES (listArchives) or BREW_BUILD (getBuild).
// BREW_FAIL makes every call fail with its value on stderr.
func fakeBrew() {
	if msg := os.Getenv("BREW_FAIL"); msg != "" {
		fmt.Fprintln(os.Stderr, msg)
		os.Exit(1)
	}

	var file string
	switch {
	case slices.Contains(os.Args, "listArchives"):
		file = os.Getenv("BREW_ARCHIVES")
	case slices.Contains(os.Args, "getBuild"):
		file = os.Getenv("BREW_BUILD")
	}
	if file == "" {
		os.Exit(0)
	}

	data, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	os.Stdout.Write(data)
	os.Exit(0)
}

// TestCLI runs all testscript tests in the testdata directory.
func TestCLI(t *testing.T) {
	t.Parallel()

	testscript.Run(t, testscript.Params{
		Dir: "testdata",
		Setup: func(env *testscript.Env) error {
			env.Setenv("XDG_CONFIG_HOME", filepath.Join(env.WorkDir, ".config"))
			env.Setenv("XDG_CACHE_HOME", filepath.Join(env.WorkDir, ".cache"))
			env.Setenv("HOME", env.WorkDir)
			env.Setenv("NO_COLOR", "1")
			return nil
		},
	})
}
