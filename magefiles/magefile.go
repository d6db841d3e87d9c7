//go:build mage

// Package main contains Mage build targets for the symptom service.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const binDir = "bin"

// binaries maps output names to their main packages.
var binaries = map[string]string{
	"symptom-server": "./cmd/server",
	"symptomctl":     "./cmd/symptomctl",
}

// Default target when mage is run without arguments.
var Default = Build

// Build compiles the server and CLI into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	version, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil {
		version = "dev"
	}
	ldflags := "-X main.version=" + version
	for name, pkg := range binaries {
		out := filepath.Join(binDir, name)
		if err := sh.RunV("go", "build", "-ldflags", ldflags, "-o", out, pkg); err != nil {
			return fmt.Errorf("go build %s: %w", pkg, err)
		}
		fmt.Printf("Built %s\n", out)
	}
	return nil
}

// Test runs the unit tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Vet runs go vet.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Check runs vet and the tests.
func Check() {
	mg.SerialDeps(Vet, Test)
}

// Run builds and starts the server with the local configuration.
func Run() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, "symptom-server"))
}

// Corpus reports classifier corpus sufficiency for the current configuration.
func Corpus() error {
	return sh.RunV("go", "run", "./cmd/symptomctl", "corpus")
}

// Clean removes build output.
func Clean() error {
	return sh.Rm(binDir)
}
