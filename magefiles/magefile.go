//go:build mage

// Package main provides build targets for the listing backend using Mage.
//
// Usage:
//
//	mage build        Compile api and estatectl to bin/
//	mage test         Run unit tests
//	mage integration  Run tests including the dockertest MySQL suite
//	mage lint         Run golangci-lint
//	mage clean        Remove build artifacts
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo     = "go"
	binLint   = "golangci-lint"
	binaryDir = "bin"
)

// binaries maps output names to their main packages.
var binaries = map[string]string{
	"estate-api": "./cmd/api",
	"estatectl":  "./cmd/estatectl",
}

// Build compiles every binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	for name, pkg := range binaries {
		if err := sh.RunV(binGo, "build", "-o", filepath.Join(binaryDir, name), pkg); err != nil {
			return err
		}
	}
	return nil
}

// Test runs the unit tests with the race detector.
func Test() error {
	return sh.RunV(binGo, "test", "-race", "./...")
}

// Integration runs all tests, including those that start MySQL in Docker.
func Integration() error {
	mg.Deps(Build)
	return sh.RunV(binGo, "test", "-tags", "integration", "-count=1", "./...")
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV(binLint, "run", "./...")
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}
