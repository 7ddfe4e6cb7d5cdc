// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Test groups test targets (all, unit, race, cover).
type Test mg.Namespace

// All runs the tests against both SQLite drivers.
func (Test) All() error {
	mg.SerialDeps(Test.Unit, Test.Cgo)
	return nil
}

// Unit runs the tests with the default pure-Go driver.
func (Test) Unit() error {
	return sh.RunV(binGo, "test", "./...")
}

// Cgo runs the tests with the cgo SQLite driver.
func (Test) Cgo() error {
	return sh.RunWithV(map[string]string{"CGO_ENABLED": "1"}, binGo, "test", "-tags", cgoTag, "./...")
}

// Race runs the tests with the race detector.
func (Test) Race() error {
	return sh.RunWithV(map[string]string{"CGO_ENABLED": "1"}, binGo, "test", "-race", "./...")
}

// Cover writes a coverage profile to bin/coverage.out and prints the
// per-function summary.
func (Test) Cover() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	profile := filepath.Join(binaryDir, "coverage.out")
	if err := sh.RunV(binGo, "test", "-coverprofile", profile, "./..."); err != nil {
		return err
	}
	return sh.RunV(binGo, "tool", "cover", "-func", profile)
}
