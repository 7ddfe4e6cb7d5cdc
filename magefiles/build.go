// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "ordertracker"
	binaryDir  = "bin"
	cmdDir     = "./cmd/ordertracker"
	versionVar = "github.com/mesh-intelligence/ordertracker/internal/cli.Version"
	cgoTag     = "cgo_sqlite"
)

// Build compiles the ordertracker binary to bin/ with the pure-Go driver.
func Build() error {
	return build(nil)
}

// BuildCgo compiles the ordertracker binary with the cgo SQLite driver.
func BuildCgo() error {
	return build(map[string]string{"CGO_ENABLED": "1"}, "-tags", cgoTag)
}

func build(env map[string]string, extra ...string) error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	args := []string{"build", "-v", "-ldflags", ldflags()}
	args = append(args, extra...)
	args = append(args, "-o", filepath.Join(binaryDir, binaryName), cmdDir)
	return sh.RunWithV(env, binGo, args...)
}

// ldflags stamps the version from the nearest git tag, if any.
func ldflags() string {
	version, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil || version == "" {
		return ""
	}
	return "-X " + versionVar + "=" + strings.TrimPrefix(version, "v")
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}
