// Package main provides build targets for the ordertracker project using Mage.
//
// Usage:
//
//	mage build          Compile the ordertracker binary to bin/ (pure-Go SQLite)
//	mage buildCgo       Compile with the cgo SQLite driver (mattn/go-sqlite3)
//	mage test:all       Run all tests with both SQLite drivers
//	mage test:unit      Run tests with the default driver
//	mage test:race      Run tests with the race detector
//	mage test:cover     Write a coverage profile to bin/coverage.out
//	mage lint           Run golangci-lint
//	mage clean          Remove build artifacts
//	mage install        Install ordertracker to GOPATH/bin
//	mage stats          Print Go lines of code per package
package main
