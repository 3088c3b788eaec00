// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main provides build targets for roster using Mage.
//
// Usage:
//
//	mage build           Compile the roster binary to bin/
//	mage install         Install roster to GOPATH/bin
//	mage clean           Remove build artifacts
//	mage lint            Run golangci-lint
//	mage vet             Run go vet
//	mage test:all        Run every test
//	mage test:unit       Run tests with the race detector, skipping PostgreSQL
//	mage test:cover      Write a coverage profile to coverage.out
//	mage test:postgres   Run the PostgreSQL backend tests against a throwaway container
package main

const (
	binGo      = "go"
	binaryName = "roster"
	binaryDir  = "bin"
	cmdDir     = "./cmd/roster"
	coverFile  = "coverage.out"
)
