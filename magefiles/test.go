// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// postgresDSNEnv gates the PostgreSQL backend tests.
const postgresDSNEnv = "ROSTER_POSTGRES_DSN"

// Test groups test targets.
type Test mg.Namespace

// All runs every test. PostgreSQL tests run only when ROSTER_POSTGRES_DSN is set.
func (Test) All() error {
	return sh.RunV(binGo, "test", "./...")
}

// Unit runs the tests with the race detector and without PostgreSQL.
func (Test) Unit() error {
	return sh.RunWithV(map[string]string{postgresDSNEnv: ""}, binGo, "test", "-race", "-count=1", "./...")
}

// Cover writes a coverage profile to coverage.out and prints the summary.
func (Test) Cover() error {
	if err := sh.RunV(binGo, "test", "-coverprofile="+coverFile, "./..."); err != nil {
		return err
	}
	return sh.RunV(binGo, "tool", "cover", "-func="+coverFile)
}

// Postgres starts a PostgreSQL container, runs the backend tests against it
// and removes the container. An existing ROSTER_POSTGRES_DSN is used as is.
func (Test) Postgres() error {
	if dsn := os.Getenv(postgresDSNEnv); dsn != "" {
		return runPostgresTests(dsn)
	}

	rt := containerRuntime()
	if rt == "" {
		return fmt.Errorf("no container runtime found (tried podman, docker) and %s is unset", postgresDSNEnv)
	}
	dsn, err := startPostgres(rt)
	if err != nil {
		return err
	}
	defer stopPostgres(rt)
	return runPostgresTests(dsn)
}

func runPostgresTests(dsn string) error {
	return sh.RunWithV(map[string]string{postgresDSNEnv: dsn},
		binGo, "test", "-count=1", "./internal/postgres/...")
}
