package main

import (
	"fmt"
	"os"
	"os/exec"
	"time"
)

// Throwaway PostgreSQL container used by test:postgres.
const (
	postgresImage     = "postgres:16-alpine"
	postgresContainer = "roster-test-postgres"
	postgresPort      = "55432"
	postgresPassword  = "roster"
	postgresReadyWait = 30 * time.Second
)

// containerRuntime returns "podman" or "docker" if a working runtime
// is available, or "" if neither is usable. It checks both that the
// binary exists on PATH and that it can connect to its daemon/machine.
func containerRuntime() string {
	for _, name := range []string{"podman", "docker"} {
		if _, err := exec.LookPath(name); err != nil {
			continue
		}
		if exec.Command(name, "info").Run() != nil {
			fmt.Fprintf(os.Stderr, "WARNING: %s found on PATH but not usable (is the daemon/machine running?)\n", name)
			continue
		}
		return name
	}
	return ""
}

// startPostgres runs a fresh PostgreSQL container and waits until it accepts
// connections. It returns the DSN to reach it.
func startPostgres(rt string) (string, error) {
	stopPostgres(rt)

	fmt.Fprintln(os.Stderr, "Starting PostgreSQL container...")
	cmd := exec.Command(rt, "run", "-d", "--rm",
		"--name", postgresContainer,
		"-e", "POSTGRES_PASSWORD="+postgresPassword,
		"-e", "POSTGRES_DB=roster",
		"-p", postgresPort+":5432",
		postgresImage)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("start postgres container: %w", err)
	}

	deadline := time.Now().Add(postgresReadyWait)
	for time.Now().Before(deadline) {
		if exec.Command(rt, "exec", postgresContainer, "pg_isready", "-U", "postgres", "-d", "roster").Run() == nil {
			return fmt.Sprintf("postgres://postgres:%s@localhost:%s/roster?sslmode=disable", postgresPassword, postgresPort), nil
		}
		time.Sleep(500 * time.Millisecond)
	}
	stopPostgres(rt)
	return "", fmt.Errorf("postgres not ready after %s", postgresReadyWait)
}

// stopPostgres removes the test container. Errors are ignored because the
// container may not exist.
func stopPostgres(rt string) {
	_ = exec.Command(rt, "rm", "-f", postgresContainer).Run()
}
