// Command roster manages members, groups and their memberships.
package main

import (
	"os"

	"github.com/mesh-intelligence/roster/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
