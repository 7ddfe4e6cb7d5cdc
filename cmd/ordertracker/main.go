// Command ordertracker tracks orders in user-defined tabs stored in a local
// SQLite database.
package main

import (
	"os"

	"github.com/mesh-intelligence/ordertracker/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
