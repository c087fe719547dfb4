// Command sheetctl runs operator tasks against the backend database.
//
//	sheetctl create-admin --email admin@example.com --name Admin --password ...
//	sheetctl stats --output json
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(defaultBuilder).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
