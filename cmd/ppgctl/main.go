// Command ppgctl runs the PPG pipeline offline on recorded sample files and
// talks to a running oximeter.
//
// Usage:
//
//	ppgctl analyze --channel red samples.txt --dump-trace trace.csv
//	ppgctl pair red.txt ir.txt -o json
//	ppgctl submit --server http://localhost:5000 --channel ir ir.txt
//	ppgctl retrieve --server http://localhost:5000
//
// Sample files hold decimal values separated by commas, whitespace or
// newlines. "-" reads from stdin.
package main

import (
	"fmt"
	"os"
)

// version is set via ldflags at build time
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
