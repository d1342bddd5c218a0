// Command tooldesk is a terminal assistant that answers questions with the help of unit,
// currency and weather tools.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(nil).Execute(); err != nil {
		os.Exit(1)
	}
}
