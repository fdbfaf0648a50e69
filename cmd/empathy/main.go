// Command empathy scores weekly collaboration activity for burnout risk and
// serves the resulting nudges.
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
