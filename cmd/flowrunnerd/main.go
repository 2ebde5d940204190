// Command flowrunnerd is the demo control-API collaborator: it wraps the
// engine package with the HTTP surface, configuration-file loading, and CLI
// entrypoint the engine itself treats as external concerns.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
