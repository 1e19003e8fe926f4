// Command drivelinkctl inspects and manages Drive links from an operator shell.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := RootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
