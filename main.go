// ABOUTME: Entry point for the pullbridge player
// ABOUTME: Hands the command line to the cobra command tree
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Sendspin/pullbridge/internal/cli"
)

func main() {
	if err := cli.Execute(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "pullbridge: %v\n", err)
		os.Exit(1)
	}
}
