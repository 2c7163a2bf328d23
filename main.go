// classlink - encrypted classroom chat over an ad hoc local network.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"classlink/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "classlink: %v\n", err)
		os.Exit(1)
	}
}
