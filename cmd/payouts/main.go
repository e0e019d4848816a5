package main

import (
	"context"
	"fmt"
	"os"

	"payouts/internal/cli"
)

func main() {
	app := cli.NewApp()
	if err := cli.NewRootCmd(app).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
