package main

import (
	"context"
	"fmt"
	"os"

	"civicbridge-be/cli"
)

func main() {
	if err := cli.Execute(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "civicbridge:", err)
		os.Exit(1)
	}
}
