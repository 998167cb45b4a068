package main

import (
	"context"
	"os"
)

func main() {
	if err := execute(context.Background(), NewServerBootstrapper(), os.Args[1:]); err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}
