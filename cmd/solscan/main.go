package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/example/solscan/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)

		var threshold *cli.ThresholdError
		if errors.As(err, &threshold) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
