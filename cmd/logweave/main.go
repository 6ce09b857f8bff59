package main

import (
	"fmt"
	"os"

	"github.com/cdtdelta/logweave/internal/cli"
	"github.com/cdtdelta/logweave/internal/logger"
)

func main() {
	err := cli.NewRootCommand().Execute()
	logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
