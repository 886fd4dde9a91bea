// Command detectivectl inspects and maintains a detective store offline.
package main

import (
	"fmt"
	"os"

	"github.com/okian/detective/pkg/logger"
)

func main() {
	// Logs go to stderr so stdout carries only command output.
	if err := logger.InitWithWriter(os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logging:", err)
		os.Exit(1)
	}
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
