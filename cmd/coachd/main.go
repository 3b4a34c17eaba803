package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

var version = "dev"

// #region main

func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main
