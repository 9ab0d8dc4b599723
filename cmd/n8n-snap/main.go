package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"n8n-snap/internal/cli"
)

func main() {
	_ = godotenv.Load()

	if err := cli.Run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
