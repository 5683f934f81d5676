// Package main is the entry point for the covagent CLI tool.
package main

import (
	"github.com/joho/godotenv"

	"github.com/testforge/covagent/internal/cmd"
)

func main() {
	// A .env file may supply COVAGENT_* settings; it is optional.
	_ = godotenv.Load()
	cmd.Execute()
}
