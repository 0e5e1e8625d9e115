// Package main is the entry point for the sale-monitor server.
package main

import (
	"os"

	"github.com/donaldgifford/sale-monitor/cmd/sale-monitor/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
