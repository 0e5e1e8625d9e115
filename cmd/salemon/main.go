// Package main is the entry point for the salemon CLI client.
package main

import (
	"github.com/donaldgifford/sale-monitor/cmd/salemon/cmd"
)

func main() {
	cmd.Execute()
}
