// Package main generates Markdown documentation for both CLIs.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	servercmd "github.com/donaldgifford/sale-monitor/cmd/sale-monitor/cmd"
	clientcmd "github.com/donaldgifford/sale-monitor/cmd/salemon/cmd"
)

func main() {
	output := flag.String("output", "docs/cli", "directory to write generated docs into")
	flag.Parse()

	roots := map[string]*cobra.Command{
		"sale-monitor": servercmd.Root(),
		"salemon":      clientcmd.Root(),
	}

	for name, root := range roots {
		dir := filepath.Join(*output, name)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			fmt.Fprintf(os.Stderr, "creating %s: %v\n", dir, err)
			os.Exit(1)
		}

		root.DisableAutoGenTag = true
		if err := doc.GenMarkdownTree(root, dir); err != nil {
			fmt.Fprintf(os.Stderr, "generating docs for %s: %v\n", name, err)
			os.Exit(1)
		}
	}

	fmt.Printf("CLI docs written to %s\n", *output)
}
