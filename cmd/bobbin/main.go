// Command bobbin is the CLI entry point for the local-first hybrid
// code-context retrieval engine described in spec.md §6, grounded on
// project-cortex's cmd/cortex-embed shape (a thin main delegating to an
// internal command tree).
package main

import "github.com/bobbin-dev/bobbin/cmd/bobbin/cli"

func main() {
	cli.Execute()
}
