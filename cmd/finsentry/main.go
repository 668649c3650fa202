// Command finsentry is the command-line interface for customer risk
// profiling and AML analysis.
package main

import "github.com/finsentry/aml-insight/internal/interfaces/cli"

func main() {
	cli.Execute()
}
