// Command sourcemelt bundles a multi-file Python program into a single
// self-contained script.
package main

import "github.com/sourcemelt/sourcemelt/cmd"

func main() {
	cmd.Execute()
}
