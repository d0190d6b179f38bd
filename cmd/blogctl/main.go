// Command blogctl runs the blog's maintenance tasks from the shell:
// WordPress imports, subscriber notifications, test emails, legacy link
// fixing and schema migrations.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand(newCommandContext(openApp)).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
