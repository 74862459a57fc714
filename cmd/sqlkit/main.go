// Command sqlkit exposes the schema tooling of the sqlkit packages: Go code
// generation from CREATE TABLE statements, DDL rendering, dialect validation,
// and a notification tail for LISTEN channels.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, `error:`, err)
		os.Exit(1)
	}
}
