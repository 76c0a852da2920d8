// Command jclassdump is a small debugging aid around the jclass codec
// packages: it dumps a .class file's header, fields, methods and (with
// --verbose) bytecode, and round-trips a file through decode/encode,
// reporting whether the output is byte-identical and checking that it
// parses back. It does not print the constant pool or compare decoded
// instruction lists. It is not part of the library's scope, just glue to
// exercise it from a shell.
package main

import (
	"fmt"
	"os"

	"github.com/jclass-go/jclass/cmd/jclassdump/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
