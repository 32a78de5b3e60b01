// The main package for the newslinker executable.
package main

import (
	"github.com/JakeFAU/newslinker/cmd"
)

func main() {
	cmd.Execute()
}
