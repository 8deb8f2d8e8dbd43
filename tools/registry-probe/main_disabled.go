//go:build !protogen

package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(os.Stderr, "registry-probe needs generated proto stubs; rebuild with -tags protogen")
	os.Exit(1)
}
