package main

import (
	"fmt"
	"os"

	// Embedded tzdata so IANA timezone resolution works in scratch
	// containers without a zoneinfo database.
	_ "time/tzdata"

	"github.com/quillhq/quill/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
