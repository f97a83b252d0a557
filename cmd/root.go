// Package cmd defines the quill command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "quill",
	Short: "quill - retrieval-backed chat over a public knowledge base",
	Long: `quill answers questions about a personal knowledge base: it plans a
retrieval strategy for each question, combines structured filtering with
vector and heading search over public notes, and streams a grounded
answer.

Run "quill serve" to start the HTTP API server.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
