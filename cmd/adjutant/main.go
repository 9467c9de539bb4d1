package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:   "adjutant",
	Short: "Personal Telegram assistant server",
	Long: `adjutant is a single-user personal assistant served over a Telegram
webhook. It routes messages to task, calendar, note, query, and chat
handlers backed by an LLM provider chain and a local SQLite store.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the adjutant version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("adjutant version %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(notesCmd)
	rootCmd.AddCommand(interactionsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
