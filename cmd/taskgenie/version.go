package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/taskgenie/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the current version of Task Genie.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("taskgenie version %s\n", version.String())
	},
}
