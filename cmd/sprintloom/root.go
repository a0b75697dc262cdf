package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sprintloom",
	Short: "Sprint dependency scheduler & work orchestrator",
	Long: `Sprintloom turns a high-level request into a dependency graph of
bounded-duration sprints, computes execution order (critical path,
parallel layers), and allocates sprints to workers while reacting to
completion and failure.

Core capabilities:
- Decomposes work into phased, bounded sprints
- Validates dependency graphs (cycles, dangling edges, depth)
- Computes critical path and parallel execution layers
- Allocates sprints atomically to skill-matched workers
- Retries transient failures and abandons hopeless sprints`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}
