package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Initialize a Sprintloom project",
	Long: `Initialize a directory for use with Sprintloom.

This command sets up everything needed to run Sprintloom:
  - Creates the .sprintloom directory structure (store, logs)
  - Creates a .sprintloom.yaml config template
  - Creates an example worker roster

The directory argument is optional and defaults to the current directory.

Examples:
  sprintloom init              # Initialize current directory
  sprintloom init ./myproject  # Initialize specific directory
  sprintloom init --force      # Reinitialize even if already set up`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Reinitialize even if already set up")
}

const configTemplate = `# Sprintloom project configuration.
# Values here override ~/.config/sprintloom/config.yaml.
sprints:
  max_duration: 30m
  max_per_project: 50
graph:
  max_depth: 10
orchestrator:
  max_retries: 3
  timeout_multiplier: 1.5
scheduling:
  tie_break: lexical
  acceptance_threshold: 0.8
store:
  path: .sprintloom/records.db
log:
  path: .sprintloom/logs/orchestrator-debug.log
`

const rosterTemplate = `# Worker roster. Order matters: earlier workers win score ties.
workers:
  - id: w1
    name: manager
    type: manager
    skills: [planning, review]
  - id: w2
    name: builder-1
    skills: [implementation, testing]
  - id: w3
    name: builder-2
    skills: [implementation, documentation]
`

func runInit(cmd *cobra.Command, args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}

	absPath, err := filepath.Abs(targetDir)
	if err != nil {
		return fmt.Errorf("resolving absolute path: %w", err)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", absPath, err)
	}

	fmt.Printf("Initializing Sprintloom in %s...\n\n", absPath)

	sprintloomDir := filepath.Join(absPath, ".sprintloom")
	if _, err := os.Stat(sprintloomDir); err == nil && !initForce {
		fmt.Printf("Directory already initialized. Use --force to reinitialize.\n")
		return nil
	}

	for _, dir := range []string{sprintloomDir, filepath.Join(sprintloomDir, "logs")} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	printStatus("✓", "Created .sprintloom directory structure", color.FgGreen)

	configPath := filepath.Join(absPath, ".sprintloom.yaml")
	if err := writeTemplate(configPath, configTemplate); err != nil {
		return err
	}
	printStatus("✓", "Created .sprintloom.yaml template", color.FgGreen)

	rosterPath := filepath.Join(absPath, "roster.yaml")
	if err := writeTemplate(rosterPath, rosterTemplate); err != nil {
		return err
	}
	printStatus("✓", "Created example worker roster", color.FgGreen)

	fmt.Printf("\n%s Sprintloom initialization complete!\n\n", color.GreenString("✓"))
	fmt.Println("Next steps:")
	fmt.Println("  sprintloom plan \"build a REST API with tests\"")
	fmt.Println("  sprintloom run --roster roster.yaml --watch \"build a REST API with tests\"")
	return nil
}

// writeTemplate writes content unless the file already exists
// (unless --force).
func writeTemplate(path, content string) error {
	if _, err := os.Stat(path); err == nil && !initForce {
		printStatus("·", fmt.Sprintf("%s already exists, skipping", filepath.Base(path)), color.FgYellow)
		return nil
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}
