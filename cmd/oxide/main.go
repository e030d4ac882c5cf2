// Command oxide is the user-facing launcher. Its only real job today
// is the "analyzer" subcommand, which execs the oxide-analyzer
// language server binary and waits for it to exit.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"
)

var workspaceFlag string

var rootCmd = &cobra.Command{
	Use:   "oxide",
	Short: "oxide is the command-line entry point for the oxide toolchain",
}

var analyzerCmd = &cobra.Command{
	Use:   "analyzer",
	Short: "Run the oxide language server over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		if workspaceFlag == "" {
			return fmt.Errorf("--workspace is required")
		}
		return runAnalyzer(workspaceFlag)
	},
}

func init() {
	analyzerCmd.Flags().StringVar(&workspaceFlag, "workspace", "", "path to the workspace root")
	rootCmd.AddCommand(analyzerCmd)
}

// runAnalyzer locates the oxide-analyzer binary beside the running
// executable (falling back to PATH) and execs it with the given
// workspace, forwarding stdio so it can speak its JSON-RPC protocol
// directly to whatever launched oxide.
func runAnalyzer(workspace string) error {
	bin, err := analyzerBinaryPath()
	if err != nil {
		return fmt.Errorf("locating oxide-analyzer: %w", err)
	}

	cmd := exec.Command(bin, "--workspace", workspace)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func analyzerBinaryPath() (string, error) {
	self, err := os.Executable()
	if err == nil {
		sibling := filepath.Join(filepath.Dir(self), "oxide-analyzer")
		if _, statErr := os.Stat(sibling); statErr == nil {
			return sibling, nil
		}
	}
	return exec.LookPath("oxide-analyzer")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
