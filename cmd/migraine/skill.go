// ABOUTME: Installs the migraine agent skill definition.
// ABOUTME: Embeds SKILL.md and writes it under ~/.claude/skills/migraine/.
package main

import (
	"bufio"
	"embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

//go:embed skill/SKILL.md
var skillFS embed.FS

var skillSkipConfirm bool

var installSkillCmd = &cobra.Command{
	Use:   "install-skill",
	Short: "Install the migraine agent skill",
	Long: `Install the migraine skill for MCP-aware coding agents.

This copies the skill definition to ~/.claude/skills/migraine/ so the agent
knows when to log migraines, journal items, and data-setting changes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		return installSkill(home, skillSkipConfirm, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	installSkillCmd.Flags().BoolVarP(&skillSkipConfirm, "yes", "y", false, "skip confirmation prompt")
	rootCmd.AddCommand(installSkillCmd)
}

func skillPath(home string) string {
	return filepath.Join(home, ".claude", "skills", "migraine", "SKILL.md")
}

// installSkill writes the embedded skill under home. Without yes it asks on in
// and cancels on anything but y/yes.
func installSkill(home string, yes bool, in io.Reader, out io.Writer) error {
	path := skillPath(home)

	fmt.Fprintln(out, "This installs the migraine skill, letting the agent:")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "  • Log migraines with severity and notes")
	fmt.Fprintln(out, "  • Record triggers, medicines, and reliefs")
	fmt.Fprintln(out, "  • Change which metrics are collected")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Destination:\n  %s\n\n", path)

	if _, err := os.Stat(path); err == nil {
		fmt.Fprintln(out, "Note: the existing skill file will be overwritten.")
		fmt.Fprintln(out)
	}

	if !yes {
		fmt.Fprint(out, "Install the migraine skill? [y/N] ")
		response, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("failed to read response: %w", err)
		}
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Fprintln(out, "Installation canceled.")
			return nil
		}
	}

	content, err := skillFS.ReadFile("skill/SKILL.md")
	if err != nil {
		return fmt.Errorf("failed to read embedded skill: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create skill directory: %w", err)
	}
	if err := os.WriteFile(path, content, 0600); err != nil {
		return fmt.Errorf("failed to write skill file: %w", err)
	}

	fmt.Fprintln(out, color.GreenString("✓ Installed migraine skill"))
	return nil
}
