// ABOUTME: Tests for the install-skill command.
// ABOUTME: Validates confirmation handling, overwrite, and embedded content.
package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSkillInstallWithYes(t *testing.T) {
	home := t.TempDir()
	var out bytes.Buffer

	if err := installSkill(home, true, strings.NewReader(""), &out); err != nil {
		t.Fatalf("installSkill failed: %v", err)
	}

	data, err := os.ReadFile(skillPath(home))
	if err != nil {
		t.Fatalf("Skill file not created: %v", err)
	}
	for _, marker := range []string{
		"name: migraine",
		"description:",
		"mcp__migraine__log_migraine",
		"mcp__migraine__add_journal_item",
		"mcp__migraine__set_metric_enabled",
		"## When to use migraine",
		"## Item kinds",
	} {
		if !strings.Contains(string(data), marker) {
			t.Errorf("Expected SKILL.md to contain %q", marker)
		}
	}
	if !strings.Contains(out.String(), "Installed migraine skill") {
		t.Errorf("Expected success message, got: %s", out.String())
	}
}

func TestSkillInstallDeclined(t *testing.T) {
	home := t.TempDir()
	var out bytes.Buffer

	if err := installSkill(home, false, strings.NewReader("n\n"), &out); err != nil {
		t.Fatalf("installSkill failed: %v", err)
	}
	if _, err := os.Stat(skillPath(home)); !os.IsNotExist(err) {
		t.Errorf("Expected no skill file after declining, got err=%v", err)
	}
	if !strings.Contains(out.String(), "Installation canceled.") {
		t.Errorf("Expected cancel message, got: %s", out.String())
	}
}

func TestSkillInstallConfirmed(t *testing.T) {
	home := t.TempDir()
	var out bytes.Buffer

	if err := installSkill(home, false, strings.NewReader("yes\n"), &out); err != nil {
		t.Fatalf("installSkill failed: %v", err)
	}
	if _, err := os.Stat(skillPath(home)); err != nil {
		t.Errorf("Expected skill file after confirming: %v", err)
	}
}

func TestSkillInstallOverwritesExistingFile(t *testing.T) {
	home := t.TempDir()
	path := skillPath(home)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("stale content"), 0644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := installSkill(home, true, strings.NewReader(""), &out); err != nil {
		t.Fatalf("installSkill failed: %v", err)
	}
	if !strings.Contains(out.String(), "will be overwritten") {
		t.Errorf("Expected overwrite note, got: %s", out.String())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "stale content") {
		t.Error("Old content should have been replaced")
	}
}

func TestSkillFSStartsWithFrontmatter(t *testing.T) {
	content, err := skillFS.ReadFile("skill/SKILL.md")
	if err != nil {
		t.Fatalf("Failed to read embedded skill: %v", err)
	}
	if !strings.HasPrefix(string(content), "---") {
		t.Error("Expected SKILL.md to start with YAML frontmatter")
	}
}
