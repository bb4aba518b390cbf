// ABOUTME: Integration tests for the migraine CLI.
// ABOUTME: Builds the binary and drives a full journal and settings workflow.
package test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func TestFullWorkflow(t *testing.T) {
	// Build the binary
	projectRoot, _ := filepath.Abs("..")
	binary := filepath.Join(projectRoot, "migraine")

	buildCmd := exec.Command("go", "build", "-o", binary, "./cmd/migraine")
	buildCmd.Dir = projectRoot
	if output, err := buildCmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build: %v\n%s", err, output)
	}
	defer os.Remove(binary)

	// Isolated config and data directories
	tmpDir := t.TempDir()
	env := append(os.Environ(),
		"XDG_CONFIG_HOME="+filepath.Join(tmpDir, "config"),
		"XDG_DATA_HOME="+filepath.Join(tmpDir, "data"),
		"MIGRAINE_BACKEND=sqlite",
	)

	run := func(args ...string) (string, error) {
		cmd := exec.Command(binary, args...)
		cmd.Env = env
		output, err := cmd.CombinedOutput()
		return string(output), err
	}

	output, err := run("migraine", "add", "7", "--notes", "after a long flight")
	if err != nil {
		t.Fatalf("Failed to add migraine: %v\n%s", err, output)
	}
	if !strings.Contains(output, "Logged migraine, severity 7") {
		t.Errorf("Expected 'Logged migraine' in output, got: %s", output)
	}

	output, err = run("migraine", "item", "trigger", "red wine")
	if err != nil {
		t.Fatalf("Failed to add trigger: %v\n%s", err, output)
	}
	if !strings.Contains(output, "Added trigger") {
		t.Errorf("Expected 'Added trigger' in output, got: %s", output)
	}

	output, err = run("migraine", "list")
	if err != nil {
		t.Fatalf("Failed to list: %v\n%s", err, output)
	}
	if !strings.Contains(output, "severity 7") {
		t.Errorf("Expected 'severity 7' in list output, got: %s", output)
	}

	// Severity outside 1..10 is rejected
	if output, err = run("migraine", "add", "12"); err == nil {
		t.Errorf("Expected severity 12 to fail, got: %s", output)
	}

	// Wearable metrics need a connected wearable
	if output, err = run("settings", "enable", "hrv_daily"); err == nil {
		t.Errorf("Expected enable without wearable to fail, got: %s", output)
	}

	output, err = run("wearable", "connect", "whoop")
	if err != nil {
		t.Fatalf("Failed to connect wearable: %v\n%s", err, output)
	}
	if !strings.Contains(output, "Connected whoop") {
		t.Errorf("Expected 'Connected whoop' in output, got: %s", output)
	}

	output, err = run("settings", "enable", "hrv_daily")
	if err != nil {
		t.Fatalf("Failed to enable hrv: %v\n%s", err, output)
	}
	if !strings.Contains(output, "hrv_daily") {
		t.Errorf("Expected 'hrv_daily' in output, got: %s", output)
	}

	// Permission-gated metrics prompt until the permission is granted
	if output, err = run("settings", "enable", "ambient_noise_index_daily"); err == nil {
		t.Errorf("Expected enable without microphone permission to fail, got: %s", output)
	}

	output, err = run("settings", "list")
	if err != nil {
		t.Fatalf("Failed to list settings: %v\n%s", err, output)
	}
	if !strings.Contains(output, "whoop") {
		t.Errorf("Expected 'whoop' source in settings list, got: %s", output)
	}

	output, err = run("menstruation", "log", "2025-03-01")
	if err != nil {
		t.Fatalf("Failed to log period: %v\n%s", err, output)
	}
	if !strings.Contains(output, "Logged period starting 2025-03-01") {
		t.Errorf("Expected 'Logged period' in output, got: %s", output)
	}
}
