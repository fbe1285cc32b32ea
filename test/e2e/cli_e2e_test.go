package e2e

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// TestCLI_E2E verifies the built binary functions correctly
func TestCLI_E2E(t *testing.T) {
	if testing.Short() {
		t.Skip("builds and runs the binary")
	}

	tmpDir := t.TempDir()
	binName := "memprof"
	if runtime.GOOS == "windows" {
		binName = "memprof.exe"
	}
	binPath := filepath.Join(tmpDir, binName)

	// go test runs with the package directory as CWD; build from the module root.
	rootDir := "../.."

	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/memprof")
	cmd.Dir = rootDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		t.Fatalf("Failed to build memprof: %v", err)
	}

	archive := filepath.Join(tmpDir, "capture.json")
	converted := filepath.Join(tmpDir, "capture.yaml")

	// Cases run in order: the import cases read what the export case wrote.
	tests := []struct {
		name     string
		args     []string
		wantOut  string // substring match (case-insensitive)
		wantCode int
	}{
		{
			name:     "Help",
			args:     []string{"--help"},
			wantOut:  "usage",
			wantCode: 0,
		},
		{
			name:     "Version Flag",
			args:     []string{"--version"},
			wantOut:  "memprof",
			wantCode: 0,
		},
		{
			name:     "Watch Text Report",
			args:     []string{"--duration", "300ms", "--interval", "20ms", "--leak-window", "5"},
			wantOut:  "--- memprof report ---",
			wantCode: 0,
		},
		{
			name:     "Watch JSON With Export",
			args:     []string{"--duration", "300ms", "--interval", "20ms", "--leak-window", "5", "--format", "json", "--export", archive},
			wantOut:  `"session"`,
			wantCode: 0,
		},
		{
			name:     "Import Quiet",
			args:     []string{"--import", archive, "--quiet"},
			wantOut:  "snapshots=",
			wantCode: 0,
		},
		{
			name:     "Import Converts To YAML",
			args:     []string{"--import", archive, "--export", converted, "--quiet"},
			wantOut:  "score=",
			wantCode: 0,
		},
		{
			name:     "Import Converted YAML",
			args:     []string{"--import", converted, "--format", "json"},
			wantOut:  `"origin"`,
			wantCode: 0,
		},
		{
			name:     "Import Missing Archive",
			args:     []string{"--import", filepath.Join(tmpDir, "missing.json")},
			wantOut:  "error",
			wantCode: 3,
		},
		{
			name:     "Runtime Source",
			args:     []string{"--source", "runtime", "--duration", "200ms", "--interval", "20ms", "-q"},
			wantOut:  "trend=",
			wantCode: 0,
		},
		{
			name:     "Invalid Format",
			args:     []string{"--format", "xml"},
			wantOut:  "unknown format",
			wantCode: 4,
		},
		{
			name:     "Import And Serve Conflict",
			args:     []string{"--import", archive, "--serve", ":0"},
			wantOut:  "mutually exclusive",
			wantCode: 4,
		},
		{
			name:     "Bash Completion",
			args:     []string{"--completion", "bash"},
			wantOut:  "complete -F _memprof_completions memprof",
			wantCode: 0,
		},
		{
			name:     "Unsupported Completion",
			args:     []string{"--completion", "tcsh"},
			wantOut:  "unsupported shell",
			wantCode: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := exec.Command(binPath, tt.args...)
			cmd.Env = append(os.Environ(), "NO_COLOR=1")
			output, err := cmd.CombinedOutput()
			outStr := string(output)

			if tt.wantCode == 0 {
				if err != nil {
					t.Errorf("Command failed unexpectedly: %v\nOutput: %s", err, outStr)
				}
			} else {
				var exitErr *exec.ExitError
				if !errors.As(err, &exitErr) {
					t.Fatalf("Expected exit code %d, got err=%v\nOutput: %s", tt.wantCode, err, outStr)
				}
				if exitErr.ExitCode() != tt.wantCode {
					t.Errorf("Exit code = %d, want %d\nOutput: %s", exitErr.ExitCode(), tt.wantCode, outStr)
				}
			}

			if tt.wantOut != "" && !strings.Contains(strings.ToLower(outStr), strings.ToLower(tt.wantOut)) {
				t.Errorf("Output missing expected string.\nExpected: %q\nGot:\n%s", tt.wantOut, outStr)
			}
		})
	}

	if _, err := os.Stat(converted); err != nil {
		t.Errorf("converted archive missing: %v", err)
	}
}
