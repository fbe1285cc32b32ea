package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestGenerateCompletion(t *testing.T) {
	t.Parallel()
	tests := []struct {
		shell    string
		contains []string
	}{
		{"bash", []string{
			"_memprof_completions()",
			"complete -F _memprof_completions memprof",
			"--source)",
			`compgen -W "host runtime"`,
			"--export|--import|--config)",
			"-v",
		}},
		{"zsh", []string{
			"#compdef memprof",
			"'(-q --quiet)'{-q,--quiet}'[Quiet mode for scripts]'",
			"'--import[Analyze an exported archive]:file:_files'",
			"'--format[Report format]:format:(text json)'",
			"'--alert-threshold[Usage jump raising a performance alert]:bytes:'",
		}},
		{"fish", []string{
			"complete -c memprof -f",
			"# Sampling",
			"complete -c memprof -l source -d 'Process counter source' -xa 'host runtime'",
			"complete -c memprof -l export -d 'Write captured history to an archive' -rF",
			"complete -c memprof -s v -l verbose -d 'Verbose report'",
		}},
		{"powershell", []string{
			"Register-ArgumentCompleter -Native -CommandName memprof",
			"@{Name = '--serve'; Description = 'Serve the HTTP API on this address' }",
			"'--completion' { $values = @('bash', 'zsh', 'fish', 'powershell') }",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.shell, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			if err := GenerateCompletion(&buf, tt.shell); err != nil {
				t.Fatalf("GenerateCompletion(%q) error: %v", tt.shell, err)
			}
			out := buf.String()
			for _, want := range tt.contains {
				if !strings.Contains(out, want) {
					t.Errorf("%s script missing %q", tt.shell, want)
				}
			}
		})
	}
}

func TestGenerateCompletion_Unsupported(t *testing.T) {
	t.Parallel()
	err := GenerateCompletion(&bytes.Buffer{}, "tcsh")
	if err == nil || !strings.Contains(err.Error(), "unsupported shell: tcsh") {
		t.Errorf("unexpected error: %v", err)
	}
}

// TestFlagRegistryComplete guards against flags added to the parser but not
// to completion.
func TestFlagRegistryComplete(t *testing.T) {
	t.Parallel()
	seen := map[string]bool{}
	for _, f := range flagRegistry {
		if seen[f.Long] {
			t.Errorf("duplicate flag %q", f.Long)
		}
		seen[f.Long] = true
		if f.Section == "" {
			t.Errorf("flag %q has no section", f.Long)
		}
	}
	for _, name := range []string{
		"interval", "capacity", "queue-size", "leak-window", "duration", "horizon", "source",
		"format", "export", "import", "serve", "log-level", "config", "completion",
		"verbose", "quiet", "no-color", "version",
		"pressure-threshold", "page-fault-threshold", "fragmentation-threshold", "leak-threshold", "alert-threshold",
	} {
		if !seen[name] {
			t.Errorf("flag %q missing from completion registry", name)
		}
	}
}
