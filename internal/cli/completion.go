package cli

import (
	"fmt"
	"io"
	"strings"
)

// FlagCompletion describes a CLI flag for shell completion generation.
// All shell completion functions generate from this registry, so adding
// a new flag only requires appending to flagRegistry.
type FlagCompletion struct {
	Long      string   // long flag name without "--" (e.g., "help")
	Short     string   // short flag without "-" (e.g., "h")
	Help      string   // description text
	Values    []string // suggested completion values (nil = boolean/no suggestions)
	ValueName string   // label for the value in zsh (e.g., "duration")
	IsFile    bool     // true if the flag takes a file path
	Section   string   // fish comment section
}

// Shells lists the accepted values for --completion.
var Shells = []string{"bash", "zsh", "fish", "powershell"}

var durations = []string{"100ms", "500ms", "1s", "5s", "10s", "30s", "1m", "5m"}

// flagRegistry is the central list of all CLI flags for completion generation.
var flagRegistry = []FlagCompletion{
	{Long: "help", Short: "h", Help: "Show help message", Section: "Help and version"},
	{Long: "version", Short: "V", Help: "Show version information", Section: "Help and version"},
	{Long: "interval", Help: "Sampling interval (0 = adaptive)", Values: durations, ValueName: "duration", Section: "Sampling"},
	{Long: "capacity", Help: "Retention buffer capacity", Values: []string{"100", "1000", "10000"}, ValueName: "snapshots", Section: "Sampling"},
	{Long: "queue-size", Help: "Per-subscriber queue size", Values: []string{"10", "100", "1000"}, ValueName: "snapshots", Section: "Sampling"},
	{Long: "leak-window", Help: "Snapshots examined by the leak detector", Values: []string{"10", "30", "60"}, ValueName: "snapshots", Section: "Sampling"},
	{Long: "duration", Help: "Watch mode duration (0 = until interrupted)", Values: durations, ValueName: "duration", Section: "Sampling"},
	{Long: "source", Help: "Process counter source", Values: []string{"host", "runtime"}, ValueName: "source", Section: "Sampling"},
	{Long: "horizon", Help: "Prediction horizon", Values: []string{"30s", "1m", "5m", "15m", "1h"}, ValueName: "duration", Section: "Analysis"},
	{Long: "pressure-threshold", Help: "Memory pressure bottleneck ratio", ValueName: "ratio", Section: "Analysis"},
	{Long: "page-fault-threshold", Help: "Page faults per minute bottleneck", ValueName: "rate", Section: "Analysis"},
	{Long: "fragmentation-threshold", Help: "Fragmentation bottleneck ratio", ValueName: "ratio", Section: "Analysis"},
	{Long: "leak-threshold", Help: "Per-tick resident growth considered leak-like", ValueName: "bytes", Section: "Analysis"},
	{Long: "alert-threshold", Help: "Usage jump raising a performance alert", ValueName: "bytes", Section: "Analysis"},
	{Long: "format", Help: "Report format", Values: []string{"text", "json"}, ValueName: "format", Section: "Output options"},
	{Long: "export", Help: "Write captured history to an archive", IsFile: true, ValueName: "file", Section: "Output options"},
	{Long: "import", Help: "Analyze an exported archive", IsFile: true, ValueName: "file", Section: "Output options"},
	{Long: "config", Help: "YAML configuration file", IsFile: true, ValueName: "file", Section: "Output options"},
	{Long: "verbose", Short: "v", Help: "Verbose report", Section: "Output options"},
	{Long: "quiet", Short: "q", Help: "Quiet mode for scripts", Section: "Output options"},
	{Long: "no-color", Help: "Disable colored output", Section: "Output options"},
	{Long: "log-level", Help: "Log level", Values: []string{"debug", "info", "warn", "error"}, ValueName: "level", Section: "Output options"},
	{Long: "serve", Help: "Serve the HTTP API on this address", Values: []string{":9090", "127.0.0.1:9090"}, ValueName: "addr", Section: "Server"},
	{Long: "completion", Help: "Generate completion script", Values: Shells, ValueName: "shell", Section: "Completion"},
}

// GenerateCompletion generates a shell completion script for the specified shell.
//
// Parameters:
//   - out: The writer to output the completion script.
//   - shell: The shell type ("bash", "zsh", "fish", "powershell").
//
// Returns:
//   - error: An error if the shell is not supported.
func GenerateCompletion(out io.Writer, shell string) error {
	switch shell {
	case "bash":
		return generateBashCompletion(out)
	case "zsh":
		return generateZshCompletion(out)
	case "fish":
		return generateFishCompletion(out)
	case "powershell", "ps":
		return generatePowerShellCompletion(out)
	default:
		return fmt.Errorf("unsupported shell: %s (accepted values: %s)", shell, strings.Join(Shells, ", "))
	}
}

func writeScript(out io.Writer, shell, script string) error {
	if _, err := fmt.Fprint(out, script); err != nil {
		return fmt.Errorf("completion %s generation failed: %w", shell, err)
	}
	return nil
}

// generateBashCompletion generates a Bash completion script.
func generateBashCompletion(out io.Writer) error {
	var opts, filePatterns []string
	var cases strings.Builder
	for _, f := range flagRegistry {
		if f.Long != "" {
			opts = append(opts, "--"+f.Long)
		}
		if f.Short != "" {
			opts = append(opts, "-"+f.Short)
		}
		switch {
		case f.IsFile:
			filePatterns = append(filePatterns, "--"+f.Long)
		case len(f.Values) > 0:
			fmt.Fprintf(&cases, "        --%s)\n            COMPREPLY=( $(compgen -W \"%s\" -- \"${cur}\") )\n            return 0\n            ;;\n",
				f.Long, strings.Join(f.Values, " "))
		}
	}
	if len(filePatterns) > 0 {
		fmt.Fprintf(&cases, "        %s)\n            COMPREPLY=( $(compgen -f -- \"${cur}\") )\n            return 0\n            ;;\n",
			strings.Join(filePatterns, "|"))
	}

	script := fmt.Sprintf(`# Bash completion script for memprof
# Add this to your ~/.bashrc or ~/.bash_completion

_memprof_completions() {
    local cur prev opts
    COMPREPLY=()
    cur="${COMP_WORDS[COMP_CWORD]}"
    prev="${COMP_WORDS[COMP_CWORD-1]}"

    opts="%s"

    case "${prev}" in
%s    esac

    if [[ "${cur}" == -* ]]; then
        COMPREPLY=( $(compgen -W "${opts}" -- "${cur}") )
        return 0
    fi
}

complete -F _memprof_completions memprof
`, strings.Join(opts, " "), cases.String())
	return writeScript(out, "bash", script)
}

// generateZshCompletion generates a Zsh completion script.
func generateZshCompletion(out io.Writer) error {
	args := make([]string, 0, len(flagRegistry))
	for _, f := range flagRegistry {
		args = append(args, zshArgEntry(f))
	}

	script := fmt.Sprintf(`#compdef memprof

# Zsh completion script for memprof
# Add this to your ~/.zshrc or place in $fpath

_memprof() {
    _arguments -s \
%s
}

_memprof "$@"
`, strings.Join(args, " \\\n"))
	return writeScript(out, "zsh", script)
}

// zshArgEntry formats a single FlagCompletion as a zsh _arguments entry.
func zshArgEntry(f FlagCompletion) string {
	valueSuffix := ""
	switch {
	case f.IsFile:
		valueSuffix = fmt.Sprintf(":%s:_files", f.ValueName)
	case len(f.Values) > 0:
		valueSuffix = fmt.Sprintf(":%s:(%s)", f.ValueName, strings.Join(f.Values, " "))
	case f.ValueName != "":
		valueSuffix = fmt.Sprintf(":%s:", f.ValueName)
	}

	if f.Short != "" {
		return fmt.Sprintf("        '(-%s --%s)'{-%s,--%s}'[%s]%s'",
			f.Short, f.Long, f.Short, f.Long, f.Help, valueSuffix)
	}
	return fmt.Sprintf("        '--%s[%s]%s'", f.Long, f.Help, valueSuffix)
}

// generateFishCompletion generates a Fish completion script.
func generateFishCompletion(out io.Writer) error {
	lines := []string{
		"# Fish completion script for memprof",
		"# Add this to ~/.config/fish/completions/memprof.fish",
		"",
		"# Disable file completion by default",
		"complete -c memprof -f",
	}

	current := ""
	for _, f := range flagRegistry {
		if f.Section != current {
			current = f.Section
			lines = append(lines, "", "# "+current)
		}
		lines = append(lines, fishCompleteLine(f))
	}
	lines = append(lines, "")
	return writeScript(out, "fish", strings.Join(lines, "\n"))
}

// fishCompleteLine formats a single FlagCompletion as a fish complete command.
func fishCompleteLine(f FlagCompletion) string {
	parts := []string{"complete -c memprof"}
	if f.Short != "" {
		parts = append(parts, "-s "+f.Short)
	}
	parts = append(parts, "-l "+f.Long, fmt.Sprintf("-d '%s'", f.Help))

	switch {
	case f.IsFile:
		parts = append(parts, "-rF")
	case len(f.Values) > 0:
		parts = append(parts, fmt.Sprintf("-xa '%s'", strings.Join(f.Values, " ")))
	case f.ValueName != "":
		parts = append(parts, "-x")
	}
	return strings.Join(parts, " ")
}

// generatePowerShellCompletion generates a PowerShell completion script.
func generatePowerShellCompletion(out io.Writer) error {
	var options, switches []string
	for _, f := range flagRegistry {
		if f.Short != "" {
			options = append(options, fmt.Sprintf("        @{Name = '-%s'; Description = '%s' }", f.Short, f.Help))
		}
		options = append(options, fmt.Sprintf("        @{Name = '--%s'; Description = '%s' }", f.Long, f.Help))
		if len(f.Values) > 0 && !f.IsFile {
			quoted := make([]string, len(f.Values))
			for i, v := range f.Values {
				quoted[i] = "'" + v + "'"
			}
			switches = append(switches, fmt.Sprintf("        '--%s' { $values = @(%s) }", f.Long, strings.Join(quoted, ", ")))
		}
	}

	script := fmt.Sprintf(`# PowerShell completion script for memprof
# Add this to your $PROFILE

Register-ArgumentCompleter -Native -CommandName memprof -ScriptBlock {
    param($wordToComplete, $commandAst, $cursorPosition)

    $options = @(
%s
    )

    $prev = $commandAst.CommandElements[-2].Extent.Text
    $values = $null
    switch ($prev) {
%s
    }

    if ($values) {
        $values | Where-Object { $_ -like "$wordToComplete*" } | ForEach-Object {
            [System.Management.Automation.CompletionResult]::new($_, $_, 'ParameterValue', $_)
        }
        return
    }

    $options | Where-Object { $_.Name -like "$wordToComplete*" } | ForEach-Object {
        [System.Management.Automation.CompletionResult]::new($_.Name, $_.Name, 'ParameterName', $_.Description)
    }
}
`, strings.Join(options, "\n"), strings.Join(switches, "\n"))
	return writeScript(out, "powershell", script)
}
