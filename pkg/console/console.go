// Package console provides timestamped run logging to file and stdout with
// color support. Each suite run gets its own log file under the report dir.
package console

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"golang.org/x/term"
)

// Stage represents a suite run stage for color coding.
type Stage string

// Stage constants for the run lifecycle.
const (
	StageSetup  Stage = "setup"  // environment and browser provisioning (cyan)
	StageRun    Stage = "run"    // test execution (green)
	StageReport Stage = "report" // result collection and reporting (magenta)
)

// stage colors using fatih/color.
var (
	setupColor     = color.New(color.FgCyan)
	runColor       = color.New(color.FgGreen)
	reportColor    = color.New(color.FgMagenta)
	warnColor      = color.New(color.FgYellow)
	errorColor     = color.New(color.FgRed)
	timestampColor = color.New(color.FgWhite)
)

// stageColors maps stages to their color functions.
var stageColors = map[Stage]*color.Color{
	StageSetup:  setupColor,
	StageRun:    runColor,
	StageReport: reportColor,
}

// Logger writes timestamped output to both a log file and stdout.
type Logger struct {
	file      *os.File
	stdout    io.Writer
	startTime time.Time
	stage     Stage
}

// Config holds logger configuration.
type Config struct {
	Dir     string // directory for the run log file
	Browser string // browser under test, recorded in the header
	BaseURL string // dashboard URL, recorded in the header
	NoColor bool   // disable color output (sets color.NoColor globally)
}

// NewLogger creates a logger writing to a run log file and stdout.
func NewLogger(cfg Config) (*Logger, error) {
	if cfg.NoColor {
		color.NoColor = true
	}

	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	logPath := filepath.Join(cfg.Dir, time.Now().Format("run-20060102-150405.log"))
	f, err := os.Create(logPath) //nolint:gosec // path derived from configured report dir
	if err != nil {
		return nil, fmt.Errorf("create run log: %w", err)
	}

	l := &Logger{
		file:      f,
		stdout:    os.Stdout,
		startTime: time.Now(),
		stage:     StageSetup,
	}

	l.writeFile("# Dashtest Run Log\n")
	l.writeFile("Browser: %s\n", cfg.Browser)
	l.writeFile("Target: %s\n", cfg.BaseURL)
	l.writeFile("Started: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	l.writeFile("%s\n\n", strings.Repeat("-", 60))

	return l, nil
}

// Path returns the run log file path.
func (l *Logger) Path() string {
	if l.file == nil {
		return ""
	}
	return l.file.Name()
}

// SetStage sets the current run stage for color coding.
func (l *Logger) SetStage(stage Stage) {
	l.stage = stage
}

// timestampFormat is the format for timestamps: YY-MM-DD HH:MM:SS
const timestampFormat = "06-01-02 15:04:05"

// Print writes a timestamped message to both file and stdout.
func (l *Logger) Print(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	timestamp := time.Now().Format(timestampFormat)

	// file copy stays uncolored
	l.writeFile("[%s] %s\n", timestamp, msg)

	stageColor := stageColors[l.stage]
	tsStr := timestampColor.Sprintf("[%s]", timestamp)
	l.writeStdout("%s %s\n", tsStr, stageColor.Sprint(msg))
}

// PrintRaw writes without timestamp (for streaming test output).
func (l *Logger) PrintRaw(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	l.writeFile("%s", msg)
	l.writeStdout("%s", msg)
}

// PrintAligned writes text with a timestamp on the first line and indents
// continuation lines so multi-line output stays readable.
func (l *Logger) PrintAligned(text string) {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return
	}

	timestamp := time.Now().Format(timestampFormat)
	stageColor := stageColors[l.stage]
	tsPrefix := timestampColor.Sprintf("[%s]", timestamp)
	indent := "                    " // 20 chars to align with "[YY-MM-DD HH:MM:SS] "

	width := terminalWidth()

	var lines []string
	for line := range strings.SplitSeq(text, "\n") {
		if len(line) > width {
			for wrappedLine := range strings.SplitSeq(wrapText(line, width), "\n") {
				lines = append(lines, wrappedLine)
			}
		} else {
			lines = append(lines, line)
		}
	}

	for i, line := range lines {
		if line == "" {
			l.writeFile("\n")
			l.writeStdout("\n")
			continue
		}
		if i == 0 {
			l.writeFile("[%s] %s\n", timestamp, line)
			l.writeStdout("%s %s\n", tsPrefix, stageColor.Sprint(line))
		} else {
			l.writeFile("%s%s\n", indent, line)
			l.writeStdout("%s%s\n", indent, stageColor.Sprint(line))
		}
	}
}

// Error writes an error message in red.
func (l *Logger) Error(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	timestamp := time.Now().Format(timestampFormat)

	l.writeFile("[%s] ERROR: %s\n", timestamp, msg)

	tsStr := timestampColor.Sprintf("[%s]", timestamp)
	l.writeStdout("%s %s\n", tsStr, errorColor.Sprintf("ERROR: %s", msg))
}

// Warn writes a warning message in yellow.
func (l *Logger) Warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	timestamp := time.Now().Format(timestampFormat)

	l.writeFile("[%s] WARN: %s\n", timestamp, msg)

	tsStr := timestampColor.Sprintf("[%s]", timestamp)
	l.writeStdout("%s %s\n", tsStr, warnColor.Sprintf("WARN: %s", msg))
}

// Elapsed returns formatted elapsed time since the run started.
func (l *Logger) Elapsed() string {
	return humanize.RelTime(l.startTime, time.Now(), "", "")
}

// Close writes the footer and closes the run log file.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}

	l.writeFile("\n%s\n", strings.Repeat("-", 60))
	l.writeFile("Completed: %s (%s)\n", time.Now().Format("2006-01-02 15:04:05"), l.Elapsed())

	if err := l.file.Close(); err != nil {
		return fmt.Errorf("close run log: %w", err)
	}
	return nil
}

func (l *Logger) writeFile(format string, args ...any) {
	if l.file != nil {
		fmt.Fprintf(l.file, format, args...)
	}
}

func (l *Logger) writeStdout(format string, args ...any) {
	fmt.Fprintf(l.stdout, format, args...)
}

// terminalWidth returns content width, using COLUMNS env var or syscall.
// defaults to 60 (80 columns minus the timestamp prefix) if detection fails.
func terminalWidth() int {
	const minWidth = 40

	if cols := os.Getenv("COLUMNS"); cols != "" {
		if w, err := strconv.Atoi(cols); err == nil && w > 0 {
			return max(w-20, minWidth)
		}
	}

	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return max(w-20, minWidth)
	}

	return 80 - 20
}

// wrapText wraps text to the given width, breaking on word boundaries.
func wrapText(text string, width int) string {
	if width <= 0 || len(text) <= width {
		return text
	}

	var result strings.Builder
	lineLen := 0

	for i, word := range strings.Fields(text) {
		wordLen := len(word)
		if i == 0 {
			result.WriteString(word)
			lineLen = wordLen
			continue
		}
		if lineLen+1+wordLen <= width {
			result.WriteString(" ")
			result.WriteString(word)
			lineLen += 1 + wordLen
		} else {
			result.WriteString("\n")
			result.WriteString(word)
			lineLen = wordLen
		}
	}

	return result.String()
}
