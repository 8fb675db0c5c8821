// Package main provides dashtest - the launcher for the dashboard browser
// suite. It runs the e2e tests against the configured dashboard, collects
// the outcome stream and produces JSON and HTML reports.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/probelab/dashtest/pkg/config"
	"github.com/probelab/dashtest/pkg/console"
	"github.com/probelab/dashtest/pkg/driver"
	"github.com/probelab/dashtest/pkg/notify"
	"github.com/probelab/dashtest/pkg/render"
	"github.com/probelab/dashtest/pkg/report"
)

// opts holds all command-line options.
type opts struct {
	Config  string        `short:"c" long:"config" description:"local config file path (default .dashtest)"`
	URL     string        `short:"u" long:"url" description:"dashboard URL override"`
	Browser string        `short:"b" long:"browser" description:"browser override: chrome, chromium, firefox, edge, webkit"`
	Headed  bool          `long:"headed" description:"run with a visible browser window"`
	Workers int           `short:"n" long:"workers" description:"parallel tests within the suite (overrides config)"`
	Run     string        `short:"r" long:"run" description:"regexp selecting tests to run"`
	Timeout time.Duration `long:"timeout" default:"20m" description:"overall suite timeout"`
	Install bool          `long:"install" description:"install browser binaries and exit"`
	Debug   bool          `short:"d" long:"debug" description:"stream raw test output"`
	NoColor bool          `long:"no-color" description:"disable color output"`
	Version bool          `short:"v" long:"version" description:"print version and exit"`
}

var revision = "unknown"

// errSuiteFailed signals test failures already reported to the user.
var errSuiteFailed = errors.New("suite failed")

func main() {
	fmt.Printf("dashtest %s\n", revision)

	var o opts
	parser := flags.NewParser(&o, flags.Default)

	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if o.Version {
		os.Exit(0)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, o); err != nil {
		if !errors.Is(err, errSuiteFailed) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, o opts) error {
	// CLI overrides are exported so both this process and the spawned test
	// process resolve the same configuration.
	if o.URL != "" {
		os.Setenv(config.EnvDashboardURL, o.URL)
	}
	if o.Browser != "" {
		os.Setenv(config.EnvBrowser, o.Browser)
	}
	if o.Headed {
		os.Setenv(config.EnvHeadless, "false")
	}

	cfg, err := config.Load(o.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if o.Workers > 0 {
		cfg.Workers = o.Workers
	}

	if o.Install {
		fmt.Println("installing browser binaries...")
		if err := driver.Install(); err != nil {
			return fmt.Errorf("install browsers: %w", err)
		}
		fmt.Println("done")
		return nil
	}

	log, err := console.NewLogger(console.Config{
		Dir:     cfg.ReportDir,
		Browser: cfg.Browser,
		BaseURL: cfg.BaseURL,
		NoColor: o.NoColor,
	})
	if err != nil {
		return fmt.Errorf("create run log: %w", err)
	}
	defer log.Close()

	notifier, err := notify.New(notifyParams(cfg), log)
	if err != nil {
		return fmt.Errorf("setup notifications: %w", err)
	}

	log.Print("target %s, browser %s, %d workers", cfg.BaseURL, cfg.Browser, cfg.Workers)
	log.Print("run log: %s", log.Path())

	started := time.Now()
	log.SetStage(console.StageRun)

	stream, runErr := runSuite(ctx, o, cfg, log)

	log.SetStage(console.StageReport)
	results, err := report.Parse(bytes.NewReader(stream))
	if err != nil {
		return fmt.Errorf("parse test output: %w", err)
	}

	rep := report.New(report.Meta{
		Started:  started,
		Elapsed:  time.Since(started),
		Revision: report.Revision("."),
		Browser:  cfg.Browser,
		BaseURL:  cfg.BaseURL,
	}, results)

	if err := report.Save(cfg.ReportDir, "report.json", "report.html", rep); err != nil {
		return fmt.Errorf("write reports: %w", err)
	}
	log.Print("reports written to %s", cfg.ReportDir)

	summary, err := render.Markdown(render.Summary(rep), o.NoColor)
	if err != nil {
		summary = render.Summary(rep) // fall back to raw markdown
	}
	log.PrintRaw("\n%s\n", summary)

	notifier.Send(ctx, suiteResult(cfg, rep, log.Elapsed(), runErr))

	// a test binary that could not even run is a launcher error, not a failure
	if runErr != nil && len(results) == 0 {
		return fmt.Errorf("run suite: %w", runErr)
	}
	if !rep.Ok() {
		return errSuiteFailed
	}
	return nil
}

// runSuite executes the e2e tests and returns the captured JSON stream.
// a non-nil error with a non-empty stream means tests ran and some failed.
func runSuite(ctx context.Context, o opts, cfg *config.Config, log *console.Logger) ([]byte, error) {
	args := []string{
		"test", "-tags", "e2e", "-json", "-count=1",
		"-timeout", o.Timeout.String(),
		"-parallel", strconv.Itoa(cfg.Workers),
	}
	if o.Run != "" {
		args = append(args, "-run", o.Run)
	}
	args = append(args, "./e2e")

	cmd := exec.CommandContext(ctx, "go", args...)
	cmd.Env = os.Environ()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("pipe test output: %w", err)
	}
	cmd.Stderr = cmd.Stdout // interleave build errors into the same stream

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start go test: %w", err)
	}

	var buf bytes.Buffer
	scanErr := streamProgress(stdout, &buf, log, o.Debug)

	waitErr := cmd.Wait()
	if scanErr != nil {
		return buf.Bytes(), fmt.Errorf("read test output: %w", scanErr)
	}
	return buf.Bytes(), waitErr
}

// progressEvent is the subset of the test JSON stream used for live progress.
type progressEvent struct {
	Action  string  `json:"Action"`
	Test    string  `json:"Test"`
	Elapsed float64 `json:"Elapsed"`
	Output  string  `json:"Output"`
}

// streamProgress copies the test output into buf while printing per-test
// outcomes (or, in debug mode, the raw output) as they arrive. failed tests
// get their captured output echoed so the diagnosis is visible without
// opening the report.
func streamProgress(r io.Reader, buf *bytes.Buffer, log *console.Logger, debug bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	outputs := map[string][]string{} // per-test output, flushed on verdict

	for scanner.Scan() {
		line := scanner.Bytes()
		buf.Write(line)
		buf.WriteByte('\n')

		var ev progressEvent
		if json.Unmarshal(line, &ev) != nil {
			if debug {
				log.PrintRaw("%s\n", line)
			}
			continue
		}

		switch {
		case ev.Action == "output":
			if debug {
				log.PrintRaw("%s", ev.Output)
			} else if ev.Test != "" {
				outputs[ev.Test] = append(outputs[ev.Test], ev.Output)
			}
		case ev.Test == "":
		case ev.Action == "pass":
			log.Print("PASS %s (%.1fs)", ev.Test, ev.Elapsed)
			delete(outputs, ev.Test)
		case ev.Action == "fail":
			log.Error("FAIL %s (%.1fs)", ev.Test, ev.Elapsed)
			if out := strings.TrimSpace(strings.Join(outputs[ev.Test], "")); out != "" {
				log.PrintAligned(out)
			}
			delete(outputs, ev.Test)
		case ev.Action == "skip":
			log.Warn("SKIP %s", ev.Test)
			delete(outputs, ev.Test)
		}
	}

	if err := scanner.Err(); err != nil {
		// keep draining so the child never blocks on a full stdout pipe
		_, _ = io.Copy(buf, r)
		return fmt.Errorf("scan test output: %w", err)
	}
	return nil
}

// notifyParams maps config notification settings to the notify service.
func notifyParams(cfg *config.Config) notify.Params {
	n := cfg.Notify
	return notify.Params{
		Channels:      n.Channels,
		OnError:       n.OnError,
		OnComplete:    n.OnComplete,
		TimeoutMs:     n.TimeoutMs,
		TelegramToken: n.TelegramToken,
		TelegramChat:  n.TelegramChat,
		SlackToken:    n.SlackToken,
		SlackChannel:  n.SlackChannel,
		SMTPHost:      n.SMTPHost,
		SMTPPort:      n.SMTPPort,
		SMTPUsername:  n.SMTPUsername,
		SMTPPassword:  n.SMTPPassword,
		SMTPStartTLS:  n.SMTPStartTLS,
		EmailFrom:     n.EmailFrom,
		EmailTo:       n.EmailTo,
		WebhookURLs:   n.WebhookURLs,
		CustomScript:  n.CustomScript,
	}
}

// suiteResult builds the notification payload for a finished run.
func suiteResult(cfg *config.Config, rep report.Report, elapsed string, runErr error) notify.Result {
	res := notify.Result{
		Status:     "success",
		Browser:    cfg.Browser,
		BaseURL:    cfg.BaseURL,
		Duration:   elapsed,
		Total:      rep.Total,
		Passed:     rep.Passed,
		Failed:     rep.Failed,
		Skipped:    rep.Skipped,
		ReportPath: cfg.ReportDir + "/report.html",
	}
	if !rep.Ok() {
		res.Status = "failure"
	}
	if runErr != nil && rep.Total == 0 {
		res.Status = "failure"
		res.Error = runErr.Error()
	}
	return res
}
