// Package main provides modelboard - a small AI model dashboard used as the
// fixture target for the browser suite and handy for local demos.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/probelab/dashtest/pkg/web"
)

// opts holds all command-line options.
type opts struct {
	Port     int    `short:"p" long:"port" default:"8080" description:"port to listen on"`
	Data     string `short:"f" long:"data" default:"testdata/results.yml" description:"model results YAML file"`
	Title    string `long:"title" default:"Modelboard" description:"dashboard title"`
	Username string `long:"username" default:"analyst" description:"login username"`
	Password string `long:"password" default:"correct-horse" description:"login password"`
	EmitMs   int    `long:"emit-ms" default:"500" description:"interval between simulated metric samples, 0 disables"`
	NoWatch  bool   `long:"no-watch" description:"disable reloading the results file on change"`
	Version  bool   `short:"v" long:"version" description:"print version and exit"`
}

var revision = "unknown"

func main() {
	fmt.Printf("modelboard %s\n", revision)

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
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, o opts) error {
	store, err := web.NewStore(o.Data)
	if err != nil {
		return fmt.Errorf("open results store: %w", err)
	}

	hub := web.NewHub()
	defer hub.Close()
	buffer := web.NewBuffer(0)

	if !o.NoWatch {
		watcher := web.NewWatcher(store, hub, buffer)
		go func() {
			if werr := watcher.Run(ctx); werr != nil {
				log.Printf("[WARN] results watcher stopped: %v", werr)
			}
		}()
	}

	srv := web.NewServer(web.ServerConfig{
		Port:         o.Port,
		Title:        o.Title,
		Username:     o.Username,
		Password:     o.Password,
		EmitInterval: time.Duration(o.EmitMs) * time.Millisecond,
	}, store, hub, buffer)

	log.Printf("[INFO] serving %s on port %d, data file %s", o.Title, o.Port, o.Data)
	return srv.Start(ctx)
}
