// Command scanner runs an operator scan station.  It reads decoded
// ticket payloads one per line (a keyboard-wedge reader, a pipe, or a
// file) and either records each as a scan or looks up its status.
//
//	scanner --mode record --station desk-1
//	scanner --mode check --input tickets.txt
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/iliyamo/handoff-wait/internal/config"
	"github.com/iliyamo/handoff-wait/internal/database"
	"github.com/iliyamo/handoff-wait/internal/queue"
	"github.com/iliyamo/handoff-wait/internal/repository"
	"github.com/iliyamo/handoff-wait/internal/scan"
	"github.com/iliyamo/handoff-wait/internal/service"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	mode    string
	input   string
	station string
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := pflag.NewFlagSet("scanner", pflag.ContinueOnError)
	fs.StringVar(&o.mode, "mode", "record", "record (open/close handoffs) or check (status only)")
	fs.StringVarP(&o.input, "input", "i", "-", "file to read payloads from, - for stdin")
	fs.StringVar(&o.station, "station", "scanner", "station name used in logs and change events")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.mode != "record" && o.mode != "check" {
		return o, fmt.Errorf("unknown --mode %q: want record or check", o.mode)
	}
	if rest := fs.Args(); len(rest) > 0 {
		return o, fmt.Errorf("unexpected argument: %s", rest[0])
	}
	return o, nil
}

func run(args []string, out io.Writer) error {
	o, err := parseFlags(args)
	if err == pflag.ErrHelp {
		return nil
	}
	if err != nil {
		return err
	}

	config.LoadDotEnv()
	cfg, err := config.StationFromEnv()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	src, err := openSource(o.input)
	if err != nil {
		return err
	}

	handoffs := repository.NewHandoffRepo(db)
	var disp scan.Dispatcher
	switch o.mode {
	case "record":
		var notifier service.Notifier
		if cfg.Changes.Enabled {
			pub := queue.NewPublisher(cfg.Changes, o.station)
			// Not tied to ctx so changes queued before an interrupt are
			// still flushed on the way out.
			pubCtx, cancelPub := context.WithCancel(context.Background())
			done := make(chan struct{})
			go func() {
				pub.Run(pubCtx)
				close(done)
			}()
			defer func() {
				cancelPub()
				<-done
			}()
			notifier = pub
		}
		disp = scan.RecordDispatcher{Ledger: service.NewLedger(handoffs, notifier)}
	case "check":
		disp = scan.StatusDispatcher{Resolver: service.NewStatusResolver(
			service.AtomicStatus{Store: handoffs}, service.TwoStepStatus{Store: handoffs})}
	}

	session := scan.NewSession(src, disp)
	go func() {
		<-ctx.Done()
		stop() // a second interrupt kills a station stuck on a blocking read
		_ = session.Stop()
	}()
	log.Printf("scanner: station=%s mode=%s reading %s", o.station, o.mode, o.input)
	return session.Run(ctx, func(res scan.Outcome) {
		fmt.Fprintln(out, res)
	})
}

func openSource(path string) (scan.Source, error) {
	if path == "" || path == "-" {
		return scan.NewLineSource(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", scan.ErrCapture, err)
	}
	return scan.NewLineSource(f), nil
}
