// Package main provides gensvc, a runner for data actions with progress, cancellation and save-on-success.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/umputun/gensvc/pkg/action"
	"github.com/umputun/gensvc/pkg/actions"
	"github.com/umputun/gensvc/pkg/config"
	"github.com/umputun/gensvc/pkg/notify"
	"github.com/umputun/gensvc/pkg/progress"
	"github.com/umputun/gensvc/pkg/service"
	"github.com/umputun/gensvc/pkg/status"
	"github.com/umputun/gensvc/pkg/store"
	"github.com/umputun/gensvc/pkg/web"
)

// opts holds all command-line options.
type opts struct {
	Config   string `long:"config" description:"local config file (default .gensvc/config)"`
	InitConf bool   `long:"init-config" description:"write the default config to ~/.config/gensvc/config and exit"`
	DB       string `long:"db" description:"sqlite database path, overrides db_path"`
	Job      string `short:"j" long:"job" description:"import items from a YAML job file"`
	Delay    bool   `long:"delay" description:"run the delay action instead of an import"`
	Steps    int    `long:"steps" default:"10" description:"delay steps"`
	Interval int    `long:"interval-ms" default:"200" description:"delay per step in milliseconds"`
	WarnAt   int    `long:"warn-every" description:"delay adds a warning every n-th step"`
	FailAt   int    `long:"fail-at" description:"delay fails at this step"`
	Lower    int    `long:"lower" default:"0" description:"lower bound of the progress window"`
	Upper    int    `long:"upper" default:"100" description:"upper bound of the progress window"`
	DryRun   bool   `short:"n" long:"dry-run" description:"run without saving changes"`
	Write    bool   `short:"w" long:"write-even-if-warning" description:"save changes even if the action returned warnings"`
	History  int    `long:"history" description:"print the last n runs and exit"`
	Debug    bool   `short:"d" long:"debug" description:"enable debug logging"`
	NoColor  bool   `long:"no-color" description:"disable color output"`
	Serve    bool   `short:"s" long:"serve" description:"start web dashboard for real-time progress"`
	Port     int    `short:"p" long:"port" default:"8080" description:"web dashboard port"`
	Version  bool   `short:"v" long:"version" description:"print version and exit"`
}

var revision = "unknown"

func main() {
	fmt.Printf("gensvc %s\n", revision)

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

	restore := disableCtrlCEcho()
	defer restore()

	if err := run(ctx, o); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		restore()
		os.Exit(1) //nolint:gocritic // terminal restored above
	}
}

func run(ctx context.Context, o opts) error {
	if o.InitConf {
		path := config.DefaultGlobalPath()
		written, err := config.Install(path)
		if err != nil {
			return fmt.Errorf("install config: %w", err)
		}
		if written {
			fmt.Printf("config written to %s\n", path)
		} else {
			fmt.Printf("config %s already exists\n", path)
		}
		return nil
	}

	cfg, err := config.Load(config.Options{LocalPath: o.Config})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyFlags(cfg, o)

	st, err := store.Open(ctx, cfg.DBPath, cfg.ErrorMap)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if o.History > 0 {
		return printHistory(ctx, st, o.History)
	}
	if o.Job == "" && !o.Delay {
		return errors.New("nothing to run, use --job or --delay")
	}

	selected, err := selectAction(o, st, cfg.WriteEvenIfWarning)
	if err != nil {
		return err
	}
	log, err := progress.NewLogger(progress.Config{Path: cfg.ProgressFile, Action: selected.name,
		NoColor: cfg.NoColor, Debug: cfg.Debug})
	if err != nil {
		return fmt.Errorf("create progress logger: %w", err)
	}
	defer log.Close()

	notifier, err := notify.New(cfg.NotifyParams(), log)
	if err != nil {
		return fmt.Errorf("setup notifications: %w", err)
	}

	observers := []service.Observer{&runRecorder{store: st, log: log}, notifier}
	sinks := action.Sinks{log}
	var srv *web.Server
	if o.Serve {
		hub := web.NewHub(web.NewBuffer(web.DefaultBufferSize))
		streamer := web.NewStreamer(hub, selected.name, selected.flags, log)
		sinks = append(sinks, streamer)
		observers = append(observers, streamer)
		if srv, err = web.NewServer(web.ServerConfig{Port: o.Port, Title: "gensvc: " + selected.name}, hub, st); err != nil {
			return fmt.Errorf("create web server: %w", err)
		}
		go func() {
			if srvErr := srv.Start(ctx); srvErr != nil {
				log.Error("web server: %v", srvErr)
			}
		}()
		log.Print("web dashboard: http://localhost:%d", o.Port)
	}

	svc := service.New(service.Options{Saver: st, Logger: log, Observers: observers})
	comms := action.NewComms(ctx, sinks)

	res, err := selected.run(ctx, svc, comms)
	switch {
	case errors.Is(err, action.ErrCancelled):
		log.Warn("%s cancelled, nothing saved", selected.name)
	case err != nil:
		return err
	default:
		log.PrintAligned(res.String())
	}
	log.Print("completed in %s", log.Elapsed())

	if srv != nil && ctx.Err() == nil {
		log.Print("dashboard keeps serving, press Ctrl+C to exit")
		<-ctx.Done()
	}
	if err != nil {
		return err
	}
	if !res.IsValid() {
		return errors.New("action finished with errors")
	}
	return nil
}

// applyFlags lets command-line flags override loaded configuration.
func applyFlags(cfg *config.Config, o opts) {
	if o.DB != "" {
		cfg.DBPath = o.DB
	}
	if o.Debug {
		cfg.Debug = true
	}
	if o.NoColor {
		cfg.NoColor = true
	}
	if o.Write {
		cfg.WriteEvenIfWarning = true
	}
}

// runnable is the selected action bound to its input.
type runnable struct {
	name  string
	flags action.Flags
	run   func(ctx context.Context, svc *service.Service, comms *action.Comms) (status.Status, error)
}

// selectAction builds the requested action within the requested progress window.
func selectAction(o opts, st *store.Store, writeAnyway bool) (runnable, error) {
	if o.Delay {
		act := actions.NewDelay(nil)
		if err := act.SetBounds(o.Lower, o.Upper); err != nil {
			return runnable{}, err
		}
		in := actions.DelayInput{Steps: o.Steps, Interval: time.Duration(o.Interval) * time.Millisecond,
			WarnEvery: o.WarnAt, FailAtStep: o.FailAt, WriteAnyway: writeAnyway}
		return runnable{name: act.Name(), flags: act.Flags(),
			run: func(ctx context.Context, svc *service.Service, comms *action.Comms) (status.Status, error) {
				res, err := execute[actions.DelayInput, int](ctx, svc, act, comms, in, o.DryRun)
				return res.Status, err
			}}, nil
	}

	job, err := actions.LoadJob(o.Job)
	if err != nil {
		return runnable{}, err
	}
	act := actions.NewImportItems(st)
	if err := act.SetBounds(o.Lower, o.Upper); err != nil {
		return runnable{}, err
	}
	job = job.WithDefaultWrite(writeAnyway)
	return runnable{name: act.Name(), flags: act.Flags(),
		run: func(ctx context.Context, svc *service.Service, comms *action.Comms) (status.Status, error) {
			res, err := execute[actions.Job, int](ctx, svc, act, comms, job, o.DryRun)
			return res.Status, err
		}}, nil
}

// execute runs act through the service, without saving on dry runs.
func execute[In, Out any](ctx context.Context, svc *service.Service, act action.Action[In, Out],
	comms *action.Comms, in In, dryRun bool) (status.Result[Out], error) {
	if dryRun {
		return service.Do(ctx, svc, act, comms, in)
	}
	return service.DoDB(ctx, svc, act, comms, in)
}

func printHistory(ctx context.Context, st *store.Store, limit int) error {
	runs, err := st.Runs(ctx, limit)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	for _, r := range runs {
		saved := ""
		if r.Saved {
			saved = ", saved"
		}
		fmt.Printf("%s  %-14s %-24s %8s%s  %s\n", r.Started.Format("2006-01-02 15:04:05"), r.Action, r.Outcome,
			r.Duration.Round(time.Millisecond), saved, r.Message)
		for _, e := range r.Errors {
			fmt.Printf("    - %s\n", e)
		}
	}
	return nil
}

// runRecorder writes every finished run to the audit log.
type runRecorder struct {
	store interface {
		RecordRun(ctx context.Context, r store.Run) (string, error)
	}
	log interface {
		Warn(format string, args ...any)
	}
}

// RunFinished records run. failures are logged only.
func (r *runRecorder) RunFinished(ctx context.Context, run service.Run) {
	rec := store.Run{Action: run.Action, Outcome: string(run.Outcome), Message: run.Message, Errors: run.Errors,
		Saved: run.Saved, Started: run.Started, Duration: run.Duration}
	if run.Err != nil && rec.Message == "" {
		rec.Message = run.Err.Error()
	}
	if _, err := r.store.RecordRun(ctx, rec); err != nil {
		r.log.Warn("record run: %v", err)
	}
}
