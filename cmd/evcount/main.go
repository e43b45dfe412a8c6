package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"evcount/internal/config"
	"evcount/internal/events"
	"evcount/internal/i18n"
	appLog "evcount/internal/log"
	"evcount/internal/notify"
	"evcount/internal/store"
	"evcount/internal/view"
)

const version = "0.3.0"

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	dotenv     string
	listen     string
	ephemeral  bool

	list   bool
	filter string

	addName     string
	addDate     string
	addReminder string

	export    string
	exportICS string
	importIn  string
	importICS string
	holidays  bool
	capture   bool
}

// oneShot reports whether a flag asks for a single action instead of the
// daemon.
func (f flagConfig) oneShot() bool {
	return f.list || f.addName != "" || f.export != "" || f.exportICS != "" ||
		f.importIn != "" || f.importICS != "" || f.holidays || f.capture
}

// app bundles the collaborators shared by the daemon and one-shot actions.
type app struct {
	conf    *config.Config
	store   store.Store
	events  *events.Manager
	sort    *view.SortSetting
	gate    *notify.Gate
	phrases i18n.Phrases
}

func main() {
	flags := parseFlags()

	conf, err := loadConfig(flags)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	appLog.Info("evcount starting", "version", version)

	a, err := openApp(conf, flags.ephemeral)
	if err != nil {
		appLog.Error("failed to open store", err, "store", conf.Store, "data_dir", conf.DataDir)
		os.Exit(1)
	}
	defer a.store.Close()

	appLog.Info("effective config",
		"listen", conf.Listen,
		"store", conf.Store,
		"ephemeral", flags.ephemeral,
		"language", conf.Language,
		"reminder_hour", conf.ReminderHour,
		"reconcile", conf.Reconcile,
		"capture", conf.Capture.Enabled,
		"ics_count", len(conf.ICSFeeds),
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if flags.oneShot() {
		if err := a.runOneShot(ctx, flags); err != nil {
			appLog.Error("action failed", err)
			a.store.Close()
			os.Exit(1)
		}
		return
	}

	if err := a.runDaemon(ctx); err != nil {
		appLog.Error("daemon failed", err)
		a.store.Close()
		os.Exit(1)
	}
	appLog.Info("evcount exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./config.yaml", "Path to config file")
	flag.StringVar(&cfg.dotenv, "env-file", ".env", "Optional .env file with EVCOUNT_* overrides")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.ephemeral, "ephemeral", false, "Keep all state in memory for this run")

	flag.BoolVar(&cfg.list, "list", false, "Print the event list and exit")
	flag.StringVar(&cfg.filter, "filter", "upcoming", "List filter: all, upcoming, today or past")

	flag.StringVar(&cfg.addName, "add-name", "", "Add an event with this name and exit")
	flag.StringVar(&cfg.addDate, "add-date", "", "Date (YYYY-MM-DD) for -add-name")
	flag.StringVar(&cfg.addReminder, "add-reminder", "", "Reminder for -add-name, e.g. 1-day-before")

	flag.StringVar(&cfg.export, "export", "", "Write events as JSON to this file (- for stdout)")
	flag.StringVar(&cfg.exportICS, "export-ics", "", "Write events as iCalendar to this file (- for stdout)")
	flag.StringVar(&cfg.importIn, "import", "", "Replace all events with this JSON file")
	flag.StringVar(&cfg.importICS, "import-ics", "", "Merge events from this .ics file")
	flag.BoolVar(&cfg.holidays, "holidays", false, "Add Dutch public holidays for this year and next")
	flag.BoolVar(&cfg.capture, "capture", false, "Screenshot the list page of a running server to preview.png")

	flag.Parse()

	return cfg
}

// loadConfig reads the YAML file, applies .env and EVCOUNT_* overrides and
// then the -listen flag.
func loadConfig(flags flagConfig) (*config.Config, error) {
	conf, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	env, err := config.Environ(flags.dotenv)
	if err != nil {
		return nil, err
	}
	if err := conf.ApplyEnv(env); err != nil {
		return nil, err
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func openApp(conf *config.Config, ephemeral bool) (*app, error) {
	backend := conf.Store
	if ephemeral {
		backend = "memory"
	}
	st, err := store.Open(backend, conf.DataDir)
	if err != nil {
		return nil, err
	}
	a := &app{conf: conf, store: st, phrases: i18n.For(conf.Language)}

	if a.events, err = events.NewManager(st); err != nil {
		st.Close()
		return nil, err
	}
	if a.sort, err = view.NewSortSetting(st); err != nil {
		st.Close()
		return nil, err
	}
	if a.gate, err = notify.NewGate(st, conf.Notifications.AutoGrant); err != nil {
		st.Close()
		return nil, err
	}
	return a, nil
}
