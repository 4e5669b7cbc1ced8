package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openmol/molscript/pkg/commands"
	"github.com/openmol/molscript/pkg/config"
	"github.com/openmol/molscript/pkg/eval"
	"github.com/openmol/molscript/pkg/eval/functions"
	"github.com/openmol/molscript/pkg/events"
	"github.com/openmol/molscript/pkg/metrics"
	"github.com/openmol/molscript/pkg/model"
	"github.com/openmol/molscript/pkg/store"
)

// envDefault returns the environment variable value if set, otherwise the fallback.
func envDefault(envVar, fallback string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return fallback
}

func main() {
	confFile := flag.String("config", envDefault("MOLSCRIPT_CONF", ""), "Path to config file, .yaml or key/value text (env: MOLSCRIPT_CONF)")
	modelPath := flag.String("model", envDefault("MOLSCRIPT_MODEL", ""), "XYZ file to load, overrides config (env: MOLSCRIPT_MODEL)")
	storePath := flag.String("store", envDefault("MOLSCRIPT_STORE", ""), "bbolt file for saved states, overrides config (env: MOLSCRIPT_STORE)")
	metricsAddr := flag.String("metrics", envDefault("MOLSCRIPT_METRICS", ""), "Serve Prometheus metrics on this address, e.g. :9100 (env: MOLSCRIPT_METRICS)")
	expr := flag.String("e", "", "Script to run (non-interactive mode)")
	batch := flag.String("batch", "", "Script file to run")
	check := flag.Bool("check", false, "Only check the -e or -batch script, reporting every error")
	watch := flag.Bool("watch", false, "With -batch, run the file again whenever it changes")
	flag.Parse()

	cfg := config.Default()
	if *confFile != "" {
		var err error
		if cfg, err = config.Load(*confFile); err != nil {
			log.Fatalf("molscript: %v", err)
		}
		log.Printf("molscript: loaded config %s", *confFile)
	}
	if *modelPath != "" {
		cfg.Model = *modelPath
	}
	if *storePath != "" {
		cfg.StorePath = *storePath
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	m, err := loadModel(cfg.Model)
	if err != nil {
		log.Fatalf("molscript: %v", err)
	}

	var st *store.Store
	if cfg.StorePath != "" {
		if st, err = store.Open(cfg.StorePath); err != nil {
			log.Fatalf("molscript: %v", err)
		}
		defer st.Close()
		log.Printf("molscript: saved states in %s", cfg.StorePath)
	}

	ctx := eval.NewEvalContext(m)
	cfg.Apply(&ctx.Settings)
	functions.RegisterAll(ctx)
	ctx.Bus = events.NewBus()
	sess := eval.NewSession(ctx, commands.New(st))
	ctx.Bus.Subscribe(sess.ID, &events.Writer{W: os.Stdout})

	if cfg.MetricsAddr != "" {
		mt := metrics.New(m, time.Now())
		ctx.Observer = mt
		startMetrics(cfg.MetricsAddr, mt)
	}

	sig, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, path := range cfg.Scripts {
		if err := runFile(sig, sess, path, false); err != nil {
			log.Printf("molscript: startup script %s: %v", path, err)
		}
	}

	switch {
	case *expr != "":
		if err := runSource(sig, sess, *expr, *check); err != nil {
			os.Exit(1)
		}
	case *batch != "" && *watch:
		if err := watchFile(sig, sess, *batch, *check); err != nil {
			log.Fatalf("molscript: %v", err)
		}
	case *batch != "":
		if err := runFile(sig, sess, *batch, *check); err != nil {
			os.Exit(1)
		}
	default:
		if err := repl(sess, cfg.History); err != nil {
			log.Fatalf("molscript: %v", err)
		}
	}
}

// loadModel reads the XYZ file at path, or returns an empty model.
func loadModel(path string) (*model.Store, error) {
	if path == "" {
		return model.NewStore(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening model: %w", err)
	}
	defer f.Close()
	m, err := model.ReadXYZ(f, commands.AutoBondTolerance)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Printf("molscript: loaded %d atoms, %d bonds from %s", m.AtomCount(), m.BondCount(), path)
	return m, nil
}

func startMetrics(addr string, mt *metrics.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", mt.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Printf("molscript: metrics on %s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("molscript: metrics server: %v", err)
		}
	}()
}

// runSource checks or runs src to completion. Errors have already been
// reported on the event bus when running; check mode prints them.
func runSource(ctx context.Context, sess *eval.Session, src string, check bool) error {
	if check {
		if err := sess.Check(src); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return err
		}
		fmt.Println("ok")
		return nil
	}
	res := sess.Complete(ctx, src)
	if res.Status == eval.Failed {
		return res.Err
	}
	if !res.Value.IsNil() {
		fmt.Println(res.Value.AsString())
	}
	return nil
}

func runFile(ctx context.Context, sess *eval.Session, path string, check bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading script: %v\n", err)
		return err
	}
	return runSource(ctx, sess, string(data), check)
}
