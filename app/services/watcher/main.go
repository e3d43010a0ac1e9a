package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/inclusion/app/services/watcher/handlers"
	"github.com/ardanlabs/inclusion/business/core/probe"
	"github.com/ardanlabs/inclusion/foundation/events"
	"github.com/ardanlabs/inclusion/foundation/keystore"
	"github.com/ardanlabs/inclusion/foundation/logger"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("WATCHER")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	// This is all the configuration for the application and the default values.
	// Configuration values will be passed through the application as individual
	// values.
	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			APIHost         string        `conf:"default:0.0.0.0:3000"`
			DebugHost       string        `conf:"default:0.0.0.0:4000"`
		}
		Probe struct {
			IngressURL   string        `conf:"default:http://localhost:2222"`
			BuilderURL   string        `conf:"default:http://localhost:2222"`
			SequencerURL string        `conf:"default:http://localhost:9545"`
			NonceSource  string        `conf:"default:sequencer"`
			ChainID      int           `conf:"default:901"`
			Recipient    string        `conf:"default:0x0000000000000000000000000000000000000000"`
			Value        string        `conf:"default:0.01"`
			GasPriceGwei int           `conf:"default:1"`
			GasLimit     int           `conf:"default:21000"`
			PollInterval time.Duration `conf:"default:250ms"`
			Timeout      time.Duration `conf:"default:5s"`
			Period       time.Duration `conf:"default:30s"`
			RunHistory   int           `conf:"default:32"`
		}
		Keys struct {
			Folder string `conf:"default:zblock/keys/"`
			Sender string `conf:"default:probe"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "copyright information here",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "WATCHER"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Keystore Support

	// The keystore provides the private key the probe signs transfers with.
	// Keys come from the <name>.ecdsa files in the keys folder.
	ks, err := keystore.New(cfg.Keys.Folder)
	if err != nil {
		return fmt.Errorf("unable to load keystore: %w", err)
	}

	// Logging the accounts for documentation in the logs.
	for name, account := range ks.Accounts() {
		log.Infow("startup", "status", "keystore", "name", name, "account", account)
	}

	privateKey, err := ks.Load(cfg.Keys.Sender)
	if err != nil {
		return fmt.Errorf("unable to load sender key: %w", err)
	}

	// =========================================================================
	// Probe Support

	value, err := probe.ParseEther(cfg.Probe.Value)
	if err != nil {
		return fmt.Errorf("parsing transfer value: %w", err)
	}

	if !common.IsHexAddress(cfg.Probe.Recipient) {
		return fmt.Errorf("invalid recipient address %q", cfg.Probe.Recipient)
	}

	// The probe package accepts a function of this signature to allow the
	// application to log. These raw messages are also sent to any websocket
	// client that is connected into the system through the events package.
	// Lines flagged DIVERGENT or ERROR are logged at error level.
	evts := events.New()
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		switch {
		case strings.Contains(s, "DIVERGENT") || strings.Contains(s, "ERROR"):
			log.Errorw(s, "traceid", "00000000-0000-0000-0000-000000000000")
		default:
			log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		}
		evts.Send(s)
	}

	// The probe value manages the submit and verify workflow against the
	// configured builder and sequencer pair.
	p, err := probe.New(context.Background(), probe.Config{
		IngressURL:   cfg.Probe.IngressURL,
		BuilderURL:   cfg.Probe.BuilderURL,
		SequencerURL: cfg.Probe.SequencerURL,
		NonceSource:  cfg.Probe.NonceSource,
		ChainID:      uint64(cfg.Probe.ChainID),
		Sender:       privateKey,
		Recipient:    common.HexToAddress(cfg.Probe.Recipient),
		Value:        value,
		GasPrice:     probe.GweiToWei(int64(cfg.Probe.GasPriceGwei)),
		GasLimit:     uint64(cfg.Probe.GasLimit),
		PollInterval: cfg.Probe.PollInterval,
		Timeout:      cfg.Probe.Timeout,
		EvHandler:    ev,
	})
	if err != nil {
		return fmt.Errorf("constructing probe: %w", err)
	}
	defer p.Close()

	log.Infow("startup", "status", "probe constructed", "sender", p.Sender(),
		"ingress", cfg.Probe.IngressURL, "builder", cfg.Probe.BuilderURL, "sequencer", cfg.Probe.SequencerURL)

	// Confirm both endpoints serve the configured chain before the run
	// loop starts. A wrong URL or chain id fails here, not on the first run.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.Ping(ctx); err != nil {
		return fmt.Errorf("checking endpoints: %w", err)
	}

	// The watcher executes the probe on a period and keeps the run history
	// the API serves.
	watcher := probe.NewWatcher(probe.WatcherConfig{
		Probe:      p,
		Period:     cfg.Probe.Period,
		RunHistory: cfg.Probe.RunHistory,
	})
	defer watcher.Shutdown()

	watcher.Run()

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	// The Debug function returns a mux to listen and serve on for all the debug
	// related endpoints. This includes the standard library endpoints.

	// Construct the mux for the debug calls.
	debugMux := handlers.DebugMux(build, log, p)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	// Construct the mux for the public API calls.
	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		Watcher:  watcher,
		Evts:     evts,
	})

	// Construct a server to service the requests against the mux.
	public := http.Server{
		Addr:         cfg.Web.APIHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}
