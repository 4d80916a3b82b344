package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/gossipchain/app/services/node/handlers"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/gossip"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/peer"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/state"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/wallet"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/worker"
	"github.com/ardanlabs/gossipchain/foundation/events"
	"github.com/ardanlabs/gossipchain/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// The log destination is needed before the configuration is parsed.
	logPath := os.Getenv("NODE_LOG_PATH")
	if logPath == "" {
		logPath = "stderr"
	}

	// Construct the application logger.
	log, err := logger.New("NODE", logPath)
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
		Args conf.Args
		Node struct {
			Port int    `conf:"default:0,help:UDP port to bind; the first argument also sets it"`
			Host string `conf:"help:address advertised to peers; defaults to the local IPv4"`
		}
		Seed struct {
			Host string `conf:"help:address of the seed node; defaults to the local IPv4"`
			Port int    `conf:"default:8081"`
		}
		Wallet struct {
			Path string `conf:"default:wallet.json"`
		}
		Log struct {
			Path string `conf:"default:stderr,help:read from NODE_LOG_PATH before the logger starts"`
		}
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "gossip blockchain node",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	if arg := cfg.Args.Num(0); arg != "" {
		port, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("parsing port argument %q: %w", arg, err)
		}
		cfg.Node.Port = port
	}

	localIP := peer.LocalIP()
	if cfg.Node.Host == "" {
		cfg.Node.Host = localIP
	}
	if cfg.Seed.Host == "" {
		cfg.Seed.Host = localIP
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
	// Blockchain Support

	// The wallet is the identity of this node. It is created on first run.
	wal, err := wallet.Load(cfg.Wallet.Path)
	if err != nil {
		return fmt.Errorf("unable to load wallet: %w", err)
	}
	log.Infow("startup", "status", "wallet loaded", "path", cfg.Wallet.Path, "public", wal.PublicKey())

	// A peer set is the collection of known nodes in the network so
	// transactions and blocks can be shared. It always holds the seed.
	peerSet := peer.NewPeerSet(peer.New(cfg.Seed.Host, cfg.Seed.Port))

	// The blockchain packages accept a function of this signature to allow the
	// application to log. These raw messages are also sent to any websocket
	// client that is connected into the system through the events package.
	evts := events.New()
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		evts.Send(s)
	}

	// The state value represents the blockchain node and manages the chain
	// and the mempool and provides an API for application support.
	state, err := state.New(state.Config{
		Identity:  wal,
		EvHandler: ev,
	})
	if err != nil {
		return err
	}
	defer state.Shutdown()

	// The transport owns the UDP socket and turns peer messages into
	// calls against the state.
	transport, err := gossip.New(gossip.Config{
		Host:      cfg.Node.Host,
		Port:      cfg.Node.Port,
		Peers:     peerSet,
		State:     state,
		EvHandler: ev,
	})
	if err != nil {
		return err
	}

	// The worker package implements mining and the sharing of transactions
	// and blocks. The worker will register itself with the state.
	wrk := worker.Run(state, transport, ev)

	if err := transport.Start(); err != nil {
		return fmt.Errorf("starting transport: %w", err)
	}
	defer transport.Shutdown()

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	// Construct the mux for the debug calls.
	debugMux := handlers.DebugMux(build, log, state)

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
		State:    state,
		Peers:    peerSet,
		Evts:     evts,
	})

	// Construct a server to service the requests against the mux.
	public := http.Server{
		Addr:         cfg.Web.PublicHost,
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
	// Start Shell

	shellCtx, cancelShell := context.WithCancel(context.Background())
	defer cancelShell()

	sh := shell{
		state:    state,
		worker:   wrk,
		wallet:   wal,
		peers:    peerSet,
		shutdown: shutdown,
		out:      os.Stdout,
	}

	go func() {
		sh.run(shellCtx, os.Stdin)
		log.Infow("shell", "status", "input closed")
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

		// Stop reading commands.
		cancelShell()

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancelPub := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPub()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}
