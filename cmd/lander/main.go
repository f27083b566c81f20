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

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/marssim/lander"
	"github.com/marssim/lander/telemetry"
	"github.com/prometheus/client_golang/prometheus"
)

// This code reads the runtime configuration, loads a scenario and flies it until touchdown.

var (
	configPath string
	scenario   string
	list       bool
)

func init() {
	flag.StringVar(&configPath, "config", "", "runtime configuration file (defaults to $"+lander.ConfigEnv+")")
	flag.StringVar(&scenario, "scenario", "", "scenario name, overrides sim.scenario")
	flag.BoolVar(&list, "list", false, "list the available scenarios and exit")
}

func main() {
	flag.Parse()
	conf, err := lander.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("could not load the configuration: %s", err)
	}
	if scenario != "" {
		conf.Scenario = scenario
	}
	catalogue, err := conf.Catalogue(lander.Mars)
	if err != nil {
		log.Fatalf("could not load the scenarios: %s", err)
	}
	if list {
		for _, sc := range catalogue {
			fmt.Printf("%-20s %s\n", sc.Name, sc.Description)
		}
		return
	}
	sc, err := lander.ScenarioByName(catalogue, conf.Scenario)
	if err != nil {
		log.Fatal(err)
	}

	logger := newLogger(conf.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, conf, conf.Apply(sc), logger); err != nil {
		level.Error(logger).Log("subsys", "main", "err", err)
		os.Exit(1)
	}
}

func newLogger(lvl string) kitlog.Logger {
	klog := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stdout))
	klog = kitlog.With(klog, "ts", kitlog.DefaultTimestampUTC)
	var opt level.Option
	switch lvl {
	case "debug":
		opt = level.AllowDebug()
	case "warn":
		opt = level.AllowWarn()
	case "error":
		opt = level.AllowError()
	default:
		opt = level.AllowInfo()
	}
	return level.NewFilter(klog, opt)
}

func serve(ctx context.Context, addr string, handler http.Handler, logger kitlog.Logger) {
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdown)
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			level.Error(logger).Log("subsys", "http", "addr", addr, "err", err)
		}
	}()
	level.Info(logger).Log("subsys", "http", "addr", addr, "status", "listening")
}

func run(ctx context.Context, conf lander.Config, sc lander.ScenarioConfig, logger kitlog.Logger) error {
	sim := lander.NewSimulation(lander.Mars, lander.WithLogger(logger))
	if _, err := sim.Initialize(sc); err != nil {
		return err
	}

	var collector *telemetry.Collector
	if conf.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		var err error
		if collector, err = telemetry.NewCollector(reg); err != nil {
			return err
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		serve(ctx, conf.MetricsAddr, mux, logger)
	}

	var hub *telemetry.Hub
	if conf.WebsocketAddr != "" {
		hub = telemetry.NewHub(logger)
		go hub.Run(ctx)
		mux := http.NewServeMux()
		mux.Handle("/ws", hub)
		serve(ctx, conf.WebsocketAddr, mux, logger)
	}

	var rows chan lander.TickResult
	csvDone := make(chan error, 1)
	if conf.CSV != "" {
		tw, err := lander.CreateTelemetryFile(conf.CSV, sc.Name)
		if err != nil {
			return err
		}
		rows = make(chan lander.TickResult, 1024)
		go func() {
			csvDone <- lander.StreamResults(tw, rows)
		}()
		defer func() {
			close(rows)
			if err := <-csvDone; err != nil {
				level.Error(logger).Log("subsys", "export", "file", conf.CSV, "err", err)
			}
		}()
	}

	if conf.PredictHorizon > 0 {
		if p := sim.Predict(conf.PredictHorizon); p.Impacts() {
			level.Info(logger).Log("subsys", "predict", "impact(s)", p.Impact, "horizon(s)", conf.PredictHorizon)
		}
	}

	var ticker *time.Ticker
	if conf.Realtime {
		ticker = time.NewTicker(conf.Frame)
		defer ticker.Stop()
	}

	for {
		select {
		case <-ctx.Done():
			level.Info(logger).Log("subsys", "main", "status", "interrupted", "t", sim.State().Time)
			return nil
		default:
		}
		var cmd lander.Command
		if hub != nil {
			cmd = hub.Drain()
		}
		var res lander.TickResult
		for i := 0; i < conf.Speed; i++ {
			res = sim.Tick(0, cmd)
			cmd = lander.Command{}
			collector.Observe(res)
			if rows != nil {
				rows <- res
			}
			if res.Terminal != lander.Flying {
				break
			}
		}
		if hub != nil {
			if err := hub.Publish(res); err != nil {
				level.Warn(logger).Log("subsys", "hub", "err", err)
			}
		}
		if res.Terminal != lander.Flying {
			collector.RecordOutcome(res.Terminal)
			return nil
		}
		if conf.MaxTime > 0 && res.State.Time >= conf.MaxTime {
			level.Info(logger).Log("subsys", "main", "status", "time limit reached", "t", res.State.Time, "alt(km)", res.Telemetry.Altitude/1e3)
			return nil
		}
		if ticker != nil {
			select {
			case <-ctx.Done():
			case <-ticker.C:
			}
		}
	}
}
