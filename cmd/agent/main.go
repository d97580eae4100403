package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/rcss.agent/internal/agent"
	"github.com/banshee-data/rcss.agent/internal/config"
	"github.com/banshee-data/rcss.agent/internal/recorder"
	"github.com/banshee-data/rcss.agent/internal/replay"
	"github.com/banshee-data/rcss.agent/internal/timeutil"
	"github.com/banshee-data/rcss.agent/internal/version"
)

var (
	configPath = flag.String("config", "", "Path to agent config JSON (default: "+config.DefaultConfigPath+")")
	server     = flag.String("server", "", "Simulator address host:port (overrides config)")
	team       = flag.String("team", "", "Team name (overrides config)")
	goalie     = flag.Bool("goalie", false, "Connect as goalie")
	synchSee   = flag.Bool("synch-see", false, "Request synchronous see messages after init")
	recordPath = flag.String("record", "", "Record decisions, anomalies and tracking to this sqlite file")
	flushEvery = flag.Duration("record-flush", time.Second, "Recorder flush interval")
	replayPath = flag.String("replay", "", "Replay a pcap/pcapng capture instead of connecting")
	replayPort = flag.Int("replay-port", 0, "Keep only datagrams from this UDP source port in the replay capture (0 keeps all)")
	showVer    = flag.Bool("version", false, "Print version and exit")
)

func loadConfig() *config.AgentConfig {
	if *configPath == "" {
		return config.MustLoadDefaultConfig()
	}
	cfg, err := config.LoadAgentConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func main() {
	flag.Parse()
	if *showVer {
		fmt.Println(version.String())
		return
	}
	log.Printf("starting %s", version.String())

	cfg := agent.ConfigFromAgentConfig(loadConfig())
	if *server != "" {
		cfg.ServerAddress = *server
	}
	if *team != "" {
		cfg.TeamName = *team
	}
	cfg.Goalie = *goalie
	cfg.SynchSee = *synchSee

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts agent.Options
	var clock *timeutil.MockClock
	if *replayPath != "" {
		clock = timeutil.NewMockClock(time.Unix(0, 0).UTC())
		opts.Clock = clock
	}

	if *recordPath != "" {
		rec, err := recorder.Open(*recordPath)
		if err != nil {
			log.Fatalf("failed to open recorder: %v", err)
		}
		sess, err := rec.StartSession(cfg.TeamName, time.Now())
		if err != nil {
			log.Fatalf("failed to start session: %v", err)
		}
		log.Printf("recording session %s to %s", sess.ID, *recordPath)
		recCtx, stopRec := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := rec.Run(recCtx, *flushEvery); err != nil {
				log.Printf("recorder: %v", err)
			}
		}()
		defer func() {
			stopRec()
			<-done
			if err := rec.Close(); err != nil {
				log.Printf("recorder close: %v", err)
			}
		}()
		opts.Observer = rec
	}

	client := agent.NewClient(cfg, opts)

	if *replayPath != "" {
		stats, err := replay.ReadPCAPFile(ctx, *replayPath, replay.Options{
			Port:    *replayPort,
			Clock:   clock,
			Timeout: cfg.ReceiveTimeout(),
		}, client)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Fatalf("replay failed: %v", err)
		}
		log.Printf("replay: %d packets, %d delivered, %d skipped, %d errors, %d timeouts (%s .. %s)",
			stats.Packets, stats.Delivered, stats.Skipped, stats.Errors, stats.Timeouts,
			stats.First.Format(time.RFC3339Nano), stats.Last.Format(time.RFC3339Nano))
		return
	}

	if err := client.Connect(agent.RealUDPSocketFactory{}); err != nil {
		log.Fatalf("failed to connect to %s: %v", cfg.ServerAddress, err)
	}
	log.Printf("connected to %s as %q", cfg.ServerAddress, cfg.TeamName)

	err := client.Run(ctx)
	if cerr := client.Close(); cerr != nil {
		log.Printf("close: %v", cerr)
	}
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		log.Printf("shutting down")
	default:
		log.Printf("client stopped: %v", err)
	}
}
