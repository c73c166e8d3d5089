package main

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"udptracker/internal/cleaner"
	"udptracker/internal/config"
	"udptracker/internal/handler"
	"udptracker/internal/socket"
	"udptracker/internal/stats"
	"udptracker/internal/swarm"
	"udptracker/internal/tracelog"
)

func main() {
	var configFilePath string
	var cpuProfilePath string
	var debug bool

	rootCmd := &cobra.Command{
		Use:   "udptracker",
		Short: "BitTorrent UDP Tracker",
		Long:  "A sharded, BEP 15 UDP BitTorrent tracker",
		RunE: func(cmd *cobra.Command, args []string) error {
			tracelog.SetDebug(debug)

			if cpuProfilePath != "" {
				f, err := os.Create(cpuProfilePath)
				if err != nil {
					return err
				}
				pprof.StartCPUProfile(f)
				defer pprof.StopCPUProfile()
			}

			cfg, err := config.Open(configFilePath)
			if err != nil {
				return errors.New("failed to read config: " + err.Error())
			}
			cfg2 := cfg.Validate()

			return run(cfg2)
		},
	}

	rootCmd.Flags().StringVar(&configFilePath, "config", "/etc/udptracker.yaml", "location of configuration file")
	rootCmd.Flags().StringVar(&cpuProfilePath, "cpuprofile", "", "location to save a CPU profile")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		tracelog.Fatal(err)
	}
}

func run(cfg config.Config) error {
	shards := make([]*swarm.HandlerData, cfg.ShardCount)
	requestChans := make([]chan handler.Job, cfg.ShardCount)
	shardChans := make([]chan<- handler.Job, cfg.ShardCount)
	outbound := make(chan handler.Outbound, 4096)

	for i := 0; i < cfg.ShardCount; i++ {
		shards[i] = swarm.NewHandlerData()
		requestChans[i] = make(chan handler.Job, 512)
		shardChans[i] = requestChans[i]
	}

	handlerCfg := handler.Config{
		MaxRequestsPerIter:   cfg.MaxRequestsPerIter,
		ChannelRecvTimeout:   cfg.ChannelRecvTimeout,
		MaxResponsePeers:     cfg.MaxResponsePeers,
		PeerAnnounceInterval: uint32(cfg.AnnounceInterval.Seconds()),
		TrackCompleted:       cfg.TrackCompleted,
	}

	for i := 0; i < cfg.ShardCount; i++ {
		w := handler.NewWorker(i, shards[i], handlerCfg, requestChans[i], outbound)
		go w.Run()
	}

	counters := &stats.Counters{}

	sock, err := socket.New(socket.Config{
		ListenAddr:     cfg.ListenAddr,
		ReadBufferSize: cfg.ReadBufferSize,
		WriterCount:    cfg.WriterCount,
	}, shardChans, counters)
	if err != nil {
		return errors.New("failed to bind socket: " + err.Error())
	}

	clnr := cleaner.New(cleaner.Config{
		ConnectionTTL:  cfg.ConnectionTTL,
		PeerTTL:        cfg.PeerTTL,
		Interval:       cfg.CleanInterval,
		AccessListType: cfg.AccessListType,
		AccessListPath: cfg.AccessListPath,
	}, shards)

	sampler := &stats.Sampler{
		Counters: counters,
		Shards:   shards,
		Interval: cfg.StatisticsInterval,
	}

	stop := make(chan struct{})
	go clnr.Run(stop)
	go sampler.Run(stop)
	go sock.RunWriters(outbound)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		tracelog.Info("serving metrics", tracelog.Fields{"addr": cfg.MetricsAddr})
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
			tracelog.Error("metrics server failed", tracelog.Err(err))
		}
	}()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		close(stop)
		sock.Close()
		for _, ch := range requestChans {
			close(ch)
		}
	}()

	tracelog.Info("listening", tracelog.Fields{"addr": cfg.ListenAddr})
	if err := sock.Serve(); err != nil {
		return errors.New("udp server exited: " + err.Error())
	}

	return nil
}
