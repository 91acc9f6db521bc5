package main

import (
	"context"
	"flag"
	"os"
	"time"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/joho/godotenv"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"pulsedesk/internal/archive"
	"pulsedesk/internal/assistant"
	"pulsedesk/internal/collect"
	"pulsedesk/internal/model"
	"pulsedesk/internal/obs"
	"pulsedesk/internal/ops"
	"pulsedesk/internal/server"
	"pulsedesk/internal/source"
	"pulsedesk/internal/source/binance"
	"pulsedesk/internal/source/upbit"
	"pulsedesk/internal/store"
	"pulsedesk/pkg/exception"
)

const (
	scoreBatchSize = 10
	scoreInterval  = 15 * time.Second
)

func main() {
	if err := run(); err != nil {
		logs.Errorf("deskd: %v", err)
		os.Exit(1)
	}
}

func run() error {
	configFlag := flag.String("config", "config.yaml", "path to YAML config")
	flag.Parse()

	_ = godotenv.Load(".env")
	cfg, err := ops.Load(*configFlag)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-sys.Shutdown()
		cancel()
	}()

	if cfg.Profile.Enabled {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "pulsedesk",
			ServerAddress:   cfg.Profile.Address,
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			return err
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	// realtime pipeline: adapters publish into the manager's sink, the
	// manager fans out, the realtime store applies
	metrics := obs.NewMetrics()
	manager := source.NewManager(nil)
	manager.SetMetrics(metrics)
	manager.Register(binance.New(manager.Sink(), cfg.Sources.BinanceURL))
	manager.Register(upbit.New(manager.Sink(), cfg.Sources.UpbitURL))

	realtime := store.NewRealtime(manager)
	canvas := store.NewCanvas()
	investigation := store.NewInvestigation(realtime, canvas)
	feed := store.NewFeed()

	// assistant, the second canvas writer
	client := assistant.NewClient(cfg.AnthropicAPIKey)
	chat := assistant.New(client, assistant.NewExecutor(canvas, assistant.NewBraveSearch(cfg.SearchAPIKey)), cfg.Assistant.Model)

	arc, err := archive.New(cfg.ArchiveDSN)
	switch {
	case err == nil:
		defer arc.Close()
	case err == exception.ErrArchiveDisabled:
		arc = nil
		logs.Info("archive disabled: no DSN configured")
	default:
		return err
	}

	go manager.Run(ctx)
	go realtime.Run(ctx)

	// pollers
	go collect.NewNews(collect.NewNewsRest(), feed).Run(ctx)
	sentiment := collect.NewSentimentTracker(collect.NewFearGreedRest())
	go sentiment.Run(ctx)
	fx := collect.NewFxCache(collect.NewFxRest())
	binanceRest := collect.NewBinanceRest()
	go collect.NewPremium(binanceRest, collect.NewUpbitRest(), fx, cfg.Sources.Symbols).Run(ctx)

	if client.Configured() {
		queue := store.NewScoreQueue(feed, assistant.NewFeedScorer(client, cfg.Assistant.Model), scoreBatchSize, scoreInterval)
		go queue.Run(ctx, func(item model.FeedItem) {
			arc.Store(ctx, item)
		})
	} else {
		logs.Warn("feed scoring disabled: no API key configured")
	}

	manager.ConnectAll(ctx)
	defer manager.DisconnectAll()
	for _, symbol := range cfg.Sources.Symbols {
		realtime.Subscribe(symbol)
	}

	srv := server.New(cfg.Server.Addr, realtime, canvas, investigation, feed, chat)
	srv.SetMetrics(metrics)
	srv.SetDerivatives(binanceRest)
	srv.SetSentiment(sentiment)
	return srv.Run(ctx)
}
