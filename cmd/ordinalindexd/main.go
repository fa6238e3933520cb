package main

import (
	"context"
	"log"

	"github.com/rawblock/ordinal-index/internal/api"
	"github.com/rawblock/ordinal-index/internal/bitcoin"
	"github.com/rawblock/ordinal-index/internal/chainfeed"
	"github.com/rawblock/ordinal-index/internal/config"
	"github.com/rawblock/ordinal-index/internal/eventhub"
	"github.com/rawblock/ordinal-index/internal/flow"
	"github.com/rawblock/ordinal-index/internal/query"
	"github.com/rawblock/ordinal-index/internal/store"
)

func main() {
	log.Println("Starting ordinal-index...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: invalid configuration: %v", err)
	}

	dbStore, err := store.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("FATAL: failed to connect to storage layer: %v", err)
	}
	defer dbStore.Close()

	flowEngine, err := flow.New(dbStore, flow.Config{
		Mode:         cfg.Mode(),
		PruneHorizon: cfg.PruneHorizon,
	})
	if err != nil {
		log.Fatalf("FATAL: failed to construct flow engine: %v", err)
	}

	hub := eventhub.NewHub()
	go hub.Run()

	var driver *chainfeed.Driver
	if cfg.EnableIndex {
		btcClient, err := bitcoin.NewClient(bitcoin.Config{
			Host: cfg.BTCRPCHost,
			User: cfg.BTCRPCUser,
			Pass: cfg.BTCRPCPass,
		})
		if err != nil {
			log.Printf("Warning: failed to connect to Bitcoin RPC: %v", err)
		} else {
			defer btcClient.Shutdown()
		}

		driver = chainfeed.New(btcClient, flowEngine, hub)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go driver.Run(ctx)
	} else {
		log.Println("enable-index is off: queries will fail IndexDisabled, no chain-feed driver started")
		driver = chainfeed.New(nil, flowEngine, hub)
	}

	queryEngine := query.New(dbStore, flowEngine.Mode(), cfg.EnableIndex)

	r := api.SetupRouter(queryEngine, flowEngine, driver, hub)

	log.Printf("ordinal-index listening on :%s (mode=%s)", cfg.Port, flowEngine.Mode())
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
