// sweeper is the long-running maintenance daemon. On every sweep it
// marks overdue listings expired; with -bump it also re-announces the
// active ones through the notification outbox, the periodic version of
// the admin bump.
//
// Configuration comes from the environment (see package config):
//
//	STORE_BACKEND   memory | sqlite | bolt | firestore
//	KAFKA_BROKERS   comma-separated broker list; empty runs without
//	                an outbox, so -bump only refreshes listing state
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/wardshare/wardshare/config"
	"github.com/wardshare/wardshare/internal/notify"
	"github.com/wardshare/wardshare/internal/registry"
	"github.com/wardshare/wardshare/internal/store"
)

func main() {
	interval := flag.Duration("interval", time.Hour, "time between sweeps")
	bump := flag.Bool("bump", false, "re-announce active listings on each sweep")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := config.Load()
	st, err := store.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("sweeper: opening %s store: %v", cfg.Backend, err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Printf("sweeper: closing store: %v", err)
		}
	}()

	var notifier notify.Notifier = notify.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		outbox := notify.NewOutbox(cfg.KafkaBrokers)
		defer func() {
			if err := outbox.Close(); err != nil {
				log.Printf("sweeper: closing outbox: %v", err)
			}
		}()
		notifier = outbox
	}

	reg := registry.New(st)
	log.Printf("sweeper: starting (backend=%s interval=%s bump=%t)", cfg.Backend, *interval, *bump)

	sweep(ctx, reg, notifier, *bump)
	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Println("sweeper: shutdown complete")
			return
		case <-ticker.C:
			sweep(ctx, reg, notifier, *bump)
		}
	}
}

func sweep(ctx context.Context, reg *registry.Registry, n notify.Notifier, bump bool) {
	expired, err := reg.ExpireOverdue(ctx, time.Now().UTC(), n)
	if err != nil {
		log.Printf("sweeper: expiry sweep failed: %v", err)
	} else if expired > 0 {
		log.Printf("sweeper: marked %d listings expired", expired)
	}

	if !bump {
		return
	}
	bumped, err := reg.RepublishActive(ctx, n)
	if err != nil {
		log.Printf("sweeper: bump failed: %v", err)
		return
	}
	log.Printf("sweeper: re-announced %d active listings", bumped)
}
