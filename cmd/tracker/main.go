package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"go.uber.org/zap"

	"order-tracker-go/internal/container"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "config file path")
	orderID := flag.String("order", "", "order id to track (overrides tracker.orderId)")
	flag.Parse()

	c, err := container.New(*cfgPath)
	if err != nil {
		log.Fatalf("init: %v", err)
	}
	if *orderID != "" {
		c.SetOrderID(*orderID)
	}
	if err := c.Build(); err != nil {
		log.Fatalf("build: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := c.Start(ctx); err != nil {
		log.Fatalf("start: %v", err)
	}
	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		c.Logger().Warn("sd_notify ready failed", zap.Error(err))
	} else if ok {
		c.Logger().Info("notified systemd")
	}

	h := c.Session()
	for state := range h.Display().Subscribe() {
		fmt.Fprintln(os.Stdout, state.Text)
	}

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	if err := c.Stop(); err != nil {
		os.Exit(1)
	}
}
