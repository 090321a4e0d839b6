package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"order-tracker-go/infrastructure/logger"
	"order-tracker-go/sim"
)

func main() {
	addr := flag.String("addr", ":8000", "listen address")
	orderID := flag.Int64("order", 3, "order id to serve")
	interval := flag.Duration("interval", 10*time.Second, "delay between scripted status changes")
	script := flag.String("script", "shipped,delivered", "comma separated statuses to walk through; empty disables")
	greeting := flag.Bool("greeting", false, "send the legacy plain-text line on connect")
	level := flag.String("logLevel", "info", "log level")
	flag.Parse()

	cfg := logger.DefaultConfig()
	cfg.Level = *level
	lg, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Close()

	stub := sim.NewServer(sim.Options{Greeting: *greeting, Logger: lg})
	stub.AddOrder(*orderID, sim.OrderItem{ProductID: 1, Quantity: 1})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{Addr: *addr, Handler: stub.Router, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		lg.Info("order stub listening", zap.String("addr", *addr), zap.Int64("order_id", *orderID))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.LogError(err, map[string]interface{}{"action": "listen"})
			stop()
		}
	}()

	if steps := splitStatuses(*script); len(steps) > 0 {
		go func() {
			if err := stub.Run(ctx, *orderID, *interval, steps...); err != nil && !errors.Is(err, context.Canceled) {
				lg.LogError(err, map[string]interface{}{"action": "script"})
			}
		}()
	}

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func splitStatuses(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
