package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/lattice-trade/orderbook/book"
	"github.com/lattice-trade/orderbook/reactor"
)

func main() {
	passkey := flag.String("passkey", "changeme", "shared secret required by AUTH")
	adminSecret := flag.String("admin-secret", "admin", "shared secret required by DEBUG AUTH")
	symbols := flag.String("symbols", "BTCUSD,ETHUSD", "comma-separated instruments to create at startup")
	idleTimeout := flag.Duration("idle-timeout", 60*time.Second, "session idle timeout")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: server <port>")
		os.Exit(1)
	}

	port, err := strconv.ParseUint(flag.Arg(0), 10, 16)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid port %q: %v\n", flag.Arg(0), err)
		os.Exit(1)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	book.SetLogger(logger)
	reactor.SetLogger(logger)

	registry := book.NewRegistry()
	for _, symbol := range strings.Split(*symbols, ",") {
		symbol = strings.TrimSpace(symbol)
		if symbol == "" {
			continue
		}
		if _, ok := registry.Create(symbol); !ok {
			logger.Warn("duplicate symbol at startup, skipped", zap.String("symbol", symbol))
		}
	}

	ring := reactor.NewLogRing(1024, auditSink{logger: logger})
	ring.Start()
	defer ring.Shutdown()

	rx, err := reactor.New(reactor.Config{
		Port:        uint16(port),
		Passkey:     *passkey,
		AdminSecret: *adminSecret,
		IdleTimeout: *idleTimeout,
	}, registry, ring)
	if err != nil {
		logger.Error("failed to start reactor", zap.Error(err))
		os.Exit(1)
	}
	defer rx.Close()

	stop := make(chan struct{})
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		close(stop)
	}()

	logger.Info("listening", zap.Uint64("port", port))
	if err := rx.Run(stop); err != nil {
		logger.Error("reactor exited with error", zap.Error(err))
		os.Exit(1)
	}
}

type auditSink struct {
	logger *zap.Logger
}

func (s auditSink) OnBookLog(log *book.BookLog) {
	s.logger.Debug("book event",
		zap.Uint64("seq", log.SequenceID),
		zap.String("type", string(log.Type)),
		zap.String("symbol", log.Symbol),
		zap.Uint64("price", log.Price),
		zap.Uint64("qty", log.Qty),
		zap.String("order_id", log.OrderID),
	)
}
