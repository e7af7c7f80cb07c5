package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"garm/internal/engine"
	"garm/internal/feed"
	garmNet "garm/internal/net"
	"garm/internal/tradelog"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	address := flag.String("address", "0.0.0.0", "Listen address")
	port := flag.Int("port", 9001, "Listen port")
	tickers := flag.String("tickers", "AAPL", "Comma-separated instruments to make markets in")
	dataDir := flag.String("data-dir", "", "Trade store directory (empty disables persistence)")
	kafkaBrokers := flag.String("kafka-brokers", "", "Comma-separated Kafka brokers (empty disables the trade feed)")
	kafkaTopic := flag.String("kafka-topic", "garm.trades", "Kafka topic for the trade feed")
	pretty := flag.Bool("pretty", false, "Human readable log output")
	flag.Parse()

	if *pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	// Open the durable trade store, if configured, and replay it into the
	// log so sequence numbers continue where the last run stopped.
	var store *tradelog.Store
	if *dataDir != "" {
		var err error
		store, err = tradelog.OpenStore(*dataDir)
		if err != nil {
			log.Fatal().Err(err).Str("dir", *dataDir).Msg("unable to open trade store")
		}
		defer store.Close()
	}
	tradeLog, err := tradelog.New(store)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to replay trade log")
	}
	log.Info().Uint64("trades", tradeLog.Len()).Msg("trade log ready")

	// Setup the matching engine and the TCP server.
	eng := engine.New(tradeLog, strings.Split(*tickers, ",")...)
	srv := garmNet.New(*address, *port, eng)
	eng.AddReporter(srv)

	if *kafkaBrokers != "" {
		publisher := feed.NewPublisher(strings.Split(*kafkaBrokers, ","), *kafkaTopic)
		eng.AddReporter(publisher)
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Error().Err(err).Msg("unable to close trade feed")
			}
		}()
	}

	go srv.Run(ctx)
	// Block on running the server.
	<-ctx.Done()

	eng.Close()
	if err := tradeLog.Close(); err != nil {
		log.Error().Err(err).Msg("unable to flush trade log")
	}
}
