// Replay feeds recorded call texts through the full parser chain without
// touching the network or the live database, and prints what each message
// became. Input is one message per line ("trader|text", literal \n for line
// breaks inside a call), read from the file given as the first argument or
// from stdin.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"signalSimBot/internal/adapters/linesource"
	"signalSimBot/internal/adapters/logger"
	"signalSimBot/internal/adapters/memdedup"
	"signalSimBot/internal/detector"
	"signalSimBot/internal/dispatch"
	"signalSimBot/internal/domain"
	"signalSimBot/internal/parser"
)

// nullSignalRepo satisfies the signal repository port without persisting
// anything; replay runs are throwaway.
type nullSignalRepo struct{}

func (nullSignalRepo) CreateSignal(ctx context.Context, sig *domain.Signal) (int64, error) {
	return 0, nil
}

func (nullSignalRepo) RecordFailedParse(ctx context.Context, traderID, text, reason string) error {
	return nil
}

func (nullSignalRepo) FindRecentByTrader(ctx context.Context, traderID string, limit int) ([]*domain.Signal, error) {
	return nil, nil
}

func main() {
	verbose := flag.Bool("v", false, "log parser chain decisions")
	flag.Parse()

	level := "error"
	if *verbose {
		level = "debug"
	}
	appLogger := logger.New(logger.Config{Level: level, Console: true})

	in := os.Stdin
	if flag.NArg() > 0 {
		f, err := os.Open(flag.Arg(0))
		if err != nil {
			log.Fatalf("FATAL: Failed to open input file: %v", err)
		}
		defer f.Close()
		in = f
	}

	d, err := dispatch.New(dispatch.Config{}, dispatch.Deps{
		Logger:       appLogger,
		Parsers:      parser.DefaultParsers(),
		Detector:     detector.New(),
		Fingerprints: memdedup.New(2*time.Hour, 10000),
		Signals:      nullSignalRepo{},
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize dispatcher: %v", err)
	}

	ctx := context.Background()
	source := linesource.New(in, "replay")
	messages, err := source.Messages(ctx)
	if err != nil {
		log.Fatalf("FATAL: Failed to open message source: %v", err)
	}

	for msg := range messages {
		sig, err := d.Route(ctx, msg.Text, msg.TraderIDHint, "")
		switch {
		case err != nil:
			fmt.Printf("-- %v\n", err)
		case !sig.IsValid:
			fmt.Printf("-- invalid (%s): %v\n", sig.ParserUsed, sig.Errors)
		default:
			out, _ := json.Marshal(sig)
			fmt.Printf("%s\n", out)
		}
	}

	stats := d.Stats()
	fmt.Printf("\nprocessed=%d rule=%d ai=%d failed=%d duplicates=%d successRate=%.1f%% avgConfidence=%.1f\n",
		stats.Processed, stats.ParsedByRule, stats.ParsedByAI, stats.Failed,
		stats.Duplicates, stats.SuccessRate*100, stats.AvgConfidence)
}
