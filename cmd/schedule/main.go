// Command schedule loads a conference schedule into a key-value store and
// navigates its records.
//
// Each argument is a record key such as event.33950. Events are printed with
// their venue and speakers. With -where, the keys of all records matching the
// expression are listed instead.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/jacentio/schedule/feed"
	"github.com/jacentio/schedule/internal/config"
	"github.com/jacentio/schedule/loader"
	"github.com/jacentio/schedule/query"
	"github.com/jacentio/schedule/record"
	"github.com/jacentio/schedule/store"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "schedule: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	configPath := flag.String("config", "", "YAML configuration file")
	backend := flag.String("backend", "", "Store backend (file, dynamo, memory)")
	dbPath := flag.String("db", "", "File store path")
	codec := flag.String("codec", "", "File store codec (json, cbor)")
	table := flag.String("table", "", "DynamoDB table")
	region := flag.String("region", "", "AWS region")
	endpoint := flag.String("endpoint", "", "DynamoDB endpoint override (e.g., http://localhost:8000)")
	profile := flag.String("profile", "", "AWS shared config profile")
	feedPath := flag.String("feed", "", "Schedule feed file (.json, .yaml)")
	feedURL := flag.String("feed-url", "", "URL to download the feed from when the file is missing")
	sentinel := flag.String("sentinel", "", "Key whose presence means the store is loaded")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	where := flag.String("where", "", "List keys of records matching an expression (e.g., 'kind == \"Event\"')")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	// Flags set explicitly win over the config file.
	overrides := map[string]struct {
		dst *string
		src *string
	}{
		"backend":   {&cfg.Backend, backend},
		"db":        {&cfg.Path, dbPath},
		"codec":     {&cfg.Codec, codec},
		"table":     {&cfg.Table, table},
		"region":    {&cfg.Region, region},
		"endpoint":  {&cfg.Endpoint, endpoint},
		"profile":   {&cfg.Profile, profile},
		"feed":      {&cfg.FeedPath, feedPath},
		"feed-url":  {&cfg.FeedURL, feedURL},
		"sentinel":  {&cfg.Sentinel, sentinel},
		"log-level": {&cfg.LogLevel, logLevel},
	}
	flag.Visit(func(f *flag.Flag) {
		if o, ok := overrides[f.Name]; ok {
			*o.dst = *o.src
		}
	})
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	level, _ := cfg.Level()
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
	slog.SetDefault(logger)

	db, name, err := openStore(ctx, &cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("failed to close store", "error", err)
		}
	}()

	src := &feed.FileSource{Path: cfg.FeedPath, URL: cfg.FeedURL, Logger: logger}
	loaded, err := loader.EnsureLoaded(ctx, src, db, cfg.Sentinel,
		loader.WithLogger(logger),
		loader.WithName(name),
	)
	if err != nil {
		return err
	}
	if !loaded {
		logger.Debug("store already loaded", "db", name, "sentinel", cfg.Sentinel)
	}

	record.SetDB(db)
	defer record.SetDB(nil)

	if *where != "" {
		return listMatching(ctx, os.Stdout, db, *where)
	}
	for _, key := range flag.Args() {
		if err := show(ctx, os.Stdout, key); err != nil {
			return err
		}
	}
	return nil
}

// openStore opens the configured backend and returns it with a display name.
func openStore(ctx context.Context, cfg *config.Config) (record.Store, string, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return store.NewMemory(), "memory", nil
	case config.BackendDynamo:
		client, err := newDynamoClient(ctx, cfg)
		if err != nil {
			return nil, "", err
		}
		return store.NewDynamo(client, cfg.DynamoConfig()), "dynamodb:" + cfg.Table, nil
	default:
		s, err := store.OpenFile(cfg.FileConfig())
		if err != nil {
			return nil, "", err
		}
		return s, s.Path(), nil
	}
}

func newDynamoClient(ctx context.Context, cfg *config.Config) (*dynamodb.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// show prints the record under key; events also print their venue and speakers.
func show(ctx context.Context, w io.Writer, key string) error {
	v, err := record.Fetch(ctx, key)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, v)

	ev, ok := v.(*record.Event)
	if !ok {
		return nil
	}
	venue, err := ev.Venue(ctx)
	if err != nil {
		return fmt.Errorf("venue of %s: %w", key, err)
	}
	fmt.Fprintf(w, "  venue: %s\n", venue)
	speakers, err := ev.Speakers(ctx)
	if err != nil {
		return fmt.Errorf("speakers of %s: %w", key, err)
	}
	for _, s := range speakers {
		name, _ := s.Attr("name")
		serial, _ := s.Attr("serial")
		fmt.Fprintf(w, "  %v: %v\n", serial, name)
	}
	return nil
}

// listMatching prints the keys of records in db matching expression.
func listMatching(ctx context.Context, w io.Writer, db record.Store, expression string) error {
	src, ok := db.(query.Source)
	if !ok {
		return fmt.Errorf("store %T cannot list keys", db)
	}
	f, err := query.Compile(expression)
	if err != nil {
		return err
	}
	keys, err := query.Select(ctx, src, f)
	if err != nil {
		return err
	}
	for _, key := range keys {
		fmt.Fprintln(w, key)
	}
	return nil
}
