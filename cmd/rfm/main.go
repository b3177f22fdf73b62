// Command rfm runs the batch pipeline once: it reads raw transactions,
// loads them into the relational store, scores every customer and
// persists the run report.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/ignite/retail-rfm/internal/config"
	"github.com/ignite/retail-rfm/internal/datanorm"
	"github.com/ignite/retail-rfm/internal/domain"
	"github.com/ignite/retail-rfm/internal/financial"
	"github.com/ignite/retail-rfm/internal/pipeline"
	"github.com/ignite/retail-rfm/internal/pkg/distlock"
	"github.com/ignite/retail-rfm/internal/pkg/logger"
	"github.com/ignite/retail-rfm/internal/report"
	"github.com/ignite/retail-rfm/internal/repository/memory"
	"github.com/ignite/retail-rfm/internal/repository/postgres"
	"github.com/ignite/retail-rfm/internal/service/loader"
	"github.com/ignite/retail-rfm/internal/snowflake"
	"github.com/ignite/retail-rfm/internal/storage"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to config.yaml (defaults apply when empty)")
		sourceType = flag.String("source", "", "raw input: csv, s3 or snowflake")
		input      = flag.String("input", "", "CSV path for -source csv")
		storeType  = flag.String("store", "postgres", "relational store: postgres or memory")
		refDate    = flag.String("ref-date", "", "analysis reference date, YYYY-MM-DD")
		outDir     = flag.String("out", "", "write the report to this local directory")
		history    = flag.Int("history", 0, "list the N most recent runs from the run ledger and exit")
	)
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *sourceType != "" {
		cfg.Source.Type = *sourceType
	}
	if *input != "" {
		cfg.Source.Path = *input
	}
	if *refDate != "" {
		cfg.Analysis.ReferenceDate = *refDate
	}
	if *outDir != "" {
		cfg.Report.Type = "local"
		cfg.Report.LocalPath = *outDir
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *history > 0 {
		if err := printHistory(ctx, cfg.Report, *history); err != nil {
			log.Fatalf("History: %v", err)
		}
		return
	}

	if err := run(ctx, cfg, *storeType); err != nil {
		var se *pipeline.StageError
		if errors.As(err, &se) {
			logger.Error("pipeline failed", "component", "rfm", "stage", string(se.Stage), "error", se.Err.Error())
			fmt.Fprintf(os.Stderr, "rfm: %s stage failed: %v\n", se.Stage, se.Err)
		} else {
			fmt.Fprintf(os.Stderr, "rfm: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, storeType string) error {
	reference, err := cfg.Analysis.Reference()
	if err != nil {
		return err
	}

	src, closeSrc, err := openSource(ctx, cfg)
	if err != nil {
		return &pipeline.StageError{Stage: domain.StageIngest, Err: err}
	}
	defer closeSrc()

	var rdb *redis.Client
	if cfg.Redis.URL != "" {
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb = redis.NewClient(opt)
		defer rdb.Close()
	}

	opts := pipeline.Options{
		ReferenceDate: reference,
		Portfolio: financial.Options{
			ParetoFraction:  decimal.NewFromFloat(cfg.Analysis.ParetoFraction),
			LeaderLimit:     cfg.Analysis.LeaderLimit,
			TopSpenderLimit: financial.DefaultOptions().TopSpenderLimit,
		},
	}

	var store pipeline.Store
	switch storeType {
	case "memory":
		store = memory.NewStore()
	case "postgres":
		db, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return &pipeline.StageError{Stage: domain.StageLoad, Err: fmt.Errorf("connect database: %w", err)}
		}
		defer db.Close()
		if _, err := postgres.Migrate(ctx, db); err != nil {
			return &pipeline.StageError{Stage: domain.StageLoad, Err: fmt.Errorf("migrate: %w", err)}
		}
		store = postgres.NewStore(db)
		opts.Lock = distlock.NewLock(rdb, db, loader.LockKey, cfg.Redis.LockTTL())
	default:
		return fmt.Errorf("unknown store %q", storeType)
	}

	p, err := pipeline.New(store, opts)
	if err != nil {
		return err
	}
	rep, err := p.Run(ctx, src)
	if err != nil {
		return err
	}
	return publish(ctx, cfg, rdb, rep, os.Stdout)
}

// publish prints the run summary to w and stores the report. Failures carry
// the report or persist stage.
func publish(ctx context.Context, cfg *config.Config, rdb *redis.Client, rep *domain.RunReport, w io.Writer) error {
	renderer, err := report.NewRenderer()
	if err != nil {
		return &pipeline.StageError{Stage: domain.StageReport, Err: err}
	}
	summary, err := renderer.Render(rep)
	if err != nil {
		return &pipeline.StageError{Stage: domain.StageReport, Err: err}
	}
	fmt.Fprintln(w, summary)

	if err := persist(ctx, cfg, rdb, rep); err != nil {
		return &pipeline.StageError{Stage: domain.StagePersist, Err: err}
	}
	return nil
}

func openSource(ctx context.Context, cfg *config.Config) (pipeline.Source, func(), error) {
	noop := func() {}
	switch cfg.Source.Type {
	case "csv":
		if cfg.Source.Path == "" {
			return nil, noop, errors.New("source.path (or -input) is required for csv input")
		}
		return datanorm.NewCSVSource(cfg.Source.Path), noop, nil
	case "s3":
		src, err := datanorm.NewS3Source(ctx, datanorm.S3Config{
			Bucket:     cfg.Source.S3Bucket,
			Key:        cfg.Source.S3Key,
			Region:     cfg.Source.S3Region,
			AWSProfile: cfg.Source.AWSProfile,
		})
		return src, noop, err
	case "snowflake":
		sfCfg := snowflakeConfig(cfg.Snowflake)
		src, err := snowflake.NewSource(sfCfg)
		if err != nil {
			return nil, noop, err
		}
		return src, func() { src.Close() }, nil
	default:
		return nil, noop, fmt.Errorf("unknown source %q", cfg.Source.Type)
	}
}

// snowflakeConfig merges the connection string, when set, under the
// discrete fields.
func snowflakeConfig(c config.SnowflakeConfig) snowflake.Config {
	out := snowflake.Config{}
	if c.ConnectionString != "" {
		out = snowflake.ParseConnectionString(c.ConnectionString)
	}
	for _, kv := range []struct {
		dst *string
		v   string
	}{
		{&out.Account, c.Account},
		{&out.User, c.User},
		{&out.Password, c.Password},
		{&out.Database, c.Database},
		{&out.Schema, c.Schema},
		{&out.Warehouse, c.Warehouse},
		{&out.Table, c.Table},
	} {
		if kv.v != "" {
			*kv.dst = kv.v
		}
	}
	return out
}

func persist(ctx context.Context, cfg *config.Config, rdb *redis.Client, rep *domain.RunReport) error {
	sink, err := storage.Open(ctx, cfg.Report)
	if err != nil {
		return err
	}
	if rdb != nil {
		sink = storage.NewCachedSink(sink, storage.NewReportCache(rdb, cfg.Redis.ReportTTL()))
	}
	location, err := sink.Save(ctx, rep)
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}

	if cfg.Report.DynamoDBTable != "" {
		ledger, err := storage.NewRunLedger(ctx, cfg.Report)
		if err != nil {
			return err
		}
		if err := ledger.Record(ctx, rep, location); err != nil {
			// Not fatal: the report is already stored.
			logger.Warn("run ledger write failed", "component", "rfm", "error", err.Error())
		}
	}
	logger.Info("report persisted", "component", "rfm", "location", location)
	return nil
}

func printHistory(ctx context.Context, cfg config.ReportConfig, n int) error {
	if cfg.DynamoDBTable == "" {
		return errors.New("report.dynamodb_table is not configured")
	}
	ledger, err := storage.NewRunLedger(ctx, cfg)
	if err != nil {
		return err
	}
	runs, err := ledger.Recent(ctx, n)
	if err != nil {
		return err
	}
	for _, r := range runs {
		fmt.Println(r.String())
	}
	return nil
}
