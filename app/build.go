package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"nutribudget"
	"nutribudget/capability"
	"nutribudget/capability/bedrock"
	"nutribudget/capability/gemini"
	"nutribudget/capability/mock"
	"nutribudget/capability/ollama"
	"nutribudget/intake"
	"nutribudget/planner"
	"nutribudget/prices"
	"nutribudget/session"
	"nutribudget/slack"
	"nutribudget/storage"
	"nutribudget/validate"
)

// Options carries what differs between binaries.
type Options struct {
	GenerationLogger nutribudget.GenerationLogger
	Instrumentation  capability.Options
	HTTPClient       nutribudget.HTTPClient
}

// App owns the service and the resources that must be released with it.
type App struct {
	Service *session.Service

	closers []func() error
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

type builder struct {
	cfg  Config
	opts Options

	awsOnce sync.Once
	awsCfg  aws.Config
	awsErr  error
}

func (b *builder) aws(ctx context.Context) (aws.Config, error) {
	b.awsOnce.Do(func() {
		b.awsCfg, b.awsErr = awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRetryMaxAttempts(5))
	})
	return b.awsCfg, b.awsErr
}

// Build wires capabilities, the catalog, sinks and the session store from cfg.
func Build(ctx context.Context, cfg Config, opts Options) (*App, error) {
	b := &builder{cfg: cfg, opts: opts}
	a := &App{}

	researcher, err := b.researcher(ctx)
	if err != nil {
		return nil, err
	}
	generator, err := b.generator(ctx)
	if err != nil {
		return nil, err
	}

	oracleOpts := []prices.Option{prices.WithTimeout(cfg.Capability.ResearchTimeout)}
	catalog, err := b.catalog(ctx)
	if err != nil {
		return nil, err
	}
	if len(catalog) > 0 {
		oracleOpts = append(oracleOpts, prices.WithCatalog(catalog))
	}

	plannerOpts := []planner.Option{
		planner.WithMaxRetries(cfg.Capability.MaxRetries),
		planner.WithTimeout(cfg.Capability.GenerateTimeout),
	}
	if opts.GenerationLogger != nil {
		plannerOpts = append(plannerOpts, planner.WithLogger(opts.GenerationLogger))
	}

	sinks, err := b.sinks(ctx, a)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Service = session.NewService(
		session.NewStore(cfg.Session.Capacity, cfg.Session.IdleTTL),
		intake.NewCollector(generator, cfg.Capability.GenerateTimeout),
		prices.NewOracle(researcher, oracleOpts...),
		planner.NewGenerator(generator, plannerOpts...),
		validate.New(validate.WithTolerance(cfg.Session.BudgetTolerance)),
		session.WithSinks(sinks...),
	)

	slog.Info("SETUP: Service ready",
		"provider", cfg.Capability.Provider,
		"research_provider", cfg.Capability.ResearchProviderName(),
		"research", researcher != nil,
		"generate", generator != nil,
		"catalog_override", len(catalog),
		"sinks", len(sinks))
	return a, nil
}

func (b *builder) instrumentation() capability.Options {
	opts := b.opts.Instrumentation
	if opts.Limiter == nil {
		opts.Limiter = capability.NewLimiter(b.cfg.Capability.RateLimitRPS, b.cfg.Capability.RateLimitBurst)
	}
	return opts
}

func (b *builder) researcher(ctx context.Context) (nutribudget.Researcher, error) {
	name := b.cfg.Capability.ResearchProviderName()
	var r nutribudget.Researcher
	switch name {
	case "none":
		return nil, nil
	case "mock":
		r = mock.NewResearcher()
	case "ollama":
		c, err := b.ollama()
		if err != nil {
			return nil, err
		}
		r = c
	case "bedrock":
		c, err := b.bedrock(ctx)
		if err != nil {
			return nil, err
		}
		r = c
	case "gemini":
		c, err := b.gemini(ctx)
		if err != nil {
			return nil, err
		}
		r = c
	default:
		return nil, fmt.Errorf("unknown research provider %q", name)
	}
	return capability.WrapResearcher(r, name, b.instrumentation()), nil
}

func (b *builder) generator(ctx context.Context) (nutribudget.Generator, error) {
	name := b.cfg.Capability.Provider
	var g nutribudget.Generator
	switch name {
	case "none":
		return nil, nil
	case "mock":
		g = mock.NewGenerator()
	case "ollama":
		c, err := b.ollama()
		if err != nil {
			return nil, err
		}
		g = c
	case "bedrock":
		c, err := b.bedrock(ctx)
		if err != nil {
			return nil, err
		}
		g = c
	case "gemini":
		c, err := b.gemini(ctx)
		if err != nil {
			return nil, err
		}
		g = c
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
	return capability.WrapGenerator(g, name, b.instrumentation()), nil
}

func (b *builder) ollama() (*ollama.Client, error) {
	return ollama.NewClient(ollama.ClientOpts{
		BaseEndpoint: b.cfg.Capability.BaseOllamaEndpoint,
		ModelID:      b.cfg.Model.ModelID,
		Temperature:  float64(b.cfg.Model.Temperature),
		TopP:         float64(b.cfg.Model.TopP),
		HTTPClient:   b.opts.HTTPClient,
	})
}

func (b *builder) bedrock(ctx context.Context) (*bedrock.Client, error) {
	awsCfg, err := b.aws(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return bedrock.NewClient(bedrockruntime.NewFromConfig(awsCfg), bedrock.LLMOptions{
		ModelID:     b.cfg.Model.ModelID,
		MaxTokens:   b.cfg.Model.MaxTokens,
		Temperature: b.cfg.Model.Temperature,
		TopP:        b.cfg.Model.TopP,
	}), nil
}

func (b *builder) gemini(ctx context.Context) (*gemini.Client, error) {
	return gemini.New(ctx, gemini.Options{
		Model:       b.cfg.Model.ModelID,
		Temperature: b.cfg.Model.Temperature,
		MaxTokens:   b.cfg.Model.MaxTokens,
	})
}

// catalog loads the configured catalog override, if any.
func (b *builder) catalog(ctx context.Context) ([]nutribudget.PricedIngredient, error) {
	sc := b.cfg.Storage
	var state storage.CatalogState
	switch {
	case sc.CatalogPath != "":
		state = storage.NewFileCatalogState(sc.CatalogPath)
	case sc.CatalogS3Bucket != "":
		awsCfg, err := b.aws(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		state = storage.NewS3CatalogState(s3.NewFromConfig(awsCfg), sc.CatalogS3Bucket, sc.CatalogS3Key)
	default:
		return nil, nil
	}
	return storage.LoadCatalog(ctx, state)
}

func (b *builder) sinks(ctx context.Context, a *App) ([]nutribudget.PlanSink, error) {
	var sinks []nutribudget.PlanSink

	archive, err := b.archive(ctx)
	if err != nil {
		return nil, err
	}
	if archive != nil {
		a.closers = append(a.closers, archive.Close)
		sinks = append(sinks, storage.NewArchiveSink(archive))
	}

	if url := b.cfg.Notify.SlackWebhookURL; url != "" {
		sinks = append(sinks, slack.NewNotifier(slack.NewClient(url, b.opts.HTTPClient), b.cfg.Notify.SlackChannel))
	}
	return sinks, nil
}

func (b *builder) archive(ctx context.Context) (storage.Archive, error) {
	sc := b.cfg.Storage
	switch sc.ArchiveBackend {
	case "", "none":
		return nil, nil
	case "file":
		return storage.NewFileArchive(sc.ArchivePath)
	case "sqlite":
		dsn := sc.ArchiveDSN
		if dsn == "" {
			dsn = "nutribudget.db"
		}
		return storage.NewSQLiteArchive(ctx, dsn)
	case "postgres":
		if sc.ArchiveDSN == "" {
			return nil, errors.New("ARCHIVE_DSN is required for the postgres archive")
		}
		return storage.NewPostgresArchive(ctx, sc.ArchiveDSN)
	case "s3":
		if sc.ArchiveS3Bucket == "" {
			return nil, errors.New("ARCHIVE_S3_BUCKET is required for the s3 archive")
		}
		awsCfg, err := b.aws(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		return storage.NewS3Archive(s3.NewFromConfig(awsCfg), sc.ArchiveS3Bucket, sc.ArchiveS3Prefix), nil
	default:
		return nil, fmt.Errorf("unknown archive backend %q", sc.ArchiveBackend)
	}
}
