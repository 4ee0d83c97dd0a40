package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/rendiciones/internal/backend"
	"github.com/dvloznov/rendiciones/internal/backend/httpapi"
	"github.com/dvloznov/rendiciones/internal/backend/local"
	"github.com/dvloznov/rendiciones/internal/codes"
	"github.com/dvloznov/rendiciones/internal/config"
	"github.com/dvloznov/rendiciones/internal/domain"
	"github.com/dvloznov/rendiciones/internal/drafts"
	"github.com/dvloznov/rendiciones/internal/extraction"
	"github.com/dvloznov/rendiciones/internal/extractor"
	"github.com/dvloznov/rendiciones/internal/gcsuploader"
	infraBQ "github.com/dvloznov/rendiciones/internal/infra/bigquery"
	"github.com/dvloznov/rendiciones/internal/jobs/inmemory"
	"github.com/rs/zerolog"
)

// env holds the backend chosen for one command and everything that must be
// closed with it.
type env struct {
	backend backend.Backend
	local   *local.Backend
	closers []func()
}

func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

func openEnv(ctx context.Context, cfg *config.AppConfig, useLocal bool, log zerolog.Logger) (*env, error) {
	if !useLocal {
		client, err := httpapi.NewClient(httpapi.Config{
			BaseURL:       cfg.APIBaseURL,
			Token:         cfg.APIToken,
			RatePerSecond: cfg.APIRatePerSecond,
			Timeout:       cfg.APITimeout,
			Logger:        log,
		})
		if err != nil {
			return nil, fmt.Errorf("create API client (set API_BASE_URL or pass -local): %w", err)
		}
		return &env{backend: client}, nil
	}

	e := &env{}

	ex, err := extractor.NewGeminiExtractor(ctx, cfg.GeminiModel)
	if err != nil {
		return nil, err
	}

	opts := []local.Option{
		local.WithLogger(log),
		local.WithQueueOptions(inmemory.WithWorkers(2)),
	}

	if cfg.UploadBucket != "" {
		objects, err := gcsuploader.NewClient(ctx, cfg.UploadBucket)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, func() { objects.Close() })
		opts = append(opts, local.WithObjectStore(objects))
	}

	source, closeSource, err := openCodes(ctx, cfg)
	if err != nil {
		e.Close()
		return nil, err
	}
	if closeSource != nil {
		e.closers = append(e.closers, closeSource)
	}
	if source != nil {
		opts = append(opts, local.WithCodes(source))
	}

	lb := local.New(ex, opts...)
	if err := lb.Start(ctx); err != nil {
		e.Close()
		return nil, err
	}
	e.closers = append(e.closers, func() { lb.Close(context.Background()) })
	e.backend = lb
	e.local = lb
	return e, nil
}

// openCodes picks the code list source of the local backend: BigQuery when
// configured, else CODES_FILE, else none.
func openCodes(ctx context.Context, cfg *config.AppConfig) (backend.Codes, func(), error) {
	switch {
	case cfg.UseBigQueryCodes():
		repo, err := infraBQ.NewBigQueryCodeRepository(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { repo.Close() }, nil
	case cfg.CodesFile != "":
		src, err := codes.LoadYAML(cfg.CodesFile)
		if err != nil {
			return nil, nil, err
		}
		return src, nil, nil
	}
	return nil, nil, nil
}

// openDrafts returns the GCS draft store when DRAFT_BUCKET is set and an
// in-memory one otherwise.
func openDrafts(ctx context.Context, cfg *config.AppConfig, e *env) (drafts.Store, error) {
	if cfg.DraftBucket == "" {
		return drafts.NewMemoryStore(cfg.DraftTTL), nil
	}
	objects, err := gcsuploader.NewClient(ctx, cfg.DraftBucket)
	if err != nil {
		return nil, err
	}
	e.closers = append(e.closers, func() { objects.Close() })
	return drafts.NewObjectStore(objects, "drafts/", cfg.DraftTTL), nil
}

func uploadPolicy(cfg *config.AppConfig) extraction.UploadPolicy {
	return extraction.UploadPolicy{
		AllowedTypes: cfg.AllowedUploadTypes,
		MaxBytes:     cfg.MaxUploadSizeBytes,
	}
}

func newSession(cfg *config.AppConfig, b backend.Documents, ref domain.ReferenceLine, log zerolog.Logger) *extraction.Session {
	return extraction.NewSession(b, ref,
		extraction.WithPolicy(uploadPolicy(cfg)),
		extraction.WithPoller(extraction.NewPoller(cfg.PollInterval, cfg.PollMaxAttempts, log)),
		extraction.WithLogger(log),
	)
}

// keyValue splits "key=value".
func keyValue(s string) (string, string, error) {
	k, v, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(k) == "" {
		return "", "", fmt.Errorf("expected key=value, got %q", s)
	}
	return strings.TrimSpace(k), v, nil
}

// multiFlag collects a repeatable string flag.
type multiFlag []string

func (m *multiFlag) String() string {
	return strings.Join(*m, ", ")
}

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}
