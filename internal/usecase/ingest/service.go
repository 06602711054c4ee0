// Package ingest embeds catalog items in batches and writes them to the vector store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/courserec/internal/domain"
	domcat "github.com/kailas-cloud/courserec/internal/domain/catalog"
	domdoc "github.com/kailas-cloud/courserec/internal/domain/document"
	doming "github.com/kailas-cloud/courserec/internal/domain/ingest"
	domvec "github.com/kailas-cloud/courserec/internal/domain/vector"
	"github.com/kailas-cloud/courserec/internal/metrics"
)

const (
	// DefaultBatchSize is the number of catalog items embedded per batch.
	DefaultBatchSize = 100
	// MaxBatchSize is the largest accepted batch size.
	MaxBatchSize = 1000
)

// Service runs ingestion: catalog items -> documents -> embeddings -> vector store.
type Service struct {
	catalog   CatalogSource
	store     VectorWriter
	embed     Embedder
	batchSize int
	workers   int
	logger    *zap.Logger
}

// New creates an ingestion service with the default batch size and a single worker.
func New(catalog CatalogSource, store VectorWriter, embed Embedder, logger *zap.Logger) *Service {
	return &Service{
		catalog:   catalog,
		store:     store,
		embed:     embed,
		batchSize: DefaultBatchSize,
		workers:   1,
		logger:    logger,
	}
}

// WithBatchSize configures the batch size. Values outside 1..MaxBatchSize are ignored.
func (s *Service) WithBatchSize(size int) *Service {
	if size > 0 && size <= MaxBatchSize {
		s.batchSize = size
	}
	return s
}

// WithWorkers configures how many batches are processed concurrently.
func (s *Service) WithWorkers(n int) *Service {
	if n > 0 {
		s.workers = n
	}
	return s
}

// IndexCatalog reads the whole catalog and indexes it.
func (s *Service) IndexCatalog(ctx context.Context) (doming.Summary, error) {
	items, err := s.catalog.ListAll(ctx)
	if err != nil {
		return doming.Summary{}, fmt.Errorf("list catalog: %w", err)
	}
	return s.Index(ctx, items)
}

// Index embeds and stores items batch by batch. A failed batch is recorded in the
// summary and does not stop the run. On cancellation batches not yet dispatched are
// reported as failed and the context error is returned with the partial summary.
// A vector dimension mismatch is a configuration error: dispatch stops and the
// mismatch is returned.
func (s *Service) Index(ctx context.Context, items []domcat.Item) (doming.Summary, error) {
	if len(items) == 0 {
		return doming.Summary{}, domain.ErrCatalogEmpty
	}

	start := time.Now()
	batches := doming.Split(items, s.batchSize)
	outcomes := make([]doming.BatchOutcome, len(batches))
	tokens := make([]int, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, batch := range batches {
		if err := gctx.Err(); err != nil {
			outcomes[i] = doming.NewSkipped(i, domcat.IDs(batch), err)
			continue
		}
		g.Go(func() error {
			outcomes[i], tokens[i] = s.indexBatch(gctx, i, batch)
			if err := outcomes[i].Err(); errors.Is(err, domain.ErrVectorDimMismatch) {
				return err
			}
			return nil
		})
	}
	fatal := g.Wait()

	usage := domain.UsageFromContext(ctx)
	for _, n := range tokens {
		usage.AddEmbeddingTokens(n)
	}

	for _, o := range outcomes {
		metrics.IngestBatchesTotal.WithLabelValues(string(o.Status())).Inc()
		metrics.IngestItemsTotal.WithLabelValues(string(o.Status())).Add(float64(len(o.ItemIDs())))
	}
	metrics.IngestRunDuration.Observe(time.Since(start).Seconds())

	summary := doming.Summarize(len(items), outcomes)
	fields := []zap.Field{
		zap.Int("submitted", summary.Submitted),
		zap.Int("batches", len(batches)),
		zap.Int("succeeded_batches", summary.SucceededBatches),
		zap.Int("failed_batches", summary.FailedBatches),
		zap.Duration("duration", time.Since(start)),
	}
	if n, ok := s.storedRecords(ctx); ok {
		fields = append(fields, zap.Int("stored_records", n))
	}
	s.logger.Info("Ingestion finished", fields...)

	if fatal != nil {
		return summary, fmt.Errorf("ingestion aborted: %w", fatal)
	}
	for _, o := range outcomes {
		if o.Status() == doming.StatusSkipped {
			return summary, fmt.Errorf("ingestion interrupted: %w", o.Err())
		}
	}
	return summary, nil
}

// storedRecords reads the store size when the store supports it and publishes it as a gauge.
func (s *Service) storedRecords(ctx context.Context) (int, bool) {
	c, ok := s.store.(RecordCounter)
	if !ok || ctx.Err() != nil {
		return 0, false
	}
	n, err := c.Count(ctx)
	if err != nil {
		s.logger.Warn("Failed to count stored records", zap.Error(err))
		return 0, false
	}
	metrics.VectorStoreRecords.Set(float64(n))
	return n, true
}

// indexBatch returns the batch outcome and the embedding tokens it consumed.
func (s *Service) indexBatch(ctx context.Context, index int, batch []domcat.Item) (doming.BatchOutcome, int) {
	ids := domcat.IDs(batch)
	if err := ctx.Err(); err != nil {
		return doming.NewSkipped(index, ids, err), 0
	}

	records, tokens, err := s.embedBatch(ctx, batch)
	if err == nil {
		err = s.store.Upsert(ctx, records)
		if err != nil {
			err = fmt.Errorf("upsert: %w", err)
		}
	}
	if err != nil {
		s.logger.Error("Ingestion batch failed",
			zap.Int("batch_index", index),
			zap.Int64s("item_ids", ids),
			zap.Error(err),
		)
		return doming.NewError(index, ids, err), tokens
	}

	s.logger.Debug("Ingestion batch stored",
		zap.Int("batch_index", index),
		zap.Int("items", len(batch)),
	)
	return doming.NewOK(index, ids), tokens
}

func (s *Service) embedBatch(ctx context.Context, batch []domcat.Item) ([]domvec.Record, int, error) {
	docs := domdoc.PrepareAll(batch)

	res, err := domain.EmbedBatch(ctx, s.embed, domdoc.Contents(docs))
	if err != nil {
		return nil, 0, fmt.Errorf("vectorize: %w", err)
	}
	if len(res.Embeddings) != len(docs) {
		return nil, res.TotalTokens, fmt.Errorf("got %d embeddings for %d documents: %w",
			len(res.Embeddings), len(docs), domain.ErrEmbeddingProviderError)
	}

	records := make([]domvec.Record, len(docs))
	for i, doc := range docs {
		records[i] = domvec.NewRecord(doc, res.Embeddings[i])
	}
	return records, res.TotalTokens, nil
}
