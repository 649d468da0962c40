// Package rag composes the query pipeline: intent classification, embedding,
// vector retrieval, reranking, and grounded generation. It is the only layer
// that translates upstream failures into user-visible degraded answers.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Waterproof82/smart-connect-assistant/internal/domain"
	"github.com/Waterproof82/smart-connect-assistant/internal/logger"
	"github.com/Waterproof82/smart-connect-assistant/internal/metrics"
	"github.com/Waterproof82/smart-connect-assistant/internal/usecase/retrieval"
)

// FallbackText is the answer returned when no grounded context is available.
const FallbackText = "Lo siento, no he encontrado información para responder a tu pregunta. " +
	"¿Puedes reformularla o preguntarme otra cosa?"

// degradedPrefix opens the answer returned when generation fails but
// retrieval succeeded; the retrieved sources are still surfaced.
const degradedPrefix = "Ahora mismo no puedo redactar una respuesta completa. " +
	"Estas fuentes pueden ayudarte: "

const (
	embedRetryDelay     = 250 * time.Millisecond
	rateLimitRetryDelay = 2 * time.Second
)

// Config holds the pipeline knobs, passed explicitly at construction.
type Config struct {
	RetrievalLimit      int
	SimilarityThreshold float64
	// BroadenedThreshold is used by the second retrieval pass after an empty
	// result. It never raises the effective threshold above
	// SimilarityThreshold; zero means no relaxation.
	BroadenedThreshold  float64
	MaxContextDocuments int
	RequestTimeout      time.Duration
	BroadenOnEmpty      bool
	ConfidenceFloor     float64
}

// Service is the RAG orchestrator.
type Service struct {
	classifier Classifier
	embedder   domain.Embedder
	retriever  Retriever
	reranker   Reranker
	generator  domain.Generator
	cfg        Config
}

// New creates the orchestrator with its collaborators injected.
func New(
	classifier Classifier,
	embedder domain.Embedder,
	retriever Retriever,
	reranker Reranker,
	generator domain.Generator,
	cfg Config,
) *Service {
	return &Service{
		classifier: classifier,
		embedder:   embedder,
		retriever:  retriever,
		reranker:   reranker,
		generator:  generator,
		cfg:        cfg,
	}
}

// Answer runs one request through the pipeline. The returned error is non-nil
// only for ErrInvalidInput and ErrCancelled; every other failure settles into
// a readable fallback or degraded answer so technical errors never reach the
// visitor verbatim.
func (s *Service) Answer(
	ctx context.Context, rawText string, caller domain.CallerContext,
) (domain.Answer, error) {
	if strings.TrimSpace(rawText) == "" {
		return domain.Answer{}, fmt.Errorf("empty query: %w", domain.ErrInvalidInput)
	}

	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	// Callers without a transport-assigned request id still get a traceable one.
	if caller.RequestID == "" {
		caller.RequestID = uuid.NewString()
	}

	log := logger.FromContext(ctx).With(zap.String("request_id", caller.RequestID))
	stage := StageReceived

	// 1. Classify.
	query := observeStage(StageClassified, func() domain.Query {
		return s.classifier.Classify(rawText)
	})
	stage = StageClassified
	log.Debug("Query classified",
		zap.String("intent", string(query.Intent())),
		zap.Float64("confidence", query.Confidence()),
	)

	// 2. Embed, with a single bounded retry.
	vector, err := s.embedWithRetry(ctx, query.Text())
	if err != nil {
		if cancelErr := s.cancelled(ctx, stage, err); cancelErr != nil {
			return domain.Answer{}, cancelErr
		}
		if errors.Is(err, domain.ErrInvalidInput) {
			return domain.Answer{}, err
		}
		log.Warn("Embedding unavailable, answering with fallback",
			zap.String("stage", string(stage)), zap.Error(err))
		metrics.PipelineFallbacksTotal.WithLabelValues("retrieval_unavailable").Inc()
		return domain.Answer{Text: FallbackText}, nil
	}
	stage = StageEmbedded

	// 3. Retrieve, broadening the filters when the classifier is unsure.
	filters := query.Filters()
	if query.Confidence() < s.cfg.ConfidenceFloor {
		filters = filters.WithoutNarrowing()
	}

	docs, err := s.retrieve(ctx, vector, filters, s.cfg.SimilarityThreshold)
	if err != nil {
		if cancelErr := s.cancelled(ctx, stage, err); cancelErr != nil {
			return domain.Answer{}, cancelErr
		}
		log.Warn("Retrieval failed, answering with fallback",
			zap.String("stage", string(stage)), zap.Error(err))
		metrics.PipelineFallbacksTotal.WithLabelValues("retrieval_unavailable").Inc()
		return domain.Answer{Text: FallbackText}, nil
	}

	// 4. Empty-context policy: one broadened pass with relaxed filters and
	// threshold, then the fallback answer. A strict configured threshold must
	// not survive into the broadened pass, or a marginally relevant document
	// would be excluded twice and the visitor would get the fallback instead
	// of a grounded answer.
	if len(docs) == 0 && s.cfg.BroadenOnEmpty && (filters.Category != "" || filters.Source != "") {
		docs, err = s.retrieve(ctx, vector, filters.WithoutNarrowing(), s.broadenedThreshold())
		if err != nil {
			if cancelErr := s.cancelled(ctx, stage, err); cancelErr != nil {
				return domain.Answer{}, cancelErr
			}
			log.Warn("Broadened retrieval failed, answering with fallback",
				zap.String("stage", string(stage)), zap.Error(err))
			metrics.PipelineFallbacksTotal.WithLabelValues("retrieval_unavailable").Inc()
			return domain.Answer{Text: FallbackText}, nil
		}
		if len(docs) > 0 {
			log.Debug("Broadened retrieval recovered context", zap.Int("documents", len(docs)))
		}
	}
	if len(docs) == 0 {
		log.Info("No grounded context above threshold, answering with fallback")
		metrics.PipelineFallbacksTotal.WithLabelValues("empty_retrieval").Inc()
		return domain.Answer{Text: FallbackText}, nil
	}

	// 5. Rerank and select the final context.
	ranked := observeStage(StageReranked, func() []domain.RankedDocument {
		return s.reranker.Rerank(query, docs)
	})
	if len(ranked) > s.cfg.MaxContextDocuments {
		ranked = ranked[:s.cfg.MaxContextDocuments]
	}
	stage = StageReranked

	// 6. Generate. No retry here: regenerating is expensive and risks
	// duplicate upstream calls within one user-facing request.
	genStart := time.Now()
	result, err := s.generator.Generate(ctx, query, ranked)
	metrics.PipelineStageDuration.WithLabelValues(string(StageGenerated)).Observe(time.Since(genStart).Seconds())
	if err != nil {
		if cancelErr := s.cancelled(ctx, stage, err); cancelErr != nil {
			return domain.Answer{}, cancelErr
		}
		log.Warn("Generation failed, answering with degraded response",
			zap.String("stage", string(stage)), zap.Error(err))
		metrics.PipelineFallbacksTotal.WithLabelValues("generation_failed").Inc()
		return domain.Answer{Text: degradedAnswer(ranked), UsedDocuments: ranked}, nil
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		log.Warn("Generator returned empty text, answering with degraded response")
		metrics.PipelineFallbacksTotal.WithLabelValues("generation_failed").Inc()
		return domain.Answer{Text: degradedAnswer(ranked), UsedDocuments: ranked}, nil
	}

	return domain.Answer{Text: text, UsedDocuments: ranked}, nil
}

// embedWithRetry calls the embedder, retrying once on transient upstream
// failures with a bounded backoff. Rate limits back off longer but still
// retry at most once.
func (s *Service) embedWithRetry(ctx context.Context, text string) ([]float32, error) {
	var result domain.EmbeddingResult

	err := retry.Do(
		func() error {
			var err error
			result, err = s.embedder.Embed(ctx, text)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(2),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, domain.ErrUpstreamUnavailable) || errors.Is(err, domain.ErrRateLimited)
		}),
		retry.DelayType(func(_ uint, err error, _ *retry.Config) time.Duration {
			if errors.Is(err, domain.ErrRateLimited) {
				return rateLimitRetryDelay
			}
			return embedRetryDelay
		}),
	)
	if err != nil {
		if errors.Is(err, domain.ErrUpstreamUnavailable) || errors.Is(err, domain.ErrRateLimited) {
			return nil, fmt.Errorf("%w: %w", domain.ErrRetrievalUnavailable, err)
		}
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return result.Embedding, nil
}

func (s *Service) retrieve(
	ctx context.Context, vector []float32, filters domain.Filters, threshold float64,
) ([]domain.ScoredDocument, error) {
	start := time.Now()
	docs, err := s.retriever.Retrieve(ctx, vector, retrieval.Options{
		Limit:     s.cfg.RetrievalLimit,
		Threshold: threshold,
		Filters:   filters,
	})
	metrics.PipelineStageDuration.WithLabelValues(string(StageRetrieved)).Observe(time.Since(start).Seconds())
	return docs, err
}

// broadenedThreshold returns the threshold for the second retrieval pass.
func (s *Service) broadenedThreshold() float64 {
	if s.cfg.BroadenedThreshold > 0 && s.cfg.BroadenedThreshold < s.cfg.SimilarityThreshold {
		return s.cfg.BroadenedThreshold
	}
	return s.cfg.SimilarityThreshold
}

// cancelled returns a StageError wrapping ErrCancelled when the failure is a
// caller-initiated cancellation or timeout, nil otherwise.
func (s *Service) cancelled(ctx context.Context, stage Stage, err error) error {
	if ctx.Err() == nil && !errors.Is(err, domain.ErrCancelled) &&
		!errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	cause := err
	if ctx.Err() != nil {
		cause = ctx.Err()
	}
	return &StageError{Stage: stage, Err: fmt.Errorf("%w: %v", domain.ErrCancelled, cause)}
}

// observeStage times a synchronous in-process stage.
func observeStage[T any](stage Stage, fn func() T) T {
	start := time.Now()
	defer func() {
		metrics.PipelineStageDuration.WithLabelValues(string(stage)).Observe(time.Since(start).Seconds())
	}()
	return fn()
}

// degradedAnswer lists the distinct sources of the reranked context in rank
// order. Deterministic for fixed input.
func degradedAnswer(ranked []domain.RankedDocument) string {
	seen := make(map[string]struct{}, len(ranked))
	var sources []string
	for _, d := range ranked {
		src := d.Document().Source()
		if src == "" {
			continue
		}
		if _, ok := seen[src]; ok {
			continue
		}
		seen[src] = struct{}{}
		sources = append(sources, src)
	}
	if len(sources) == 0 {
		return FallbackText
	}
	return degradedPrefix + strings.Join(sources, ", ") + "."
}
