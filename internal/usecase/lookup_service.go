package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	"github.com/prodlens/backend/internal/domain"
)

const (
	// DefaultConfidenceThreshold gates both the UPC verification and the AI search result
	DefaultConfidenceThreshold = 80

	// DefaultCacheTTL is how long a resolved product stays cached
	DefaultCacheTTL = 24 * time.Hour

	verifiedNotePrefix = "UPC DB match verified against user input by AI. "
)

// validate reports request fields by their query parameter names
var validate = newRequestValidator()

func newRequestValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// LookupServiceConfig holds configuration for the lookup service
type LookupServiceConfig struct {
	ConfidenceThreshold int
	CacheTTL            time.Duration
}

// LookupService resolves a product from the cache, the product store, the UPC database
// and finally an AI web search
type LookupService struct {
	upcClient domain.UPCClient
	aiClient  domain.AIClient
	verifier  *Verifier
	cache     domain.CacheRepository
	store     domain.ProductStore
	queries   *SearchQueryBuilder
	threshold int
	cacheTTL  time.Duration
	group     singleflight.Group
	logger    *slog.Logger
}

// NewLookupService creates a new lookup service. cache and store may be nil.
func NewLookupService(
	upcClient domain.UPCClient,
	aiClient domain.AIClient,
	cache domain.CacheRepository,
	store domain.ProductStore,
	config LookupServiceConfig,
) *LookupService {
	threshold := config.ConfidenceThreshold
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}

	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = DefaultCacheTTL
	}

	return &LookupService{
		upcClient: upcClient,
		aiClient:  aiClient,
		verifier:  NewVerifier(aiClient),
		cache:     cache,
		store:     store,
		queries:   NewSearchQueryBuilder(),
		threshold: threshold,
		cacheTTL:  cacheTTL,
		logger:    slog.Default().With("component", "lookup"),
	}
}

// Threshold returns the confidence a result needs to be accepted
func (s *LookupService) Threshold() int {
	return s.threshold
}

// Lookup resolves a product.
// Flow: cache -> product store -> UPC lookup + AI verification -> AI search -> store -> cache.
// A result that misses the threshold is returned together with domain.ErrLowConfidence.
func (s *LookupService) Lookup(ctx context.Context, request *domain.LookupRequest) (*domain.LookupResult, error) {
	if request == nil {
		return nil, domain.ErrInvalidRequest
	}

	req := normalizeRequest(request)
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}

	cacheKey := productCacheKey(req.UPC)

	if record, ok := s.getFromCache(ctx, cacheKey); ok {
		return &domain.LookupResult{Record: record, Outcome: domain.OutcomeCache}, nil
	}

	if record, ok := s.findStored(ctx, req.UPC); ok {
		s.setInCache(ctx, cacheKey, record)
		return &domain.LookupResult{Record: record, Outcome: domain.OutcomeStore}, nil
	}

	v, err, shared := s.group.Do(flightKey(req), func() (interface{}, error) {
		return s.resolve(context.WithoutCancel(ctx), req, cacheKey)
	})
	if shared {
		s.logger.DebugContext(ctx, "joined in-flight lookup", "upc", req.UPC)
	}

	result, _ := v.(*domain.LookupResult)
	return copyResult(result), err
}

// resolve runs the resolution pipeline and persists an accepted result
func (s *LookupService) resolve(
	ctx context.Context,
	req *domain.LookupRequest,
	cacheKey string,
) (*domain.LookupResult, error) {
	result, err := s.runPipeline(ctx, req)
	if err != nil {
		return result, err
	}

	if s.store != nil {
		toStore := result.Record.Clone()
		toStore.UPC = domain.OptionalString(req.UPC)
		toStore.Brand = domain.OptionalString(req.BrandName)
		toStore.Size = domain.OptionalString(req.Size)
		toStore.Color = domain.OptionalString(req.Color)

		if _, err := s.store.Upsert(ctx, toStore); err != nil {
			return nil, fmt.Errorf("persist product: %w", err)
		}
	}

	s.setInCache(ctx, cacheKey, result.Record)

	return result, nil
}

func (s *LookupService) runPipeline(ctx context.Context, req *domain.LookupRequest) (*domain.LookupResult, error) {
	candidate, err := s.upcClient.Lookup(ctx, req.UPC)
	if err != nil {
		s.logger.WarnContext(ctx, "UPC lookup failed, falling back to AI search",
			"upc", req.UPC, "error", err)
		return s.searchWithAI(ctx, req)
	}

	verification, err := s.verifier.Verify(ctx, req.ProductName, req.BrandName,
		candidate.ProductName, derefString(candidate.Description))
	if err != nil {
		s.logger.WarnContext(ctx, "UPC verification failed, falling back to AI search",
			"upc", req.UPC, "error", err)
		return s.searchWithAI(ctx, req)
	}

	if verification.MatchConfidence < s.threshold {
		s.logger.WarnContext(ctx, "UPC match below threshold, falling back to AI search",
			"upc", req.UPC,
			"confidence", verification.MatchConfidence,
			"threshold", s.threshold)
		return s.searchWithAI(ctx, req)
	}

	candidate.MatchConfidence = verification.MatchConfidence
	candidate.VerificationNotes = domain.StringPtr(verifiedNotePrefix + derefString(verification.VerificationNotes))

	s.logger.InfoContext(ctx, "UPC match verified", "upc", req.UPC, "confidence", verification.MatchConfidence)

	return &domain.LookupResult{Record: candidate, Outcome: domain.OutcomeUPCVerified}, nil
}

func (s *LookupService) searchWithAI(ctx context.Context, req *domain.LookupRequest) (*domain.LookupResult, error) {
	prompt := buildProductSearchPrompt(req, s.queries.Build(req))

	raw, err := s.aiClient.Generate(ctx, prompt, true)
	if err != nil {
		if errors.Is(err, domain.ErrMissingCredential) {
			return nil, err
		}
		s.logger.ErrorContext(ctx, "AI search failed", "upc", req.UPC, "error", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrAISearchFailed, err)
	}

	record, err := decodeProductSearch(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAISearchFailed, err)
	}

	if !record.ExactMatch || record.MatchConfidence < s.threshold {
		s.logger.InfoContext(ctx, "AI search result rejected",
			"upc", req.UPC,
			"exact_match", record.ExactMatch,
			"confidence", record.MatchConfidence)
		return &domain.LookupResult{Record: record, Raw: raw, Outcome: domain.OutcomeRejected}, domain.ErrLowConfidence
	}

	if record.ProductName == "" {
		return nil, fmt.Errorf("%w: %w: accepted product search result has no product_name",
			domain.ErrAISearchFailed, domain.ErrExtraction)
	}

	return &domain.LookupResult{Record: record, Raw: raw, Outcome: domain.OutcomeAISearch}, nil
}

func (s *LookupService) getFromCache(ctx context.Context, key string) (*domain.ProductRecord, bool) {
	if s.cache == nil {
		return nil, false
	}

	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			s.logger.WarnContext(ctx, "cache read failed", "key", key, "error", err)
		}
		return nil, false
	}

	var record domain.ProductRecord
	if err := json.Unmarshal(data, &record); err != nil {
		s.logger.WarnContext(ctx, "discarding unreadable cache entry", "key", key, "error", err)
		return nil, false
	}
	if record.ImageURL == nil {
		record.ImageURL = []string{}
	}

	return &record, true
}

func (s *LookupService) setInCache(ctx context.Context, key string, record *domain.ProductRecord) {
	if s.cache == nil || record == nil {
		return
	}

	data, err := json.Marshal(record)
	if err != nil {
		s.logger.WarnContext(ctx, "cache encode failed", "key", key, "error", err)
		return
	}

	if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
		s.logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}
}

func (s *LookupService) findStored(ctx context.Context, upc string) (*domain.ProductRecord, bool) {
	if s.store == nil {
		return nil, false
	}

	record, err := s.store.FindByUPC(ctx, upc)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "product store read failed", "upc", upc, "error", err)
		}
		return nil, false
	}

	return record, record != nil
}

// normalizeRequest trims every field of a copy of request
func normalizeRequest(request *domain.LookupRequest) *domain.LookupRequest {
	return &domain.LookupRequest{
		ProductName: strings.TrimSpace(request.ProductName),
		BrandName:   strings.TrimSpace(request.BrandName),
		UPC:         strings.TrimSpace(request.UPC),
		Size:        strings.TrimSpace(request.Size),
		Color:       strings.TrimSpace(request.Color),
	}
}

// productCacheKey format: "product:{upc}"
func productCacheKey(upc string) string {
	return "product:" + upc
}

func flightKey(req *domain.LookupRequest) string {
	return strings.ToLower(strings.Join(
		[]string{req.UPC, req.ProductName, req.BrandName, req.Size, req.Color}, "\x1f"))
}

func copyResult(result *domain.LookupResult) *domain.LookupResult {
	if result == nil {
		return nil
	}
	out := &domain.LookupResult{
		Record:  result.Record.Clone(),
		Outcome: result.Outcome,
	}
	if result.Raw != nil {
		out.Raw = append(json.RawMessage(nil), result.Raw...)
	}
	return out
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
