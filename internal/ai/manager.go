package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	appErr "github.com/1Kunalvats9/dorry-backend/internal/pkg/errors"
)

const (
	TaskTypeDocument = "RETRIEVAL_DOCUMENT"
	TaskTypeQuery    = "RETRIEVAL_QUERY"
)

type ManagerConfig struct {
	GenerateModel string
	EmbedModel    string
	EmbedDim      int
	Timeout       int
}

// Manager is the single gateway to the generative and embedding models.
// Embeddings go through an expirable LRU so repeated query text is not
// re-embedded on every search.
type Manager struct {
	provider IProvider
	cfg      ManagerConfig
	cache    *expirable.LRU[string, []float32]
}

func NewManager(provider IProvider, cfg ManagerConfig) *Manager {
	cache := expirable.NewLRU[string, []float32](10000, nil, 2*time.Hour)
	return &Manager{provider: provider, cfg: cfg, cache: cache}
}

func (m *Manager) EmbedDim() int {
	return m.cfg.EmbedDim
}

// Embed converts text into a fixed-dimension vector. Provider failures come
// back wrapped in ErrEmbeddingUnavailable carrying the upstream message;
// the orchestration layer decides whether to retry.
func (m *Manager) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	if m.provider == nil {
		return nil, fmt.Errorf("%w: no provider configured", appErr.ErrEmbeddingUnavailable)
	}
	key := m.cacheKey(taskType, text)
	if cached, ok := m.cache.Get(key); ok {
		return cached, nil
	}
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	vec, err := m.provider.Embed(ctx, m.cfg.EmbedModel, text, taskType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", appErr.ErrEmbeddingUnavailable, err)
	}
	if m.cfg.EmbedDim > 0 && len(vec) != m.cfg.EmbedDim {
		return nil, fmt.Errorf("%w: got %d dimensions, want %d", appErr.ErrEmbeddingUnavailable, len(vec), m.cfg.EmbedDim)
	}
	m.cache.Add(key, vec)
	return vec, nil
}

// Generate dispatches a prompt to the generative model. Transient overload
// is distinguished from other failures so callers can treat it as retryable.
func (m *Manager) Generate(ctx context.Context, prompt string) (string, error) {
	if m.provider == nil {
		return "", fmt.Errorf("%w: no provider configured", appErr.ErrGenerationFailed)
	}
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	resp, err := m.provider.Generate(ctx, m.cfg.GenerateModel, prompt)
	if err != nil {
		if isOverloadErr(err) {
			return "", fmt.Errorf("%w: %w: %v", appErr.ErrGenerationFailed, appErr.ErrModelOverloaded, err)
		}
		return "", fmt.Errorf("%w: %v", appErr.ErrGenerationFailed, err)
	}
	text := strings.TrimSpace(resp)
	if text == "" {
		return "", fmt.Errorf("%w: empty response", appErr.ErrGenerationFailed)
	}
	return text, nil
}

func (m *Manager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, time.Duration(m.cfg.Timeout)*time.Second)
	}
	return ctx, func() {}
}

func (m *Manager) cacheKey(taskType, text string) string {
	hash := sha256.Sum256([]byte(text))
	return m.cfg.EmbedModel + ":" + taskType + ":" + hex.EncodeToString(hash[:])
}
