// Package tariff содержит бизнес-логику получения тарифов с кешированием.
// Тарифы — статичные данные для отображения, поэтому их безопасно держать
// в кеше общим для всех пользователей ключом.
package tariff

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/vpn-miniapp/internal/lib/sl"
	"github.com/magabrotheeeer/vpn-miniapp/internal/models"
)

// CacheKey — ключ тарифов в кеше.
const CacheKey = "miniapp:tariffs"

// Source загружает тарифы из API.
type Source interface {
	Tariffs(ctx context.Context) (*models.Tariff, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(ctx context.Context, key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

// Service отдаёт тарифы из кеша или из API.
type Service struct {
	source Source
	cache  Cache
	ttl    time.Duration
	log    *slog.Logger
}

// NewService создает новый экземпляр Service. ttl <= 0 отключает кеш.
func NewService(source Source, cache Cache, ttl time.Duration, log *slog.Logger) *Service {
	return &Service{
		source: source,
		cache:  cache,
		ttl:    ttl,
		log:    log,
	}
}

// Tariffs возвращает тарифы. Ошибки кеша не мешают загрузке из API.
func (s *Service) Tariffs(ctx context.Context) (*models.Tariff, error) {
	const op = "services.tariff.Tariffs"
	log := s.log.With(slog.String("op", op))

	if s.ttl > 0 {
		var cached models.Tariff
		found, err := s.cache.Get(ctx, CacheKey, &cached)
		if err != nil {
			log.Warn("failed to read tariffs from cache", sl.Err(err))
		}
		if found {
			return &cached, nil
		}
	}

	t, err := s.source.Tariffs(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if s.ttl > 0 {
		if err := s.cache.Set(ctx, CacheKey, t, s.ttl); err != nil {
			log.Warn("failed to cache tariffs", sl.Err(err))
		}
	}
	return t, nil
}
