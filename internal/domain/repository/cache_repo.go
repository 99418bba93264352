package repository

import (
	"context"
	"time"
)

// CacheRepository определяет методы для работы с кешем
type CacheRepository interface {
	// DeleteIfEquals удаляет ключ, только если его значение равно value
	DeleteIfEquals(ctx context.Context, key string, value string) (bool, error)
	// DeleteByPrefix удаляет все ключи, начинающиеся с prefix
	DeleteByPrefix(ctx context.Context, prefix string) (int64, error)
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	// GetJSON возвращает apperrors.ErrNotFound, если ключ отсутствует
	GetJSON(ctx context.Context, key string, dest interface{}) error
	// SetNX используется как распределенная блокировка прогона квалификации
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
}
