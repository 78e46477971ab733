package repository

import (
	"encoding/json"
	"fmt"

	"aperture_studio/internal/domain/models"
	"aperture_studio/internal/storage"
	redisapp "aperture_studio/internal/storage/redis"

	"github.com/redis/go-redis/v9"

	"context"
	"time"
)

// RedisProgressRepo хранит ход сборки архива с TTL: запись живет,
// пока клиент может опрашивать статус
type RedisProgressRepo struct {
	Client *redisapp.Client
}

func NewRedisProgressRepo(client *redisapp.Client) *RedisProgressRepo {
	return &RedisProgressRepo{Client: client}
}

func (r *RedisProgressRepo) SaveProgress(ctx context.Context, progress models.ArchiveProgress, ttl time.Duration) error {
	const op = "repository.progress_repository.SaveProgress"

	raw, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := r.Client.Set(ctx, progressKey(progress.JobID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *RedisProgressRepo) GetProgress(ctx context.Context, jobID string) (models.ArchiveProgress, error) {
	const op = "repository.progress_repository.GetProgress"

	raw, err := r.Client.Get(ctx, progressKey(jobID)).Bytes()
	if err == redis.Nil {
		return models.ArchiveProgress{}, fmt.Errorf("%s: %w", op, storage.ErrProgressNotFound)
	}
	if err != nil {
		return models.ArchiveProgress{}, fmt.Errorf("%s: %w", op, err)
	}

	var progress models.ArchiveProgress
	if err := json.Unmarshal(raw, &progress); err != nil {
		return models.ArchiveProgress{}, fmt.Errorf("%s: %w", op, err)
	}

	return progress, nil
}

func progressKey(jobID string) string {
	return "archive:progress:" + jobID
}
