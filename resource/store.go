package resource

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nrebei2/lunarhaze/cache"
	"github.com/nrebei2/lunarhaze/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	levelKeyPrefix = "level:"
	levelNamesKey  = "levels"
)

// LevelInfo is the catalog entry of a stored level.
type LevelInfo struct {
	Name      string    `json:"name"`
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is the level catalog: levels live in the database and are cached
// in their JSON form.
type Store struct {
	db     *gorm.DB
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewStore creates a Store. A nil cache disables caching.
func NewStore(db *gorm.DB, c cache.Cache, ttl time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, cache: c, ttl: ttl, logger: logger}
}

func levelKey(name string) string { return levelKeyPrefix + name }

// Seed inserts levels that are not stored yet. Stored levels win over files
// so edits made through the API survive a restart.
func (s *Store) Seed(ctx context.Context, levels []*Level) (int, error) {
	added := 0
	for _, lvl := range levels {
		var n int64
		if err := s.db.WithContext(ctx).Model(&model.Level{}).Where("name = ?", lvl.Name()).Count(&n).Error; err != nil {
			return added, fmt.Errorf("resource: seed %s: %w", lvl.Name(), err)
		}
		if n > 0 {
			continue
		}
		if err := s.Put(ctx, lvl); err != nil {
			return added, err
		}
		added++
	}
	s.logger.Info("levels seeded", zap.Int("added", added), zap.Int("files", len(levels)))
	return added, nil
}

// Put stores lvl, replacing any level with the same name and bumping its version.
func (s *Store) Put(ctx context.Context, lvl *Level) error {
	body, err := lvl.Encode()
	if err != nil {
		return fmt.Errorf("resource: encode %s: %w", lvl.Name(), err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row model.Level
		err := tx.Where("name = ?", lvl.Name()).First(&row).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&model.Level{Name: lvl.Name(), Body: datatypes.JSON(body), Version: 1}).Error
		case err != nil:
			return err
		}
		return tx.Model(&row).Updates(map[string]interface{}{
			"body":    datatypes.JSON(body),
			"version": row.Version + 1,
		}).Error
	})
	if err != nil {
		return fmt.Errorf("resource: put %s: %w", lvl.Name(), err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, levelKey(lvl.Name()), string(body), s.ttl); err != nil {
			s.logger.Warn("level cache set failed", zap.String("name", lvl.Name()), zap.Error(err))
		}
		_ = s.cache.SAdd(ctx, levelNamesKey, lvl.Name())
	}
	return nil
}

// Get returns the named level, from the cache when possible.
func (s *Store) Get(ctx context.Context, name string) (*Level, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, levelKey(name))
		if err == nil {
			if lvl, perr := ParseLevel([]byte(raw), FormatJSON); perr == nil {
				return lvl, nil
			}
			s.logger.Warn("dropping corrupt cached level", zap.String("name", name))
			_ = s.cache.Del(ctx, levelKey(name))
		} else if !cache.IsNotFound(err) {
			s.logger.Warn("level cache get failed", zap.String("name", name), zap.Error(err))
		}
	}

	var row model.Level
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrLevelNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("resource: get %s: %w", name, err)
	}
	lvl, err := ParseLevel(row.Body, FormatJSON)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, levelKey(name), string(row.Body), s.ttl)
	}
	return lvl, nil
}

// Delete removes the named level.
func (s *Store) Delete(ctx context.Context, name string) error {
	res := s.db.WithContext(ctx).Where("name = ?", name).Delete(&model.Level{})
	if res.Error != nil {
		return fmt.Errorf("resource: delete %s: %w", name, res.Error)
	}
	if s.cache != nil {
		_ = s.cache.Del(ctx, levelKey(name))
		_ = s.cache.SRem(ctx, levelNamesKey, name)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrLevelNotFound, name)
	}
	return nil
}

// List returns the catalog sorted by name.
func (s *Store) List(ctx context.Context) ([]LevelInfo, error) {
	var rows []model.Level
	if err := s.db.WithContext(ctx).Select("name", "version", "updated_at").Order("name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("resource: list levels: %w", err)
	}
	out := make([]LevelInfo, len(rows))
	for i, r := range rows {
		out[i] = LevelInfo{Name: r.Name, Version: r.Version, UpdatedAt: r.UpdatedAt}
	}
	return out, nil
}

// Names returns the cached set of level names, falling back to the database.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	if s.cache != nil {
		if names, err := s.cache.SMembers(ctx, levelNamesKey); err == nil && len(names) > 0 {
			return names, nil
		}
	}
	infos, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
	}
	return names, nil
}
