package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Geometrically/fabricate/internal/models"
)

const (
	ProjectKeyPrefix     = "project:%s"
	ProjectSlugKeyPrefix = "project:slug:%s"
	VersionKeyPrefix     = "version:%s"
	UserKeyPrefix        = "user:%s"
)

const (
	ProjectTTL = 10 * time.Minute
	VersionTTL = 10 * time.Minute
	UserTTL    = 5 * time.Minute
)

func ProjectKey(projectID models.ID) string {
	return fmt.Sprintf(ProjectKeyPrefix, projectID.Base62())
}

func ProjectSlugKey(slug string) string {
	return fmt.Sprintf(ProjectSlugKeyPrefix, slug)
}

func VersionKey(versionID models.ID) string {
	return fmt.Sprintf(VersionKeyPrefix, versionID.Base62())
}

func UserKey(userID models.ID) string {
	return fmt.Sprintf(UserKeyPrefix, userID.Base62())
}

// Get loads a cached JSON value into dest. The bool reports a hit; cache
// errors degrade to a miss.
func Get(ctx context.Context, key string, dest interface{}) bool {
	if client == nil {
		return false
	}
	raw, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}

// Set stores a JSON value with the given TTL. Failures are silent: the cache
// is an optimization, never a source of truth.
func Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if client == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	client.Set(ctx, key, raw, ttl)
}

// Aside is the cache-aside read path: return the cached value when present,
// otherwise run load and store its result.
func Aside(ctx context.Context, key string, dest interface{}, ttl time.Duration, load func() error) error {
	if Get(ctx, key, dest) {
		return nil
	}
	if err := load(); err != nil {
		return err
	}
	Set(ctx, key, dest, ttl)
	return nil
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateProject(ctx context.Context, projectID models.ID, slug *string) {
	Invalidate(ctx, ProjectKey(projectID))
	if slug != nil {
		Invalidate(ctx, ProjectSlugKey(*slug))
	}
}

func InvalidateVersion(ctx context.Context, versionID models.ID) {
	Invalidate(ctx, VersionKey(versionID))
}

func InvalidateUser(ctx context.Context, userID models.ID) {
	Invalidate(ctx, UserKey(userID))
}
