package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix  = "user:%d"
	VideoKeyPrefix = "video:%d"
	TagListKey     = "tags:all"
	StatsOverview  = "stats:overview"
	BlacklistKey   = "blacklist:%s"
)

const (
	UserTTL          = 5 * time.Minute
	VideoTTL         = 2 * time.Minute
	TagListTTL       = 10 * time.Minute
	StatsOverviewTTL = time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func VideoKey(videoID uint) string {
	return fmt.Sprintf(VideoKeyPrefix, videoID)
}

// TokenBlacklistKey is the key marking a revoked session token's jti.
func TokenBlacklistKey(jti string) string {
	return fmt.Sprintf(BlacklistKey, jti)
}

func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidateVideo(ctx context.Context, videoID uint) {
	Invalidate(ctx, VideoKey(videoID), StatsOverview)
}

func InvalidateTags(ctx context.Context) {
	Invalidate(ctx, TagListKey)
}
