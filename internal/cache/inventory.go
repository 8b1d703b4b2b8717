package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	SubmissionKeyPrefix = "submission:%d"
	ProfileKeyPrefix    = "profile:%s"
	UserKeyPrefix       = "user:%d"
	RecentPublicKey     = "submissions:recent_public"
	WSTicketKeyPrefix   = "ws_ticket:%s"
)

const (
	SubmissionTTL   = 10 * time.Minute
	ProfileTTL      = 60 * time.Second
	UserTTL         = 5 * time.Minute
	RecentPublicTTL = 30 * time.Second
	WSTicketTTL     = 30 * time.Second
)

func SubmissionKey(id uint) string {
	return fmt.Sprintf(SubmissionKeyPrefix, id)
}

// ProfileKey is keyed by username since public profiles are looked up by it.
func ProfileKey(username string) string {
	return fmt.Sprintf(ProfileKeyPrefix, username)
}

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func WSTicketKey(ticket string) string {
	return fmt.Sprintf(WSTicketKeyPrefix, ticket)
}

func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

func InvalidateSubmission(ctx context.Context, id uint) {
	Invalidate(ctx, SubmissionKey(id), RecentPublicKey)
}

func InvalidateProfile(ctx context.Context, usernames ...string) {
	keys := make([]string, 0, len(usernames))
	for _, u := range usernames {
		if u != "" {
			keys = append(keys, ProfileKey(u))
		}
	}
	Invalidate(ctx, keys...)
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}
