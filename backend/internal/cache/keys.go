package cache

import (
	"fmt"

	"community-service/backend/internal/repo"
)

// The {} hash tag keeps every key of one post (or one user) in the same cluster
// slot, so multi-key commands and Lua scripts stay legal on a Redis cluster.
// e.g. PostCounter:{postID:100}:likes -> slot of "postID:100"
const (
	PostCounterKey  = "PostCounter:{postID:%d}:%s"
	PostEpochKey    = "PostCounter:{postID:%d}:epoch"
	UserStoreKey    = "Store:{userID:%d}"
	UserEpochKey    = "Store:{userID:%d}:epoch"
	CatalogKey      = "Store:{catalog}"
	CatalogEpochKey = "Store:{catalog}:epoch"
)

func GetPostCounterKey(postID uint64, field repo.CounterField) string {
	return fmt.Sprintf(PostCounterKey, postID, field)
}

func GetPostEpochKey(postID uint64) string { return fmt.Sprintf(PostEpochKey, postID) }

func GetUserStoreKey(userID uint64) string { return fmt.Sprintf(UserStoreKey, userID) }

func GetUserEpochKey(userID uint64) string { return fmt.Sprintf(UserEpochKey, userID) }

func postCounterKeys(postID uint64) []string {
	fields := []repo.CounterField{repo.CounterLikes, repo.CounterBookmarks, repo.CounterComments, repo.CounterViews}
	keys := make([]string, 0, len(fields))
	for _, f := range fields {
		keys = append(keys, GetPostCounterKey(postID, f))
	}
	return keys
}
