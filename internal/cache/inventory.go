package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	CommentTreeKeyPrefix           = "post:%d:comment_tree:g%d"
	CommentTreeGenerationKeyPrefix = "post:%d:comment_tree_gen"
)

// CommentTreeKey is where the anonymous comment tree of a post is cached for
// one generation.
func CommentTreeKey(postID uint, generation int64) string {
	return fmt.Sprintf(CommentTreeKeyPrefix, postID, generation)
}

// CommentTreeGenerationKey holds the counter writers bump after each commit
// that changes a post's comment tree.
func CommentTreeGenerationKey(postID uint) string {
	return fmt.Sprintf(CommentTreeGenerationKeyPrefix, postID)
}

// CommentTreeGeneration returns the post's current tree generation, 0 when
// none was ever bumped or Redis is not configured.
func CommentTreeGeneration(ctx context.Context, postID uint) (int64, error) {
	if client == nil {
		return 0, nil
	}
	gen, err := client.Get(ctx, CommentTreeGenerationKey(postID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

// InvalidateCommentTree moves the post to a new tree generation. A reader that
// built its tree before the bump stores it under the old generation's key,
// which no later lookup reads.
func InvalidateCommentTree(ctx context.Context, postID uint) {
	if client == nil {
		return
	}
	gen, err := client.Incr(ctx, CommentTreeGenerationKey(postID)).Result()
	if err != nil {
		return
	}
	Invalidate(ctx, CommentTreeKey(postID, gen-1))
}
