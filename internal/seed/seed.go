package seed

import (
	"fmt"
	"log/slog"

	"tourbook/internal/models"
	"tourbook/internal/observability"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers        int
	NumPosts        int
	CommentsPerPost int
	MaxDepth        int
	ReplyChance     int
	ReactionChance  int
	ShouldClean     bool
	Seed            int64
}

// DefaultOptions returns a small but deeply threaded data set.
func DefaultOptions() Options {
	return Options{
		NumUsers:        25,
		NumPosts:        40,
		CommentsPerPost: 30,
		MaxDepth:        6,
		ReplyChance:     65,
		ReactionChance:  15,
		ShouldClean:     true,
		Seed:            42,
	}
}

// Summary reports what Seed created.
type Summary struct {
	Users     int
	Posts     int
	Comments  int
	Reactions int
}

// Seed populates the database with users, posts, comment threads and reactions.
func Seed(db *gorm.DB, opts Options) (*Summary, error) {
	if opts.ShouldClean {
		if err := ClearAll(db); err != nil {
			return nil, fmt.Errorf("clear data: %w", err)
		}
	}

	f := NewFactory(db, opts.Seed)
	summary := &Summary{}

	users, err := f.CreateUsers(opts.NumUsers)
	if err != nil {
		return nil, err
	}
	summary.Users = len(users)

	posts, err := f.CreatePosts(users, opts.NumPosts)
	if err != nil {
		return nil, err
	}
	summary.Posts = len(posts)

	postIDs := make([]uint, 0, len(posts))
	var commentIDs []uint
	for _, p := range posts {
		postIDs = append(postIDs, p.ID)
		thread, err := f.CreateThread(p, users, ThreadOptions{
			Comments:    opts.CommentsPerPost,
			MaxDepth:    opts.MaxDepth,
			ReplyChance: opts.ReplyChance,
		})
		if err != nil {
			return nil, fmt.Errorf("seed thread for post %d: %w", p.ID, err)
		}
		for _, c := range thread {
			commentIDs = append(commentIDs, c.ID)
		}
	}
	summary.Comments = len(commentIDs)

	n, err := f.CreateReactions(users, models.TargetTypePost, postIDs, opts.ReactionChance)
	if err != nil {
		return nil, err
	}
	summary.Reactions += n
	n, err = f.CreateReactions(users, models.TargetTypeComment, commentIDs, opts.ReactionChance)
	if err != nil {
		return nil, err
	}
	summary.Reactions += n

	observability.GlobalLogger.Info("database seeded",
		slog.Int("users", summary.Users),
		slog.Int("posts", summary.Posts),
		slog.Int("comments", summary.Comments),
		slog.Int("reactions", summary.Reactions),
	)
	return summary, nil
}

// ClearAll removes every row the seeder can create, children first.
func ClearAll(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&models.Reaction{}, &models.Comment{}, &models.Post{}, &models.User{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
