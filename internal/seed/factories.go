// Package seed provides helpers to create demo and test data for the
// comment engine. These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"strings"
	"time"

	"tourbook/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

var destinations = []string{
	"Lisbon", "Kyoto", "Cusco", "Reykjavik", "Zanzibar", "Hoi An", "Dubrovnik",
	"Queenstown", "Marrakesh", "Banff", "Cappadocia", "Tromsø", "Valparaíso",
}

// Factory builds domain entities and persists them to the database.
// A fixed seed makes the generated data reproducible.
type Factory struct {
	db    *gorm.DB
	faker *gofakeit.Faker
	now   time.Time
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, seed int64) *Factory {
	return &Factory{db: db, faker: gofakeit.New(seed), now: time.Now().UTC()}
}

// CreateUsers persists count users with unique usernames.
func (f *Factory) CreateUsers(count int) ([]models.User, error) {
	users := make([]models.User, 0, count)
	for i := 0; i < count; i++ {
		first, last := f.faker.FirstName(), f.faker.LastName()
		users = append(users, models.User{
			Username:    fmt.Sprintf("%s_%s%d", strings.ToLower(first), strings.ToLower(last), i),
			DisplayName: first + " " + last,
			AvatarURL:   fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.faker.UUID()),
		})
	}
	if len(users) == 0 {
		return users, nil
	}
	if err := f.db.CreateInBatches(&users, 100).Error; err != nil {
		return nil, fmt.Errorf("create users: %w", err)
	}
	return users, nil
}

// CreatePosts persists count travel posts authored by random users.
func (f *Factory) CreatePosts(users []models.User, count int) ([]models.Post, error) {
	if len(users) == 0 || count == 0 {
		return nil, nil
	}
	posts := make([]models.Post, 0, count)
	for i := 0; i < count; i++ {
		author := users[f.faker.Number(0, len(users)-1)]
		posts = append(posts, models.Post{
			UserID:    author.ID,
			Title:     fmt.Sprintf("%s in %s", f.faker.Adjective(), f.faker.RandomString(destinations)),
			CreatedAt: f.now.Add(-time.Duration(f.faker.Number(24, 24*90)) * time.Hour),
		})
	}
	if err := f.db.CreateInBatches(&posts, 100).Error; err != nil {
		return nil, fmt.Errorf("create posts: %w", err)
	}
	return posts, nil
}

// ThreadOptions shapes a generated comment thread.
type ThreadOptions struct {
	Comments int
	// MaxDepth is the deepest reply level; 0 makes every comment top-level.
	MaxDepth int
	// ReplyChance is the percentage of comments that answer an earlier one.
	ReplyChance int
}

// CreateThread persists a comment thread on post. Replies always point at an
// earlier comment of the same post and are created after their parent.
func (f *Factory) CreateThread(post models.Post, users []models.User, opts ThreadOptions) ([]models.Comment, error) {
	if len(users) == 0 || opts.Comments == 0 {
		return nil, nil
	}

	comments := make([]models.Comment, 0, opts.Comments)
	depth := make(map[uint]int, opts.Comments)
	at := post.CreatedAt

	err := f.db.Transaction(func(tx *gorm.DB) error {
		for i := 0; i < opts.Comments; i++ {
			at = at.Add(time.Duration(f.faker.Number(1, 180)) * time.Minute)
			c := models.Comment{
				PostID:    post.ID,
				UserID:    users[f.faker.Number(0, len(users)-1)].ID,
				Content:   f.faker.Sentence(f.faker.Number(4, 18)),
				CreatedAt: at,
			}
			if f.faker.Number(0, 9) == 0 {
				c.Image = fmt.Sprintf("https://picsum.photos/seed/%s/800/600", f.faker.UUID())
			}

			if len(comments) > 0 && f.faker.Number(1, 100) <= opts.ReplyChance {
				parent := comments[f.faker.Number(0, len(comments)-1)]
				if depth[parent.ID] < opts.MaxDepth {
					c.ParentCommentID = &parent.ID
				}
			}

			if err := tx.Create(&c).Error; err != nil {
				return fmt.Errorf("create comment: %w", err)
			}
			if c.ParentCommentID != nil {
				depth[c.ID] = depth[*c.ParentCommentID] + 1
			}
			comments = append(comments, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// CreateReactions gives each user a chance percent probability of reacting
// to each target. A user reacts at most once per target.
func (f *Factory) CreateReactions(users []models.User, targetType models.TargetType, targetIDs []uint, chance int) (int, error) {
	var reactions []models.Reaction
	for _, id := range targetIDs {
		for _, u := range users {
			if f.faker.Number(1, 100) > chance {
				continue
			}
			reactions = append(reactions, models.Reaction{
				UserID:       u.ID,
				TargetType:   targetType,
				TargetID:     id,
				ReactionType: models.ReactionTypes[f.faker.Number(0, len(models.ReactionTypes)-1)],
				CreatedAt:    f.now,
			})
		}
	}
	if len(reactions) == 0 {
		return 0, nil
	}
	if err := f.db.CreateInBatches(&reactions, 500).Error; err != nil {
		return 0, fmt.Errorf("create reactions: %w", err)
	}
	return len(reactions), nil
}
