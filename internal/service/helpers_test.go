package service

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"tourbook/internal/models"
	"tourbook/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var t0 = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Post{}, &models.Comment{}, &models.Reaction{}))
	return db
}

func newTestCommentService(db *gorm.DB, opts CommentOptions) *CommentService {
	return NewCommentService(
		db,
		repository.NewCommentRepository(db),
		repository.NewReactionRepository(db),
		repository.NewPostRepository(db),
		repository.NewUserRepository(db),
		opts,
	)
}

func newTestReactionService(db *gorm.DB) *ReactionService {
	return NewReactionService(
		db,
		repository.NewReactionRepository(db),
		repository.NewCommentRepository(db),
		repository.NewPostRepository(db),
	)
}

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, DisplayName: "Display " + username, AvatarURL: "https://img.example/" + username}
	require.NoError(t, db.Create(u).Error)
	return u
}

func createPost(t *testing.T, db *gorm.DB, author *models.User) *models.Post {
	t.Helper()
	p := &models.Post{UserID: author.ID, Title: "Sunrise over the fjord"}
	require.NoError(t, db.Create(p).Error)
	return p
}

func createComment(t *testing.T, db *gorm.DB, post *models.Post, author *models.User, parent *models.Comment, offset time.Duration) *models.Comment {
	t.Helper()
	c := &models.Comment{
		PostID:    post.ID,
		UserID:    author.ID,
		Content:   "comment by " + author.Username,
		CreatedAt: t0.Add(offset),
	}
	if parent != nil {
		c.ParentCommentID = &parent.ID
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

func createReaction(t *testing.T, db *gorm.DB, user *models.User, targetType models.TargetType, targetID uint, rt models.ReactionType) {
	t.Helper()
	require.NoError(t, db.Create(&models.Reaction{
		UserID:       user.ID,
		TargetType:   targetType,
		TargetID:     targetID,
		ReactionType: rt,
		CreatedAt:    t0,
	}).Error)
}

func countRows(t *testing.T, db *gorm.DB, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

func assertAppError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected *models.AppError, got %T", err)
	assert.Equal(t, code, appErr.Code)
}

// reactionRepoStub is a stub for repository.ReactionRepository.
type reactionRepoStub struct {
	countsFn       func(context.Context, models.TargetType, []uint) (map[uint]int64, error)
	countsByTypeFn func(context.Context, models.TargetType, []uint) (map[uint]map[models.ReactionType]int64, error)
	userFn         func(context.Context, models.TargetType, []uint, uint) (map[uint]models.ReactionType, error)
	calls          int
}

func (s *reactionRepoStub) CountsByTarget(ctx context.Context, tt models.TargetType, ids []uint) (map[uint]int64, error) {
	s.calls++
	return s.countsFn(ctx, tt, ids)
}
func (s *reactionRepoStub) CountsByTargetAndType(ctx context.Context, tt models.TargetType, ids []uint) (map[uint]map[models.ReactionType]int64, error) {
	s.calls++
	return s.countsByTypeFn(ctx, tt, ids)
}
func (s *reactionRepoStub) UserReactions(ctx context.Context, tt models.TargetType, ids []uint, userID uint) (map[uint]models.ReactionType, error) {
	s.calls++
	return s.userFn(ctx, tt, ids, userID)
}
func (s *reactionRepoStub) Upsert(context.Context, uint, models.TargetType, uint, models.ReactionType) (*models.Reaction, error) {
	s.calls++
	return nil, errors.New("unexpected upsert")
}
func (s *reactionRepoStub) Remove(context.Context, uint, models.TargetType, uint) error {
	s.calls++
	return errors.New("unexpected remove")
}
func (s *reactionRepoStub) DeleteByTargets(context.Context, models.TargetType, []uint) (int64, error) {
	s.calls++
	return 0, errors.New("unexpected delete")
}
func (s *reactionRepoStub) WithTx(*gorm.DB) repository.ReactionRepository { return s }

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	existsFn func(context.Context, uint) (bool, error)
}

func (s *postRepoStub) Exists(ctx context.Context, id uint) (bool, error) {
	return s.existsFn(ctx, id)
}

func existingPosts(ids ...uint) *postRepoStub {
	return &postRepoStub{existsFn: func(_ context.Context, id uint) (bool, error) {
		return slices.Contains(ids, id), nil
	}}
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn     func(context.Context, *models.Comment) error
	listByPostFn func(context.Context, uint) ([]*models.Comment, error)
}

func (s *commentRepoStub) Create(ctx context.Context, c *models.Comment) error {
	return s.createFn(ctx, c)
}
func (s *commentRepoStub) GetByID(_ context.Context, id uint) (*models.Comment, error) {
	return nil, models.NewNotFoundError("Comment", id)
}
func (s *commentRepoStub) ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	return s.listByPostFn(ctx, postID)
}
func (s *commentRepoStub) ListChildren(context.Context, ...uint) ([]*models.Comment, error) {
	return nil, nil
}
func (s *commentRepoStub) DeleteMany(context.Context, []uint) (int64, error) { return 0, nil }
func (s *commentRepoStub) WithTx(*gorm.DB) repository.CommentRepository { return s }
func (s *commentRepoStub) Locking(string) repository.CommentRepository { return s }

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn:     func(_ context.Context, _ *models.Comment) error { return nil },
		listByPostFn: func(_ context.Context, _ uint) ([]*models.Comment, error) { return nil, nil },
	}
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	calls int
}

func (s *userRepoStub) GetProfiles(context.Context, []uint) (map[uint]models.AuthorProfile, error) {
	s.calls++
	return map[uint]models.AuthorProfile{}, nil
}

// failingCommentRepo fails any bulk delete that includes failOn.
type failingCommentRepo struct {
	repository.CommentRepository
	failOn uint
}

func (r *failingCommentRepo) DeleteMany(ctx context.Context, ids []uint) (int64, error) {
	if slices.Contains(ids, r.failOn) {
		return 0, models.NewStorageError(errors.New("connection reset by peer"), true)
	}
	return r.CommentRepository.DeleteMany(ctx, ids)
}

func (r *failingCommentRepo) WithTx(tx *gorm.DB) repository.CommentRepository {
	return &failingCommentRepo{CommentRepository: r.CommentRepository.WithTx(tx), failOn: r.failOn}
}

func (r *failingCommentRepo) Locking(strength string) repository.CommentRepository {
	return &failingCommentRepo{CommentRepository: r.CommentRepository.Locking(strength), failOn: r.failOn}
}
