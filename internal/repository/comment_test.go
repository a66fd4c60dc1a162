package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"tourbook/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCommentRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	comment := &models.Comment{Content: "  Lovely trail!  ", PostID: 1, UserID: 1}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "comments"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	err := repo.Create(ctx, comment)
	assert.NoError(t, err)
	assert.Equal(t, "Lovely trail!", comment.Content)
	assert.Equal(t, uint(1), comment.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepository_Create_RejectsEmptyContent(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCommentRepository(db)

	err := repo.Create(context.Background(), &models.Comment{Content: "   ", PostID: 1, UserID: 1})
	assert.True(t, models.HasCode(err, models.CodeValidation))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepository_Create_RejectsCrossPostParent(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCommentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id","post_id" FROM "comments"`) + `.*FOR SHARE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "post_id"}).AddRow(5, 2))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Comment{
		Content:         "reply",
		PostID:          1,
		UserID:          1,
		ParentCommentID: ptr(5),
	})
	assert.True(t, models.HasCode(err, models.CodeValidation))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepository_Create_ReplyLocksParentInInsertTx(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCommentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id","post_id" FROM "comments" WHERE "comments"."id" = $1`) + `.*FOR SHARE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "post_id"}).AddRow(5, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "comments"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(6))
	mock.ExpectCommit()

	reply := &models.Comment{Content: "reply", PostID: 1, UserID: 1, ParentCommentID: ptr(5)}
	require.NoError(t, repo.Create(context.Background(), reply))
	assert.Equal(t, uint(6), reply.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepository_Locking(t *testing.T) {
	db, mock := setupMockDB(t)
	locked := NewCommentRepository(db).Locking(LockUpdate)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "comments" WHERE "comments"."id" = $1`) + `.*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "post_id", "user_id", "content"}).AddRow(1, 1, 10, "root"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "comments" WHERE parent_comment_id IN ($1,$2) ORDER BY created_at ASC, id ASC FOR UPDATE`)).
		WithArgs(1, 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "post_id", "user_id", "parent_comment_id", "content"}).AddRow(3, 1, 11, 1, "reply"))

	root, err := locked.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint(1), root.ID)

	children, err := locked.ListChildren(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, uint(3), children[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepository_ListByPost(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "comments" WHERE post_id = $1 ORDER BY created_at ASC, id ASC`)).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "post_id", "user_id", "parent_comment_id", "content"}).
			AddRow(1, 1, 101, nil, "Comment 1").
			AddRow(2, 1, 102, 1, "Comment 2"))

	comments, err := repo.ListByPost(ctx, 1)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Nil(t, comments[0].ParentCommentID)
	require.NotNil(t, comments[1].ParentCommentID)
	assert.Equal(t, uint(1), *comments[1].ParentCommentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepository_ListByPost_StorageFailure(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCommentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "comments"`)).
		WillReturnError(assert.AnError)

	_, err := repo.ListByPost(context.Background(), 1)
	assert.True(t, models.HasCode(err, models.CodeStorage))
	assert.ErrorIs(t, err, assert.AnError)
}

func TestCommentRepository_ListChildren_EmptyInputSkipsQuery(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCommentRepository(db)

	children, err := repo.ListChildren(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, children)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepository_SQLite(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	root := insertComment(t, db, 1, 10, nil, 0)
	late := insertComment(t, db, 1, 11, &root.ID, 3*time.Minute)
	early := insertComment(t, db, 1, 12, &root.ID, time.Minute)
	nested := insertComment(t, db, 1, 13, &early.ID, 2*time.Minute)
	other := insertComment(t, db, 2, 10, nil, 0)

	t.Run("ListByPost is flat and chronological", func(t *testing.T) {
		comments, err := repo.ListByPost(ctx, 1)
		require.NoError(t, err)
		ids := make([]uint, 0, len(comments))
		for _, c := range comments {
			ids = append(ids, c.ID)
		}
		assert.Equal(t, []uint{root.ID, early.ID, nested.ID, late.ID}, ids)
	})

	t.Run("ListChildren returns direct replies only", func(t *testing.T) {
		children, err := repo.ListChildren(ctx, root.ID)
		require.NoError(t, err)
		require.Len(t, children, 2)
		assert.Equal(t, early.ID, children[0].ID)
		assert.Equal(t, late.ID, children[1].ID)

		level, err := repo.ListChildren(ctx, early.ID, late.ID)
		require.NoError(t, err)
		require.Len(t, level, 1)
		assert.Equal(t, nested.ID, level[0].ID)
	})

	t.Run("locked reads inside a transaction", func(t *testing.T) {
		err := db.Transaction(func(tx *gorm.DB) error {
			locked := repo.WithTx(tx).Locking(LockUpdate)
			got, err := locked.GetByID(ctx, root.ID)
			if err != nil {
				return err
			}
			children, err := locked.ListChildren(ctx, got.ID)
			if err != nil {
				return err
			}
			assert.Len(t, children, 2)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("Create rejects missing parent", func(t *testing.T) {
		err := repo.Create(ctx, &models.Comment{PostID: 1, UserID: 1, Content: "x", ParentCommentID: ptr(9999)})
		assert.True(t, models.HasCode(err, models.CodeValidation))
	})

	t.Run("Create rejects parent from another post", func(t *testing.T) {
		err := repo.Create(ctx, &models.Comment{PostID: 1, UserID: 1, Content: "x", ParentCommentID: &other.ID})
		assert.True(t, models.HasCode(err, models.CodeValidation))
	})

	t.Run("Create accepts reply to reply", func(t *testing.T) {
		reply := &models.Comment{PostID: 1, UserID: 1, Content: "deeper", ParentCommentID: &nested.ID}
		require.NoError(t, repo.Create(ctx, reply))
		assert.NotZero(t, reply.ID)
	})

	t.Run("GetByID missing returns not found", func(t *testing.T) {
		_, err := repo.GetByID(ctx, 424242)
		assert.True(t, models.HasCode(err, models.CodeNotFound))
	})

	t.Run("DeleteMany removes only the given rows", func(t *testing.T) {
		n, err := repo.DeleteMany(ctx, []uint{late.ID, other.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		_, err = repo.GetByID(ctx, late.ID)
		assert.True(t, models.HasCode(err, models.CodeNotFound))
		got, err := repo.GetByID(ctx, root.ID)
		require.NoError(t, err)
		assert.Equal(t, root.ID, got.ID)
	})
}
