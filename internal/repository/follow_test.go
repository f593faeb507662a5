package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestFollowRepository_FollowingIDs(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()

	rows := sqlmock.NewRows([]string{"following_id"}).AddRow(2).AddRow(5).AddRow(9)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "following_id" FROM "follows" WHERE follower_id = $1`)).
		WithArgs(1).
		WillReturnRows(rows)

	ids, err := repo.FollowingIDs(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, []uint{2, 5, 9}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFollowRepository_IsFollowing(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "follows" WHERE follower_id = $1 AND following_id = $2`)).
		WithArgs(1, 2).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	following, err := repo.IsFollowing(ctx, 1, 2)
	assert.NoError(t, err)
	assert.True(t, following)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFollowRepository_SelfFollowRejected(t *testing.T) {
	db, _ := setupMockDB(t)
	repo := NewFollowRepository(db)

	err := repo.Follow(context.Background(), 3, 3)
	assert.Error(t, err)
}

func TestFollowRepository_DuplicateFollowIsIdempotent(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "follows"`).
		WillReturnError(errors.New(`ERROR: duplicate key value violates unique constraint "idx_follow_pair" (SQLSTATE 23505)`))
	mock.ExpectRollback()

	err := repo.Follow(ctx, 1, 2)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBlockRepository_BlockerIDsOf(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewBlockRepository(db)
	ctx := context.Background()

	rows := sqlmock.NewRows([]string{"blocker_id"}).AddRow(4).AddRow(8)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "blocker_id" FROM "blocks" WHERE blocked_id = $1`)).
		WithArgs(1).
		WillReturnRows(rows)

	ids, err := repo.BlockerIDsOf(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, []uint{4, 8}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBlockRepository_SelfBlockRejected(t *testing.T) {
	db, _ := setupMockDB(t)
	repo := NewBlockRepository(db)

	err := repo.Block(context.Background(), 3, 3)
	assert.Error(t, err)
}
