package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tsamuels456/unboundedfigures/internal/database"
	"github.com/tsamuels456/unboundedfigures/internal/models"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

// setupSQLite returns a migrated in-memory database for behavior tests.
func setupSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	sub := "sub_" + username
	user := &models.User{AuthID: &sub, Username: username, DisplayName: username, Role: models.RoleFigure}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createSubmission(t *testing.T, db *gorm.DB, author *models.User, title string, at time.Time, visibility string, tags ...string) *models.Submission {
	t.Helper()
	content := "content of " + title
	s := &models.Submission{
		Title:         title,
		Content:       &content,
		Tags:          tags,
		Category:      models.CategoryUnboundedSpace,
		Visibility:    visibility,
		AllowComments: true,
		AuthorID:      author.ID,
		CreatedAt:     at,
	}
	require.NoError(t, NewSubmissionRepository(db).Create(context.Background(), s))
	return s
}
