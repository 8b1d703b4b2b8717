// Package repository provides data access layer implementations for the application.
package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/tsamuels456/unboundedfigures/internal/database"
	"github.com/tsamuels456/unboundedfigures/internal/models"
)

// pgUniqueViolation is the SQLSTATE PostgreSQL reports for unique index conflicts.
const pgUniqueViolation = "23505"

// withCommentCount selects submission columns plus the number of comments on each row.
const withCommentCount = "submissions.*, (SELECT COUNT(*) FROM comments WHERE comments.submission_id = submissions.id) AS comment_count"

func readDB(primary *gorm.DB) *gorm.DB {
	if db := database.GetReadDB(); db != nil {
		return db
	}
	return primary
}

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	// sqlite reports "UNIQUE constraint failed: ..."
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint")
}

// translate maps ErrRecordNotFound to a NOT_FOUND AppError with msg and wraps anything else as internal.
func translate(err error, msg string) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundMessage(msg)
	}
	return models.NewInternalError(err)
}
