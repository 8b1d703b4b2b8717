package repository

import (
	"context"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsamuels456/unboundedfigures/internal/models"
)

func ids(items []*models.Submission) []uint {
	out := make([]uint, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}

func TestSubmissionRepository_CreateWritesTags(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewSubmissionRepository(db)
	ctx := context.Background()

	content := "Let p be prime."
	submission := &models.Submission{
		Title:      "Primes",
		Content:    &content,
		Tags:       []string{"number-theory", "primes"},
		Category:   models.CategoryUnboundedSpace,
		Visibility: models.VisibilityPublic,
		AuthorID:   3,
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "submissions"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "submission_tags"`)).
		WithArgs(7, "number-theory", 7, "primes").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(ctx, submission))
	assert.Equal(t, uint(7), submission.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepository_CreateRollsBackOnTagFailure(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewSubmissionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "submissions"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(8))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "submission_tags"`)).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Submission{Title: "x", Tags: []string{"a"}, AuthorID: 1})
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, models.StatusFor(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepository_ListPageKeyset(t *testing.T) {
	db := setupSQLite(t)
	repo := NewSubmissionRepository(db)
	ctx := context.Background()

	author := createUser(t, db, "gauss")
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	var created []*models.Submission
	for i := 0; i < 6; i++ {
		created = append(created, createSubmission(t, db, author, "s", base.Add(time.Duration(i)*time.Minute), models.VisibilityPublic))
	}
	// Two rows at the same instant are ordered by id.
	tie := createSubmission(t, db, author, "tie", base.Add(5*time.Minute), models.VisibilityPublic)

	first, err := repo.ListPage(ctx, 0, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint{tie.ID, created[5].ID, created[4].ID}, ids(first))
	assert.Equal(t, "gauss", first[0].Author.Username)

	second, err := repo.ListPage(ctx, 0, first[2].ID, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint{created[3].ID, created[2].ID, created[1].ID}, ids(second))

	tieCursor, err := repo.ListPage(ctx, 0, tie.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint{created[5].ID}, ids(tieCursor))

	unknown, err := repo.ListPage(ctx, 0, 9999, 3)
	require.NoError(t, err)
	assert.Empty(t, unknown)
}

func TestSubmissionRepository_Visibility(t *testing.T) {
	db := setupSQLite(t)
	repo := NewSubmissionRepository(db)
	ctx := context.Background()

	owner := createUser(t, db, "owner")
	other := createUser(t, db, "other")
	now := time.Now().UTC()
	public := createSubmission(t, db, owner, "open", now, models.VisibilityPublic)
	private := createSubmission(t, db, owner, "draft", now.Add(time.Second), models.VisibilityPrivate)

	anon, err := repo.ListPage(ctx, 0, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint{public.ID}, ids(anon))

	stranger, err := repo.ListPage(ctx, other.ID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint{public.ID}, ids(stranger))

	own, err := repo.ListPage(ctx, owner.ID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint{private.ID, public.ID}, ids(own))

	count, err := repo.CountByAuthor(ctx, owner.ID, true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	count, err = repo.CountByAuthor(ctx, owner.ID, false)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestSubmissionRepository_GetByIDCountsComments(t *testing.T) {
	db := setupSQLite(t)
	repo := NewSubmissionRepository(db)
	ctx := context.Background()

	author := createUser(t, db, "euler")
	s := createSubmission(t, db, author, "Bridges", time.Now(), models.VisibilityPublic, "graphs")
	comments := NewCommentRepository(db)
	for _, body := range []string{"nice", "odd degree"} {
		require.NoError(t, comments.Create(ctx, &models.Comment{Content: body, AuthorID: author.ID, SubmissionID: s.ID}))
	}

	got, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.CommentCount)
	assert.Equal(t, []string{"graphs"}, []string(got.Tags))
	assert.Equal(t, "euler", got.Author.Username)

	_, err = repo.GetByID(ctx, 4242)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, models.StatusFor(err))
}

func TestSubmissionRepository_Recommend(t *testing.T) {
	db := setupSQLite(t)
	repo := NewSubmissionRepository(db)
	ctx := context.Background()

	author := createUser(t, db, "riemann")
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	zeta := createSubmission(t, db, author, "zeta", base, models.VisibilityPublic, "analysis")
	seen := createSubmission(t, db, author, "seen", base.Add(time.Minute), models.VisibilityPublic, "analysis")
	createSubmission(t, db, author, "hidden", base.Add(2*time.Minute), models.VisibilityPrivate, "analysis")
	lab := &models.Submission{Title: "lab", Category: models.CategoryProjectLab, Visibility: models.VisibilityPublic, AuthorID: author.ID, CreatedAt: base.Add(3 * time.Minute)}
	require.NoError(t, repo.Create(ctx, lab))
	createSubmission(t, db, author, "unrelated", base.Add(4*time.Minute), models.VisibilityPublic, "topology")

	got, err := repo.Recommend(ctx, []string{"analysis"}, []string{models.CategoryProjectLab}, []uint{seen.ID}, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint{lab.ID, zeta.ID}, ids(got))

	tagsOnly, err := repo.Recommend(ctx, []string{"analysis"}, nil, nil, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint{seen.ID, zeta.ID}, ids(tagsOnly))

	none, err := repo.Recommend(ctx, nil, nil, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSubmissionRepository_RecentPublic(t *testing.T) {
	db := setupSQLite(t)
	repo := NewSubmissionRepository(db)

	author := createUser(t, db, "hilbert")
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	var public []uint
	for i := 0; i < RecentPublicLimit+2; i++ {
		s := createSubmission(t, db, author, "p", base.Add(time.Duration(i)*time.Second), models.VisibilityPublic)
		public = append(public, s.ID)
	}
	createSubmission(t, db, author, "private", base.Add(time.Hour), models.VisibilityPrivate)

	got, err := repo.RecentPublic(context.Background())
	require.NoError(t, err)
	require.Len(t, got, RecentPublicLimit)
	assert.Equal(t, public[len(public)-1], got[0].ID)
	assert.Equal(t, public[2], got[RecentPublicLimit-1].ID)
}
