package db

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"package-dashboard/internal/packages"
)

const pkgID = "7d3c5f0e-2b1a-4c8e-9f3d-0a1b2c3d4e5f"

var (
	fixedNow = time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)

	packageCols = []string{"id", "package_name", "image_names", "binary_names", "distro_success", "distro_failure",
		"success_time", "failure_time", "status", "owner", "legacy_comment", "latest_comment", "latest_build_type",
		"bi_broken", "ci_broken", "image_broken", "binary_broken", "docker_broken", "image_size", "created_at", "updated_at"}
	commentCols = []string{"id", "package_id", "build_type", "author", "body", "created_at"}
)

func newMockStore(t *testing.T) (*PackageStore, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	s := NewPackageStore(sqlx.NewDb(mockDB, "pgx"))
	s.now = func() time.Time { return fixedNow }
	return s, mock
}

func packageRows(latest any, latestType any) *sqlmock.Rows {
	return sqlmock.NewRows(packageCols).AddRow(pkgID, "zlib", "zlib:1.3", "libz.so", "fedora", "", nil, nil,
		"Empty", "alice", "", latest, latestType, false, true, false, false, false, "", fixedNow, fixedNow)
}

func q(s string) string { return regexp.QuoteMeta(s) }

func TestGetMalformedID(t *testing.T) {
	s, mock := newMockStore(t)

	_, err := s.Get(context.Background(), "not-a-uuid")
	assert.True(t, errors.Is(err, packages.ErrPackageNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(q("from packages where id = $1")).WithArgs(pkgID).
		WillReturnRows(sqlmock.NewRows(packageCols))

	_, err := s.Get(context.Background(), pkgID)
	assert.True(t, errors.Is(err, packages.ErrPackageNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLoadsComments(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(q("from packages where id = $1")).WithArgs(pkgID).
		WillReturnRows(packageRows("flaky", "CI"))
	mock.ExpectQuery(q("from package_comments where package_id in ($1)")).WithArgs(pkgID).
		WillReturnRows(sqlmock.NewRows(commentCols).
			AddRow(int64(1), pkgID, "BI", "Current User", "old", fixedNow.Add(-time.Hour)).
			AddRow(int64(2), pkgID, "CI", "Current User", "flaky", fixedNow))

	p, err := s.Get(context.Background(), pkgID)
	require.NoError(t, err)
	assert.Equal(t, "zlib", p.Name)
	assert.True(t, p.CIBroken)
	require.Len(t, p.Comments[packages.BuildBI], 1)
	require.Len(t, p.Comments[packages.BuildCI], 1)
	assert.Empty(t, p.Comments[packages.BuildDocker])
	assert.Equal(t, int64(2), p.Comments[packages.BuildCI][0].ID)
	assert.Equal(t, "CI: flaky", packages.Summary(p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddCommentRunsInTransaction(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(q("from packages where id = $1 for update")).WithArgs(pkgID).
		WillReturnRows(packageRows(nil, nil))
	mock.ExpectQuery(q("from package_comments where package_id in ($1)")).WithArgs(pkgID).
		WillReturnRows(sqlmock.NewRows(commentCols))
	mock.ExpectQuery(q("insert into package_comments")).
		WithArgs(pkgID, "Docker", packages.DefaultAuthor, "image push failed", fixedNow).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectExec(q("update packages set latest_comment = $1")).
		WithArgs("image push failed", "Docker", "", false, true, false, false, false, fixedNow, pkgID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	p, err := s.AddComment(context.Background(), pkgID, packages.BuildDocker, "", "image push failed")
	require.NoError(t, err)
	require.Len(t, p.Comments[packages.BuildDocker], 1)
	assert.Equal(t, int64(42), p.Comments[packages.BuildDocker][0].ID)
	assert.Equal(t, "Docker: image push failed", packages.Summary(p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEditMissingCommentRollsBack(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(q("for update")).WithArgs(pkgID).WillReturnRows(packageRows(nil, nil))
	mock.ExpectQuery(q("from package_comments")).WithArgs(pkgID).
		WillReturnRows(sqlmock.NewRows(commentCols))
	mock.ExpectRollback()

	_, err := s.EditComment(context.Background(), pkgID, packages.BuildBI, fixedNow, "x")
	assert.True(t, errors.Is(err, packages.ErrCommentNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteCommentRecomputesLatest(t *testing.T) {
	s, mock := newMockStore(t)
	older := fixedNow.Add(-2 * time.Hour)
	mock.ExpectBegin()
	mock.ExpectQuery(q("for update")).WithArgs(pkgID).WillReturnRows(packageRows("newest", "Image"))
	mock.ExpectQuery(q("from package_comments")).WithArgs(pkgID).
		WillReturnRows(sqlmock.NewRows(commentCols).
			AddRow(int64(3), pkgID, "BI", "Current User", "older", older).
			AddRow(int64(4), pkgID, "Image", "Current User", "newest", fixedNow))
	mock.ExpectExec(q("delete from package_comments where id = $1")).WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("update packages set latest_comment = $1")).
		WithArgs("older", "BI", "", false, true, false, false, false, fixedNow, pkgID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	p, err := s.DeleteComment(context.Background(), pkgID, packages.BuildImage, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "BI: older", packages.Summary(p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetBrokenWritesFlags(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(q("for update")).WithArgs(pkgID).WillReturnRows(packageRows(nil, nil))
	mock.ExpectQuery(q("from package_comments")).WithArgs(pkgID).
		WillReturnRows(sqlmock.NewRows(commentCols))
	mock.ExpectExec(q("update packages set")).
		WithArgs(nil, nil, "", true, false, false, false, true, fixedNow, pkgID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	p, err := s.SetBroken(context.Background(), pkgID,
		packages.BrokenUpdate{packages.BuildBI: true, packages.BuildCI: false, packages.BuildDocker: true})
	require.NoError(t, err)
	assert.True(t, p.BIBroken)
	assert.False(t, p.CIBroken)
	assert.True(t, p.DockerBroken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAppliesFilter(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(q("select count(1) from packages where (package_name ilike $1 or owner ilike $1) and status = $2 and ci_broken")).
		WithArgs("%zl%", "Empty").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(q("order by package_name, id limit $3 offset $4")).
		WithArgs("%zl%", "Empty", 10, 20).
		WillReturnRows(packageRows(nil, nil))
	mock.ExpectQuery(q("from package_comments where package_id in ($1)")).WithArgs(pkgID).
		WillReturnRows(sqlmock.NewRows(commentCols))

	out, total, err := s.List(context.Background(), packages.Filter{
		Query: "zl", Status: "Empty", Broken: packages.BuildCI, Limit: 10, Offset: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, out, 1)
	assert.Len(t, out[0].Comments, len(packages.BuildTypes))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceAllInsertsPackagesAndComments(t *testing.T) {
	s, mock := newMockStore(t)
	ts := fixedNow.Add(-time.Minute)
	pkgs := []packages.Package{{
		ID:   pkgID,
		Name: "openssl",
		Comments: packages.Comments{
			packages.BuildCI: {{User: "bot", Text: "tests red", Timestamp: ts}},
		},
	}}

	mock.ExpectBegin()
	mock.ExpectExec(q("delete from packages")).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(q("insert into packages(")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(q("insert into package_comments")).
		WithArgs(pkgID, "CI", "bot", "tests red", ts).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(9)))
	mock.ExpectCommit()

	n, err := s.ReplaceAll(context.Background(), pkgs)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, packages.DefaultStatus, pkgs[0].Status)
	assert.Equal(t, "CI: tests red", packages.Summary(&pkgs[0]))
	assert.Equal(t, int64(9), pkgs[0].Comments[packages.BuildCI][0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
