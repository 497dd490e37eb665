package db

import (
	"database/sql"
	"time"

	"package-dashboard/internal/packages"
)

const packageColumns = `id, package_name, image_names, binary_names, distro_success, distro_failure,
	success_time, failure_time, status, owner, legacy_comment, latest_comment, latest_build_type,
	bi_broken, ci_broken, image_broken, binary_broken, docker_broken, image_size, created_at, updated_at`

const commentColumns = `id, package_id, build_type, author, body, created_at`

type PackageRow struct {
	ID              string         `db:"id"`
	PackageName     string         `db:"package_name"`
	ImageNames      string         `db:"image_names"`
	BinaryNames     string         `db:"binary_names"`
	DistroSuccess   string         `db:"distro_success"`
	DistroFailure   string         `db:"distro_failure"`
	SuccessTime     sql.NullTime   `db:"success_time"`
	FailureTime     sql.NullTime   `db:"failure_time"`
	Status          string         `db:"status"`
	Owner           string         `db:"owner"`
	LegacyComment   string         `db:"legacy_comment"`
	LatestComment   sql.NullString `db:"latest_comment"`
	LatestBuildType sql.NullString `db:"latest_build_type"`
	BIBroken        bool           `db:"bi_broken"`
	CIBroken        bool           `db:"ci_broken"`
	ImageBroken     bool           `db:"image_broken"`
	BinaryBroken    bool           `db:"binary_broken"`
	DockerBroken    bool           `db:"docker_broken"`
	ImageSize       string         `db:"image_size"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

type CommentRow struct {
	ID        int64     `db:"id"`
	PackageID string    `db:"package_id"`
	BuildType string    `db:"build_type"`
	Author    string    `db:"author"`
	Body      string    `db:"body"`
	CreatedAt time.Time `db:"created_at"`
}

func (r *PackageRow) toPackage(comments []CommentRow) *packages.Package {
	p := &packages.Package{
		ID:            r.ID,
		Name:          r.PackageName,
		ImageNames:    r.ImageNames,
		BinaryNames:   r.BinaryNames,
		DistroSuccess: r.DistroSuccess,
		DistroFailure: r.DistroFailure,
		Status:        r.Status,
		Owner:         r.Owner,
		LegacyComment: r.LegacyComment,
		BIBroken:      r.BIBroken,
		CIBroken:      r.CIBroken,
		ImageBroken:   r.ImageBroken,
		BinaryBroken:  r.BinaryBroken,
		DockerBroken:  r.DockerBroken,
		ImageSize:     r.ImageSize,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		Comments:      packages.NewComments(),
	}
	if r.SuccessTime.Valid {
		t := r.SuccessTime.Time
		p.SuccessTime = &t
	}
	if r.FailureTime.Valid {
		t := r.FailureTime.Time
		p.FailureTime = &t
	}
	if r.LatestComment.Valid {
		s := r.LatestComment.String
		p.LatestComment = &s
	}
	if r.LatestBuildType.Valid {
		bt := packages.BuildType(r.LatestBuildType.String)
		p.LatestBuildType = &bt
	}
	for _, c := range comments {
		bt := packages.BuildType(c.BuildType)
		p.Comments[bt] = append(p.Comments[bt], packages.Comment{
			ID:        c.ID,
			User:      c.Author,
			Text:      c.Body,
			Timestamp: c.CreatedAt.UTC(),
		})
	}
	return p
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func latestColumns(p *packages.Package) (sql.NullString, sql.NullString) {
	var text, bt sql.NullString
	if p.LatestComment != nil {
		text = sql.NullString{String: *p.LatestComment, Valid: true}
	}
	if p.LatestBuildType != nil {
		bt = sql.NullString{String: string(*p.LatestBuildType), Valid: true}
	}
	return text, bt
}
