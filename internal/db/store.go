package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"package-dashboard/internal/packages"
)

var _ packages.Store = (*PackageStore)(nil)

// PackageStore keeps packages and their comments in Postgres.
type PackageStore struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewPackageStore(db *sqlx.DB) *PackageStore {
	return &PackageStore{db: db, now: time.Now}
}

var brokenColumns = map[packages.BuildType]string{
	packages.BuildBI:     "bi_broken",
	packages.BuildCI:     "ci_broken",
	packages.BuildImage:  "image_broken",
	packages.BuildBinary: "binary_broken",
	packages.BuildDocker: "docker_broken",
}

func filterClause(f packages.Filter) (string, []any) {
	var conds []string
	var args []any
	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, "%"+q+"%")
		conds = append(conds, fmt.Sprintf("(package_name ilike $%d or owner ilike $%d)", len(args), len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Owner != "" {
		args = append(args, f.Owner)
		conds = append(conds, fmt.Sprintf("owner = $%d", len(args)))
	}
	if col, ok := brokenColumns[f.Broken]; ok {
		conds = append(conds, col)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " where " + strings.Join(conds, " and "), args
}

func (s *PackageStore) List(ctx context.Context, f packages.Filter) ([]packages.Package, int, error) {
	where, args := filterClause(f)

	var total int
	if err := s.db.GetContext(ctx, &total, `select count(1) from packages`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count packages: %w", err)
	}

	q := `select ` + packageColumns + ` from packages` + where + ` order by package_name, id`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" limit $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		q += fmt.Sprintf(" offset $%d", len(args))
	}
	var rows []PackageRow
	if err := s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, 0, fmt.Errorf("list packages: %w", err)
	}

	ids := make([]string, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
	}
	byPkg, err := loadComments(ctx, s.db, ids)
	if err != nil {
		return nil, 0, err
	}
	out := make([]packages.Package, len(rows))
	for i := range rows {
		out[i] = *rows[i].toPackage(byPkg[rows[i].ID])
	}
	return out, total, nil
}

func (s *PackageStore) Get(ctx context.Context, id string) (*packages.Package, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", packages.ErrPackageNotFound, id)
	}
	var row PackageRow
	if err := s.db.GetContext(ctx, &row, `select `+packageColumns+` from packages where id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", packages.ErrPackageNotFound, id)
		}
		return nil, fmt.Errorf("get package %s: %w", id, err)
	}
	byPkg, err := loadComments(ctx, s.db, []string{id})
	if err != nil {
		return nil, err
	}
	return row.toPackage(byPkg[id]), nil
}

func (s *PackageStore) AddComment(ctx context.Context, id string, bt packages.BuildType, author, text string) (*packages.Package, error) {
	return s.mutate(ctx, id, func(tx *sqlx.Tx, p *packages.Package) error {
		c := p.AddComment(bt, author, text, s.now())
		var cid int64
		err := tx.QueryRowxContext(ctx,
			`insert into package_comments(package_id, build_type, author, body, created_at) values($1,$2,$3,$4,$5) returning id`,
			p.ID, string(bt), c.User, c.Text, c.Timestamp).Scan(&cid)
		if err != nil {
			return fmt.Errorf("insert comment: %w", err)
		}
		list := p.Comments[bt]
		list[len(list)-1].ID = cid
		return nil
	})
}

func (s *PackageStore) EditComment(ctx context.Context, id string, bt packages.BuildType, ts time.Time, text string) (*packages.Package, error) {
	return s.mutate(ctx, id, func(tx *sqlx.Tx, p *packages.Package) error {
		c, err := p.EditComment(bt, ts, text)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `update package_comments set body = $1 where id = $2`, c.Text, c.ID); err != nil {
			return fmt.Errorf("update comment: %w", err)
		}
		return nil
	})
}

func (s *PackageStore) DeleteComment(ctx context.Context, id string, bt packages.BuildType, ts time.Time) (*packages.Package, error) {
	return s.mutate(ctx, id, func(tx *sqlx.Tx, p *packages.Package) error {
		removed, err := p.DeleteComment(bt, ts)
		if err != nil {
			return err
		}
		for _, c := range removed {
			if _, err := tx.ExecContext(ctx, `delete from package_comments where id = $1`, c.ID); err != nil {
				return fmt.Errorf("delete comment: %w", err)
			}
		}
		return nil
	})
}

func (s *PackageStore) SetImageSize(ctx context.Context, id, size string) (*packages.Package, error) {
	return s.mutate(ctx, id, func(_ *sqlx.Tx, p *packages.Package) error {
		p.ImageSize = size
		return nil
	})
}

func (s *PackageStore) SetBroken(ctx context.Context, id string, u packages.BrokenUpdate) (*packages.Package, error) {
	return s.mutate(ctx, id, func(_ *sqlx.Tx, p *packages.Package) error {
		p.ApplyBroken(u)
		return nil
	})
}

// ReplaceAll swaps the whole package set for pkgs in one transaction.
func (s *PackageStore) ReplaceAll(ctx context.Context, pkgs []packages.Package) (int, error) {
	now := s.now().UTC()
	err := WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `delete from packages`); err != nil {
			return fmt.Errorf("clear packages: %w", err)
		}
		for i := range pkgs {
			if err := insertPackage(ctx, tx, &pkgs[i], now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(pkgs), nil
}

// mutate loads and locks one package, applies fn, and writes back the package columns.
func (s *PackageStore) mutate(ctx context.Context, id string, fn func(*sqlx.Tx, *packages.Package) error) (*packages.Package, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", packages.ErrPackageNotFound, id)
	}
	var out *packages.Package
	err := WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var row PackageRow
		if err := tx.GetContext(ctx, &row, `select `+packageColumns+` from packages where id = $1 for update`, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: %s", packages.ErrPackageNotFound, id)
			}
			return fmt.Errorf("load package %s: %w", id, err)
		}
		byPkg, err := loadComments(ctx, tx, []string{id})
		if err != nil {
			return err
		}
		p := row.toPackage(byPkg[id])
		if err := fn(tx, p); err != nil {
			return err
		}

		p.UpdatedAt = s.now().UTC()
		text, bt := latestColumns(p)
		_, err = tx.ExecContext(ctx, `update packages set latest_comment = $1, latest_build_type = $2, image_size = $3,
			bi_broken = $4, ci_broken = $5, image_broken = $6, binary_broken = $7, docker_broken = $8, updated_at = $9
			where id = $10`,
			text, bt, p.ImageSize, p.BIBroken, p.CIBroken, p.ImageBroken, p.BinaryBroken, p.DockerBroken, p.UpdatedAt, p.ID)
		if err != nil {
			return fmt.Errorf("update package %s: %w", id, err)
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func loadComments(ctx context.Context, q sqlx.QueryerContext, ids []string) (map[string][]CommentRow, error) {
	out := make(map[string][]CommentRow, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In(`select `+commentColumns+` from package_comments where package_id in (?) order by created_at, id`, ids)
	if err != nil {
		return nil, err
	}
	var rows []CommentRow
	if err := sqlx.SelectContext(ctx, q, &rows, sqlx.Rebind(sqlx.DOLLAR, query), args...); err != nil {
		return nil, fmt.Errorf("load comments: %w", err)
	}
	for _, r := range rows {
		out[r.PackageID] = append(out[r.PackageID], r)
	}
	return out, nil
}

func insertPackage(ctx context.Context, tx *sqlx.Tx, p *packages.Package, now time.Time) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = packages.DefaultStatus
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	p.EnsureComments()
	p.RecomputeLatest()

	text, bt := latestColumns(p)
	_, err := tx.ExecContext(ctx, `insert into packages(`+packageColumns+`)
		values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)`,
		p.ID, p.Name, p.ImageNames, p.BinaryNames, p.DistroSuccess, p.DistroFailure,
		nullTime(p.SuccessTime), nullTime(p.FailureTime), p.Status, p.Owner, p.LegacyComment, text, bt,
		p.BIBroken, p.CIBroken, p.ImageBroken, p.BinaryBroken, p.DockerBroken, p.ImageSize, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert package %q: %w", p.Name, err)
	}
	for _, bt := range packages.BuildTypes {
		list := p.Comments[bt]
		for i := range list {
			err := tx.QueryRowxContext(ctx,
				`insert into package_comments(package_id, build_type, author, body, created_at) values($1,$2,$3,$4,$5) returning id`,
				p.ID, string(bt), list[i].User, list[i].Text, list[i].Timestamp).Scan(&list[i].ID)
			if err != nil {
				return fmt.Errorf("insert comment for %q: %w", p.Name, err)
			}
		}
	}
	return nil
}
