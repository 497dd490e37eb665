package packages

import (
	"context"
	"time"
)

// Filter narrows a package listing. Zero values match everything.
type Filter struct {
	Query  string
	Status string
	Owner  string
	Broken BuildType
	Limit  int
	Offset int
}

// Store persists packages. Every mutation recomputes the latest-comment summary
// and returns the package as stored.
type Store interface {
	List(ctx context.Context, f Filter) ([]Package, int, error)
	Get(ctx context.Context, id string) (*Package, error)
	AddComment(ctx context.Context, id string, bt BuildType, author, text string) (*Package, error)
	EditComment(ctx context.Context, id string, bt BuildType, ts time.Time, text string) (*Package, error)
	DeleteComment(ctx context.Context, id string, bt BuildType, ts time.Time) (*Package, error)
	SetImageSize(ctx context.Context, id, size string) (*Package, error)
	SetBroken(ctx context.Context, id string, u BrokenUpdate) (*Package, error)
	ReplaceAll(ctx context.Context, pkgs []Package) (int, error)
}
