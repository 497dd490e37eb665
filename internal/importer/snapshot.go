// Package importer converts between external JSON snapshots and stored packages.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"package-dashboard/internal/packages"
)

// record is one package as it appears in a snapshot file. Older exports carry
// "broken" for the BI flag and "date" instead of a comment timestamp.
type record struct {
	ID            string                     `json:"id,omitempty"`
	PackageName   string                     `json:"packageName"`
	ImageNames    string                     `json:"imageNames"`
	BinaryNames   string                     `json:"binaryNames"`
	DistroSuccess string                     `json:"distroSuccess"`
	DistroFailure string                     `json:"distroFailure"`
	SuccessTime   *looseTime                 `json:"successTime,omitempty"`
	FailureTime   *looseTime                 `json:"failureTime,omitempty"`
	Status        string                     `json:"status"`
	Owner         string                     `json:"owner"`
	Comment       string                     `json:"comment,omitempty"`
	Comments      map[string][]recordComment `json:"comments"`
	Broken        *bool                      `json:"broken,omitempty"`
	BIBroken      *bool                      `json:"biBroken,omitempty"`
	CIBroken      bool                       `json:"ciBroken"`
	ImageBroken   bool                       `json:"imageBroken"`
	BinaryBroken  bool                       `json:"binaryBroken"`
	DockerBroken  bool                       `json:"dockerBroken"`
	ImageSize     string                     `json:"imageSize"`
}

type recordComment struct {
	User      string     `json:"user,omitempty"`
	Text      string     `json:"text"`
	Timestamp *looseTime `json:"timestamp,omitempty"`
	Date      *looseTime `json:"date,omitempty"`
}

// Decode reads a snapshot (a JSON array of package records) and normalises it:
// the legacy "broken" key becomes the BI flag, comment timestamps fall back to
// "date" and then to now, missing status becomes "Empty", and the latest
// comment is computed. Comment lists under unknown build types are dropped.
func Decode(r io.Reader, now time.Time) ([]packages.Package, error) {
	var recs []record
	if err := json.NewDecoder(r).Decode(&recs); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	out := make([]packages.Package, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.toPackage(now))
	}
	return out, nil
}

func (rec record) toPackage(now time.Time) packages.Package {
	p := packages.Package{
		ID:            rec.ID,
		Name:          rec.PackageName,
		ImageNames:    rec.ImageNames,
		BinaryNames:   rec.BinaryNames,
		DistroSuccess: rec.DistroSuccess,
		DistroFailure: rec.DistroFailure,
		SuccessTime:   rec.SuccessTime.ptr(),
		FailureTime:   rec.FailureTime.ptr(),
		Status:        rec.Status,
		Owner:         rec.Owner,
		LegacyComment: rec.Comment,
		CIBroken:      rec.CIBroken,
		ImageBroken:   rec.ImageBroken,
		BinaryBroken:  rec.BinaryBroken,
		DockerBroken:  rec.DockerBroken,
		ImageSize:     rec.ImageSize,
		Comments:      packages.NewComments(),
	}
	switch {
	case rec.Broken != nil:
		p.BIBroken = *rec.Broken
	case rec.BIBroken != nil:
		p.BIBroken = *rec.BIBroken
	}
	if p.Status == "" {
		p.Status = packages.DefaultStatus
	}

	for key, list := range rec.Comments {
		bt, err := packages.NormalizeBuildType(key)
		if err != nil {
			logrus.WithFields(logrus.Fields{"package": rec.PackageName, "buildType": key}).
				Warn("skipping comments under unknown build type")
			continue
		}
		for _, c := range list {
			ts := now
			if t := c.Timestamp.ptr(); t != nil {
				ts = *t
			} else if t := c.Date.ptr(); t != nil {
				ts = *t
			}
			user := c.User
			if user == "" {
				user = packages.DefaultAuthor
			}
			p.Comments[bt] = append(p.Comments[bt], packages.Comment{
				User:      user,
				Text:      c.Text,
				Timestamp: ts.UTC().Truncate(time.Millisecond),
			})
		}
	}
	p.RecomputeLatest()
	return p
}

// Encode writes pkgs in the snapshot format Decode reads.
func Encode(w io.Writer, pkgs []packages.Package) error {
	if pkgs == nil {
		pkgs = []packages.Package{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(pkgs)
}

// Import replaces the stored package set with the snapshot read from r.
func Import(ctx context.Context, store packages.Store, r io.Reader) (int, error) {
	pkgs, err := Decode(r, time.Now())
	if err != nil {
		return 0, err
	}
	logrus.WithField("records", len(pkgs)).Info("loaded records from snapshot")
	n, err := store.ReplaceAll(ctx, pkgs)
	if err != nil {
		return 0, fmt.Errorf("replace packages: %w", err)
	}
	logrus.WithField("inserted", n).Info("snapshot imported")
	return n, nil
}

// Export writes every stored package to w.
func Export(ctx context.Context, store packages.Store, w io.Writer) (int, error) {
	pkgs, _, err := store.List(ctx, packages.Filter{})
	if err != nil {
		return 0, err
	}
	if err := Encode(w, pkgs); err != nil {
		return 0, fmt.Errorf("encode snapshot: %w", err)
	}
	return len(pkgs), nil
}
