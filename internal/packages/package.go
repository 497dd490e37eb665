package packages

import (
	"fmt"
	"time"
)

// DefaultAuthor is recorded on comments; there is no authentication.
const DefaultAuthor = "Current User"

// DefaultStatus is used when a package arrives without a status.
const DefaultStatus = "Empty"

type Comment struct {
	ID        int64     `json:"id,omitempty"`
	User      string    `json:"user"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Comments groups comment lists by build type, each list in insertion order.
type Comments map[BuildType][]Comment

// NewComments returns a map with an empty list for every build type.
func NewComments() Comments {
	c := make(Comments, len(BuildTypes))
	for _, t := range BuildTypes {
		c[t] = []Comment{}
	}
	return c
}

type Package struct {
	ID              string     `json:"id"`
	Name            string     `json:"packageName"`
	ImageNames      string     `json:"imageNames"`
	BinaryNames     string     `json:"binaryNames"`
	DistroSuccess   string     `json:"distroSuccess"`
	DistroFailure   string     `json:"distroFailure"`
	SuccessTime     *time.Time `json:"successTime,omitempty"`
	FailureTime     *time.Time `json:"failureTime,omitempty"`
	Status          string     `json:"status"`
	Owner           string     `json:"owner"`
	LegacyComment   string     `json:"comment,omitempty"`
	LatestComment   *string    `json:"latest_comment"`
	LatestBuildType *BuildType `json:"latest_build_type"`
	Comments        Comments   `json:"comments"`
	BIBroken        bool       `json:"biBroken"`
	CIBroken        bool       `json:"ciBroken"`
	ImageBroken     bool       `json:"imageBroken"`
	BinaryBroken    bool       `json:"binaryBroken"`
	DockerBroken    bool       `json:"dockerBroken"`
	ImageSize       string     `json:"imageSize"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// Broken reports the broken flag of one pipeline.
func (p *Package) Broken(bt BuildType) bool {
	switch bt {
	case BuildBI:
		return p.BIBroken
	case BuildCI:
		return p.CIBroken
	case BuildImage:
		return p.ImageBroken
	case BuildBinary:
		return p.BinaryBroken
	case BuildDocker:
		return p.DockerBroken
	}
	return false
}

func (p *Package) SetBroken(bt BuildType, v bool) {
	switch bt {
	case BuildBI:
		p.BIBroken = v
	case BuildCI:
		p.CIBroken = v
	case BuildImage:
		p.ImageBroken = v
	case BuildBinary:
		p.BinaryBroken = v
	case BuildDocker:
		p.DockerBroken = v
	}
}

// ApplyBroken copies every flag in u onto the package.
func (p *Package) ApplyBroken(u BrokenUpdate) {
	for bt, v := range u {
		p.SetBroken(bt, v)
	}
}

// EnsureComments fills in missing build-type keys so the JSON always carries all five lists.
func (p *Package) EnsureComments() {
	if p.Comments == nil {
		p.Comments = NewComments()
		return
	}
	for _, t := range BuildTypes {
		if p.Comments[t] == nil {
			p.Comments[t] = []Comment{}
		}
	}
}

// RecomputeLatest refreshes LatestComment and LatestBuildType from the merged history.
func (p *Package) RecomputeLatest() {
	e, ok := Latest(p.Comments)
	if !ok {
		p.LatestComment = nil
		p.LatestBuildType = nil
		return
	}
	text, bt := e.Text, e.BuildType
	p.LatestComment = &text
	p.LatestBuildType = &bt
}

// AddComment appends a comment stamped with now (millisecond precision) and returns it.
func (p *Package) AddComment(bt BuildType, author, text string, now time.Time) Comment {
	p.EnsureComments()
	if author == "" {
		author = DefaultAuthor
	}
	c := Comment{User: author, Text: text, Timestamp: now.UTC().Truncate(time.Millisecond)}
	p.Comments[bt] = append(p.Comments[bt], c)
	p.RecomputeLatest()
	return c
}

// EditComment replaces the text of the first comment of bt created at ts.
func (p *Package) EditComment(bt BuildType, ts time.Time, text string) (Comment, error) {
	list := p.Comments[bt]
	for i := range list {
		if sameInstant(list[i].Timestamp, ts) {
			list[i].Text = text
			p.RecomputeLatest()
			return list[i], nil
		}
	}
	return Comment{}, fmt.Errorf("%w: %s at %s", ErrCommentNotFound, bt, ts.Format(time.RFC3339Nano))
}

// DeleteComment removes every comment of bt created at ts and returns the removed ones.
func (p *Package) DeleteComment(bt BuildType, ts time.Time) ([]Comment, error) {
	list := p.Comments[bt]
	kept := make([]Comment, 0, len(list))
	var removed []Comment
	for _, c := range list {
		if sameInstant(c.Timestamp, ts) {
			removed = append(removed, c)
			continue
		}
		kept = append(kept, c)
	}
	if len(removed) == 0 {
		return nil, fmt.Errorf("%w: %s at %s", ErrCommentNotFound, bt, ts.Format(time.RFC3339Nano))
	}
	p.Comments[bt] = kept
	p.RecomputeLatest()
	return removed, nil
}

// Comments are addressed by their creation instant as clients see it: milliseconds.
func sameInstant(a, b time.Time) bool {
	return a.UnixMilli() == b.UnixMilli()
}
