package schemas

import (
	"package-dashboard/internal/packages"
)

type AddCommentRequest struct {
	BuildType string `json:"buildType"`
	Text      string `json:"text"`
}

// CommentRef addresses one comment. Older clients send "type", newer ones "buildType".
type CommentRef struct {
	Type      string `json:"type"`
	BuildType string `json:"buildType"`
	Timestamp string `json:"timestamp"`
}

// Kind returns whichever build-type field the client filled in.
func (c CommentRef) Kind() string {
	if c.Type != "" {
		return c.Type
	}
	return c.BuildType
}

type EditCommentRequest struct {
	CommentRef
	Text string `json:"text"`
}

type DeleteCommentRequest struct {
	CommentRef
}

type ImageSizeRequest struct {
	ImageSize string `json:"imageSize"`
}

type ImportRequest struct {
	Source string `json:"source"`
}

type ExportRequest struct {
	Destination string `json:"destination,omitempty"`
}

type TaskAccepted struct {
	TaskID string `json:"task_id"`
	Queue  string `json:"queue"`
	Type   string `json:"type"`
}

type CommentHistory = packages.Page[packages.Entry]
