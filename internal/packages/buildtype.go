package packages

import (
	"fmt"
	"strings"
)

// BuildType names one of the tracked build/test pipelines.
type BuildType string

const (
	BuildBI     BuildType = "BI"
	BuildCI     BuildType = "CI"
	BuildImage  BuildType = "Image"
	BuildBinary BuildType = "Binary"
	BuildDocker BuildType = "Docker"
)

// BuildTypes lists the pipelines in canonical order. History ties are broken by this order.
var BuildTypes = []BuildType{BuildBI, BuildCI, BuildImage, BuildBinary, BuildDocker}

// Label is the form label used by the dashboard, e.g. "CI Build".
func (b BuildType) Label() string {
	return string(b) + " Build"
}

func (b BuildType) Valid() bool {
	for _, t := range BuildTypes {
		if t == b {
			return true
		}
	}
	return false
}

// NormalizeBuildType accepts both bare keys ("CI") and UI labels ("CI Build"), case-insensitively.
func NormalizeBuildType(s string) (BuildType, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimSuffix(s, " Build"))
	for _, t := range BuildTypes {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidBuildType, s)
}
