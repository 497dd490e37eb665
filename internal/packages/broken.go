package packages

import (
	"fmt"
)

// BrokenUpdate carries the broken flags a request wants to change.
type BrokenUpdate map[BuildType]bool

// brokenKeys maps request keys to pipelines. "broken" and "cibroken" are the
// names older dashboard builds sent.
var brokenKeys = map[string]BuildType{
	"broken":       BuildBI,
	"biBroken":     BuildBI,
	"ciBroken":     BuildCI,
	"cibroken":     BuildCI,
	"imageBroken":  BuildImage,
	"binaryBroken": BuildBinary,
	"dockerBroken": BuildDocker,
}

// BrokenKey is the canonical request key of a pipeline's flag.
func BrokenKey(bt BuildType) string {
	switch bt {
	case BuildBI:
		return "biBroken"
	case BuildCI:
		return "ciBroken"
	case BuildImage:
		return "imageBroken"
	case BuildBinary:
		return "binaryBroken"
	case BuildDocker:
		return "dockerBroken"
	}
	return ""
}

// ParseBrokenUpdate picks the recognised keys out of a decoded JSON body.
// Unknown keys are ignored; a recognised key with a non-boolean value is an error.
func ParseBrokenUpdate(body map[string]any) (BrokenUpdate, error) {
	u := BrokenUpdate{}
	for k, raw := range body {
		bt, ok := brokenKeys[k]
		if !ok || raw == nil {
			continue
		}
		v, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: %s must be a boolean", ErrInvalidInput, k)
		}
		u[bt] = v
	}
	if len(u) == 0 {
		return nil, ErrNoBrokenFields
	}
	return u, nil
}
