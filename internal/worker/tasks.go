package worker

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	TypeImportSnapshot   = "snapshot:import"
	TypeExportSnapshot   = "snapshot:export"
	TypeRefreshImageSize = "package:image_size"
)

type ImportPayload struct {
	Source string `json:"source"`
}

type ExportPayload struct {
	Destination string `json:"destination,omitempty"`
}

type ImageSizePayload struct {
	PackageID string `json:"package_id"`
}

func NewImportTask(source string) (*asynq.Task, error) {
	b, err := json.Marshal(ImportPayload{Source: source})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeImportSnapshot, b, asynq.MaxRetry(0)), nil
}

func NewExportTask(dest string) (*asynq.Task, error) {
	b, err := json.Marshal(ExportPayload{Destination: dest})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeExportSnapshot, b, asynq.MaxRetry(2)), nil
}

func NewImageSizeTask(packageID string) (*asynq.Task, error) {
	b, err := json.Marshal(ImageSizePayload{PackageID: packageID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeRefreshImageSize, b, asynq.MaxRetry(3)), nil
}
