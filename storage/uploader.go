package storage

import (
	"context"
	"io"
)

// UploadResult описывает загруженный файл выгрузки результатов.
type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// FileUploader сохраняет сгенерированные выгрузки и отдаёт публичную ссылку.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	GetPublicURL(key string) string
}
