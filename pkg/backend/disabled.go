package backend

import (
	"context"
	"io"

	"medimate-be/internal/apperror"
)

// DisabledStorage stands in when object storage is not configured.
type DisabledStorage struct {
	Reason string
}

func (d DisabledStorage) Upload(ctx context.Context, path string, body io.Reader, size int64, contentType string, onProgress ProgressFunc) (string, error) {
	return "", apperror.New(apperror.KindConfiguration, "profile picture storage is unavailable: "+d.Reason)
}

// DisabledAnswerer stands in when no AI provider is configured.
type DisabledAnswerer struct {
	Reason string
}

func (d DisabledAnswerer) Answer(ctx context.Context, question string) (*Answer, error) {
	return nil, apperror.New(apperror.KindConfiguration, "the answering service is unavailable: "+d.Reason)
}
