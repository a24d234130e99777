package spo

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Save creates or overwrites the file at ep with data in a single request.
// An empty data slice creates an empty file, which StartUpload requires.
func (c *Client) Save(ctx context.Context, ep Endpoint, auth *AuthContext, data []byte) error {
	c.logger.Debug("one-time save",
		slog.String("file", ep.FileName),
		slog.Int("size", len(data)),
	)

	return c.write(ctx, "save", ep.SaveURL(), auth, data)
}

// StartUpload opens the upload session ep.UploadID on an existing file and
// sends the first chunk.
func (c *Client) StartUpload(ctx context.Context, ep Endpoint, auth *AuthContext, data []byte) error {
	if err := requireUploadID(ep); err != nil {
		return err
	}

	c.logger.Debug("start upload",
		slog.String("file", ep.FileName),
		slog.String("upload_id", ep.UploadID.String()),
		slog.Int("size", len(data)),
	)

	return c.write(ctx, "start upload", ep.StartUploadURL(), auth, data)
}

// ContinueUpload appends a chunk at ep.Offset to the session ep.UploadID.
func (c *Client) ContinueUpload(ctx context.Context, ep Endpoint, auth *AuthContext, data []byte) error {
	if err := requireUploadID(ep); err != nil {
		return err
	}

	c.logger.Debug("continue upload",
		slog.String("file", ep.FileName),
		slog.String("upload_id", ep.UploadID.String()),
		slog.Int64("offset", ep.Offset),
		slog.Int("size", len(data)),
	)

	return c.write(ctx, "continue upload", ep.ContinueUploadURL(), auth, data)
}

// FinishUpload sends the last chunk at ep.Offset and commits the file.
func (c *Client) FinishUpload(ctx context.Context, ep Endpoint, auth *AuthContext, data []byte) error {
	if err := requireUploadID(ep); err != nil {
		return err
	}

	c.logger.Debug("finish upload",
		slog.String("file", ep.FileName),
		slog.String("upload_id", ep.UploadID.String()),
		slog.Int64("offset", ep.Offset),
		slog.Int("size", len(data)),
	)

	return c.write(ctx, "finish upload", ep.FinishUploadURL(), auth, data)
}

func requireUploadID(ep Endpoint) error {
	if ep.UploadID == uuid.Nil {
		return errMissingUploadID
	}

	return nil
}
