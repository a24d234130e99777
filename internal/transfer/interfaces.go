package transfer

import (
	"context"
	"io"

	"github.com/blob2spo/blob2spo/internal/spo"
)

// Source is a readable blob. Satisfied by the sources in internal/blob.
type Source interface {
	// Open starts streaming the blob from its first byte.
	Open(ctx context.Context) (io.ReadCloser, error)
	// String identifies the blob in logs and session state.
	String() string
}

// Uploader performs the SharePoint calls a transfer needs. Satisfied by
// *spo.Client.
type Uploader interface {
	Authorize(ctx context.Context, ep spo.Endpoint) (*spo.AuthContext, error)
	Save(ctx context.Context, ep spo.Endpoint, auth *spo.AuthContext, data []byte) error
	StartUpload(ctx context.Context, ep spo.Endpoint, auth *spo.AuthContext, data []byte) error
	ContinueUpload(ctx context.Context, ep spo.Endpoint, auth *spo.AuthContext, data []byte) error
	FinishUpload(ctx context.Context, ep spo.Endpoint, auth *spo.AuthContext, data []byte) error
}

// Compile-time check.
var _ Uploader = (*spo.Client)(nil)
