package transfer

import (
	"github.com/google/uuid"

	"github.com/blob2spo/blob2spo/internal/spo"
)

// State is the position of a Session in the transfer state machine:
//
//	Idle → Downloading → SimpleUpload → Done
//	Idle → Downloading → ChunkedStart → ChunkedContinue* → ChunkedFinish → Done
//
// Any state may move to Failed.
type State int

const (
	StateIdle State = iota
	StateDownloading
	StateSimpleUpload
	StateChunkedStart
	StateChunkedContinue
	StateChunkedFinish
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDownloading:
		return "downloading"
	case StateSimpleUpload:
		return "simple upload"
	case StateChunkedStart:
		return "chunked start"
	case StateChunkedContinue:
		return "chunked continue"
	case StateChunkedFinish:
		return "chunked finish"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Session is the state of one transfer. Offset always equals the number of
// bytes SharePoint has accepted for the destination file, and buf holds
// exactly the bytes read but not yet uploaded.
type Session struct {
	SourceID  string
	Threshold int64
	Offset    int64
	Started   bool // a chunked upload session is open
	UploadID  uuid.UUID
	State     State

	Read   int64 // bytes read from the source
	Chunks int   // accepted writes carrying data

	buf          []byte
	auth         *spo.AuthContext
	warnedDigest bool
}

func newSession(sourceID string, threshold int64, fragment int) *Session {
	return &Session{
		SourceID:  sourceID,
		Threshold: threshold,
		State:     StateIdle,
		buf:       make([]byte, 0, fragment),
	}
}

// Result reports a completed transfer.
type Result struct {
	Bytes    int64
	Chunks   int
	Chunked  bool
	UploadID uuid.UUID // uuid.Nil for a one-time save
}

func (s *Session) result() *Result {
	return &Result{
		Bytes:    s.Offset,
		Chunks:   s.Chunks,
		Chunked:  s.Started,
		UploadID: s.UploadID,
	}
}
