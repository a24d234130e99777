package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/blob2spo/blob2spo/internal/spo"
)

// Chunk threshold bounds. SharePoint rejects single requests much above
// 250 MiB.
const (
	MiB              = 1024 * 1024
	DefaultThreshold = 64 * MiB
	MinThreshold     = 1 * MiB
	MaxThreshold     = 250 * MiB

	maxFragmentSize = 4 * MiB
)

// Options configures an Engine. The zero value is usable.
type Options struct {
	// Threshold is the chunk size in bytes. 0 uses DefaultThreshold. Range
	// checks belong to the caller; the engine accepts any positive value.
	Threshold int64
	// FragmentSize is the read size. 0 uses min(4 MiB, Threshold).
	FragmentSize int
	// RefreshExpiredDigest re-authorizes before a write when the form digest
	// has expired. When false an expired digest is logged and used anyway.
	RefreshExpiredDigest bool
	// Status receives progress reports. May be nil.
	Status StatusFunc
	// Limiter throttles source reads. Nil is unlimited.
	Limiter *BandwidthLimiter
}

// Engine runs transfers against one Uploader.
type Engine struct {
	uploader Uploader
	opts     Options
	logger   *slog.Logger

	// Tests override these for deterministic digest expiry and upload ids.
	nowFunc     func() time.Time
	newUploadID func() uuid.UUID
}

// New creates an Engine. A nil logger uses slog.Default().
func New(uploader Uploader, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}

	if opts.FragmentSize <= 0 {
		opts.FragmentSize = int(min(opts.Threshold, maxFragmentSize))
	}

	return &Engine{
		uploader:    uploader,
		opts:        opts,
		logger:      logger,
		nowFunc:     time.Now,
		newUploadID: uuid.New,
	}
}

// Copy streams src into the SharePoint file addressed by dest. Files up to the
// threshold are written with one save; larger files go through an upload
// session. The first failed read or rejected write aborts the transfer and
// no further bytes are read.
func (e *Engine) Copy(ctx context.Context, src Source, dest spo.Endpoint) (*Result, error) {
	if err := dest.Validate(); err != nil {
		return nil, fmt.Errorf("transfer: invalid destination: %w", err)
	}

	s := newSession(src.String(), e.opts.Threshold, e.opts.FragmentSize)

	log := e.logger.With(
		slog.String("source", s.SourceID),
		slog.String("dest", dest.String()),
	)

	log.Debug("transfer started", slog.Int64("threshold", s.Threshold))

	if err := e.run(ctx, s, src, dest, log); err != nil {
		log.Error("transfer failed",
			slog.String("state", s.State.String()),
			slog.Int64("read", s.Read),
			slog.Int64("offset", s.Offset),
			slog.String("error", err.Error()),
		)

		s.State = StateFailed

		return nil, err
	}

	s.State = StateDone
	log.Debug("transfer complete",
		slog.Int64("bytes", s.Offset),
		slog.Int("chunks", s.Chunks),
		slog.Bool("chunked", s.Started),
	)

	return s.result(), nil
}

func (e *Engine) run(ctx context.Context, s *Session, src Source, dest spo.Endpoint, log *slog.Logger) error {
	e.emit(StartDownload, 0, 0)

	rc, err := src.Open(ctx)
	if err != nil {
		return &SourceReadError{Source: s.SourceID, Err: err}
	}
	defer rc.Close()

	s.State = StateDownloading
	r := e.opts.Limiter.WrapReader(ctx, rc)
	frag := make([]byte, e.opts.FragmentSize)

	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("transfer: %w", ctxErr)
		}

		n, readErr := r.Read(frag)
		if n > 0 {
			s.buf = append(s.buf, frag[:n]...)
			s.Read += int64(n)
			e.emit(Downloading, s.Read, s.Offset)

			// Only flush while more bytes are known to follow, so the final
			// write is never empty.
			for int64(len(s.buf)) > s.Threshold {
				if err := e.flushChunk(ctx, s, dest, log); err != nil {
					return err
				}
			}
		}

		if errors.Is(readErr, io.EOF) {
			break
		}

		if readErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fmt.Errorf("transfer: %w", ctxErr)
			}

			return &SourceReadError{Source: s.SourceID, Offset: s.Read, Err: readErr}
		}
	}

	log.Debug("source drained", slog.Int64("read", s.Read))
	e.emit(DownloadComplete, s.Read, s.Offset)

	return e.finish(ctx, s, dest, log)
}

// flushChunk uploads the first Threshold bytes of the buffer and keeps the
// remainder. The first chunk creates the empty destination file and opens
// the upload session.
func (e *Engine) flushChunk(ctx context.Context, s *Session, dest spo.Endpoint, log *slog.Logger) error {
	chunk := s.buf[:s.Threshold]

	if err := e.authorize(ctx, s, dest, log); err != nil {
		return err
	}

	if !s.Started {
		s.State = StateChunkedStart

		// StartUpload only works on an existing file.
		if err := e.uploader.Save(ctx, dest, s.auth, nil); err != nil {
			return fmt.Errorf("transfer: creating %s: %w", dest.FileName, err)
		}

		s.UploadID = e.newUploadID()
		log.Debug("upload session opened", slog.String("upload_id", s.UploadID.String()))

		e.emit(StartUpload, int64(len(chunk)), s.Offset)

		if err := e.uploader.StartUpload(ctx, dest.WithUploadID(s.UploadID), s.auth, chunk); err != nil {
			return fmt.Errorf("transfer: %w", err)
		}

		s.Started = true
	} else {
		s.State = StateChunkedContinue
		e.emit(ContinueUpload, int64(len(chunk)), s.Offset)

		ep := dest.WithUploadID(s.UploadID).WithOffset(s.Offset)
		if err := e.uploader.ContinueUpload(ctx, ep, s.auth, chunk); err != nil {
			return fmt.Errorf("transfer: %w", err)
		}
	}

	s.accept(len(chunk))
	s.buf = s.buf[:copy(s.buf, s.buf[len(chunk):])]
	e.emit(UploadComplete, int64(len(chunk)), s.Offset)

	return nil
}

// finish writes whatever is buffered at end of stream: the whole file when
// no session was opened, otherwise the last chunk.
func (e *Engine) finish(ctx context.Context, s *Session, dest spo.Endpoint, log *slog.Logger) error {
	if err := e.authorize(ctx, s, dest, log); err != nil {
		return err
	}

	size := len(s.buf)

	if !s.Started {
		s.State = StateSimpleUpload
		e.emit(StartUpload, int64(size), s.Offset)

		if err := e.uploader.Save(ctx, dest, s.auth, s.buf); err != nil {
			return fmt.Errorf("transfer: %w", err)
		}
	} else {
		s.State = StateChunkedFinish
		e.emit(FinishUpload, int64(size), s.Offset)

		ep := dest.WithUploadID(s.UploadID).WithOffset(s.Offset)
		if err := e.uploader.FinishUpload(ctx, ep, s.auth, s.buf); err != nil {
			return fmt.Errorf("transfer: %w", err)
		}
	}

	s.accept(size)
	s.buf = s.buf[:0]
	e.emit(UploadComplete, int64(size), s.Offset)

	return nil
}

// authorize fetches the token and digest on first use. Later calls only act
// when the digest has expired.
func (e *Engine) authorize(ctx context.Context, s *Session, dest spo.Endpoint, log *slog.Logger) error {
	if s.auth != nil && !s.auth.Expired(e.nowFunc()) {
		return nil
	}

	if s.auth != nil && !e.opts.RefreshExpiredDigest {
		if !s.warnedDigest {
			log.Warn("form digest expired, continuing with stale digest",
				slog.Time("expiry", s.auth.DigestExpiry),
			)

			s.warnedDigest = true
		}

		return nil
	}

	if s.auth != nil {
		log.Info("form digest expired, re-authorizing", slog.Time("expiry", s.auth.DigestExpiry))
	}

	auth, err := e.uploader.Authorize(ctx, dest)
	if err != nil {
		return fmt.Errorf("transfer: authorizing: %w", err)
	}

	s.auth = auth

	return nil
}

func (s *Session) accept(n int) {
	s.Offset += int64(n)
	if n > 0 {
		s.Chunks++
	}
}

func (e *Engine) emit(ev Event, bytes, offset int64) {
	if e.opts.Status != nil {
		e.opts.Status(Status{Event: ev, Bytes: bytes, Offset: offset})
	}
}
