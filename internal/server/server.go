// Package server exposes the copy operation as an HTTP trigger, in the shape
// an Azure Functions custom handler expects: one POST route whose JSON body
// carries the credentials, the blob and the SharePoint destination.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/blob2spo/blob2spo/internal/spo"
)

// CopyPath is the route of the HTTP trigger.
const CopyPath = "/api/HttpTriggerCopyBlob2SPO"

const (
	maxBodyBytes      = 16 * 1024
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 30 * time.Second
)

// Request is the JSON body of a copy call.
type Request struct {
	TenantID         string `json:"tenant_id"`
	ClientID         string `json:"client_id"`
	ClientSecret     string `json:"client_secret"`
	SharePointDomain string `json:"share_point_domain"`
	SharePointSite   string `json:"share_point_site"`
	SharePointPath   string `json:"share_point_path"`
	Account          string `json:"account"`
	Container        string `json:"container"`
	BlobName         string `json:"blob_name"`
}

// missingFields returns the JSON names of empty required fields.
func (r *Request) missingFields() []string {
	fields := []struct {
		name  string
		value string
	}{
		{"tenant_id", r.TenantID},
		{"client_id", r.ClientID},
		{"client_secret", r.ClientSecret},
		{"share_point_domain", r.SharePointDomain},
		{"share_point_site", r.SharePointSite},
		{"share_point_path", r.SharePointPath},
		{"account", r.Account},
		{"container", r.Container},
		{"blob_name", r.BlobName},
	}

	var missing []string

	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}

	return missing
}

// Copier performs one copy described by a Request.
type Copier interface {
	Copy(ctx context.Context, req *Request) error
}

// errorBody is the JSON error envelope: {"error":{"message":...}}.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message    string `json:"message"`
	StatusCode int    `json:"status_code,omitempty"` // SharePoint status, when the failure came from SharePoint
	Code       string `json:"code,omitempty"`
}

// Server serves the HTTP trigger.
type Server struct {
	copier Copier
	logger *slog.Logger
	mux    *http.ServeMux
}

// New creates a Server. A nil logger uses slog.Default().
func New(copier Copier, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{copier: copier, logger: logger, mux: http.NewServeMux()}
	s.mux.HandleFunc("POST "+CopyPath, s.handleCopy)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Run listens on addr and serves until ctx is canceled, then shuts down
// gracefully, letting in-flight copies finish within the shutdown timeout.
func (s *Server) Run(ctx context.Context, addr string) error {
	lc := net.ListenConfig{}

	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listening on %s: %w", addr, err)
	}

	return s.Serve(ctx, listener)
}

// Serve is Run on an existing listener. It takes ownership of listener.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	s.logger.Info("http trigger listening",
		slog.String("addr", listener.Addr().String()),
		slog.String("path", CopyPath),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		s.logger.Info("http trigger shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: shutdown: %w", err)
		}

		return nil
	})

	return g.Wait()
}

func (s *Server) handleCopy(w http.ResponseWriter, r *http.Request) {
	var req Request

	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusBadRequest, errorDetail{
				Message: fmt.Sprintf("request body exceeds %d bytes", maxBodyBytes),
			})

			return
		}

		s.writeError(w, http.StatusBadRequest, errorDetail{Message: "invalid JSON body: " + err.Error()})

		return
	}

	if missing := req.missingFields(); len(missing) > 0 {
		s.writeError(w, http.StatusBadRequest, errorDetail{
			Message: "missing required fields: " + strings.Join(missing, ", "),
		})

		return
	}

	log := s.logger.With(
		slog.String("account", req.Account),
		slog.String("container", req.Container),
		slog.String("blob", req.BlobName),
		slog.String("site", req.SharePointSite),
	)

	log.Info("copy requested")
	start := time.Now()

	if err := s.copier.Copy(r.Context(), &req); err != nil {
		log.Error("copy failed",
			slog.Duration("elapsed", time.Since(start)),
			slog.String("error", err.Error()),
		)

		s.writeError(w, http.StatusInternalServerError, detailFor(err))

		return
	}

	log.Info("copy succeeded", slog.Duration("elapsed", time.Since(start)))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "{}")
}

// detailFor carries SharePoint's status and odata code into the error body
// when the copy was rejected by SharePoint.
func detailFor(err error) errorDetail {
	d := errorDetail{Message: err.Error()}

	var te *spo.TransferError
	if errors.As(err, &te) {
		d.StatusCode = te.StatusCode
		d.Code = te.Code

		return d
	}

	var ae *spo.AuthError
	if errors.As(err, &ae) {
		d.StatusCode = ae.StatusCode
	}

	return d
}

func (s *Server) writeError(w http.ResponseWriter, status int, d errorDetail) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(errorBody{Error: d}); err != nil {
		s.logger.Warn("writing error response", slog.String("error", err.Error()))
	}
}
