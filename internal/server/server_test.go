package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blob2spo/blob2spo/internal/spo"
)

type fakeCopier struct {
	mu   sync.Mutex
	reqs []Request
	err  error
}

func (f *fakeCopier) Copy(_ context.Context, req *Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reqs = append(f.reqs, *req)

	return f.err
}

func (f *fakeCopier) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.reqs)
}

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const validBody = `{
	"tenant_id": "tenant",
	"client_id": "client",
	"client_secret": "secret",
	"share_point_domain": "contoso",
	"share_point_site": "MVP",
	"share_point_path": "/sites/MVP/Shared Documents",
	"account": "storageacct",
	"container": "exports",
	"blob_name": "report.csv"
}`

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, CopyPath, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorDetail {
	t.Helper()

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	return body.Error
}

func TestHandleCopy_Success(t *testing.T) {
	copier := &fakeCopier{}
	srv := New(copier, testLogger(t))

	rec := post(t, srv, validBody)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{}`, rec.Body.String())

	require.Equal(t, 1, copier.calls())
	got := copier.reqs[0]
	assert.Equal(t, "tenant", got.TenantID)
	assert.Equal(t, "contoso", got.SharePointDomain)
	assert.Equal(t, "/sites/MVP/Shared Documents", got.SharePointPath)
	assert.Equal(t, "report.csv", got.BlobName)
}

func TestHandleCopy_CopyFailure(t *testing.T) {
	copier := &fakeCopier{err: errors.New("blob not found")}
	srv := New(copier, testLogger(t))

	rec := post(t, srv, validBody)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	d := decodeError(t, rec)
	assert.Equal(t, "blob not found", d.Message)
	assert.Zero(t, d.StatusCode)
}

func TestHandleCopy_SharePointRejection(t *testing.T) {
	te := &spo.TransferError{
		Op:         "StartUpload",
		StatusCode: http.StatusForbidden,
		Code:       "-2147024891, System.UnauthorizedAccessException",
		Message:    "Access denied.",
		Err:        spo.ErrForbidden,
	}
	copier := &fakeCopier{err: fmt.Errorf("transfer: chunk at offset 0: %w", te)}
	srv := New(copier, testLogger(t))

	rec := post(t, srv, validBody)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	d := decodeError(t, rec)
	assert.Equal(t, http.StatusForbidden, d.StatusCode)
	assert.Equal(t, te.Code, d.Code)
	assert.Contains(t, d.Message, "Access denied.")
}

func TestHandleCopy_AuthRejection(t *testing.T) {
	copier := &fakeCopier{err: &spo.AuthError{Op: "token", StatusCode: http.StatusUnauthorized, Message: "invalid_client"}}
	srv := New(copier, testLogger(t))

	rec := post(t, srv, validBody)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	d := decodeError(t, rec)
	assert.Equal(t, http.StatusUnauthorized, d.StatusCode)
	assert.Contains(t, d.Message, "invalid_client")
}

func TestHandleCopy_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"malformed json", `{"tenant_id":`, "invalid JSON body"},
		{"wrong type", `{"tenant_id": 42}`, "invalid JSON body"},
		{"empty object", `{}`, "missing required fields: tenant_id, client_id"},
		{"blank blob name", strings.Replace(validBody, `"report.csv"`, `"  "`, 1), "missing required fields: blob_name"},
		{"oversized", `{"tenant_id":"` + strings.Repeat("x", maxBodyBytes) + `"}`, "exceeds 16384 bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			copier := &fakeCopier{}
			srv := New(copier, testLogger(t))

			rec := post(t, srv, tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decodeError(t, rec).Message, tt.msg)
			assert.Zero(t, copier.calls())
		})
	}
}

func TestHandleCopy_UnknownFieldsIgnored(t *testing.T) {
	copier := &fakeCopier{}
	srv := New(copier, testLogger(t))

	body := strings.Replace(validBody, `"tenant_id"`, `"extra": true, "tenant_id"`, 1)
	rec := post(t, srv, body)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, copier.calls())
}

func TestRouting(t *testing.T) {
	srv := New(&fakeCopier{}, testLogger(t))

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, CopyPath, http.StatusMethodNotAllowed},
		{http.MethodPut, CopyPath, http.StatusMethodNotAllowed},
		{http.MethodPost, "/api/Other", http.StatusNotFound},
		{http.MethodGet, "/", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, http.NoBody))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	copier := &fakeCopier{}
	srv := New(copier, testLogger(t))

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- srv.Serve(ctx, listener) }()

	url := "http://" + listener.Addr().String() + CopyPath
	resp, err := http.Post(url, "application/json", strings.NewReader(validBody))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}

	assert.Equal(t, 1, copier.calls())
}

func TestRun_ListenError(t *testing.T) {
	srv := New(&fakeCopier{}, testLogger(t))

	err := srv.Run(context.Background(), "not-an-address")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server: listening on not-an-address")
}
