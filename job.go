package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path"
	"time"

	"github.com/blob2spo/blob2spo/internal/blob"
	"github.com/blob2spo/blob2spo/internal/config"
	"github.com/blob2spo/blob2spo/internal/spo"
	"github.com/blob2spo/blob2spo/internal/transfer"
)

const keepAlive = 30 * time.Second

// newHTTPClient builds the client used for token, digest and write calls.
// There is no overall request timeout: a 250 MiB chunk on a slow link takes
// as long as it takes. Connect and first-byte waits are bounded instead.
func newHTTPClient(cfg *config.Resolved) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout, KeepAlive: keepAlive}
	transport.DialContext = dialer.DialContext
	transport.TLSHandshakeTimeout = cfg.ConnectTimeout
	transport.ResponseHeaderTimeout = cfg.DataTimeout

	return &http.Client{Transport: transport}
}

// userAgent returns the configured User-Agent or one naming this build.
func userAgent(cfg *config.Resolved) string {
	if cfg.UserAgent != "" {
		return cfg.UserAgent
	}

	return "blob2spo/" + version
}

// copyJob is one blob-to-SharePoint copy, however it was requested.
type copyJob struct {
	Credential spo.AppCredential
	Domain     string
	Site       string
	Path       string
	FileName   string // empty: base name of the blob
	Location   blob.Location
	BlobOpts   blob.Options
}

func (j *copyJob) validate() error {
	var errs []error

	if err := j.Credential.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("sharepoint credentials (%s, %s, %s): %w",
			config.EnvTenantID, config.EnvClientID, config.EnvClientSecret, err))
	}

	if j.Domain == "" {
		errs = append(errs, errors.New("sharepoint domain is required (--spo-domain or "+config.EnvDomain+")"))
	}

	if j.Site == "" {
		errs = append(errs, errors.New("sharepoint site is required (--spo-site)"))
	}

	if j.Path == "" {
		errs = append(errs, errors.New("sharepoint path is required (--spo-path)"))
	}

	if err := j.Location.Validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (j *copyJob) destination() spo.Endpoint {
	name := j.FileName
	if name == "" {
		name = path.Base(j.Location.Name)
	}

	return spo.NewEndpoint(j.Domain, j.Site, j.Path, name)
}

// jobRunner holds what every job run by one process shares: the resolved
// config, the HTTP client and the bandwidth limiter.
type jobRunner struct {
	cfg        *config.Resolved
	httpClient *http.Client
	limiter    *transfer.BandwidthLimiter
	logger     *slog.Logger
}

func newJobRunner(cfg *config.Resolved, logger *slog.Logger) *jobRunner {
	return &jobRunner{
		cfg:        cfg,
		httpClient: newHTTPClient(cfg),
		limiter:    transfer.NewBandwidthLimiter(cfg.BandwidthLimit),
		logger:     logger,
	}
}

// run wires a blob source, an SPO client and a transfer engine for one job
// and runs it.
func (jr *jobRunner) run(ctx context.Context, job *copyJob, status transfer.StatusFunc) (*transfer.Result, error) {
	if err := job.validate(); err != nil {
		return nil, err
	}

	src, err := blob.NewSource(ctx, job.Location, job.BlobOpts)
	if err != nil {
		return nil, err
	}

	tokens := spo.NewAppTokenSource(job.Credential, job.Domain, jr.httpClient, jr.logger)
	client := spo.NewClient(jr.httpClient, tokens, jr.logger, userAgent(jr.cfg))

	engine := transfer.New(client, transfer.Options{
		Threshold:            jr.cfg.ChunkSize,
		RefreshExpiredDigest: jr.cfg.RefreshExpiredDigest,
		Status:               status,
		Limiter:              jr.limiter,
	}, jr.logger)

	return engine.Copy(ctx, src, job.destination())
}
