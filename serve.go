package main

import (
	"context"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/blob2spo/blob2spo/internal/blob"
	"github.com/blob2spo/blob2spo/internal/config"
	"github.com/blob2spo/blob2spo/internal/server"
	"github.com/blob2spo/blob2spo/internal/spo"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the copy HTTP trigger",
		Long: `Serve POST ` + server.CopyPath + ` for an Azure Functions custom handler.

Each request carries its own SharePoint credentials and blob location. The
port defaults to ` + config.EnvPort + `, then 3000.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().Int("port", 0, "listen port (overrides config and "+config.EnvPort+")")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	ctx := shutdownContext(cmd.Context(), cc.Logger)
	addr := net.JoinHostPort(cc.Cfg.ListenAddr, strconv.Itoa(cc.Cfg.Port))

	copier := &requestCopier{runner: newJobRunner(cc.Cfg, cc.Logger)}

	return server.New(copier, cc.Logger).Run(ctx, addr)
}

// requestCopier runs trigger requests as copy jobs. Blobs are always read
// from Azure with the host's ambient credential. Concurrent requests share
// one bandwidth limit.
type requestCopier struct {
	runner *jobRunner
}

func (c *requestCopier) Copy(ctx context.Context, req *server.Request) error {
	_, err := c.runner.run(ctx, jobFromRequest(req), nil)

	return err
}

func jobFromRequest(req *server.Request) *copyJob {
	return &copyJob{
		Credential: spo.AppCredential{
			TenantID:     req.TenantID,
			ClientID:     req.ClientID,
			ClientSecret: req.ClientSecret,
		},
		Domain: req.SharePointDomain,
		Site:   req.SharePointSite,
		Path:   req.SharePointPath,
		Location: blob.Location{
			Kind:      blob.KindAzure,
			Account:   req.Account,
			Container: req.Container,
			Name:      req.BlobName,
		},
	}
}
