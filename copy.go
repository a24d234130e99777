package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/blob2spo/blob2spo/internal/blob"
	"github.com/blob2spo/blob2spo/internal/spo"
)

func newCopyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "copy",
		Short: "Copy one blob into a SharePoint document library",
		Long: `Copy one blob into a SharePoint document library.

The SharePoint service principal is read from AZURE_TENANT_ID, AZURE_CLIENT_ID
and AZURE_CLIENT_SECRET. Azure blobs are read with the ambient Azure
credential chain, S3 objects with the default AWS configuration.`,
		Example: `  blob2spo copy --storage-account acct --container-name exports \
    --blob-name 2024/report.csv --spo-domain contoso --spo-site MVP \
    --spo-path "/sites/MVP/Shared Documents"`,
		Args: cobra.NoArgs,
		RunE: runCopy,
	}

	f := cmd.Flags()
	f.String("storage-account", "", "Azure storage account")
	f.String("container-name", "", "Azure container, S3 bucket, or base directory for --source file")
	f.String("blob-name", "", "blob name, object key, or file path")
	f.String("source", string(blob.KindAzure), "blob store: azure, s3, or file")
	f.String("service-url", "", "Azure blob service URL override (may carry a SAS token)")
	f.String("s3-region", "", "S3 region (default from the AWS configuration)")
	f.String("s3-endpoint", "", "S3-compatible endpoint URL")
	f.String("spo-domain", "", "SharePoint tenant name, e.g. contoso for contoso.sharepoint.com")
	f.String("spo-site", "", "SharePoint site name")
	f.String("spo-path", "", "server-relative folder, e.g. \"/sites/MVP/Shared Documents\"")
	f.String("file-name", "", "destination file name (default: base name of the blob)")
	f.String("chunk-size", "", "chunk size for large files, e.g. 64MiB (1MiB to 250MiB)")
	f.Duration("timeout", 0, "abort the copy after this long (0 = no limit)")

	return cmd
}

func runCopy(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	f := cmd.Flags()

	source, _ := f.GetString("source")

	kind, err := blob.ParseKind(source)
	if err != nil {
		return err
	}

	account, _ := f.GetString("storage-account")
	container, _ := f.GetString("container-name")
	name, _ := f.GetString("blob-name")
	region, _ := f.GetString("s3-region")
	serviceURL, _ := f.GetString("service-url")
	s3Endpoint, _ := f.GetString("s3-endpoint")
	fileName, _ := f.GetString("file-name")
	timeout, _ := f.GetDuration("timeout")

	job := &copyJob{
		Credential: spo.AppCredential{
			TenantID:     cc.Cfg.Credentials.TenantID,
			ClientID:     cc.Cfg.Credentials.ClientID,
			ClientSecret: cc.Cfg.Credentials.ClientSecret,
		},
		Domain:   cc.Cfg.SPODomain,
		Site:     cc.Cfg.SPOSite,
		Path:     cc.Cfg.SPOPath,
		FileName: fileName,
		Location: blob.Location{
			Kind:      kind,
			Account:   account,
			Region:    region,
			Container: container,
			Name:      name,
		},
		BlobOpts: blob.Options{
			Azure: blob.AzureOptions{ServiceURL: serviceURL},
			S3:    blob.S3Options{Endpoint: s3Endpoint},
		},
	}

	ctx := shutdownContext(cmd.Context(), cc.Logger)

	if timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	progress := newProgressPrinter(os.Stderr, cc.Flags.Quiet)

	start := time.Now()
	res, err := newJobRunner(cc.Cfg, cc.Logger).run(ctx, job, progress.Update)

	progress.Done()

	if err != nil {
		return fmt.Errorf("copy failed: %w", err)
	}

	mode := "single request"
	if res.Chunked {
		mode = fmt.Sprintf("%d chunks", res.Chunks)
	}

	cc.Statusf("Copied %s to %s (%s, %s, %s)\n",
		job.Location.Name, job.destination(), formatSize(res.Bytes), mode,
		time.Since(start).Round(time.Millisecond))

	return nil
}
