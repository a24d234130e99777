package blob

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// AzureOptions configures the Azure Blob client.
type AzureOptions struct {
	// Credential authenticates blob reads. Nil uses DefaultAzureCredential
	// (environment, workload identity, managed identity, Azure CLI), unless
	// ServiceURL is set, in which case requests are anonymous.
	Credential azcore.TokenCredential
	// ServiceURL overrides https://{account}.blob.core.windows.net/. A SAS
	// token may be carried in its query string.
	ServiceURL string
	// Client is passed through to azblob.
	Client *azblob.ClientOptions
}

// AzureSource streams one block blob.
type AzureSource struct {
	client    *azblob.Client
	account   string
	container string
	name      string
}

// NewAzureSource creates a source for account/container/name.
func NewAzureSource(account, container, name string, opts AzureOptions) (*AzureSource, error) {
	client, err := newAzureClient(account, opts)
	if err != nil {
		return nil, err
	}

	return &AzureSource{client: client, account: account, container: container, name: name}, nil
}

func newAzureClient(account string, opts AzureOptions) (*azblob.Client, error) {
	if opts.ServiceURL != "" && opts.Credential == nil {
		client, err := azblob.NewClientWithNoCredential(opts.ServiceURL, opts.Client)
		if err != nil {
			return nil, fmt.Errorf("blob: creating azure client: %w", err)
		}

		return client, nil
	}

	serviceURL := opts.ServiceURL
	if serviceURL == "" {
		serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net/", account)
	}

	cred := opts.Credential
	if cred == nil {
		var err error

		cred, err = DefaultCredential()
		if err != nil {
			return nil, err
		}
	}

	client, err := azblob.NewClient(serviceURL, cred, opts.Client)
	if err != nil {
		return nil, fmt.Errorf("blob: creating azure client: %w", err)
	}

	return client, nil
}

// DefaultCredential returns the ambient Azure credential chain.
func DefaultCredential() (azcore.TokenCredential, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("blob: loading azure credential: %w", err)
	}

	return cred, nil
}

// Open starts a download stream of the whole blob.
func (s *AzureSource) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, s.name, nil)
	if err != nil {
		return nil, fmt.Errorf("blob: downloading %s: %w", s, err)
	}

	return resp.Body, nil
}

func (s *AzureSource) String() string {
	return fmt.Sprintf("azure://%s/%s/%s", s.account, s.container, s.name)
}
