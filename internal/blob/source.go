// Package blob opens read streams on the objects a transfer copies from:
// Azure Blob Storage, Amazon S3, or a local file.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Kind names a blob store.
type Kind string

const (
	KindAzure Kind = "azure"
	KindS3    Kind = "s3"
	KindFile  Kind = "file"
)

// ParseKind validates a store name. An empty name selects Azure.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KindAzure, nil
	case KindAzure, KindS3, KindFile:
		return k, nil
	default:
		return "", fmt.Errorf("blob: unknown source %q (want azure, s3, or file)", s)
	}
}

// Source is a readable blob.
type Source interface {
	// Open starts streaming the blob from its first byte. The caller closes
	// the returned reader.
	Open(ctx context.Context) (io.ReadCloser, error)
	// String identifies the blob, e.g. "azure://account/container/name".
	String() string
}

// Location addresses one blob. Container is the Azure container, the S3
// bucket, or an optional base directory for files.
type Location struct {
	Kind      Kind
	Account   string // Azure storage account
	Region    string // S3 region; empty uses the AWS default chain
	Container string
	Name      string
}

// Validate reports missing fields for the location's kind.
func (l Location) Validate() error {
	var errs []error

	if l.Name == "" {
		errs = append(errs, errors.New("blob name must not be empty"))
	}

	switch l.Kind {
	case KindAzure:
		if l.Account == "" {
			errs = append(errs, errors.New("storage account must not be empty"))
		}

		if l.Container == "" {
			errs = append(errs, errors.New("container name must not be empty"))
		}
	case KindS3:
		if l.Container == "" {
			errs = append(errs, errors.New("bucket (container name) must not be empty"))
		}
	case KindFile:
	default:
		errs = append(errs, fmt.Errorf("unknown source kind %q", l.Kind))
	}

	return errors.Join(errs...)
}

// Options carries the clients and credentials NewSource may need. Zero
// fields fall back to the ambient environment.
type Options struct {
	Azure AzureOptions
	S3    S3Options
}

// NewSource builds the Source for loc.
func NewSource(ctx context.Context, loc Location, opts Options) (Source, error) {
	if err := loc.Validate(); err != nil {
		return nil, fmt.Errorf("blob: %w", err)
	}

	switch loc.Kind {
	case KindAzure:
		return NewAzureSource(loc.Account, loc.Container, loc.Name, opts.Azure)
	case KindS3:
		return NewS3Source(ctx, loc.Region, loc.Container, loc.Name, opts.S3)
	default:
		return NewFileSource(loc.Container, loc.Name), nil
	}
}
