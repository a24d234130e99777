package spo

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// Endpoint identifies a destination file in a SharePoint document library
// and renders the REST URLs that operate on it. It is a value type: the With*
// methods return modified copies and never mutate the receiver, so an
// Endpoint can be shared freely between calls.
type Endpoint struct {
	// Origin overrides the scheme and host ("https://contoso.sharepoint.com").
	// Empty means derive it from Domain.
	Origin string

	Domain   string // tenant prefix, "contoso" for contoso.sharepoint.com
	Site     string // site name under /sites/
	Path     string // server-relative folder, "/sites/MVP/Shared Documents"
	FileName string

	UploadID uuid.UUID // set once a chunked upload starts
	Offset   int64     // byte offset for ContinueUpload / FinishUpload
}

// NewEndpoint returns an Endpoint for fileName inside the server-relative
// folder path on the given site.
func NewEndpoint(domain, site, path, fileName string) Endpoint {
	return Endpoint{
		Domain:   domain,
		Site:     site,
		Path:     path,
		FileName: fileName,
	}
}

// WithOrigin returns a copy of e with the scheme and host overridden.
func (e Endpoint) WithOrigin(origin string) Endpoint {
	e.Origin = strings.TrimSuffix(origin, "/")
	return e
}

// WithUploadID returns a copy of e bound to an upload session.
func (e Endpoint) WithUploadID(id uuid.UUID) Endpoint {
	e.UploadID = id
	return e
}

// WithOffset returns a copy of e at the given file offset.
func (e Endpoint) WithOffset(offset int64) Endpoint {
	e.Offset = offset
	return e
}

// Validate reports missing fields required to render any write URL.
func (e Endpoint) Validate() error {
	switch {
	case e.Domain == "" && e.Origin == "":
		return fmt.Errorf("spo: endpoint: domain must not be empty")
	case e.Site == "":
		return fmt.Errorf("spo: endpoint: site must not be empty")
	case e.Path == "":
		return fmt.Errorf("spo: endpoint: path must not be empty")
	case e.FileName == "":
		return fmt.Errorf("spo: endpoint: file name must not be empty")
	case strings.Contains(e.FileName, "/"):
		return fmt.Errorf("spo: endpoint: file name %q must not contain '/'", e.FileName)
	}

	return nil
}

// String identifies the destination for logs.
func (e Endpoint) String() string {
	return e.webURL() + " " + e.filePath()
}

// ContextInfoURL renders the form digest endpoint.
func (e Endpoint) ContextInfoURL() string {
	return e.apiURL() + "/contextinfo"
}

// SaveURL renders the one-time save endpoint. It creates or overwrites the
// file with the request body.
func (e Endpoint) SaveURL() string {
	return fmt.Sprintf("%s/web/GetFolderByServerRelativeUrl('%s')/Files/add(url='%s',overwrite=true)",
		e.apiURL(), escapePath(e.Path), escapeLiteral(e.fileName()))
}

// StartUploadURL renders the StartUpload endpoint for e.UploadID.
func (e Endpoint) StartUploadURL() string {
	return fmt.Sprintf("%s/StartUpload(uploadId=guid'%s')", e.fileURL(), e.UploadID)
}

// ContinueUploadURL renders the ContinueUpload endpoint for e.UploadID at e.Offset.
func (e Endpoint) ContinueUploadURL() string {
	return fmt.Sprintf("%s/ContinueUpload(uploadId=guid'%s',fileOffset=%d)", e.fileURL(), e.UploadID, e.Offset)
}

// FinishUploadURL renders the FinishUpload endpoint for e.UploadID at e.Offset.
func (e Endpoint) FinishUploadURL() string {
	return fmt.Sprintf("%s/FinishUpload(uploadId=guid'%s',fileOffset=%d)", e.fileURL(), e.UploadID, e.Offset)
}

func (e Endpoint) origin() string {
	if e.Origin != "" {
		return e.Origin
	}

	return "https://" + e.Domain + ".sharepoint.com"
}

func (e Endpoint) webURL() string {
	return e.origin() + "/sites/" + url.PathEscape(e.Site)
}

func (e Endpoint) apiURL() string {
	return e.webURL() + "/_api"
}

func (e Endpoint) fileURL() string {
	return fmt.Sprintf("%s/web/GetFileByServerRelativeUrl('%s')", e.apiURL(), escapePath(e.filePath()))
}

// fileName returns the NFC form of the file name. SharePoint stores names
// NFC-normalized; NFD input from macOS-originated blobs would otherwise
// render a different URL for the same logical name.
func (e Endpoint) fileName() string {
	return norm.NFC.String(e.FileName)
}

func (e Endpoint) filePath() string {
	return strings.TrimSuffix(e.Path, "/") + "/" + e.fileName()
}

// escapeLiteral prepares a value for an OData string literal inside a URL
// path: single quotes are doubled, then the value is percent-encoded.
func escapeLiteral(s string) string {
	return url.PathEscape(strings.ReplaceAll(s, "'", "''"))
}

// escapePath applies escapeLiteral to each '/'-separated segment.
func escapePath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = escapeLiteral(s)
	}

	return strings.Join(segs, "/")
}
