package transfer

// Event identifies a step of a transfer reported to a StatusFunc.
type Event int

const (
	StartDownload Event = iota
	Downloading
	DownloadComplete
	StartUpload
	ContinueUpload
	FinishUpload
	UploadComplete
)

func (e Event) String() string {
	switch e {
	case StartDownload:
		return "start download"
	case Downloading:
		return "downloading"
	case DownloadComplete:
		return "download complete"
	case StartUpload:
		return "start upload"
	case ContinueUpload:
		return "continue upload"
	case FinishUpload:
		return "finish upload"
	case UploadComplete:
		return "upload complete"
	default:
		return "unknown"
	}
}

// Status is one progress report.
type Status struct {
	Event Event
	// Bytes is the size of the write for upload events and the total read so
	// far for download events.
	Bytes int64
	// Offset is the number of bytes SharePoint has accepted so far.
	Offset int64
}

// StatusFunc receives progress reports. It is called synchronously on the
// transfer goroutine and must not block.
type StatusFunc func(Status)
