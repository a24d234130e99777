package transfer

import "fmt"

// SourceReadError reports a failure to open or read the blob stream. Offset
// is the number of bytes read successfully before the failure.
type SourceReadError struct {
	Source string
	Offset int64
	Err    error
}

func (e *SourceReadError) Error() string {
	return fmt.Sprintf("transfer: reading %s at offset %d: %v", e.Source, e.Offset, e.Err)
}

func (e *SourceReadError) Unwrap() error {
	return e.Err
}
