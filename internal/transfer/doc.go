// Package transfer moves one blob into SharePoint Online. It reads the source
// stream in fragments, accumulates them into chunks, and maps the chunks onto
// either a single one-time save or the StartUpload / ContinueUpload /
// FinishUpload session protocol.
//
// An Engine holds no per-transfer state; every Copy call runs its own Session
// on the calling goroutine, so one Engine may serve concurrent transfers.
// Memory per transfer is bounded by the chunk threshold plus one fragment.
package transfer
