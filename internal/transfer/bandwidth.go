package transfer

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// burstMultiplier sizes the token bucket relative to the per-second rate, so
// a short stall can be made up on the next read without exceeding the
// sustained limit.
const burstMultiplier = 2

// BandwidthLimiter caps the rate at which a transfer reads its source. Since
// writes to SharePoint are synchronous with reads, this bounds the upload
// rate too. A nil limiter is unlimited. One limiter may be shared by
// concurrent transfers to cap their aggregate rate.
type BandwidthLimiter struct {
	limiter *rate.Limiter
}

// NewBandwidthLimiter returns a limiter for bytesPerSec, or nil when
// bytesPerSec is not positive.
func NewBandwidthLimiter(bytesPerSec int64) *BandwidthLimiter {
	if bytesPerSec <= 0 {
		return nil
	}

	burst := int(bytesPerSec) * burstMultiplier

	return &BandwidthLimiter{limiter: rate.NewLimiter(rate.Limit(bytesPerSec), burst)}
}

// WrapReader returns r throttled to the limiter's rate. A nil limiter
// returns r unchanged.
func (bl *BandwidthLimiter) WrapReader(ctx context.Context, r io.Reader) io.Reader {
	if bl == nil {
		return r
	}

	return &throttledReader{r: r, limiter: bl.limiter, ctx: ctx}
}

// throttledReader waits for tokens after each read for the bytes it returned.
type throttledReader struct {
	r       io.Reader
	limiter *rate.Limiter
	ctx     context.Context
}

func (t *throttledReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if n > 0 {
		if waitErr := waitN(t.ctx, t.limiter, n); waitErr != nil {
			return n, waitErr
		}
	}

	return n, err
}

// waitN takes n tokens in burst-sized steps; rate.Limiter.WaitN rejects
// requests larger than the burst.
func waitN(ctx context.Context, limiter *rate.Limiter, n int) error {
	burst := limiter.Burst()

	for n > 0 {
		take := min(n, burst)

		if err := limiter.WaitN(ctx, take); err != nil {
			return err
		}

		n -= take
	}

	return nil
}
