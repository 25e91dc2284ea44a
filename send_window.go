package streamgen

import (
	"fmt"
	"io"
	"sync"
	"time"
)

type bucket struct {
	sent   int64
	failed int64
}

// SendWindow keeps per-bucket send counters for the last few buckets.
type SendWindow struct {
	mu             sync.Mutex
	bucketInterval int64 // bucket interval in seconds
	expected       int64 // expected number of sends per bucket, used for progress bar
	minBucketID    int64 // minimum bucket id
	buckets        []bucket
	lastUpdate     time.Time
}

// NewSendWindow returns new SendWindow instance.
func NewSendWindow(bucketInterval, expected, buckets int64, now time.Time) *SendWindow {
	if bucketInterval <= 0 {
		bucketInterval = 1
	}
	if buckets <= 0 {
		buckets = 1
	}

	return &SendWindow{
		bucketInterval: bucketInterval,
		expected:       expected,
		minBucketID:    timeToBucketID(now, bucketInterval) - buckets + 1,
		buckets:        make([]bucket, buckets),
	}
}

// Add counts send made at t. Returns FALSE if t is older than the window.
func (w *SendWindow) Add(t time.Time, failed bool) bool {
	index := timeToBucketID(t, w.bucketInterval)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastUpdate = t

	max := w.minBucketID + int64(len(w.buckets)) - 1

	if index < w.minBucketID {
		return false
	}

	if index > max {
		// shift window forward by n buckets
		n := index - max
		if n > int64(len(w.buckets)) {
			n = int64(len(w.buckets))
			w.minBucketID = index - n + 1
			for i := range w.buckets {
				w.buckets[i] = bucket{}
			}
		} else {
			w.buckets = append(w.buckets[n:], make([]bucket, n)...)
			w.minBucketID += n
		}
	}

	b := &w.buckets[index-w.minBucketID]
	if failed {
		b.failed++
	} else {
		b.sent++
	}

	return true
}

// LastUpdate returns time of the last Add call.
func (w *SendWindow) LastUpdate() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.lastUpdate
}

// Totals returns sums over the window.
func (w *SendWindow) Totals() (sent, failed int64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, b := range w.buckets {
		sent += b.sent
		failed += b.failed
	}

	return sent, failed
}

// WriteStatus writes text based status into Writer.
func (w *SendWindow) WriteStatus(out io.Writer) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i, b := range w.buckets {
		if _, err := fmt.Fprintf(out, "#%s: ", bucketIDToTime(int64(i)+w.minBucketID, w.bucketInterval)); err != nil {
			return err
		}
		progress(out, b.sent, w.expected, 20)
		if _, err := fmt.Fprintf(out, " %d/%d failed=%d\n", b.sent, w.expected, b.failed); err != nil {
			return err
		}
	}

	return nil
}

func progress(w io.Writer, current, limit, max int64) {
	var p float64
	if limit > 0 {
		p = float64(current) / float64(limit) * float64(max)
	}

	fmt.Fprint(w, "[")
	for i := int64(0); i < max; i++ {
		if i < int64(p) {
			fmt.Fprint(w, "#")
		} else {
			fmt.Fprint(w, "_")
		}
	}
	fmt.Fprint(w, "]")
}

// bucketIDToTime converts bucketID to time. This time is start of the bucket.
func bucketIDToTime(id int64, interval int64) time.Time {
	return time.Unix(id*interval, 0)
}

// timeToBucketID converts time to bucketID.
func timeToBucketID(t time.Time, interval int64) int64 {
	return t.Unix() / interval
}
