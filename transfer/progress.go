package transfer

import (
	"sync"
	"time"
)

// Stats tracks byte-level progress across the transfers of a batch. A single
// Stats is shared by all workers of a [Handler] and is safe for concurrent
// use.
type Stats struct {
	sync.RWMutex
	Error            error
	Started          bool
	Finished         bool
	Percentage       float64
	TimeRemaining    time.Duration
	EstimatedFinish  time.Time
	StartTime        time.Time
	EndTime          time.Time
	BytesTotal       uint64
	BytesTransferred uint64
	TransferRate     float64
}

// Start arms the tracker for a batch expected to transfer bytesTotal bytes.
func (t *Stats) Start(bytesTotal uint64) {
	t.Lock()
	defer t.Unlock()

	now := time.Now()

	t.Started = true
	t.StartTime = now
	t.BytesTotal = bytesTotal
	t.BytesTransferred = 0
	t.Percentage = 0
	t.TransferRate = 0

	t.EstimatedFinish = now.Add(1 * time.Second)
	t.TimeRemaining = 1 * time.Second
}

// End finalizes the tracker, pinning the figures to a completed batch.
func (t *Stats) End() {
	t.Lock()
	defer t.Unlock()

	t.Finished = true
	t.EndTime = time.Now()

	t.BytesTransferred = t.BytesTotal
	t.Percentage = 100.0
	t.TimeRemaining = 0
	t.EstimatedFinish = t.EndTime
}

// IsStarted returns whether the tracker was armed for a batch.
func (t *Stats) IsStarted() bool {
	t.RLock()
	defer t.RUnlock()

	return t.Started
}

// IsDone returns whether the tracked batch has finished.
func (t *Stats) IsDone() bool {
	t.RLock()
	defer t.RUnlock()

	return t.Finished
}

// IsError returns whether a batch-fatal error was recorded.
func (t *Stats) IsError() bool {
	t.RLock()
	defer t.RUnlock()

	return t.Error != nil
}

// SetError records a batch-fatal error.
func (t *Stats) SetError(err error) {
	t.Lock()
	defer t.Unlock()

	t.Error = err
}

// Add records n transferred bytes and refreshes the derived percentage, rate
// and ETA figures. Figures settle only after the batch has run for at least a
// second.
func (t *Stats) Add(n uint64) {
	t.Lock()
	defer t.Unlock()

	t.BytesTransferred += n

	if !t.Started {
		return
	}

	now := time.Now()
	elapsed := now.Sub(t.StartTime)

	if elapsed < time.Second {
		return
	}

	if t.BytesTotal > 0 {
		t.Percentage = float64(t.BytesTransferred) / float64(t.BytesTotal) * 100 //nolint:mnd
	}

	instantRate := float64(t.BytesTransferred) / elapsed.Seconds()

	if t.TransferRate == 0 {
		t.TransferRate = instantRate
	} else {
		t.TransferRate = 0.7*t.TransferRate + 0.3*instantRate //nolint:mnd
	}

	if t.TransferRate > 0 && t.BytesTransferred < t.BytesTotal {
		bytesRemaining := t.BytesTotal - t.BytesTransferred
		secondsRemaining := float64(bytesRemaining) / t.TransferRate
		t.TimeRemaining = time.Duration(secondsRemaining) * time.Second
		t.EstimatedFinish = now.Add(t.TimeRemaining)
	}
}

// GetStats returns the percentage, estimated finish, time remaining,
// transferred bytes, total bytes and the weighted transfer rate.
func (t *Stats) GetStats() (float64, time.Time, time.Duration, uint64, uint64, float64) {
	t.RLock()
	defer t.RUnlock()

	return t.Percentage, t.EstimatedFinish, t.TimeRemaining, t.BytesTransferred, t.BytesTotal, t.TransferRate
}
