package paramsync

import (
	"maps"
	"time"

	"github.com/autopeer-io/paramsync/pkg/log"
	"github.com/autopeer-io/paramsync/pkg/mavlink"
)

// FetchStrategy selects how the full parameter set is acquired.
type FetchStrategy int

const (
	// FetchParamList streams PARAM_VALUE messages after a PARAM_REQUEST_LIST.
	FetchParamList FetchStrategy = iota
	// FetchFileTransfer downloads the packed parameter file.
	FetchFileTransfer
)

func (s FetchStrategy) String() string {
	if s == FetchFileTransfer {
		return "file"
	}
	return "list"
}

// FetchOutcome is the result of a full fetch.
type FetchOutcome int

const (
	FetchCompleted FetchOutcome = iota
	FetchTimedOut
)

func (o FetchOutcome) String() string {
	if o == FetchCompleted {
		return "completed"
	}
	return "timed_out"
}

// fetchDeadlineFactor caps a whole fetch at this many fetch timeouts from the
// request, however steadily values keep arriving.
const fetchDeadlineFactor = 10

// fetcher collects the complete parameter set.
type fetcher struct {
	sess     *session
	send     func(mavlink.Payload) error
	timer    *watchdog
	timeout  func() time.Duration
	logger   log.Logger
	strategy FetchStrategy

	inFlight bool
	deadline time.Time
	expected int
	received map[uint16]struct{}
	values   map[string]float64
}

// begin issues one acquisition request. It returns false when a fetch is
// already in flight.
func (f *fetcher) begin() bool {
	if f.inFlight {
		return false
	}
	f.inFlight = true
	f.expected = 0
	f.received = make(map[uint16]struct{})
	f.values = make(map[string]float64)

	var req mavlink.Payload
	switch f.strategy {
	case FetchFileTransfer:
		f.sess.counters.FileRequests++
		req = &mavlink.FileTransferRequest{
			TargetSystem:    f.sess.key.SystemID,
			TargetComponent: f.sess.key.ComponentID,
			Path:            mavlink.ParamFilePath,
		}
	default:
		f.sess.counters.ListRequests++
		req = &mavlink.ParamRequestList{
			TargetSystem:    f.sess.key.SystemID,
			TargetComponent: f.sess.key.ComponentID,
		}
	}

	timeout := f.timeout()
	f.deadline = f.timer.clock.Now().Add(fetchDeadlineFactor * timeout)
	f.timer.arm(timeout)
	if err := f.send(req); err != nil {
		f.logger.Error(err, "Failed to send parameter request", "strategy", f.strategy.String())
	}
	return true
}

// addValue records one streamed value and re-arms the watchdog, never past the
// fetch deadline. done is true once every advertised index has arrived.
func (f *fetcher) addValue(v *mavlink.ParamValue) (done, ok bool) {
	if !f.inFlight || f.strategy != FetchParamList {
		return false, false
	}
	f.values[v.ParamID] = v.Value
	f.received[v.ParamIndex] = struct{}{}
	if int(v.ParamCount) > f.expected {
		f.expected = int(v.ParamCount)
	}

	if len(f.received) >= f.expected {
		f.finish()
		return true, true
	}
	f.timer.arm(f.nextTimeout())
	return false, true
}

func (f *fetcher) nextTimeout() time.Duration {
	d := f.timeout()
	if left := f.deadline.Sub(f.timer.clock.Now()); left < d {
		d = max(left, 0)
	}
	return d
}

// addFile records a downloaded parameter file, which completes the fetch.
func (f *fetcher) addFile(d *mavlink.FileTransferData) bool {
	if !f.inFlight || f.strategy != FetchFileTransfer || d.Path != mavlink.ParamFilePath {
		return false
	}
	maps.Copy(f.values, d.Params)
	f.finish()
	return true
}

func (f *fetcher) finish() {
	f.inFlight = false
	f.timer.stop()
}

// expire handles a timer expiry. It reports whether the expiry ended the fetch.
func (f *fetcher) expire(epoch uint64) bool {
	if !f.inFlight || !f.timer.fired(epoch) {
		return false
	}
	f.finish()
	return true
}

func (f *fetcher) cancel() {
	f.finish()
}

// result returns the collected parameters.
func (f *fetcher) result() map[string]float64 {
	return f.values
}

// progress returns received and expected value counts.
func (f *fetcher) progress() (int, int) {
	return len(f.received), f.expected
}
