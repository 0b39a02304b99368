package paramsync

import (
	"testing"
	"time"

	testingclock "k8s.io/utils/clock/testing"

	"github.com/autopeer-io/paramsync/pkg/log"
	"github.com/autopeer-io/paramsync/pkg/mavlink"
)

func newTestFetcher(clk *testingclock.FakeClock, fired chan event) *fetcher {
	return &fetcher{
		sess:     &session{key: VehicleKey{SystemID: 1, ComponentID: 1}},
		send:     func(mavlink.Payload) error { return nil },
		timer:    newWatchdog(clk, timerFetch, func(ev event) { fired <- ev }),
		timeout:  func() time.Duration { return time.Second },
		logger:   log.NewNopLogger(),
		strategy: FetchParamList,
	}
}

func expectNoExpiry(t *testing.T, fired chan event) {
	t.Helper()
	select {
	case ev := <-fired:
		t.Fatalf("fetch watchdog fired early: %+v", ev)
	default:
	}
}

func TestFetcherValuesExtendTimeout(t *testing.T) {
	clk := testingclock.NewFakeClock(time.Now())
	fired := make(chan event, 4)
	f := newTestFetcher(clk, fired)

	if !f.begin() {
		t.Fatal("begin() = false on an idle fetcher")
	}
	if f.begin() {
		t.Error("second begin() = true while a fetch is in flight")
	}
	if f.sess.counters.ListRequests != 1 {
		t.Errorf("list requests = %d, want 1", f.sess.counters.ListRequests)
	}

	for i := range 3 {
		clk.Step(900 * time.Millisecond)
		if done, ok := f.addValue(&mavlink.ParamValue{ParamID: "P", ParamIndex: uint16(i), ParamCount: 100}); done || !ok {
			t.Fatalf("addValue(%d) = %v, %v", i, done, ok)
		}
	}
	expectNoExpiry(t, fired)

	clk.Step(time.Second)
	select {
	case ev := <-fired:
		if !f.expire(ev.epoch) {
			t.Error("expire() = false for the current arming")
		}
	default:
		t.Fatal("fetch watchdog did not fire after a silent second")
	}
	if received, expected := f.progress(); received != 3 || expected != 100 {
		t.Errorf("progress() = %d/%d, want 3/100", received, expected)
	}
}

func TestFetcherDeadline(t *testing.T) {
	clk := testingclock.NewFakeClock(time.Now())
	fired := make(chan event, 4)
	f := newTestFetcher(clk, fired)
	f.begin()

	// One value every 900ms keeps the per-value timer alive until the
	// deadline of ten fetch timeouts.
	var i int
	for ; clk.Since(f.deadline) < -900*time.Millisecond; i++ {
		clk.Step(900 * time.Millisecond)
		f.addValue(&mavlink.ParamValue{ParamID: "P", ParamIndex: uint16(i), ParamCount: 1000})
		expectNoExpiry(t, fired)
	}
	if i != 11 {
		t.Fatalf("sent %d values before the deadline, want 11", i)
	}

	clk.Step(100 * time.Millisecond)
	select {
	case ev := <-fired:
		if !f.expire(ev.epoch) {
			t.Error("expire() = false at the deadline")
		}
	default:
		t.Fatal("fetch ran past its deadline")
	}
}

func TestFetcherIgnoresValuesWhenIdle(t *testing.T) {
	clk := testingclock.NewFakeClock(time.Now())
	f := newTestFetcher(clk, make(chan event, 1))

	if done, ok := f.addValue(&mavlink.ParamValue{ParamID: "P", ParamCount: 1}); done || ok {
		t.Errorf("addValue() on idle fetcher = %v, %v, want false, false", done, ok)
	}
	f.begin()
	if done, ok := f.addValue(&mavlink.ParamValue{ParamID: "P", ParamCount: 1}); !done || !ok {
		t.Errorf("addValue() of the only value = %v, %v, want true, true", done, ok)
	}
	if got := f.result()["P"]; got != 0 || len(f.result()) != 1 {
		t.Errorf("result() = %v", f.result())
	}
}
