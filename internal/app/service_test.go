package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/tapline/tapline/internal/adapters/prefs"
	app "github.com/tapline/tapline/internal/app"
	"github.com/tapline/tapline/internal/domain/model"
	"github.com/tapline/tapline/pkg/logger"
)

func init() {
	_ = logger.Init()
}

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// testClock hands out a fixed instant that tests advance explicitly.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock { return &testClock{now: base} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingSink captures published updates.
type recordingSink struct {
	mu      sync.Mutex
	updates []model.Update
}

func (r *recordingSink) Publish(_ context.Context, update model.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, update)
}

func (r *recordingSink) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.updates)
}

func (r *recordingSink) last() model.Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updates[len(r.updates)-1]
}

func startService(t *testing.T, opts ...app.Option) (*app.Service, *testClock) {
	t.Helper()

	clock := newTestClock()
	base := []app.Option{
		app.WithPrefs(prefs.NewMemoryStore()),
		app.WithClock(clock.Now),
	}
	svc := app.New(append(base, opts...)...)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(svc.Stop)
	return svc, clock
}

func tapAt(svc *app.Service, clock *testClock, advance time.Duration) model.TapResult {
	clock.Advance(advance)
	res, _, _ := svc.Tap(context.Background(), model.Tap{Source: model.SourceKey})
	return res
}

func TestServiceTap(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc, clock := startService(t)

		Convey("When recording the first tap", func() {
			res, dup, err := svc.Tap(ctx, model.Tap{Source: model.SourceClick})

			Convey("Then it establishes the baseline only", func() {
				So(err, ShouldBeNil)
				So(dup, ShouldBeFalse)
				So(res.Taps, ShouldEqual, 1)
				So(res.InstantBPM, ShouldBeNil)
			})
		})

		Convey("When tapping twice 500 ms apart", func() {
			tapAt(svc, clock, 0)
			res := tapAt(svc, clock, 500*time.Millisecond)

			Convey("Then the second tap reads 120 BPM", func() {
				So(res.InstantBPM, ShouldNotBeNil)
				So(*res.InstantBPM, ShouldEqual, 120)
			})
		})

		Convey("When a tap replays an already-seen event ID", func() {
			_, _, err := svc.Tap(ctx, model.Tap{EventID: "tap-1", Source: model.SourceKey})
			So(err, ShouldBeNil)

			clock.Advance(500 * time.Millisecond)
			_, dup, err := svc.Tap(ctx, model.Tap{EventID: "tap-1", Source: model.SourceKey})

			Convey("Then it is acknowledged as duplicate without reaching the estimator", func() {
				So(err, ShouldBeNil)
				So(dup, ShouldBeTrue)
				So(svc.Snapshot(ctx).Taps, ShouldEqual, 1)
			})
		})

		Convey("When taps arrive concurrently", func() {
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func(n int) {
					defer wg.Done()
					svc.Tap(ctx, model.Tap{
						Source: model.SourceClick,
						At:     base.Add(time.Duration(n) * 10 * time.Millisecond),
					})
				}(i)
			}
			wg.Wait()

			Convey("Then the history/count invariant holds", func() {
				snap := svc.Snapshot(ctx)
				// Out-of-order instants may be rejected, never corrupt state.
				So(snap.Taps, ShouldBeGreaterThan, 0)
				So(len(snap.History), ShouldEqual, snap.Taps-1)
			})
		})
	})
}

func TestServiceTarget(t *testing.T) {
	Convey("Given a started service with a memory store", t, func() {
		ctx := context.Background()
		store := prefs.NewMemoryStore()
		svc, clock := startService(t, app.WithPrefs(store))

		Convey("When setting a valid target", func() {
			err := svc.SetTarget(ctx, 120)

			Convey("Then it is applied and written through", func() {
				So(err, ShouldBeNil)
				snap := svc.Snapshot(ctx)
				So(snap.TargetBPM, ShouldNotBeNil)
				So(*snap.TargetBPM, ShouldEqual, 120)

				persisted, ok := prefs.TargetBPM(ctx, store)
				So(ok, ShouldBeTrue)
				So(persisted, ShouldEqual, 120)
			})

			Convey("And subsequent taps carry accuracy", func() {
				tapAt(svc, clock, 0)
				res := tapAt(svc, clock, 500*time.Millisecond)
				So(res.Accuracy, ShouldNotBeNil)
				So(*res.Accuracy, ShouldEqual, 100)
			})
		})

		Convey("When setting an invalid target", func() {
			err := svc.SetTarget(ctx, 0)

			Convey("Then it is rejected and the prior state retained", func() {
				So(err, ShouldNotBeNil)
				So(svc.Snapshot(ctx).TargetBPM, ShouldBeNil)
				_, ok := prefs.TargetBPM(ctx, store)
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When clearing the target", func() {
			So(svc.SetTarget(ctx, 120), ShouldBeNil)
			So(svc.ClearTarget(ctx), ShouldBeNil)

			Convey("Then accuracy disappears from later taps", func() {
				So(svc.Snapshot(ctx).TargetBPM, ShouldBeNil)
				tapAt(svc, clock, 0)
				res := tapAt(svc, clock, 500*time.Millisecond)
				So(res.Accuracy, ShouldBeNil)
			})
		})
	})

	Convey("Given a persisted target from a previous run", t, func() {
		ctx := context.Background()
		store := prefs.NewMemoryStore()
		So(prefs.SetTargetBPM(ctx, store, 90), ShouldBeNil)

		svc, _ := startService(t, app.WithPrefs(store))

		Convey("Then the service loads it at startup", func() {
			snap := svc.Snapshot(ctx)
			So(snap.TargetBPM, ShouldNotBeNil)
			So(*snap.TargetBPM, ShouldEqual, 90)
		})
	})

	Convey("Given a malformed persisted target", t, func() {
		ctx := context.Background()
		store := prefs.NewMemoryStore()
		So(store.Set(ctx, prefs.KeyTargetBPM, "fast"), ShouldBeNil)

		svc, _ := startService(t, app.WithPrefs(store))

		Convey("Then the default (no target) applies", func() {
			So(svc.Snapshot(ctx).TargetBPM, ShouldBeNil)
		})
	})
}

func TestServiceShowAccuracy(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		store := prefs.NewMemoryStore()
		svc, clock := startService(t, app.WithPrefs(store))

		Convey("Then accuracy display defaults to hidden", func() {
			So(svc.Snapshot(ctx).ShowAccuracy, ShouldBeFalse)
		})

		Convey("When enabling accuracy display", func() {
			So(svc.SetShowAccuracy(ctx, true), ShouldBeNil)

			Convey("Then the flag is applied and persisted", func() {
				So(svc.Snapshot(ctx).ShowAccuracy, ShouldBeTrue)
				So(prefs.ShowAccuracy(ctx, store), ShouldBeTrue)
			})

			Convey("And the flag is presentation-only: accuracy is still computed", func() {
				So(svc.SetShowAccuracy(ctx, false), ShouldBeNil)
				So(svc.SetTarget(ctx, 120), ShouldBeNil)
				tapAt(svc, clock, 0)
				res := tapAt(svc, clock, 500*time.Millisecond)
				So(res.Accuracy, ShouldNotBeNil)
			})
		})
	})
}

func TestServiceReset(t *testing.T) {
	Convey("Given a service with accumulated session state", t, func() {
		ctx := context.Background()
		store := prefs.NewMemoryStore()
		svc, clock := startService(t, app.WithPrefs(store))

		So(svc.SetTarget(ctx, 120), ShouldBeNil)
		So(svc.SetShowAccuracy(ctx, true), ShouldBeNil)
		for i := 0; i < 5; i++ {
			tapAt(svc, clock, 500*time.Millisecond)
		}
		before := svc.Snapshot(ctx)

		Convey("When resetting", func() {
			snap, err := svc.Reset(ctx)

			Convey("Then the session returns to defaults", func() {
				So(err, ShouldBeNil)
				So(snap.Taps, ShouldEqual, 0)
				So(snap.History, ShouldBeEmpty)
				So(snap.TargetBPM, ShouldBeNil)
				So(snap.ShowAccuracy, ShouldBeFalse)
			})

			Convey("And the session identity changes", func() {
				So(snap.SessionID, ShouldNotEqual, before.SessionID)
			})

			Convey("And the whole preference store is cleared", func() {
				_, ok := prefs.TargetBPM(ctx, store)
				So(ok, ShouldBeFalse)
				So(prefs.ShowAccuracy(ctx, store), ShouldBeFalse)
			})

			Convey("And resetting twice equals resetting once", func() {
				again, err := svc.Reset(ctx)
				So(err, ShouldBeNil)
				So(again.Taps, ShouldEqual, 0)
				So(again.History, ShouldBeEmpty)
			})
		})
	})
}

func TestServiceSinks(t *testing.T) {
	Convey("Given a service with a registered sink", t, func() {
		ctx := context.Background()
		sink := &recordingSink{}
		svc, clock := startService(t, app.WithSink(sink))

		Convey("When a tap is recorded", func() {
			tapAt(svc, clock, 0)
			res := tapAt(svc, clock, 500*time.Millisecond)

			Convey("Then the sink receives the result and snapshot", func() {
				So(sink.len(), ShouldEqual, 2)
				update := sink.last()
				So(update.Result, ShouldNotBeNil)
				So(*update.Result.InstantBPM, ShouldEqual, *res.InstantBPM)
				So(update.Snapshot.Taps, ShouldEqual, 2)
			})
		})

		Convey("When the target changes", func() {
			So(svc.SetTarget(ctx, 100), ShouldBeNil)

			Convey("Then the sink receives a snapshot-only update", func() {
				So(sink.len(), ShouldEqual, 1)
				update := sink.last()
				So(update.Result, ShouldBeNil)
				So(*update.Snapshot.TargetBPM, ShouldEqual, 100)
			})
		})
	})
}

func TestServiceLifecycle(t *testing.T) {
	Convey("Given an unstarted service", t, func() {
		svc := app.New(app.WithPrefs(prefs.NewMemoryStore()))

		Convey("Then operations fail with ErrNotStarted", func() {
			_, _, err := svc.Tap(context.Background(), model.Tap{})
			So(err, ShouldEqual, app.ErrNotStarted)

			So(svc.SetTarget(context.Background(), 120), ShouldEqual, app.ErrNotStarted)
		})

		Convey("When started twice", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			defer svc.Stop()

			Convey("Then the second start is a no-op", func() {
				So(svc.Start(context.Background()), ShouldBeNil)
			})
		})
	})
}
