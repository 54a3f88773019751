package tempo_test

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/tapline/tapline/internal/domain/tempo"
)

// base is an arbitrary fixed instant; tests drive the clock explicitly.
var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func at(ms int) time.Time {
	return base.Add(time.Duration(ms) * time.Millisecond)
}

func TestEstimatorRecordTap(t *testing.T) {
	Convey("Given a new estimator", t, func() {
		e := tempo.New()

		Convey("When recording the first tap", func() {
			res := e.RecordTap(at(0))

			Convey("Then it should only establish the baseline", func() {
				So(res.Taps, ShouldEqual, 1)
				So(res.InstantBPM, ShouldBeNil)
				So(res.RollingAverage, ShouldBeNil)
				So(res.Accuracy, ShouldBeNil)
				So(res.Rejected, ShouldBeFalse)
				So(e.History(), ShouldBeEmpty)
			})
		})

		Convey("When tapping at 0, 500 and 1000 ms", func() {
			first := e.RecordTap(at(0))
			second := e.RecordTap(at(500))
			third := e.RecordTap(at(1000))

			Convey("Then the first tap has no BPM and the rest read 120", func() {
				So(first.InstantBPM, ShouldBeNil)
				So(second.InstantBPM, ShouldNotBeNil)
				So(*second.InstantBPM, ShouldEqual, 120)
				So(third.InstantBPM, ShouldNotBeNil)
				So(*third.InstantBPM, ShouldEqual, 120)
			})

			Convey("And no rolling average exists with only two samples", func() {
				So(second.RollingAverage, ShouldBeNil)
				So(third.RollingAverage, ShouldBeNil)
			})

			Convey("And the interval is reported in milliseconds", func() {
				So(second.IntervalMillis, ShouldNotBeNil)
				So(*second.IntervalMillis, ShouldEqual, 500.0)
			})
		})

		Convey("When tapping with varying intervals", func() {
			e.RecordTap(at(0))
			res := e.RecordTap(at(750)) // 60000/750 = 80

			Convey("Then the BPM is rounded from float division", func() {
				So(*res.InstantBPM, ShouldEqual, 80)
			})

			res = e.RecordTap(at(750 + 433)) // 60000/433 = 138.568 -> 139
			So(*res.InstantBPM, ShouldEqual, 139)
		})
	})
}

func TestEstimatorInvariant(t *testing.T) {
	Convey("Given a sequence of taps with strictly increasing timestamps", t, func() {
		e := tempo.New()

		Convey("Then history length always equals max(taps-1, 0)", func() {
			So(len(e.History()), ShouldEqual, 0)
			So(e.Taps(), ShouldEqual, 0)

			for i := 0; i < 20; i++ {
				e.RecordTap(at(i * 400))
				So(len(e.History()), ShouldEqual, e.Taps()-1)
			}
		})

		Convey("And rejected taps leave the invariant untouched", func() {
			e.RecordTap(at(0))
			e.RecordTap(at(500))
			before := e.Taps()

			res := e.RecordTap(at(500)) // same instant
			So(res.Rejected, ShouldBeTrue)
			So(e.Taps(), ShouldEqual, before)
			So(len(e.History()), ShouldEqual, before-1)
		})
	})
}

func TestEstimatorRollingAverage(t *testing.T) {
	Convey("Given six taps 500 ms apart", t, func() {
		e := tempo.New()
		var results []int
		var avgs []*int
		for i := 0; i <= 6; i++ {
			res := e.RecordTap(at(i * 500))
			if res.InstantBPM != nil {
				results = append(results, *res.InstantBPM)
			}
			avgs = append(avgs, res.RollingAverage)
		}

		Convey("Then five samples of 120 precede the sixth", func() {
			So(results, ShouldResemble, []int{120, 120, 120, 120, 120, 120})
		})

		Convey("And the rolling average is absent through the fifth sample", func() {
			// avgs[0] is the baseline tap; avgs[1..5] carry samples 1-5.
			for i := 0; i <= 5; i++ {
				So(avgs[i], ShouldBeNil)
			}
		})

		Convey("And present from the sixth sample onward", func() {
			So(avgs[6], ShouldNotBeNil)
			So(*avgs[6], ShouldEqual, 120)
		})
	})

	Convey("Given uneven intervals past the window", t, func() {
		e := tempo.New()
		// Intervals chosen so each BPM sample is exact:
		// 500ms -> 120, 600ms -> 100, 400ms -> 150.
		intervals := []int{500, 500, 600, 600, 400, 400, 500}
		ts := 0
		var last *int
		e.RecordTap(at(0))
		for _, iv := range intervals {
			ts += iv
			res := e.RecordTap(at(ts))
			last = res.RollingAverage
		}

		Convey("Then the mean covers exactly the most recent five samples", func() {
			// Samples: 120,120,100,100,150,150,120 -> tail of 5: 100,100,150,150,120
			So(last, ShouldNotBeNil)
			So(*last, ShouldEqual, 124)
		})
	})

	Convey("Given a custom window size", t, func() {
		e := tempo.New(tempo.WithWindow(2))
		e.RecordTap(at(0))
		one := e.RecordTap(at(500))
		two := e.RecordTap(at(1100))  // 100
		three := e.RecordTap(at(1600)) // 120

		Convey("Then the average appears past the smaller window", func() {
			So(one.RollingAverage, ShouldBeNil)
			So(two.RollingAverage, ShouldBeNil)
			So(three.RollingAverage, ShouldNotBeNil)
			So(*three.RollingAverage, ShouldEqual, 110)
		})
	})
}

func TestEstimatorAccuracy(t *testing.T) {
	Convey("Given an estimator with a target of 120", t, func() {
		e := tempo.New(tempo.WithTarget(120))

		Convey("When tapping at exactly the target tempo", func() {
			e.RecordTap(at(0))
			res := e.RecordTap(at(500))

			Convey("Then the accuracy is 100", func() {
				So(res.Accuracy, ShouldNotBeNil)
				So(*res.Accuracy, ShouldEqual, 100)
			})
		})

		Convey("When tapping at 100 BPM", func() {
			e.RecordTap(at(0))
			res := e.RecordTap(at(600))

			Convey("Then the accuracy is 83", func() {
				So(*res.InstantBPM, ShouldEqual, 100)
				So(*res.Accuracy, ShouldEqual, 83)
			})
		})

		Convey("When the deviation reaches the target", func() {
			e.RecordTap(at(0))
			res := e.RecordTap(at(250)) // 240 BPM, deviation 120

			Convey("Then the accuracy saturates at 0", func() {
				So(*res.Accuracy, ShouldEqual, 0)
			})
		})

		Convey("When the target is cleared mid-session", func() {
			e.RecordTap(at(0))
			e.ClearTarget()
			res := e.RecordTap(at(500))

			Convey("Then later taps carry no accuracy", func() {
				So(res.Accuracy, ShouldBeNil)
			})
		})
	})

	Convey("Given an estimator without a target", t, func() {
		e := tempo.New()
		e.RecordTap(at(0))
		res := e.RecordTap(at(500))

		Convey("Then accuracy is never computed", func() {
			So(res.Accuracy, ShouldBeNil)
		})
	})

	Convey("Given a target of 60 and an interval beyond two minutes", t, func() {
		e := tempo.New(tempo.WithTarget(60))
		e.RecordTap(at(0))
		res := e.RecordTap(at(150000)) // rounds to 0 BPM

		Convey("Then a zero instant BPM yields no accuracy", func() {
			So(res.InstantBPM, ShouldNotBeNil)
			So(*res.InstantBPM, ShouldEqual, 0)
			So(res.Accuracy, ShouldBeNil)
		})
	})
}

func TestEstimatorSetTarget(t *testing.T) {
	Convey("Given an estimator", t, func() {
		e := tempo.New()

		Convey("When setting a valid target", func() {
			err := e.SetTarget(90)
			target, ok := e.Target()

			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(target, ShouldEqual, 90)
		})

		Convey("When setting a target below 1", func() {
			err := e.SetTarget(0)
			_, ok := e.Target()

			Convey("Then the value is rejected and the prior state retained", func() {
				So(err, ShouldEqual, tempo.ErrInvalidTarget)
				So(ok, ShouldBeFalse)
			})
		})
	})
}

func TestEstimatorRejection(t *testing.T) {
	Convey("Given an estimator with the default 1 ms minimum interval", t, func() {
		e := tempo.New()
		e.RecordTap(at(0))

		Convey("When two taps land on the same instant", func() {
			res := e.RecordTap(at(0))

			Convey("Then the tap is rejected without state changes", func() {
				So(res.Rejected, ShouldBeTrue)
				So(res.InstantBPM, ShouldBeNil)
				So(e.Taps(), ShouldEqual, 1)
				So(e.History(), ShouldBeEmpty)
			})
		})

		Convey("When the clock skews backwards", func() {
			res := e.RecordTap(at(-200))

			Convey("Then the tap is rejected rather than producing negative BPM", func() {
				So(res.Rejected, ShouldBeTrue)
				So(e.History(), ShouldBeEmpty)
			})
		})

		Convey("When a rejected tap is followed by a normal one", func() {
			e.RecordTap(at(0))
			res := e.RecordTap(at(500))

			Convey("Then the baseline never moved", func() {
				So(res.Rejected, ShouldBeFalse)
				So(*res.InstantBPM, ShouldEqual, 120)
			})
		})
	})

	Convey("Given a configured refractory interval", t, func() {
		e := tempo.New(tempo.WithMinInterval(100 * time.Millisecond))
		e.RecordTap(at(0))

		Convey("When a tap arrives inside the refractory window", func() {
			res := e.RecordTap(at(50))
			So(res.Rejected, ShouldBeTrue)
		})

		Convey("When a tap arrives exactly at the boundary", func() {
			res := e.RecordTap(at(100))
			So(res.Rejected, ShouldBeFalse)
			So(*res.InstantBPM, ShouldEqual, 600)
		})
	})
}

func TestEstimatorReset(t *testing.T) {
	Convey("Given an estimator with accumulated state", t, func() {
		e := tempo.New(tempo.WithTarget(120))
		for i := 0; i < 8; i++ {
			e.RecordTap(at(i * 500))
		}

		Convey("When resetting", func() {
			e.Reset()

			Convey("Then all state returns to defaults", func() {
				So(e.Taps(), ShouldEqual, 0)
				So(e.History(), ShouldBeEmpty)
				_, ok := e.Target()
				So(ok, ShouldBeFalse)
			})

			Convey("And resetting twice equals resetting once", func() {
				e.Reset()
				So(e.Taps(), ShouldEqual, 0)
				So(e.History(), ShouldBeEmpty)
			})

			Convey("And the next tap is a fresh baseline", func() {
				res := e.RecordTap(at(10000))
				So(res.Taps, ShouldEqual, 1)
				So(res.InstantBPM, ShouldBeNil)
			})
		})
	})
}

func TestEstimatorLast(t *testing.T) {
	Convey("Given an estimator", t, func() {
		e := tempo.New(tempo.WithTarget(120))

		Convey("When no samples exist", func() {
			instant, rolling, accuracy := e.Last()
			So(instant, ShouldBeNil)
			So(rolling, ShouldBeNil)
			So(accuracy, ShouldBeNil)
		})

		Convey("When samples exist", func() {
			for i := 0; i <= 6; i++ {
				e.RecordTap(at(i * 500))
			}
			instant, rolling, accuracy := e.Last()

			Convey("Then the latest derived values are reported", func() {
				So(instant, ShouldNotBeNil)
				So(*instant, ShouldEqual, 120)
				So(rolling, ShouldNotBeNil)
				So(*rolling, ShouldEqual, 120)
				So(accuracy, ShouldNotBeNil)
				So(*accuracy, ShouldEqual, 100)
			})
		})
	})
}
