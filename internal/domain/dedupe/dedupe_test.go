package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	dedupe "github.com/okian/lomba/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new InMemoryDeduper", t, func() {
		d := dedupe.NewInMemoryDeduper()

		Convey("Then it starts empty", func() {
			So(d, ShouldNotBeNil)
			So(d.Size(), ShouldEqual, 0)
		})

		Convey("When a submission id is new", func() {
			seen := d.SeenAndRecord(ctx, "sheet-1")

			Convey("Then it is recorded", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And a resend is reported as seen", func() {
				So(d.SeenAndRecord(ctx, "sheet-1"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When an id is unrecorded", func() {
			d.SeenAndRecord(ctx, "sheet-1")
			d.Unrecord(ctx, "sheet-1")

			Convey("Then it can be recorded again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "sheet-1"), ShouldBeFalse)
			})
		})

		Convey("When an unknown id is unrecorded", func() {
			d.Unrecord(ctx, "nope")
			So(d.Size(), ShouldEqual, 0)
		})

		Convey("When the empty id is used", func() {
			So(d.SeenAndRecord(ctx, ""), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, ""), ShouldBeTrue)
		})
	})

	Convey("Given a bounded deduper at capacity", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
		for _, id := range []string{"sheet-1", "sheet-2", "sheet-3"} {
			So(d.SeenAndRecord(ctx, id), ShouldBeFalse)
		}

		Convey("When one more id arrives", func() {
			So(d.SeenAndRecord(ctx, "sheet-4"), ShouldBeFalse)

			Convey("Then the oldest id is evicted and the rest are kept", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "sheet-2"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "sheet-3"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "sheet-4"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "sheet-1"), ShouldBeFalse)
				So(d.Size(), ShouldEqual, 3)
			})
		})

		Convey("When a middle id is unrecorded first", func() {
			d.Unrecord(ctx, "sheet-2")
			So(d.SeenAndRecord(ctx, "sheet-4"), ShouldBeFalse)

			Convey("Then nothing needs to be evicted", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "sheet-1"), ShouldBeTrue)
			})
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		for _, size := range []int{0, -1} {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(size))
			const n = 1000
			for i := 0; i < n; i++ {
				So(d.SeenAndRecord(ctx, fmt.Sprintf("sheet-%d", i)), ShouldBeFalse)
			}
			So(d.Size(), ShouldEqual, n)
			So(d.SeenAndRecord(ctx, "sheet-0"), ShouldBeTrue)

			d.Unrecord(ctx, "sheet-0")
			So(d.Size(), ShouldEqual, n-1)
		}
	})
}

func TestDedupeConcurrency(t *testing.T) {
	Convey("Given a deduper shared by many goroutines", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(10000))
		const workers = 10
		const ids = 200

		Convey("When every goroutine submits the same ids", func() {
			var fresh atomic.Int64
			var wg sync.WaitGroup
			for w := 0; w < workers; w++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < ids; i++ {
						if !d.SeenAndRecord(context.Background(), fmt.Sprintf("sheet-%d", i)) {
							fresh.Add(1)
						}
					}
				}()
			}
			wg.Wait()

			Convey("Then each id is accepted exactly once", func() {
				So(fresh.Load(), ShouldEqual, ids)
				So(d.Size(), ShouldEqual, ids)
			})
		})
	})
}
