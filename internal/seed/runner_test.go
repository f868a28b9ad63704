package seed_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/lomba/internal/adapters/http/api"
	service "github.com/okian/lomba/internal/app"
	"github.com/okian/lomba/internal/domain/model"
	"github.com/okian/lomba/internal/seed"
	"github.com/okian/lomba/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestRunAgainstService(t *testing.T) {
	Convey("Given a running service behind an HTTP server", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		svc := service.New(service.WithWorkerCount(4), service.WithQueueSize(1000))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		mux := http.NewServeMux()
		api.NewServer(svc, svc).Register(ctx, mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		cfg := seed.Config{
			BaseURL:          srv.URL,
			TeamsPerCategory: 3,
			Judges:           2,
			Resubmit:         5,
			Seed:             11,
			Workers:          4,
			WaitTimeout:      10 * time.Second,
			PollInterval:     20 * time.Millisecond,
		}

		Convey("When the seed runs", func() {
			report, err := seed.Run(ctx, cfg)

			Convey("Then every sheet is accepted once and both boards verify", func() {
				So(err, ShouldBeNil)
				So(report.SheetsGenerated, ShouldEqual, 6*2*(5+2))
				So(report.SheetsAccepted, ShouldEqual, report.SheetsGenerated)
				So(report.SheetsDuplicate, ShouldEqual, 5)
				So(report.SheetsFailed, ShouldEqual, 0)
				So(report.Entries[model.CategoryPutra], ShouldEqual, 3)
				So(report.Entries[model.CategoryPutri], ShouldEqual, 3)
			})

			Convey("Then the service stored the event", func() {
				stats := svc.GetStats(ctx)
				So(stats.Records.Competitions, ShouldEqual, 6)
				So(stats.Records.Teams, ShouldEqual, 6)
				So(stats.Processed, ShouldEqual, int64(report.SheetsAccepted))
			})

			Convey("And running it again only produces duplicates", func() {
				again, err := seed.Run(ctx, cfg)
				So(err, ShouldBeNil)
				So(again.SheetsAccepted, ShouldEqual, 0)
				So(again.SheetsDuplicate, ShouldEqual, again.SheetsSubmitted)
			})
		})
	})
}

func TestRunWithoutService(t *testing.T) {
	Convey("Given a server that is gone", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()

		Convey("When the seed runs", func() {
			_, err := seed.Run(context.Background(), seed.Config{BaseURL: srv.URL, Timeout: time.Second})

			Convey("Then the health check fails", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "health check")
			})
		})
	})

	Convey("Given a server without the API", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		Convey("When the seed runs", func() {
			_, err := seed.Run(context.Background(), seed.Config{BaseURL: srv.URL, Timeout: time.Second})

			Convey("Then the status is reported", func() {
				So(errors.Is(err, seed.ErrUnexpectedStatus), ShouldBeTrue)
			})
		})
	})
}
