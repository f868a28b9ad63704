package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	service "github.com/okian/lomba/internal/app"
	"github.com/okian/lomba/internal/config"
	"github.com/okian/lomba/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		ctx := context.Background()

		convey.Convey("When configuration comes from the environment", func() {
			_ = os.Setenv("LOMBA_ADDR", ":8080")
			_ = os.Setenv("LOMBA_QUEUE_SIZE", "1000")
			_ = os.Setenv("LOMBA_WORKER_COUNT", "4")
			defer func() {
				_ = os.Unsetenv("LOMBA_ADDR")
				_ = os.Unsetenv("LOMBA_QUEUE_SIZE")
				_ = os.Unsetenv("LOMBA_WORKER_COUNT")
			}()

			cfg, err := config.Load(ctx)

			convey.Convey("Then the service is built from it", func() {
				convey.So(err, convey.ShouldBeNil)
				svc := service.New(serviceOptions(cfg, logger.Get(), nil)...)
				stats := svc.GetStats(ctx)
				convey.So(stats.WorkerCount, convey.ShouldEqual, 4)
				convey.So(stats.QueueCapacity, convey.ShouldEqual, 1000)
				convey.So(stats.FlagshipName, convey.ShouldEqual, "tapak kemah")
			})
		})

		convey.Convey("When the flagship is renamed", func() {
			cfg := config.New()
			cfg.FlagshipName = "  Pionering "

			convey.Convey("Then the service reports the normalized name", func() {
				svc := service.New(serviceOptions(cfg, logger.Get(), nil)...)
				convey.So(svc.GetStats(ctx).FlagshipName, convey.ShouldEqual, "pionering")
			})
		})

		convey.Convey("When testing HTTP server creation", func() {
			cfg := config.New()
			server := newHTTPServer(cfg, http.NewServeMux())

			convey.Convey("Then it carries the configured address and timeouts", func() {
				convey.So(server.Addr, convey.ShouldEqual, ":9080")
				convey.So(server.ReadTimeout, convey.ShouldEqual, readTimeout)
				convey.So(server.WriteTimeout, convey.ShouldEqual, writeTimeout)
				convey.So(server.IdleTimeout, convey.ShouldEqual, idleTimeout)
				convey.So(server.ReadHeaderTimeout, convey.ShouldEqual, readHeaderTimeout)
			})
		})
	})
}

func TestOpenStore(t *testing.T) {
	convey.Convey("Given a store backend", t, func() {
		ctx := context.Background()

		convey.Convey("When the memory backend is configured", func() {
			store, err := openStore(ctx, config.New())

			convey.Convey("Then the service owns its store", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(store, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the mongo uri is malformed", func() {
			cfg := config.New()
			cfg.StoreBackend = config.StoreMongo
			cfg.MongoURI = "notmongo://nowhere"
			cfg.StoreTimeoutMS = 200

			store, err := openStore(ctx, cfg)

			convey.Convey("Then opening fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(store, convey.ShouldBeNil)
			})
		})
	})
}

func TestMux(t *testing.T) {
	convey.Convey("Given the assembled routes", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		cfg := config.New()
		svc := service.New(serviceOptions(cfg, logger.Get(), nil)...)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		mux := newMux(ctx, cfg, svc)
		get := func(path string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
			return w
		}

		convey.Convey("Then every surface answers", func() {
			for _, path := range []string{"/", "/static/style.css", "/api-docs", "/openapi.yaml", "/dashboard", "/stats", "/healthz", "/competitions", "/teams"} {
				convey.So(get(path).Code, convey.ShouldEqual, http.StatusOK)
			}
		})

		convey.Convey("Then an empty leaderboard is an empty list", func() {
			w := get("/leaderboard?category=Putra")
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Body.String(), convey.ShouldStartWith, "[]")
		})

		convey.Convey("Then the leaderboard limit follows the config", func() {
			convey.So(get("/leaderboard?category=Putra&limit=1001").Code, convey.ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When testing system metrics update", func() {
			convey.Convey("Then it should update metrics without panicking", func() {
				convey.So(updateSystemMetrics, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When testing service metrics update", func() {
			svc := service.New()

			convey.Convey("Then it should update metrics without panicking", func() {
				convey.So(func() { updateServiceMetrics(context.Background(), svc) }, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			done := make(chan struct{})

			go func() {
				startSystemMetricsUpdater(ctx)
				startServiceMetricsUpdater(ctx, service.New())
				close(done)
			}()

			convey.Convey("Then the updaters return", func() {
				select {
				case <-done:
				case <-time.After(time.Second):
					t.Fatal("metrics updaters did not stop")
				}
			})
		})
	})
}
