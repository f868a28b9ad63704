package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/lomba/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestMetricsMiddleware(t *testing.T) {
	Convey("Given an instrumented handler", t, func() {
		status := http.StatusOK
		h := MetricsMiddleware(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}, "test")

		serve := func(req *http.Request) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			h(w, req)
			return w
		}

		Convey("When the caller sends no request id", func() {
			w := serve(httptest.NewRequest(http.MethodGet, "/", http.NoBody))

			Convey("Then one is generated", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(len(w.Header().Get(RequestIDHeader)), ShouldEqual, 36)
			})
		})

		Convey("When the caller sends a request id", func() {
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			req.Header.Set(RequestIDHeader, "sheet-42")

			Convey("Then it is echoed", func() {
				So(serve(req).Header().Get(RequestIDHeader), ShouldEqual, "sheet-42")
			})
		})

		Convey("When the request id is oversized", func() {
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			req.Header.Set(RequestIDHeader, strings.Repeat("x", maxRequestIDLen+1))

			Convey("Then it is replaced", func() {
				So(len(serve(req).Header().Get(RequestIDHeader)), ShouldEqual, 36)
			})
		})

		Convey("When the handler fails", func() {
			status = http.StatusInternalServerError
			w := serve(httptest.NewRequest(http.MethodGet, "/", http.NoBody))

			Convey("Then the status passes through", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
			})
		})
	})
}

func TestClassifyStatus(t *testing.T) {
	Convey("Given failed statuses", t, func() {
		cases := []struct {
			status   int
			kind     string
			severity string
		}{
			{http.StatusBadRequest, "client_error", "medium"},
			{http.StatusNotFound, "not_found", "medium"},
			{http.StatusConflict, "conflict", "medium"},
			{http.StatusTooManyRequests, "rate_limit", "low"},
			{http.StatusServiceUnavailable, "unavailable", "high"},
			{http.StatusBadGateway, "server_error", "high"},
			{http.StatusTeapot, "client_error", "medium"},
		}
		for _, c := range cases {
			got := classifyStatus(c.status)
			So(got.kind, ShouldEqual, c.kind)
			So(got.severity, ShouldEqual, c.severity)
		}
	})
}
