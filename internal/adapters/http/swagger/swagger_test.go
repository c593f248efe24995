package swagger_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fintrack/fintrack/internal/adapters/http/swagger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRegister(t *testing.T) {
	Convey("Given documentation routes registered on a mux", t, func() {
		mux := http.NewServeMux()
		swagger.Register(context.Background(), mux)

		Convey("When GET /api-docs is requested", func() {
			req := httptest.NewRequest(http.MethodGet, "/api-docs", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then the ReDoc shell is served", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldStartWith, "text/html")
				So(w.Body.String(), ShouldContainSubstring, "redoc")
				So(w.Body.String(), ShouldContainSubstring, "/openapi.yaml")
			})
		})

		Convey("When GET /openapi.yaml is requested", func() {
			req := httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then the embedded spec is served", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldStartWith, "application/yaml")
				So(w.Body.String(), ShouldContainSubstring, "fintrack API")
				So(w.Body.String(), ShouldContainSubstring, "/months/{key}/summary")
			})
		})
	})

	Convey("Given a nil mux", t, func() {
		Convey("Then registration panics", func() {
			So(func() { swagger.Register(context.Background(), nil) }, ShouldPanic)
		})
	})
}
