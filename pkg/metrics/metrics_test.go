package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		Convey("When creating options", func() {
			namespaceOpt := WithNamespace("test-namespace")
			subsystemOpt := WithSubsystem("test-subsystem")
			histogramBucketsOpt := WithHistogramBuckets([]float64{0.1, 0.5, 1.0})
			registryOpt := WithRegistry(prometheus.NewRegistry())

			Convey("Then they should be valid functions", func() {
				So(namespaceOpt, ShouldNotBeNil)
				So(subsystemOpt, ShouldNotBeNil)
				So(histogramBucketsOpt, ShouldNotBeNil)
				So(registryOpt, ShouldNotBeNil)
			})
		})
	})
}

func TestManagerInit(t *testing.T) {
	Convey("Given manager initialization", t, func() {
		Convey("When initializing with a custom registry", func() {
			registry := prometheus.NewRegistry()
			Init(WithRegistry(registry))

			Convey("Then all collectors register and gather cleanly", func() {
				_, err := registry.Gather()
				So(err, ShouldBeNil)
				So(GetRegistry(), ShouldEqual, registry)
			})
		})

		Convey("When initializing with custom options", func() {
			registry := prometheus.NewRegistry()
			So(func() {
				Init(
					WithNamespace("test_namespace"),
					WithSubsystem("test_subsystem"),
					WithHistogramBuckets([]float64{1, 10, 100}),
					WithRegistry(registry),
				)
			}, ShouldNotPanic)
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given an initialized manager", t, func() {
		registry := prometheus.NewRegistry()
		Init(WithRegistry(registry))

		Convey("When recording persistence metrics", func() {
			RecordSave(12.5)
			RecordSave(40.0)
			RecordSaveError("unavailable")
			RecordLoad(3.0)
			RecordLoadError("corrupt_data")

			Convey("Then the counters show up in the registry", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				byName := map[string]float64{}
				for _, fam := range families {
					for _, m := range fam.GetMetric() {
						if c := m.GetCounter(); c != nil {
							byName[fam.GetName()] += c.GetValue()
						}
					}
				}
				So(byName["fintrack_core_saves_total"], ShouldEqual, 2)
				So(byName["fintrack_core_save_errors_total"], ShouldEqual, 1)
				So(byName["fintrack_core_loads_total"], ShouldEqual, 1)
				So(byName["fintrack_core_load_errors_total"], ShouldEqual, 1)
			})
		})

		Convey("When recording engine metrics", func() {
			So(func() {
				RecordEdit()
				RecordEditCoalesced()
				RecordDebounceFlush()
				UpdateMonthsTracked(6)
				UpdateEngineState(2)
			}, ShouldNotPanic)
		})

		Convey("When recording codec and gateway metrics", func() {
			So(func() {
				RecordSnapshotEncode()
				RecordSnapshotDecode(true)
				RecordSnapshotDecode(false)
				RecordImport(true)
				RecordImport(false)
				RecordExport()
			}, ShouldNotPanic)
		})

		Convey("When recording HTTP metrics", func() {
			So(func() {
				RecordHTTPRequest("months", "GET", "200")
				RecordHTTPRequestDuration("months", "GET", "200", 4.2)
			}, ShouldNotPanic)
		})
	})
}

func TestRecordingWithoutInit(t *testing.T) {
	Convey("Given no initialized manager", t, func() {
		saved := globalManager
		globalManager = nil
		Reset(func() { globalManager = saved })

		Convey("Then recording is a silent no-op", func() {
			So(func() {
				RecordSave(1)
				RecordSaveError("other")
				RecordEdit()
				UpdateMonthsTracked(1)
				RecordHTTPRequest("status", "GET", "200")
			}, ShouldNotPanic)
		})
	})
}
