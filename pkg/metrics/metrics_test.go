package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should register its collectors there", func() {
				So(manager, ShouldNotBeNil)
				manager.progressSaves.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithMetricPrefix("x_"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then names carry the namespace, subsystem and prefix", func() {
				manager.attemptsRecorded.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_unit_x_attempts_recorded_total")
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording store operations", func() {
			before := testutil.ToFloat64(globalManager.storeOps.WithLabelValues("set", "ok"))
			RecordStoreOp("set", "ok", 1.5)

			Convey("Then the counter advances", func() {
				So(testutil.ToFloat64(globalManager.storeOps.WithLabelValues("set", "ok")), ShouldEqual, before+1)
			})
		})

		Convey("When recording a batch flush", func() {
			before := testutil.ToFloat64(globalManager.batchFlushedKeys)
			RecordBatchFlush(3)
			UpdateBatchPending(0)

			Convey("Then the flushed key counter grows by the batch size", func() {
				So(testutil.ToFloat64(globalManager.batchFlushedKeys), ShouldEqual, before+3)
				So(testutil.ToFloat64(globalManager.batchPending), ShouldEqual, 0)
			})
		})

		Convey("When updating gauges", func() {
			UpdateLeaderboardSize("g1", 4)
			UpdateQueueCapacity(128)
			UpdateQueueSize(2)

			Convey("Then they hold the last value", func() {
				So(testutil.ToFloat64(globalManager.leaderboardSize.WithLabelValues("g1")), ShouldEqual, 4)
				So(testutil.ToFloat64(globalManager.queueCapacity), ShouldEqual, 128)
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 2)
			})
		})

		Convey("When recording the remaining families", func() {
			So(func() {
				RecordStoreReadFailure("progress")
				RecordStoreWriteFailure("progress")
				RecordLeaderboardUpdate("inserted")
				RecordProgressSave()
				RecordProgressReset()
				RecordIdentityResolved("query")
				RecordGrade("pass")
				RecordCodeRun("ok", 3)
				RecordAttempt()
				RecordBestScoreUpdate()
				RecordFeedback()
				RecordThemeChange("light")
				RecordRelayEnqueued()
				RecordRelayDropped("queue_full")
				RecordRelaySent("ok", 12)
				RecordRelayDuplicate()
				UpdateQueueUtilization(0.5)
				UpdateWorkerActiveCount(2)
				RecordHTTPRequest("leaderboard", "GET", "200")
				RecordHTTPRequestDuration("leaderboard", "GET", "200", 4)
				RecordErrorByComponent("kv", "decode")
				RecordErrorByEndpoint("grade", "POST", "client_error")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(8)
			}, ShouldNotPanic)
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
