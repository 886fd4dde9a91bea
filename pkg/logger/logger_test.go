package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		Convey("When it is initialized for stdout", func() {
			err := Init()

			Convey("Then Get returns a usable logger", func() {
				So(err, ShouldBeNil)
				So(Get(), ShouldNotBeNil)
				So(Sync(), ShouldBeNil)
			})
		})

		Convey("When it is initialized with a nil writer", func() {
			err := InitWithWriter(nil)

			Convey("Then it should fail", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestLoggerWritesFields(t *testing.T) {
	Convey("Given a logger writing into a buffer", t, func() {
		var buf bytes.Buffer
		So(InitWithWriter(&buf), ShouldBeNil)
		defer func() { _ = Init() }()

		ctx := context.Background()

		Convey("When logging a record with fields", func() {
			Named("progress").Info(ctx, "saved",
				String("key", "python_detective_g1_ann_a"),
				Int("attempts", 3),
				Bool("ok", true),
				Duration("took", time.Millisecond),
			)

			Convey("Then the output carries the message, group and fields", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "msg=saved")
				So(out, ShouldContainSubstring, "progress.key=python_detective_g1_ann_a")
				So(out, ShouldContainSubstring, "progress.attempts=3")
				So(out, ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When the level is raised to error", func() {
			So(SetLevelString("error"), ShouldBeNil)
			Get().Warn(ctx, "dropped")
			Get().Error(ctx, "kept", Error(errors.New("boom")))

			Convey("Then only the error record is written", func() {
				So(buf.String(), ShouldNotContainSubstring, "dropped")
				So(buf.String(), ShouldContainSubstring, "error=boom")
			})
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level names", t, func() {
		for _, lvl := range []string{"debug", "info", "", "warn", "WARNING", " error "} {
			So(SetLevelString(lvl), ShouldBeNil)
		}
		So(SetLevelString("verbose"), ShouldNotBeNil)
	})
}
