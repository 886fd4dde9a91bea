package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/detective/internal/config"
	"github.com/okian/detective/pkg/logger"
)

func init() {
	_ = logger.Init()
}

func TestOpenStore(t *testing.T) {
	convey.Convey("Given the configured store drivers", t, func() {
		ctx := context.Background()

		convey.Convey("When the memory driver is selected", func() {
			cfg := config.New(ctx)
			store, closeStore, err := openStore(ctx, cfg)

			convey.Convey("Then an in-memory store is returned", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(store.Set(ctx, "k", "v"), convey.ShouldBeNil)
				convey.So(closeStore(), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the sqlite driver is selected", func() {
			cfg := config.New(ctx)
			cfg.StoreDriver = config.StoreSQLite
			cfg.StorePath = filepath.Join(t.TempDir(), "detective.db")
			store, closeStore, err := openStore(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			convey.So(store.Set(ctx, "k", "v"), convey.ShouldBeNil)
			convey.So(closeStore(), convey.ShouldBeNil)

			convey.Convey("Then values survive a reopen", func() {
				store, closeStore, err := openStore(ctx, cfg)
				convey.So(err, convey.ShouldBeNil)
				defer func() { _ = closeStore() }()
				v, ok, err := store.Get(ctx, "k")
				convey.So(err, convey.ShouldBeNil)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(v, convey.ShouldEqual, "v")
			})
		})
	})
}

func TestServerWiring(t *testing.T) {
	convey.Convey("Given a session built from configuration", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)
		cfg.FlushDelayMS = 0
		cfg.DefaultAgent = "Sherlock"
		cfg.DefaultGroup = "B221"

		store, closeStore, err := openStore(ctx, cfg)
		convey.So(err, convey.ShouldBeNil)
		defer func() { _ = closeStore() }()

		svc := newSession(cfg, store, logger.Get())
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		srv := newServer(ctx, cfg, svc)

		convey.Convey("When the server handler is exercised", func() {
			ts := httptest.NewServer(srv.Handler)
			defer ts.Close()

			resp, err := http.Get(ts.URL + "/identity")
			convey.So(err, convey.ShouldBeNil)
			defer func() { _ = resp.Body.Close() }()

			convey.Convey("Then the default identity is resolved", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
				id, ok := svc.Identity(ctx, nil)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(id.Name, convey.ShouldEqual, "Sherlock")
				convey.So(srv.Addr, convey.ShouldEqual, cfg.Addr)
			})
		})

		convey.Convey("When session metrics are published", func() {
			convey.So(func() { updateSessionMetrics(svc) }, convey.ShouldNotPanic)
			convey.So(func() { updateSystemMetrics() }, convey.ShouldNotPanic)
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a configuration on an ephemeral port", t, func() {
		cfg := config.New(context.Background())
		cfg.Addr = "127.0.0.1:0"
		cfg.LogLevel = "verbose"

		convey.Convey("When the context is canceled", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			err := run(ctx, cfg)

			convey.Convey("Then run shuts down cleanly", func() {
				convey.So(err, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the address cannot be bound", func() {
			cfg.Addr = "bad address"
			err := run(context.Background(), cfg)

			convey.Convey("Then the listen error is returned", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(strings.Contains(err.Error(), "http server"), convey.ShouldBeTrue)
			})
		})
	})
}
