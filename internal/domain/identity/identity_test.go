package identity_test

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/okian/detective/internal/adapters/kv"
	"github.com/okian/detective/internal/domain/identity"
	"github.com/okian/detective/internal/domain/model"
	"github.com/okian/detective/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestResolver(t *testing.T) {
	Convey("Given a resolver with stored, lookup and query strategies", t, func() {
		ctx := context.Background()
		store := kv.NewMemoryStore()
		stored := identity.NewStoredStrategy(store)

		var lookupCalls int
		lookupResult := model.Identity{}
		lookup := identity.NewLookupStrategy(func(context.Context) (model.Identity, bool) {
			lookupCalls++
			return lookupResult, lookupResult.Known()
		})
		query := identity.NewQueryStrategy(url.Values{"agent": {"Bob"}, "group": {"G2"}})

		r := identity.NewResolver([]identity.Strategy{stored, lookup, query})

		Convey("When only the URL names a player", func() {
			id, ok := r.Resolve(ctx)

			Convey("Then the query parameters win", func() {
				So(ok, ShouldBeTrue)
				So(id, ShouldResemble, model.Identity{Name: "Bob", Group: "G2"})
				So(lookupCalls, ShouldEqual, 1)
			})
		})

		Convey("When the lookup callback knows the player", func() {
			lookupResult = model.Identity{Name: "Cleo", Group: "B"}
			id, ok := r.Resolve(ctx)

			Convey("Then it takes priority over the URL", func() {
				So(ok, ShouldBeTrue)
				So(id.Name, ShouldEqual, "Cleo")
			})
		})

		Convey("When an identity is remembered", func() {
			lookupResult = model.Identity{Name: "Cleo", Group: "B"}
			So(stored.Remember(ctx, model.Identity{Name: "Ann", Group: "A"}), ShouldBeNil)
			id, ok := r.Resolve(ctx)

			Convey("Then the stored identity wins and the lookup is not called", func() {
				So(ok, ShouldBeTrue)
				So(id, ShouldResemble, model.Identity{Name: "Ann", Group: "A"})
				So(lookupCalls, ShouldEqual, 0)
			})

			Convey("And forgetting it falls back to the next source", func() {
				stored.Forget(ctx)
				id, _ := r.Resolve(ctx)
				So(id.Name, ShouldEqual, "Cleo")
			})
		})

		Convey("When the stored identity has an empty name", func() {
			So(store.Set(ctx, identity.StoredKey, `{"name":"","group":"A"}`), ShouldBeNil)
			id, _ := r.Resolve(ctx)

			Convey("Then it is skipped", func() {
				So(id.Name, ShouldEqual, "Bob")
			})
		})

		Convey("When the stored identity is corrupt", func() {
			So(store.Set(ctx, identity.StoredKey, `{oops`), ShouldBeNil)
			id, ok := r.Resolve(ctx)

			Convey("Then resolution degrades to the next source", func() {
				So(ok, ShouldBeTrue)
				So(id.Name, ShouldEqual, "Bob")
			})
		})

		Convey("When remembering a nameless identity", func() {
			err := stored.Remember(ctx, model.Identity{Group: "A"})

			Convey("Then it is rejected", func() {
				So(errors.Is(err, identity.ErrEmptyName), ShouldBeTrue)
			})
		})
	})

	Convey("Given a resolver where nothing matches", t, func() {
		ctx := context.Background()
		r := identity.NewResolver([]identity.Strategy{
			identity.NewStoredStrategy(kv.NewMemoryStore()),
			identity.NewLookupStrategy(nil),
			identity.ParseQueryStrategy("group=G2"),
			nil,
		})

		Convey("Then the identity is absent", func() {
			id, ok := r.Resolve(ctx)
			So(ok, ShouldBeFalse)
			So(id, ShouldResemble, model.Identity{})
		})

		Convey("Then the form is left open with a placeholder", func() {
			f := r.Prefill(ctx)
			So(f.NameLocked, ShouldBeFalse)
			So(f.Placeholder, ShouldEqual, identity.NamePlaceholder)
		})
	})

	Convey("Given a raw query string", t, func() {
		ctx := context.Background()
		r := identity.NewResolver([]identity.Strategy{identity.ParseQueryStrategy("agent=Bob&group=G2")})

		Convey("Then the form is filled and the name locked", func() {
			f := r.Prefill(ctx)
			So(f, ShouldResemble, identity.Fields{Name: "Bob", Group: "G2", NameLocked: true})
		})

		Convey("Then a malformed query never resolves", func() {
			_, ok := identity.ParseQueryStrategy("agent=%zz").Resolve(ctx)
			So(ok, ShouldBeFalse)
		})
	})
}
