package leaderboard_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/okian/detective/internal/adapters/kv"
	"github.com/okian/detective/internal/domain/leaderboard"
	"github.com/okian/detective/internal/domain/model"
	"github.com/okian/detective/internal/domain/types"
	"github.com/okian/detective/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestBoard(t *testing.T) {
	Convey("Given an empty board", t, func() {
		ctx := context.Background()
		mem := kv.NewMemoryStore()
		b := leaderboard.New(mem)

		Convey("When nothing was added", func() {
			Convey("Then Get and Render are empty", func() {
				So(b.Get(ctx, "g1"), ShouldBeEmpty)
				So(b.Render(ctx, "g1"), ShouldBeEmpty)
			})
		})

		Convey("When a player improves their score", func() {
			So(b.Add(ctx, "g1", "Ann", "A", 80, "1:30"), ShouldEqual, leaderboard.Inserted)
			So(b.Add(ctx, "g1", "Ann", "A", 95, "2:00"), ShouldEqual, leaderboard.Improved)

			Convey("Then only the better entry remains", func() {
				So(b.Get(ctx, "g1"), ShouldResemble, []model.Entry{{Name: "Ann", Group: "A", Score: 95, Time: "2:00"}})
			})
		})

		Convey("When a player submits a lower or equal score", func() {
			b.Add(ctx, "g1", "Ann", "A", 95, "2:00")
			So(b.Add(ctx, "g1", "Ann", "A", 60, "0:10"), ShouldEqual, leaderboard.Unchanged)
			So(b.Add(ctx, "g1", "Ann", "A", 95, "0:10"), ShouldEqual, leaderboard.Unchanged)

			Convey("Then the entry is unchanged", func() {
				So(b.Get(ctx, "g1"), ShouldResemble, []model.Entry{{Name: "Ann", Group: "A", Score: 95, Time: "2:00"}})
			})
		})

		Convey("When the same name plays in two groups", func() {
			b.Add(ctx, "g1", "Ann", "A", 50, "1:00")
			b.Add(ctx, "g1", "Ann", "B", 70, "1:00")

			Convey("Then both entries are kept", func() {
				So(len(b.Get(ctx, "g1")), ShouldEqual, 2)
			})
		})

		Convey("When scores tie", func() {
			b.Add(ctx, "g1", "Ann", "A", 90, "3:10")
			b.Add(ctx, "g1", "Bob", "A", 90, "1:05")
			b.Add(ctx, "g1", "Cat", "A", 99, "9:59")

			Convey("Then the shorter time ranks first", func() {
				rows := b.Render(ctx, "g1")
				So(rows, ShouldResemble, []types.Row{
					{Rank: 1, Name: "Cat", Group: "A", Score: 99, Time: "9:59"},
					{Rank: 2, Name: "Bob", Group: "A", Score: 90, Time: "1:05"},
					{Rank: 3, Name: "Ann", Group: "A", Score: 90, Time: "3:10"},
				})
			})

			Convey("Then Top and Rank agree with Render", func() {
				So(len(b.Top(ctx, "g1", 2)), ShouldEqual, 2)
				So(len(b.Top(ctx, "g1", 0)), ShouldEqual, 3)
				row, err := b.Rank(ctx, "g1", "Ann", "A")
				So(err, ShouldBeNil)
				So(row.Rank, ShouldEqual, 3)
				_, err = b.Rank(ctx, "g1", "Zed", "A")
				So(errors.Is(err, leaderboard.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When anonymous players submit", func() {
			b.Add(ctx, "g1", "", "", 10, "0:30")
			b.Add(ctx, "g1", "", "", 20, "0:40")

			Convey("Then they share one placeholder entry", func() {
				So(b.Get(ctx, "g1"), ShouldResemble, []model.Entry{
					{Name: leaderboard.UnknownName, Group: leaderboard.NoGroup, Score: 20, Time: "0:40"},
				})
			})
		})

		Convey("When a stored list has blank fields", func() {
			So(mem.Set(ctx, leaderboard.Key("g1"), `[{"name":"","group":"","score":5,"time":"0:01"}]`), ShouldBeNil)

			Convey("Then Render shows a dash", func() {
				rows := b.Render(ctx, "g1")
				So(rows[0].Name, ShouldEqual, "—")
				So(rows[0].Group, ShouldEqual, "—")
			})
		})

		Convey("When the stored list is corrupt", func() {
			So(mem.Set(ctx, leaderboard.Key("g1"), `{"broken":`), ShouldBeNil)

			Convey("Then Get is empty and Add starts fresh", func() {
				So(b.Get(ctx, "g1"), ShouldBeEmpty)
				b.Add(ctx, "g1", "Ann", "A", 1, "0:01")
				So(len(b.Get(ctx, "g1")), ShouldEqual, 1)
			})
		})

		Convey("When boards are cleared", func() {
			b.Add(ctx, "g1", "Ann", "A", 1, "0:01")
			b.Add(ctx, "g2", "Ann", "A", 1, "0:01")
			So(b.Games(ctx), ShouldResemble, []string{"g1", "g2"})
			b.Clear(ctx, "g1")

			Convey("Then only the other board remains", func() {
				So(b.Get(ctx, "g1"), ShouldBeEmpty)
				So(b.Games(ctx), ShouldResemble, []string{"g2"})
			})
		})

		Convey("When a best-score record shares the key prefix", func() {
			b.Add(ctx, "g1", "Ann", "A", 1, "0:01")
			So(mem.Set(ctx, leaderboard.KeyPrefix+"A_g1", `{"score":5,"maxScore":10,"timeSpent":3}`), ShouldBeNil)

			Convey("Then it is not listed as a game", func() {
				So(b.Games(ctx), ShouldResemble, []string{"g1"})
			})
		})

		Convey("When rendering", func() {
			b.Add(ctx, "g1", "Ann", "A", 1, "0:01")
			rows := b.Render(ctx, "g1")
			rows[0].Name = "Mallory"

			Convey("Then the rows do not alias stored state", func() {
				So(b.Get(ctx, "g1")[0].Name, ShouldEqual, "Ann")
			})
		})
	})
}

func TestBoardProperties(t *testing.T) {
	Convey("Given random sequences of submissions", t, func() {
		ctx := context.Background()
		rng := rand.New(rand.NewSource(7))
		names := []string{"Ann", "Bob", "", "Cat"}
		groups := []string{"A", "B", ""}

		for round := 0; round < 20; round++ {
			b := leaderboard.New(kv.NewMemoryStore())
			best := map[string]float64{}
			for i := 0; i < 40; i++ {
				n := names[rng.Intn(len(names))]
				g := groups[rng.Intn(len(groups))]
				score := float64(rng.Intn(100))
				elapsed := fmt.Sprintf("%d:%02d", rng.Intn(10), rng.Intn(60))
				b.Add(ctx, "g", n, g, score, elapsed)

				if n == "" {
					n = leaderboard.UnknownName
				}
				if g == "" {
					g = leaderboard.NoGroup
				}
				if cur, ok := best[n+"|"+g]; !ok || score > cur {
					best[n+"|"+g] = score
				}
			}

			entries := b.Get(ctx, "g")
			seen := map[string]bool{}
			for i, e := range entries {
				k := e.Name + "|" + e.Group
				So(seen[k], ShouldBeFalse)
				seen[k] = true
				So(e.Score, ShouldEqual, best[k])
				if i > 0 {
					prev := entries[i-1]
					So(prev.Score >= e.Score, ShouldBeTrue)
					if prev.Score == e.Score {
						So(prev.Time <= e.Time, ShouldBeTrue)
					}
				}
			}
			So(len(entries), ShouldEqual, len(best))
		}
	})

	Convey("Given concurrent submissions", t, func() {
		ctx := context.Background()
		b := leaderboard.New(kv.NewMemoryStore())

		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				b.Add(ctx, "g", fmt.Sprintf("p%d", i), "A", float64(i), "0:01")
			}(i)
		}
		wg.Wait()

		Convey("Then no entry is lost", func() {
			So(len(b.Get(ctx, "g")), ShouldEqual, 16)
		})
	})
}

func TestFormatElapsed(t *testing.T) {
	Convey("Given durations", t, func() {
		So(leaderboard.FormatElapsed(0), ShouldEqual, "0:00")
		So(leaderboard.FormatElapsed(9*time.Second+999*time.Millisecond), ShouldEqual, "0:09")
		So(leaderboard.FormatElapsed(90*time.Second), ShouldEqual, "1:30")
		So(leaderboard.FormatElapsed(125*time.Minute), ShouldEqual, "125:00")
		So(leaderboard.FormatElapsed(-time.Second), ShouldEqual, "0:00")
	})
}
