package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/fintrack/fintrack/internal/adapters/repository"
	service "github.com/fintrack/fintrack/internal/app"
	"github.com/fintrack/fintrack/internal/domain/model"
	"github.com/fintrack/fintrack/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

const testDebounce = 20 * time.Millisecond

var (
	guest = types.Identity{ID: "guest", Anonymous: true}
	alice = types.Identity{ID: "user-alice"}
)

// eventually polls cond until it holds or the deadline passes. Debounce and
// save dispatch run on timers, so state assertions after an edit need a wait.
func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}

// sampleRecord is fully normalized on construction so the engine's Normalize
// pass changes nothing and round-trip comparisons stay exact.
func sampleRecord() model.MonthlyRecord {
	return model.MonthlyRecord{
		Income: []model.IncomeSource{
			{ID: "i1", Name: "Salary", Amount: 2600, Frequency: model.BiWeekly},
		},
		CreditScores: model.CreditScores{Equifax: 712, TransUnion: 709, Experian: 715},
		CreditCards: []model.LiabilityAccount{
			{ID: "c1", Name: "Visa", Balance: 1200, Limit: 5000},
		},
		Assets: []model.Asset{
			{ID: "a1", Name: "Savings", Value: 8000},
		},
		MonthlyBills: []model.NamedAmount{
			{ID: "b1", Name: "Rent", Amount: 1500},
		},
	}
}

func TestGuestSessionLifecycle(t *testing.T) {
	ctx := context.Background()

	Convey("Given a fresh guest session backed by a local store", t, func() {
		local := repository.NewMemoryStore()
		engine := service.New(
			service.WithLocalStore(local),
			service.WithDebounceWindow(testDebounce),
		)
		So(engine.SetIdentity(ctx, guest), ShouldBeNil)

		Convey("Then the session starts idle and empty", func() {
			So(engine.State(), ShouldEqual, service.StateIdle)
			So(engine.HasData(), ShouldBeFalse)
			So(local.SaveCount(), ShouldEqual, 0)
		})

		Convey("Then viewing an absent month yields the template without recording it", func() {
			rec := engine.Month("2024-03")
			So(rec.Income, ShouldBeEmpty)
			So(engine.HasMonth("2024-03"), ShouldBeFalse)
			So(engine.HasData(), ShouldBeFalse)
		})

		Convey("When one month is edited", func() {
			rec := sampleRecord()
			So(engine.UpdateMonth(ctx, "2024-03", rec), ShouldBeNil)

			Convey("Then the edit is visible immediately", func() {
				So(engine.State(), ShouldEqual, service.StateUnsaved)
				So(engine.HasData(), ShouldBeTrue)
				So(engine.Month("2024-03"), ShouldResemble, rec)
			})

			Convey("Then the debounce window expires into a save", func() {
				So(eventually(func() bool { return engine.State() == service.StateIdle }), ShouldBeTrue)
				So(local.SaveCount(), ShouldEqual, 1)
				So(local.LastSaved(), ShouldResemble, model.RecordSet{"2024-03": rec})
			})

			Convey("Then a restart restores exactly that month", func() {
				So(eventually(func() bool { return engine.State() == service.StateIdle }), ShouldBeTrue)

				restarted := service.New(
					service.WithLocalStore(local),
					service.WithDebounceWindow(testDebounce),
				)
				So(restarted.SetIdentity(ctx, guest), ShouldBeNil)
				So(restarted.Snapshot(), ShouldResemble, model.RecordSet{"2024-03": rec})
			})
		})

		Convey("When several edits land inside one window", func() {
			first := sampleRecord()
			second := sampleRecord()
			second.Assets[0].Value = 9000
			third := sampleRecord()
			third.Assets[0].Value = 9500

			So(engine.UpdateMonth(ctx, "2024-03", first), ShouldBeNil)
			So(engine.UpdateMonth(ctx, "2024-03", second), ShouldBeNil)
			So(engine.UpdateMonth(ctx, "2024-03", third), ShouldBeNil)

			Convey("Then they coalesce into a single save of the final state", func() {
				So(eventually(func() bool { return engine.State() == service.StateIdle }), ShouldBeTrue)
				So(local.SaveCount(), ShouldEqual, 1)
				So(local.LastSaved()["2024-03"].Assets[0].Value, ShouldEqual, model.Amount(9500))
			})
		})
	})
}

func TestUpdateMonthValidation(t *testing.T) {
	ctx := context.Background()

	Convey("Given an engine", t, func() {
		engine := service.New(service.WithDebounceWindow(testDebounce))

		Convey("Then edits without an identity are rejected", func() {
			err := engine.UpdateMonth(ctx, "2024-03", sampleRecord())
			So(err, ShouldEqual, service.ErrNoIdentity)
		})

		Convey("Then malformed month keys are rejected", func() {
			So(engine.SetIdentity(ctx, guest), ShouldBeNil)
			for _, key := range []string{"2024-13", "2024-3", "202403", "march", ""} {
				err := engine.UpdateMonth(ctx, key, sampleRecord())
				So(err, ShouldWrap, service.ErrInvalidMonthKey)
			}
		})

		Convey("Then incoming records are normalized", func() {
			So(engine.SetIdentity(ctx, guest), ShouldBeNil)
			rec := model.MonthlyRecord{
				Income: []model.IncomeSource{{Name: "Job", Amount: 100, Frequency: "fortnightly"}},
			}
			So(engine.UpdateMonth(ctx, "2024-03", rec), ShouldBeNil)

			got := engine.Month("2024-03")
			So(got.Income[0].ID, ShouldNotBeEmpty)
			So(got.Income[0].Frequency, ShouldEqual, model.Monthly)
		})
	})
}

func TestSaveFailureAndRetry(t *testing.T) {
	ctx := context.Background()

	Convey("Given a local store that rejects saves", t, func() {
		local := repository.NewMemoryStore(repository.WithSaveError(repository.ErrUnavailable))
		engine := service.New(
			service.WithLocalStore(local),
			service.WithDebounceWindow(testDebounce),
		)
		So(engine.SetIdentity(ctx, guest), ShouldBeNil)

		Convey("When an edit flushes into the failure", func() {
			rec := sampleRecord()
			So(engine.UpdateMonth(ctx, "2024-03", rec), ShouldBeNil)
			So(eventually(func() bool { return engine.State() == service.StateError }), ShouldBeTrue)

			Convey("Then the error state names the save and keeps the edits", func() {
				So(engine.FailureKind(), ShouldEqual, service.FailSave)
				So(engine.LastError(), ShouldNotBeNil)
				So(engine.Month("2024-03"), ShouldResemble, rec)
			})

			Convey("Then the engine stays in error without manual intervention", func() {
				time.Sleep(5 * testDebounce)
				So(engine.State(), ShouldEqual, service.StateError)
				So(local.SaveCount(), ShouldEqual, 0)
			})

			Convey("Then retry succeeds once the store recovers", func() {
				local.SetSaveError(nil)
				So(engine.Retry(ctx), ShouldBeNil)
				So(engine.State(), ShouldEqual, service.StateIdle)
				So(engine.FailureKind(), ShouldEqual, service.FailNone)
				So(local.LastSaved(), ShouldResemble, model.RecordSet{"2024-03": rec})
			})

			Convey("Then retry against a still-broken store reports the error again", func() {
				So(engine.Retry(ctx), ShouldNotBeNil)
				So(engine.State(), ShouldEqual, service.StateError)
				So(engine.Month("2024-03"), ShouldResemble, rec)
			})
		})
	})

	Convey("Given a healthy engine, retry is a no-op", t, func() {
		engine := service.New(service.WithDebounceWindow(testDebounce))
		So(engine.SetIdentity(ctx, guest), ShouldBeNil)
		So(engine.Retry(ctx), ShouldBeNil)
		So(engine.State(), ShouldEqual, service.StateIdle)
	})
}

func TestSingleFlightSaves(t *testing.T) {
	ctx := context.Background()

	Convey("Given a store with slow saves", t, func() {
		local := repository.NewMemoryStore(repository.WithSaveDelay(100 * time.Millisecond))
		engine := service.New(
			service.WithLocalStore(local),
			service.WithDebounceWindow(testDebounce),
		)
		So(engine.SetIdentity(ctx, guest), ShouldBeNil)

		Convey("When an edit arrives while a save is in flight", func() {
			first := sampleRecord()
			So(engine.UpdateMonth(ctx, "2024-03", first), ShouldBeNil)

			// Let the first flush dispatch, then edit mid-save.
			time.Sleep(testDebounce + 30*time.Millisecond)
			second := sampleRecord()
			second.Assets[0].Value = 9999
			So(engine.UpdateMonth(ctx, "2024-04", second), ShouldBeNil)

			Convey("Then both saves land sequentially, never concurrently", func() {
				So(eventually(func() bool {
					return engine.State() == service.StateIdle && local.SaveCount() == 2
				}), ShouldBeTrue)
				So(local.MaxInFlightSaves(), ShouldEqual, 1)
				So(local.LastSaved(), ShouldResemble, model.RecordSet{
					"2024-03": first,
					"2024-04": second,
				})
			})
		})
	})
}

func TestEditLandingBeforeSaveCompletes(t *testing.T) {
	ctx := context.Background()

	Convey("Given a debounce window longer than the save latency", t, func() {
		local := repository.NewMemoryStore(repository.WithSaveDelay(100 * time.Millisecond))
		engine := service.New(
			service.WithLocalStore(local),
			service.WithDebounceWindow(300*time.Millisecond),
		)
		So(engine.SetIdentity(ctx, guest), ShouldBeNil)

		Convey("When a second month is edited while the first save is in flight", func() {
			So(engine.UpdateMonth(ctx, "2024-03", sampleRecord()), ShouldBeNil)
			So(eventually(func() bool { return engine.State() == service.StateSaving }), ShouldBeTrue)
			So(engine.UpdateMonth(ctx, "2024-04", sampleRecord()), ShouldBeNil)

			Convey("Then the completed save leaves the edit pending, and it reaches storage", func() {
				So(eventually(func() bool { return local.SaveCount() == 1 }), ShouldBeTrue)
				So(engine.State(), ShouldEqual, service.StateUnsaved)

				So(eventually(func() bool { return local.SaveCount() == 2 }), ShouldBeTrue)
				So(local.LastSaved(), ShouldContainKey, "2024-03")
				So(local.LastSaved(), ShouldContainKey, "2024-04")
				So(eventually(func() bool { return engine.State() == service.StateIdle }), ShouldBeTrue)
			})
		})
	})
}

func TestClearAllWaitsForInFlightSave(t *testing.T) {
	ctx := context.Background()

	Convey("Given a save in flight against a slow store", t, func() {
		local := repository.NewMemoryStore(repository.WithSaveDelay(100 * time.Millisecond))
		engine := service.New(
			service.WithLocalStore(local),
			service.WithDebounceWindow(testDebounce),
		)
		So(engine.SetIdentity(ctx, guest), ShouldBeNil)
		So(engine.UpdateMonth(ctx, "2024-03", sampleRecord()), ShouldBeNil)
		So(eventually(func() bool { return engine.State() == service.StateSaving }), ShouldBeTrue)

		Convey("When everything is cleared mid-save", func() {
			So(engine.ClearAll(ctx), ShouldBeNil)

			Convey("Then the landed save does not resurrect the cleared document", func() {
				So(local.SaveCount(), ShouldEqual, 1)
				_, err := local.Load(ctx, guest)
				So(err, ShouldEqual, repository.ErrNotFound)
				So(engine.HasData(), ShouldBeFalse)
				So(engine.State(), ShouldEqual, service.StateIdle)
			})
		})
	})
}

func TestMigrationSurvivesLoadRetry(t *testing.T) {
	ctx := context.Background()

	Convey("Given a guest with saved data and an unreachable remote store", t, func() {
		local := repository.NewMemoryStore()
		remote := repository.NewMemoryStore()
		remote.SetLoadError(repository.ErrUnavailable)
		engine := service.New(
			service.WithLocalStore(local),
			service.WithRemoteStore(remote),
			service.WithDebounceWindow(testDebounce),
		)
		So(engine.SetIdentity(ctx, guest), ShouldBeNil)
		rec := sampleRecord()
		So(engine.UpdateMonth(ctx, "2024-03", rec), ShouldBeNil)
		So(eventually(func() bool { return local.SaveCount() == 1 }), ShouldBeTrue)

		Convey("When the first registered login fails its load", func() {
			So(engine.SetIdentity(ctx, alice), ShouldEqual, repository.ErrUnavailable)
			So(engine.State(), ShouldEqual, service.StateError)
			So(engine.FailureKind(), ShouldEqual, service.FailLoad)

			Convey("Then a retry after recovery still migrates the guest data", func() {
				remote.SetLoadError(nil)
				So(engine.Retry(ctx), ShouldBeNil)
				So(engine.State(), ShouldEqual, service.StateIdle)
				So(engine.Snapshot(), ShouldResemble, model.RecordSet{"2024-03": rec})
				So(remote.LastSaved(), ShouldResemble, model.RecordSet{"2024-03": rec})

				_, err := local.Load(ctx, guest)
				So(err, ShouldEqual, repository.ErrNotFound)
			})
		})
	})
}

func TestIdentitySwitching(t *testing.T) {
	ctx := context.Background()

	Convey("Given separate local and remote stores", t, func() {
		local := repository.NewMemoryStore()
		remote := repository.NewMemoryStore()
		engine := service.New(
			service.WithLocalStore(local),
			service.WithRemoteStore(remote),
			service.WithDebounceWindow(testDebounce),
			service.WithClock(func() time.Time {
				return time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)
			}),
		)

		Convey("When a registered user logs in for the first time", func() {
			So(engine.SetIdentity(ctx, alice), ShouldBeNil)

			Convey("Then a current-month template is seeded and persisted", func() {
				So(engine.State(), ShouldEqual, service.StateIdle)
				So(engine.HasMonth("2024-06"), ShouldBeTrue)
				So(remote.SaveCount(), ShouldEqual, 1)

				seeded := engine.Month("2024-06")
				So(seeded.Income, ShouldBeEmpty)
				So(seeded.CreditScores.Values(), ShouldResemble, []int{0, 0, 0, 0, 0, 0, 0})
			})
		})

		Convey("When a guest with data registers", func() {
			So(engine.SetIdentity(ctx, guest), ShouldBeNil)
			rec := sampleRecord()
			So(engine.UpdateMonth(ctx, "2024-05", rec), ShouldBeNil)
			So(eventually(func() bool { return engine.State() == service.StateIdle }), ShouldBeTrue)

			So(engine.SetIdentity(ctx, alice), ShouldBeNil)

			Convey("Then the guest set migrates to the remote store", func() {
				So(engine.Snapshot(), ShouldResemble, model.RecordSet{"2024-05": rec})
				So(remote.LastSaved(), ShouldResemble, model.RecordSet{"2024-05": rec})
			})

			Convey("Then the migrated local copy is removed", func() {
				_, err := local.Load(ctx, guest)
				So(err, ShouldEqual, repository.ErrNotFound)
			})
		})

		Convey("When the registered user already has a remote document", func() {
			existing := model.RecordSet{"2024-01": sampleRecord()}
			So(remote.Save(ctx, alice, existing), ShouldBeNil)

			So(engine.SetIdentity(ctx, guest), ShouldBeNil)
			So(engine.UpdateMonth(ctx, "2024-05", sampleRecord()), ShouldBeNil)
			So(eventually(func() bool { return engine.State() == service.StateIdle }), ShouldBeTrue)

			So(engine.SetIdentity(ctx, alice), ShouldBeNil)

			Convey("Then the remote document wins and local data is not migrated", func() {
				So(engine.Snapshot(), ShouldResemble, existing)
				localSet, err := local.Load(ctx, guest)
				So(err, ShouldBeNil)
				So(len(localSet), ShouldEqual, 1)
			})
		})

		Convey("When the identity is cleared", func() {
			So(engine.SetIdentity(ctx, guest), ShouldBeNil)
			So(engine.UpdateMonth(ctx, "2024-05", sampleRecord()), ShouldBeNil)
			So(eventually(func() bool { return engine.State() == service.StateIdle }), ShouldBeTrue)

			So(engine.SetIdentity(ctx, types.Identity{}), ShouldBeNil)

			Convey("Then in-memory state is discarded", func() {
				So(engine.State(), ShouldEqual, service.StateIdle)
				So(engine.HasData(), ShouldBeFalse)
				So(engine.UpdateMonth(ctx, "2024-05", sampleRecord()), ShouldEqual, service.ErrNoIdentity)
			})

			Convey("Then the durable copy is untouched", func() {
				set, err := local.Load(ctx, guest)
				So(err, ShouldBeNil)
				So(set, ShouldContainKey, "2024-05")
			})
		})

		Convey("When the same identity is set twice", func() {
			So(engine.SetIdentity(ctx, guest), ShouldBeNil)
			So(engine.UpdateMonth(ctx, "2024-05", sampleRecord()), ShouldBeNil)
			So(engine.SetIdentity(ctx, guest), ShouldBeNil)

			Convey("Then the second call is a no-op and keeps pending edits", func() {
				So(engine.HasMonth("2024-05"), ShouldBeTrue)
			})
		})
	})
}

func TestDemoSeeding(t *testing.T) {
	ctx := context.Background()

	Convey("Given demo seeding is enabled for guests", t, func() {
		local := repository.NewMemoryStore()
		engine := service.New(
			service.WithLocalStore(local),
			service.WithRemoteStore(repository.NewMemoryStore()),
			service.WithDemoSeed(true),
			service.WithDebounceWindow(testDebounce),
		)
		So(engine.SetIdentity(ctx, guest), ShouldBeNil)

		Convey("Then the first login lands a populated, persisted set", func() {
			So(engine.HasData(), ShouldBeTrue)
			So(len(engine.Snapshot()), ShouldEqual, 6)
			So(local.SaveCount(), ShouldEqual, 1)
		})
	})
}

func TestImportExportThroughEngine(t *testing.T) {
	ctx := context.Background()

	Convey("Given an engine with a few months of data", t, func() {
		local := repository.NewMemoryStore()
		engine := service.New(
			service.WithLocalStore(local),
			service.WithDebounceWindow(testDebounce),
		)
		So(engine.SetIdentity(ctx, guest), ShouldBeNil)
		rec := sampleRecord()
		So(engine.UpdateMonth(ctx, "2024-02", rec), ShouldBeNil)
		So(eventually(func() bool { return engine.State() == service.StateIdle }), ShouldBeTrue)

		Convey("When the set is exported and imported back", func() {
			doc, err := engine.ExportAll()
			So(err, ShouldBeNil)

			other := sampleRecord()
			So(engine.UpdateMonth(ctx, "2024-09", other), ShouldBeNil)
			So(eventually(func() bool { return engine.State() == service.StateIdle }), ShouldBeTrue)

			So(engine.ImportAll(ctx, doc), ShouldBeNil)

			Convey("Then import is a restore, not a merge", func() {
				So(engine.Snapshot(), ShouldResemble, model.RecordSet{"2024-02": rec})
			})

			Convey("Then the restored set is persisted", func() {
				So(eventually(func() bool { return engine.State() == service.StateIdle }), ShouldBeTrue)
				So(local.LastSaved(), ShouldResemble, model.RecordSet{"2024-02": rec})
			})
		})

		Convey("When a malformed document is imported", func() {
			err := engine.ImportAll(ctx, []byte(`"not an object"`))

			Convey("Then the error surfaces and the set is untouched", func() {
				So(err, ShouldNotBeNil)
				So(engine.Snapshot(), ShouldResemble, model.RecordSet{"2024-02": rec})
			})
		})
	})
}

func TestClearAll(t *testing.T) {
	ctx := context.Background()

	Convey("Given an engine with saved data", t, func() {
		local := repository.NewMemoryStore()
		engine := service.New(
			service.WithLocalStore(local),
			service.WithDebounceWindow(testDebounce),
		)
		So(engine.SetIdentity(ctx, guest), ShouldBeNil)
		So(engine.UpdateMonth(ctx, "2024-03", sampleRecord()), ShouldBeNil)
		So(eventually(func() bool { return engine.State() == service.StateIdle }), ShouldBeTrue)

		Convey("When everything is cleared", func() {
			So(engine.ClearAll(ctx), ShouldBeNil)

			Convey("Then memory and storage are both empty", func() {
				So(engine.HasData(), ShouldBeFalse)
				So(engine.State(), ShouldEqual, service.StateIdle)
				_, err := local.Load(ctx, guest)
				So(err, ShouldEqual, repository.ErrNotFound)
			})
		})
	})

	Convey("Given a store that rejects clears", t, func() {
		local := repository.NewMemoryStore(repository.WithClearError(repository.ErrUnavailable))
		engine := service.New(
			service.WithLocalStore(local),
			service.WithDebounceWindow(testDebounce),
		)
		So(engine.SetIdentity(ctx, guest), ShouldBeNil)

		Convey("Then the failure is reported as a clear error", func() {
			So(engine.ClearAll(ctx), ShouldNotBeNil)
			So(engine.State(), ShouldEqual, service.StateError)
			So(engine.FailureKind(), ShouldEqual, service.FailClear)

			Convey("Then retry re-attempts the clear", func() {
				So(engine.Retry(ctx), ShouldNotBeNil)
				So(engine.FailureKind(), ShouldEqual, service.FailClear)
			})
		})

		Convey("Then clearing without an identity is rejected", func() {
			bare := service.New(service.WithDebounceWindow(testDebounce))
			So(bare.ClearAll(ctx), ShouldEqual, service.ErrNoIdentity)
		})
	})
}

func TestStopFlushesPendingEdits(t *testing.T) {
	ctx := context.Background()

	Convey("Given pending unsaved edits", t, func() {
		local := repository.NewMemoryStore()
		engine := service.New(
			service.WithLocalStore(local),
			service.WithDebounceWindow(time.Hour), // never fires on its own
		)
		So(engine.SetIdentity(ctx, guest), ShouldBeNil)
		rec := sampleRecord()
		So(engine.UpdateMonth(ctx, "2024-03", rec), ShouldBeNil)
		So(local.SaveCount(), ShouldEqual, 0)

		Convey("When the engine stops", func() {
			engine.Stop(ctx)

			Convey("Then the final save lands", func() {
				So(local.SaveCount(), ShouldEqual, 1)
				So(local.LastSaved(), ShouldResemble, model.RecordSet{"2024-03": rec})
			})
		})
	})
}

func TestAggregates(t *testing.T) {
	ctx := context.Background()

	Convey("Given a month with known numbers", t, func() {
		engine := service.New(service.WithDebounceWindow(testDebounce))
		So(engine.SetIdentity(ctx, guest), ShouldBeNil)
		So(engine.UpdateMonth(ctx, "2024-03", sampleRecord()), ShouldBeNil)

		Convey("Then aggregates carry derived numbers only", func() {
			agg := engine.Aggregates("2024-03")
			So(agg.MonthKey, ShouldEqual, "2024-03")
			So(agg.NetWorth, ShouldEqual, 8000.0-1200.0)
			So(agg.MonthlyIncome, ShouldAlmostEqual, 2600*26.0/12.0, 0.01)
			So(agg.MonthlyBills, ShouldEqual, 1500.0)
			So(agg.DebtTotal, ShouldEqual, 1200.0)
			So(agg.Utilization, ShouldEqual, 24.0)
			So(agg.CreditScores, ShouldResemble, []int{712, 709, 715, 0, 0, 0, 0})
		})
	})
}
