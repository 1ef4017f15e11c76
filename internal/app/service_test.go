package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	service "github.com/okian/brewrank/internal/app"
	"github.com/okian/brewrank/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["maxSearchLimit"], ShouldEqual, 50)
			So(stats["sessionTTL"], ShouldEqual, "24h0m0s")
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithGuardSize(10),
			service.WithSessionTTL(time.Hour),
			service.WithMaxSearchLimit(5),
		)

		Convey("Then the options should be applied", func() {
			stats := svc.GetStats()
			So(stats["maxSearchLimit"], ShouldEqual, 5)
			So(stats["sessionTTL"], ShouldEqual, "1h0m0s")
		})
	})
}

func TestService_Start(t *testing.T) {
	Convey("Given a new service", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		Convey("When starting without a session secret", func() {
			svc := service.New()
			err := svc.Start(ctx)

			Convey("Then it should refuse to start", func() {
				So(err, ShouldNotBeNil)
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})

		Convey("When starting with a secret and seeding", func() {
			svc := service.New(service.WithSessionSecret("secret"), service.WithSeedCatalog(true))
			defer svc.Stop()
			err := svc.Start(ctx)

			Convey("Then it should start with the sample catalog", func() {
				So(err, ShouldBeNil)
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["catalogBeers"], ShouldEqual, 5)
				So(stats["lists"], ShouldEqual, 0)
				So(stats["stepGuardSize"], ShouldEqual, int64(0))
				So(svc.Health(ctx), ShouldBeNil)
			})

			Convey("And starting again should be a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})
		})
	})
}

func TestService_Stop(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := service.New(service.WithSessionSecret("secret"))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)

		Convey("When stopping the service", func() {
			svc.Stop()

			Convey("Then it should be marked as stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
			})

			Convey("And operations should fail", func() {
				_, err := svc.SearchBeers(ctx, "", "", 10)
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
				So(errors.Is(svc.Health(ctx), service.ErrNotStarted), ShouldBeTrue)
			})

			Convey("And stopping again should be safe", func() {
				svc.Stop()
			})
		})
	})
}
