package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/brewrank/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func validConfig() *config.Config {
	cfg := config.New()
	cfg.SessionSecret = "session"
	cfg.AuthSecret = "auth"
	return cfg
}

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.StoreBackend, convey.ShouldEqual, config.BackendMemory)
			convey.So(cfg.GuardBackend, convey.ShouldEqual, config.BackendMemory)
			convey.So(cfg.MongoDatabase, convey.ShouldEqual, "craftbeer")
			convey.So(cfg.MongoTimeout(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.SessionTTL(), convey.ShouldEqual, 24*time.Hour)
			convey.So(cfg.GuardSize, convey.ShouldEqual, 100_000)
			convey.So(cfg.MaxSearchLimit, convey.ShouldEqual, 50)
			convey.So(cfg.SeedCatalog, convey.ShouldBeTrue)
			convey.So(cfg.MetricsNamespace, convey.ShouldEqual, "brewrank")
			convey.So(cfg.MetricLabels(), convey.ShouldBeNil)
		})

		convey.Convey("Then it should not validate without secrets", func() {
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a config with secrets", t, func() {
		convey.So(validConfig().Validate(), convey.ShouldBeNil)

		cases := map[string]func(*config.Config){
			"empty addr":            func(c *config.Config) { c.Addr = " " },
			"unknown log format":    func(c *config.Config) { c.LogFormat = "xml" },
			"unknown store backend": func(c *config.Config) { c.StoreBackend = "postgres" },
			"mongo without uri":     func(c *config.Config) { c.StoreBackend = config.BackendMongo },
			"no metrics namespace":  func(c *config.Config) { c.MetricsNamespace = "" },
			"unknown guard backend": func(c *config.Config) { c.GuardBackend = "etcd" },
			"redis without addr":    func(c *config.Config) { c.GuardBackend = config.BackendRedis },
			"empty session secret":  func(c *config.Config) { c.SessionSecret = "" },
			"empty auth secret":     func(c *config.Config) { c.AuthSecret = "" },
			"zero session ttl":      func(c *config.Config) { c.SessionTTLMinutes = 0 },
			"negative search limit": func(c *config.Config) { c.MaxSearchLimit = -1 },
		}
		for name, mutate := range cases {
			convey.Convey("When it has "+name, func() {
				cfg := validConfig()
				mutate(cfg)

				convey.Convey("Then validation should fail", func() {
					convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
				})
			})
		}

		convey.Convey("When mongo and redis are fully configured", func() {
			cfg := validConfig()
			cfg.StoreBackend = config.BackendMongo
			cfg.MongoURI = "mongodb://localhost:27017"
			cfg.GuardBackend = config.BackendRedis
			cfg.RedisAddr = "localhost:6379"

			convey.Convey("Then validation should pass", func() {
				convey.So(cfg.Validate(), convey.ShouldBeNil)
			})
		})
	})
}
