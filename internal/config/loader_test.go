package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/brewrank/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with only the required secrets", func() {
			setSecrets()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.StoreBackend, convey.ShouldEqual, "memory")
				convey.So(cfg.SessionSecret, convey.ShouldEqual, "session")
			})
		})

		convey.Convey("When no secrets are configured", func() {
			_, err := config.Load(ctx)

			convey.Convey("Then validation should fail", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			setSecrets()
			_ = os.Setenv("BREWRANK_ADDR", ":8080")
			_ = os.Setenv("BREWRANK_LOG_FORMAT", "json")
			_ = os.Setenv("BREWRANK_STORE_BACKEND", "mongo")
			_ = os.Setenv("BREWRANK_MONGO_URI", "mongodb://db:27017")
			_ = os.Setenv("BREWRANK_GUARD_SIZE", "42")
			_ = os.Setenv("BREWRANK_SEED_CATALOG", "false")
			_ = os.Setenv("BREWRANK_METRICS_NAMESPACE", "taproom")
			_ = os.Setenv("BREWRANK_INSTANCE", "edge-1")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
				convey.So(cfg.StoreBackend, convey.ShouldEqual, "mongo")
				convey.So(cfg.MongoURI, convey.ShouldEqual, "mongodb://db:27017")
				convey.So(cfg.GuardSize, convey.ShouldEqual, 42)
				convey.So(cfg.SeedCatalog, convey.ShouldBeFalse)
				convey.So(cfg.MetricsNamespace, convey.ShouldEqual, "taproom")
				convey.So(cfg.MetricLabels(), convey.ShouldResemble, map[string]string{"instance": "edge-1"})
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
session_secret: "from-file"
auth_secret: "from-file"
session_ttl_minutes: 30
max_search_limit: 20
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("BREWRANK_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.SessionTTLMinutes, convey.ShouldEqual, 30)
				convey.So(cfg.MaxSearchLimit, convey.ShouldEqual, 20)
			})

			convey.Convey("And env vars should override the file", func() {
				_ = os.Setenv("BREWRANK_ADDR", ":7070")

				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.MaxSearchLimit, convey.ShouldEqual, 20)
			})
		})

		convey.Convey("When the config file does not exist", func() {
			setSecrets()
			_ = os.Setenv("BREWRANK_CONFIG", "/non/existent/file.yaml")

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When an env var does not parse", func() {
			setSecrets()
			_ = os.Setenv("BREWRANK_GUARD_SIZE", "lots")

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the addr is emptied", func() {
			setSecrets()
			_ = os.Setenv("BREWRANK_ADDR", "")

			_, err := config.Load(ctx)

			convey.Convey("Then validation should fail", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func setSecrets() {
	_ = os.Setenv("BREWRANK_SESSION_SECRET", "session")
	_ = os.Setenv("BREWRANK_AUTH_SECRET", "auth")
}

// Helper functions for testing.
func clearConfigEnvVars() {
	envVars := []string{
		"BREWRANK_CONFIG",
		"BREWRANK_ADDR",
		"BREWRANK_LOG_FORMAT",
		"BREWRANK_STORE_BACKEND",
		"BREWRANK_MONGO_URI",
		"BREWRANK_GUARD_SIZE",
		"BREWRANK_SEED_CATALOG",
		"BREWRANK_METRICS_NAMESPACE",
		"BREWRANK_INSTANCE",
		"BREWRANK_SESSION_SECRET",
		"BREWRANK_AUTH_SECRET",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "brewrank-config-*.yaml")
	if err != nil {
		panic(err)
	}
	defer func() { _ = tmpFile.Close() }()
	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
