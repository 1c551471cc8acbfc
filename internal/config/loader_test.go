package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/platehub/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

var primaryEnv = map[string]string{
	"PLATEHUB_PRIMARY__TENANT_ID":        "tenant-a",
	"PLATEHUB_PRIMARY__CLIENT_ID":        "client-a",
	"PLATEHUB_PRIMARY__CLIENT_SECRET":    "secret-a",
	"PLATEHUB_PRIMARY__AUTH_ENDPOINT":    "https://auth.example.test/oauth/token",
	"PLATEHUB_PRIMARY__TENANT_BASE_URL":  "https://tenants.example.test",
	"PLATEHUB_PRIMARY__PROFILE_BASE_URL": "https://profiles.example.test",
	"PLATEHUB_PRIMARY__TESTS_BASE_URL":   "https://tests.example.test",
}

var managedEnv = []string{
	"PLATEHUB_CONFIG",
	"PLATEHUB_ADDR",
	"PLATEHUB_LOG_LEVEL",
	"PLATEHUB_WORKER_COUNT",
	"PLATEHUB_RATE_LIMIT__MAX_REQUESTS",
	"PLATEHUB_RATE_LIMIT__WINDOW_MS",
	"PLATEHUB_SECONDARY__CLIENT_ID",
	"PLATEHUB_SECONDARY__CLIENT_SECRET",
	"PLATEHUB_TESTS_MODIFIED_FROM",
}

func setPrimaryEnv() {
	for k, v := range primaryEnv {
		_ = os.Setenv(k, v)
	}
}

func clearConfigEnvVars() {
	for k := range primaryEnv {
		_ = os.Unsetenv(k)
	}
	for _, k := range managedEnv {
		_ = os.Unsetenv(k)
	}
}

func createTempConfigFile(content string) string {
	f, err := os.CreateTemp("", "platehub-*.yaml")
	if err != nil {
		panic(err)
	}
	defer func() { _ = f.Close() }()
	if _, err := f.WriteString(content); err != nil {
		panic(err)
	}
	return f.Name()
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When the primary tenant is missing", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then loading fails validation", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "primary tenant missing")
			})
		})

		convey.Convey("When the primary tenant comes from env", func() {
			setPrimaryEnv()
			cfg, err := config.Load(ctx)

			convey.Convey("Then nested keys are mapped and defaults kept", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Primary.ClientID, convey.ShouldEqual, "client-a")
				convey.So(cfg.Primary.TestsBaseURL, convey.ShouldEqual, "https://tests.example.test")
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.RateLimit.MaxRequests, convey.ShouldEqual, 20)
				convey.So(len(cfg.Credentials()), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When env overrides rate limit settings", func() {
			setPrimaryEnv()
			_ = os.Setenv("PLATEHUB_RATE_LIMIT__MAX_REQUESTS", "5")
			_ = os.Setenv("PLATEHUB_RATE_LIMIT__WINDOW_MS", "1000")
			_ = os.Setenv("PLATEHUB_WORKER_COUNT", "3")

			cfg, err := config.Load(ctx)

			convey.Convey("Then the overrides apply", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.RateLimit.MaxRequests, convey.ShouldEqual, 5)
				convey.So(cfg.RateLimit.WindowMS, convey.ShouldEqual, 1000)
				convey.So(cfg.RateLimit.SafetyMarginMS, convey.ShouldEqual, 100)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When loading config with YAML file and env", func() {
			yamlContent := `
addr: ":9090"
log_level: debug
rate_limit:
  max_requests: 10
professional_groups:
  - Pro
primary:
  tenant_id: tenant-file
  client_id: client-file
  client_secret: secret-file
  auth_endpoint: https://auth.example.test/oauth/token
  tenant_base_url: https://tenants.example.test
  profile_base_url: https://profiles.example.test
  tests_base_url: https://tests.example.test
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("PLATEHUB_CONFIG", tmpFile)
			_ = os.Setenv("PLATEHUB_ADDR", ":8080")

			cfg, err := config.Load(ctx)

			convey.Convey("Then env overrides the file and the file overrides defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.RateLimit.MaxRequests, convey.ShouldEqual, 10)
				convey.So(cfg.RateLimit.WindowMS, convey.ShouldEqual, 5000)
				convey.So(cfg.ProfessionalGroups, convey.ShouldResemble, []string{"Pro"})
				convey.So(cfg.Primary.TenantID, convey.ShouldEqual, "tenant-file")
			})
		})

		convey.Convey("When the secondary tenant is only partly configured", func() {
			setPrimaryEnv()
			_ = os.Setenv("PLATEHUB_SECONDARY__CLIENT_ID", "client-b")

			_, err := config.Load(ctx)

			convey.Convey("Then validation names the secondary tenant", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "secondary tenant missing")
			})
		})

		convey.Convey("When loading config with an invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("PLATEHUB_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with a non-existent file", func() {
			_ = os.Setenv("PLATEHUB_CONFIG", "/non/existent/file.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			setPrimaryEnv()
			_ = os.Setenv("PLATEHUB_ADDR", "")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the modified-from date is malformed", func() {
			setPrimaryEnv()
			_ = os.Setenv("PLATEHUB_TESTS_MODIFIED_FROM", "yesterday")

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the rate limit is not positive", func() {
			setPrimaryEnv()
			_ = os.Setenv("PLATEHUB_RATE_LIMIT__MAX_REQUESTS", "0")

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When several settings are invalid at once", func() {
			_ = os.Setenv("PLATEHUB_ADDR", "")
			_ = os.Setenv("PLATEHUB_RATE_LIMIT__WINDOW_MS", "0")

			_, err := config.Load(ctx)

			convey.Convey("Then every problem is reported", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(err.Error(), convey.ShouldContainSubstring, "rate_limit.window_ms must be positive")
				convey.So(err.Error(), convey.ShouldContainSubstring, "primary tenant missing")
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			setPrimaryEnv()
			_ = os.Setenv("PLATEHUB_WORKER_COUNT", "not_a_number")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}
