package config_test

import (
	"runtime"
	"testing"

	"github.com/okian/platehub/internal/config"
	"github.com/okian/platehub/internal/domain/athlete"
	"github.com/okian/platehub/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.HTTPTimeoutMS, convey.ShouldEqual, 30_000)
			convey.So(cfg.TokenRefreshBufferMS, convey.ShouldEqual, 300_000)
			convey.So(cfg.RateLimit.MaxRequests, convey.ShouldEqual, 20)
			convey.So(cfg.RateLimit.WindowMS, convey.ShouldEqual, 5_000)
			convey.So(cfg.RateLimit.SafetyMarginMS, convey.ShouldEqual, 100)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*2)
			convey.So(cfg.ProfessionalGroups, convey.ShouldResemble, athlete.DefaultProfessionalGroups)
		})

		convey.Convey("Then editing its group list leaves the shared default alone", func() {
			cfg.ProfessionalGroups[0] = "Changed"
			convey.So(athlete.DefaultProfessionalGroups[0], convey.ShouldEqual, "MiLB/MLB")
			convey.So(config.New().ProfessionalGroups[0], convey.ShouldEqual, "MiLB/MLB")
		})

		convey.Convey("Then only the primary tenant has a credential", func() {
			creds := cfg.Credentials()
			convey.So(len(creds), convey.ShouldEqual, 1)
			convey.So(creds[0].Tenant, convey.ShouldEqual, model.TenantPrimary)
		})

		convey.Convey("Then the default modified-from date parses", func() {
			ts, err := cfg.ModifiedFrom()
			convey.So(err, convey.ShouldBeNil)
			convey.So(ts.Year(), convey.ShouldEqual, 2020)
		})
	})

	convey.Convey("Given a config with a secondary tenant", t, func() {
		cfg := config.New()
		cfg.Secondary = config.TenantConfig{ClientID: "id", ClientSecret: "secret", AuthEndpoint: "https://auth"}

		convey.Convey("Then both credentials are returned primary first", func() {
			creds := cfg.Credentials()
			convey.So(len(creds), convey.ShouldEqual, 2)
			convey.So(creds[1].Tenant, convey.ShouldEqual, model.TenantSecondary)
			convey.So(creds[1].ClientID, convey.ShouldEqual, "id")
		})
	})
}
