package admin

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GET(path string, headers map[string]string) error
	StatusCode() int
	Body() string
	GetResponseField(field string) (any, error)
	GetAdminToken() string
	SetAdminToken(token string)
}

// RegisterSteps registers administrator steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &adminSteps{tc: tc}

	ctx.Step(`^I log in as administrator "([^"]*)" with password "([^"]*)"$`, steps.login)
	ctx.Step(`^I save the admin token$`, steps.saveToken)
	ctx.Step(`^I forget the admin token$`, steps.forgetToken)
	ctx.Step(`^I use the admin token "([^"]*)"$`, steps.useToken)
	ctx.Step(`^I request the visitor statistics$`, steps.requestStats)
	ctx.Step(`^I request the recent activity$`, steps.requestActivity)
	ctx.Step(`^I log out as administrator$`, steps.logout)
	ctx.Step(`^the statistics should count at least (\d+) registrations$`, steps.statsAtLeast)
}

type adminSteps struct {
	tc TestContext
}

func (s *adminSteps) login(ctx context.Context, username, password string) error {
	return s.tc.POST("/admin/login", map[string]string{"username": username, "password": password})
}

func (s *adminSteps) saveToken(ctx context.Context) error {
	token, err := s.tc.GetResponseField("token")
	if err != nil {
		return err
	}
	s.tc.SetAdminToken(fmt.Sprint(token))
	return nil
}

func (s *adminSteps) forgetToken(ctx context.Context) error {
	s.tc.SetAdminToken("")
	return nil
}

func (s *adminSteps) useToken(ctx context.Context, token string) error {
	s.tc.SetAdminToken(token)
	return nil
}

func (s *adminSteps) requestStats(ctx context.Context) error {
	return s.tc.GET("/admin/stats", nil)
}

func (s *adminSteps) requestActivity(ctx context.Context) error {
	return s.tc.GET("/admin/activity?limit=10", nil)
}

// logout leaves the token in place so the scenario can prove it no longer works.
func (s *adminSteps) logout(ctx context.Context) error {
	return s.tc.POST("/admin/logout", nil)
}

func (s *adminSteps) statsAtLeast(ctx context.Context, n int) error {
	v, err := s.tc.GetResponseField("stats.totalRegistrations")
	if err != nil {
		return err
	}
	total, ok := v.(float64)
	if !ok {
		return fmt.Errorf("totalRegistrations is %T, want number", v)
	}
	if int(total) < n {
		return fmt.Errorf("expected at least %d registrations, got %d", n, int(total))
	}
	return nil
}
