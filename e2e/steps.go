package e2e

import (
	"github.com/cucumber/godog"

	"kiosk/e2e/steps/admin"
	"kiosk/e2e/steps/common"
	"kiosk/e2e/steps/kiosk"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Background, generic requests and response assertions
	common.RegisterSteps(ctx, tc)

	// Kiosk session, registration and check-in flows
	kiosk.RegisterSteps(ctx, tc)

	// Administrator login and statistics
	admin.RegisterSteps(ctx, tc)
}
