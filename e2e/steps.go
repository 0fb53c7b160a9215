package e2e

import (
	"github.com/cucumber/godog"

	"txguard/e2e/steps/audit"
	"txguard/e2e/steps/common"
	"txguard/e2e/steps/screening"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	screening.RegisterSteps(ctx, tc)
	audit.RegisterSteps(ctx, tc)
}
