package audit

import (
	"context"
	"fmt"
	"net/url"

	"github.com/cucumber/godog"

	"txguard/e2e/steps/common"
)

// TestContext is the subset of the suite context these steps need.
type TestContext interface {
	GET(path string) error
	TxID(alias string) string
	Body() string
	GetResponseField(path string) (any, error)
}

// RegisterSteps registers audit ledger steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	s := &auditSteps{tc: tc}
	ctx.Step(`^I remember the audit reference$`, s.rememberAuditRef)
	ctx.Step(`^I fetch the audit record for "([^"]*)"$`, s.fetchRecord)
	ctx.Step(`^the audit record should match the remembered reference$`, s.recordMatchesRef)
	ctx.Step(`^the remembered reference should be older than the latest one$`, s.refOlderThanLatest)
	ctx.Step(`^I verify the whole ledger$`, s.verifyAll)
	ctx.Step(`^the ledger should be valid$`, s.ledgerValid)
}

type auditSteps struct {
	tc         TestContext
	seq        float64
	recordHash string
}

func (s *auditSteps) rememberAuditRef(context.Context) error {
	seq, err := s.tc.GetResponseField("audit.seq")
	if err != nil {
		return err
	}
	hash, err := s.tc.GetResponseField("audit.record_hash")
	if err != nil {
		return err
	}
	s.seq, _ = seq.(float64)
	s.recordHash = common.Stringify(hash)
	return nil
}

func (s *auditSteps) fetchRecord(_ context.Context, alias string) error {
	return s.tc.GET("/v1/audit/transactions/" + url.PathEscape(s.tc.TxID(alias)))
}

func (s *auditSteps) recordMatchesRef(context.Context) error {
	hash, err := s.tc.GetResponseField("record_hash")
	if err != nil {
		return err
	}
	if got := common.Stringify(hash); got != s.recordHash {
		return fmt.Errorf("audit record hash %s differs from screening response %s", got, s.recordHash)
	}
	return nil
}

func (s *auditSteps) refOlderThanLatest(context.Context) error {
	seq, err := s.tc.GetResponseField("seq")
	if err != nil {
		return err
	}
	latest, _ := seq.(float64)
	if latest <= s.seq {
		return fmt.Errorf("expected latest record seq %v to follow remembered seq %v", latest, s.seq)
	}
	return nil
}

func (s *auditSteps) verifyAll(context.Context) error {
	return s.tc.GET("/v1/audit/verify")
}

func (s *auditSteps) ledgerValid(context.Context) error {
	v, err := s.tc.GetResponseField("valid")
	if err != nil {
		return err
	}
	if v != true {
		return fmt.Errorf("ledger did not verify: %s", s.tc.Body())
	}
	return nil
}
