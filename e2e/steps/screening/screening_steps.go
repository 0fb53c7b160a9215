package screening

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"txguard/e2e/steps/common"
)

// TestContext is the subset of the suite context these steps need.
type TestContext interface {
	POST(path string, body any) error
	TxID(alias string) string
	Body() string
	GetResponseField(path string) (any, error)
}

// RegisterSteps registers transaction screening steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	s := &screeningSteps{tc: tc}
	ctx.Step(`^a transaction "([^"]*)" of (\S+) (\S+) from "([^"]*)" in (\S+) to "([^"]*)" in (\S+)$`, s.transaction)
	ctx.Step(`^the receiver has a "([^"]*)" identifier "([^"]*)"$`, s.receiverIdentifier)
	ctx.Step(`^the transaction amount is "([^"]*)"$`, s.amount)
	ctx.Step(`^the receiver is the sender$`, s.receiverIsSender)
	ctx.Step(`^I screen the transaction$`, s.screen)
	ctx.Step(`^I screen the transaction again$`, s.screen)
	ctx.Step(`^the verdict should be (CLEAR|FLAG|BLOCK)$`, s.verdictShouldBe)
	ctx.Step(`^the reasons should include "([^"]*)"$`, s.reasonsShouldInclude)
	ctx.Step(`^the (sender|receiver) sanctions check should be (MATCH|NO_MATCH|TIMEOUT|ERROR)$`, s.checkShouldBe)
}

type party struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Country     string              `json:"country,omitempty"`
	Identifiers []map[string]string `json:"identifiers,omitempty"`
}

type screenRequest struct {
	TransactionID string    `json:"transaction_id"`
	Timestamp     time.Time `json:"timestamp"`
	Sender        party     `json:"sender"`
	Receiver      party     `json:"receiver"`
	Amount        string    `json:"amount"`
	Currency      string    `json:"currency"`
}

type screeningSteps struct {
	tc  TestContext
	req screenRequest
}

func slug(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "-"))
}

func (s *screeningSteps) transaction(_ context.Context, alias, amount, currency, sender, senderCountry, receiver, receiverCountry string) error {
	s.req = screenRequest{
		TransactionID: s.tc.TxID(alias),
		Timestamp:     time.Now().UTC(),
		Sender:        party{ID: "e2e-" + slug(sender), Name: sender, Country: senderCountry},
		Receiver:      party{ID: "e2e-" + slug(receiver), Name: receiver, Country: receiverCountry},
		Amount:        amount,
		Currency:      currency,
	}
	return nil
}

func (s *screeningSteps) receiverIdentifier(_ context.Context, kind, value string) error {
	s.req.Receiver.Identifiers = append(s.req.Receiver.Identifiers, map[string]string{"type": kind, "value": value})
	return nil
}

func (s *screeningSteps) amount(_ context.Context, amount string) error {
	s.req.Amount = amount
	return nil
}

func (s *screeningSteps) receiverIsSender(context.Context) error {
	s.req.Receiver = s.req.Sender
	return nil
}

func (s *screeningSteps) screen(context.Context) error {
	return s.tc.POST("/v1/transactions/screen", s.req)
}

func (s *screeningSteps) verdictShouldBe(_ context.Context, want string) error {
	v, err := s.tc.GetResponseField("verdict")
	if err != nil {
		return err
	}
	if v != want {
		return fmt.Errorf("expected verdict %s, got %v: %s", want, v, s.tc.Body())
	}
	return nil
}

func (s *screeningSteps) reasonsShouldInclude(_ context.Context, want string) error {
	v, err := s.tc.GetResponseField("reasons")
	if err != nil {
		return err
	}
	reasons, _ := v.([]any)
	for _, r := range reasons {
		if r == want {
			return nil
		}
	}
	return fmt.Errorf("reasons %v do not include %q", reasons, want)
}

func (s *screeningSteps) checkShouldBe(_ context.Context, side, want string) error {
	v, err := s.tc.GetResponseField("sanctions")
	if err != nil {
		return err
	}
	checks, _ := v.([]any)
	for _, c := range checks {
		m, _ := c.(map[string]any)
		if m["check"] == "sanctions_"+side {
			if got := common.Stringify(m["outcome"]); got != want {
				return fmt.Errorf("expected %s check %s, got %s", side, want, got)
			}
			return nil
		}
	}
	return fmt.Errorf("no %s check in %s", side, s.tc.Body())
}
