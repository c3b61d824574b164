package kiosk

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	PUT(path string, body any) error
	PATCH(path string, body any) error
	DELETE(path string) error
	GET(path string, headers map[string]string) error
	StatusCode() int
	Body() string
	GetResponseField(field string) (any, error)
	GetSessionID() string
	SetSessionID(id string)
	GetConfirmationCode() string
	SetConfirmationCode(code string)
}

// RegisterSteps registers kiosk session, registration and check-in steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &kioskSteps{tc: tc}

	// Session steps
	ctx.Step(`^I start a kiosk session$`, steps.startSession)
	ctx.Step(`^I tap the "([^"]*)" card$`, steps.tapCard)
	ctx.Step(`^I navigate to "([^"]*)"$`, steps.navigate)
	ctx.Step(`^I end the kiosk session$`, steps.endSession)
	ctx.Step(`^I reload the kiosk session$`, steps.reloadSession)

	// Registration steps
	ctx.Step(`^I select the event "([^"]*)"$`, steps.selectEvent)
	ctx.Step(`^I fill the registration form with:$`, steps.fillForm)
	ctx.Step(`^I submit the registration$`, steps.submitRegistration)
	ctx.Step(`^I save the confirmation code$`, steps.saveConfirmationCode)

	// Check-in steps
	ctx.Step(`^I enter the check-in code "([^"]*)"$`, steps.enterCode)
	ctx.Step(`^I enter the saved confirmation code$`, steps.enterSavedCode)
	ctx.Step(`^I submit the check-in$`, steps.submitCheckIn)
	ctx.Step(`^I look up the saved confirmation code$`, steps.lookupSavedCode)
}

type kioskSteps struct {
	tc TestContext
}

func (s *kioskSteps) base() string {
	return "/kiosk/sessions/" + s.tc.GetSessionID()
}

// expectOK fails the step on anything but a 2xx so later steps do not run
// against a stale session.
func (s *kioskSteps) expectOK(err error) error {
	if err != nil {
		return err
	}
	if code := s.tc.StatusCode(); code < 200 || code >= 300 {
		return fmt.Errorf("unexpected status %d: %s", code, s.tc.Body())
	}
	return nil
}

func (s *kioskSteps) startSession(ctx context.Context) error {
	if err := s.expectOK(s.tc.POST("/kiosk/sessions", nil)); err != nil {
		return err
	}
	id, err := s.tc.GetResponseField("id")
	if err != nil {
		return err
	}
	s.tc.SetSessionID(fmt.Sprint(id))
	return nil
}

func (s *kioskSteps) tapCard(ctx context.Context, card string) error {
	return s.tc.POST(s.base()+"/cards/"+card, nil)
}

func (s *kioskSteps) navigate(ctx context.Context, screen string) error {
	return s.tc.POST(s.base()+"/navigate", map[string]string{"screen": screen})
}

func (s *kioskSteps) endSession(ctx context.Context) error {
	return s.tc.DELETE(s.base())
}

func (s *kioskSteps) reloadSession(ctx context.Context) error {
	return s.tc.GET(s.base(), nil)
}

func (s *kioskSteps) selectEvent(ctx context.Context, eventID string) error {
	return s.tc.POST(s.base()+"/registration/event", map[string]string{"eventId": eventID})
}

func (s *kioskSteps) fillForm(ctx context.Context, table *godog.Table) error {
	fields := make(map[string]string, len(table.Rows))
	for _, row := range table.Rows {
		if len(row.Cells) != 2 {
			return fmt.Errorf("form table rows need a field and a value")
		}
		fields[row.Cells[0].Value] = row.Cells[1].Value
	}
	return s.expectOK(s.tc.PATCH(s.base()+"/registration/fields", map[string]any{"fields": fields}))
}

func (s *kioskSteps) submitRegistration(ctx context.Context) error {
	return s.tc.POST(s.base()+"/registration/submit", nil)
}

func (s *kioskSteps) saveConfirmationCode(ctx context.Context) error {
	code, err := s.tc.GetResponseField("registration.result.confirmationCode")
	if err != nil {
		return err
	}
	s.tc.SetConfirmationCode(fmt.Sprint(code))
	return nil
}

func (s *kioskSteps) enterCode(ctx context.Context, code string) error {
	return s.tc.PUT(s.base()+"/checkin/code", map[string]string{"code": code})
}

func (s *kioskSteps) enterSavedCode(ctx context.Context) error {
	if s.tc.GetConfirmationCode() == "" {
		return fmt.Errorf("no confirmation code saved")
	}
	return s.enterCode(ctx, s.tc.GetConfirmationCode())
}

func (s *kioskSteps) submitCheckIn(ctx context.Context) error {
	return s.tc.POST(s.base()+"/checkin/submit", nil)
}

func (s *kioskSteps) lookupSavedCode(ctx context.Context) error {
	return s.tc.GET("/checkin/codes/"+s.tc.GetConfirmationCode(), nil)
}
