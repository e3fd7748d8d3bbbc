package notify

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// SMS sends escalation alerts to the operator phone via Twilio.
type SMS struct {
	client   *twilio.RestClient
	from     string
	operator string
}

func NewSMS(accountSID, authToken, from, operator string) *SMS {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &SMS{client: client, from: from, operator: operator}
}

func (s *SMS) Escalation(_ context.Context, sessionID, reason string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(s.operator)
	params.SetFrom(s.from)
	params.SetBody(fmt.Sprintf("Session %s escalated: %s", sessionID, reason))

	if _, err := s.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("sending escalation sms: %w", err)
	}
	return nil
}
