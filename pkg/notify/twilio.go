package notify

import (
	"context"
	"fmt"

	"clinic-auth/pkg/utils"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type TwilioSender struct {
	api        messageCreator
	fromNumber string
}

func NewTwilioSender(config utils.SMSConfig) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: config.AccountSID,
		Password: config.AuthToken,
	})

	return &TwilioSender{
		api:        client.Api,
		fromNumber: config.FromNumber,
	}
}

func (t *TwilioSender) SendOTP(ctx context.Context, destination, code, purpose string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(destination)
	params.SetFrom(t.fromNumber)
	params.SetBody(messageBody(code, purpose))

	if _, err := t.api.CreateMessage(params); err != nil {
		return fmt.Errorf("send SMS: %w", err)
	}
	return nil
}
