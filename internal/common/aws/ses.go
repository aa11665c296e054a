package aws

import (
	"context"
	"errors"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type Email struct {
	From    string
	To      string
	Subject string
	Text    string
	HTML    string
}

type SESClient struct {
	api SESAPI
}

func NewSESClient(cfg awssdk.Config) *SESClient {
	return &SESClient{api: ses.NewFromConfig(cfg)}
}

func NewSESClientWithAPI(api SESAPI) *SESClient {
	return &SESClient{api: api}
}

// Send delivers one email and returns the SES message id.
func (s *SESClient) Send(ctx context.Context, e Email) (string, error) {
	if e.To == "" {
		return "", errors.New("ses: empty recipient")
	}
	body := &types.Body{Text: &types.Content{Data: awssdk.String(e.Text), Charset: awssdk.String("UTF-8")}}
	if e.HTML != "" {
		body.Html = &types.Content{Data: awssdk.String(e.HTML), Charset: awssdk.String("UTF-8")}
	}

	out, err := s.api.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{ToAddresses: []string{e.To}},
		Message: &types.Message{
			Subject: &types.Content{Data: awssdk.String(e.Subject), Charset: awssdk.String("UTF-8")},
			Body:    body,
		},
		Source: awssdk.String(e.From),
	})
	if err != nil {
		return "", err
	}
	return awssdk.ToString(out.MessageId), nil
}
