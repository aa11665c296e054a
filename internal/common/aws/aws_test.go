package aws

import (
	"context"
	"errors"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Implementations
// ==========================

type MockSESAPI struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func (m *MockSESAPI) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	return m.SendEmailFunc(ctx, params, optFns...)
}

type MockSNSAPI struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func (m *MockSNSAPI) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	return m.PublishFunc(ctx, params, optFns...)
}

// ==========================
// Tests
// ==========================

func TestSESClient_Send(t *testing.T) {
	api := &MockSESAPI{
		SendEmailFunc: func(_ context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			assert.Equal(t, []string{"pro@example.com"}, params.Destination.ToAddresses)
			assert.Equal(t, "noreply@greencrew.app", *params.Source)
			assert.Equal(t, "Job confirmed", *params.Message.Subject.Data)
			assert.Equal(t, "plain", *params.Message.Body.Text.Data)
			assert.Nil(t, params.Message.Body.Html)
			return &ses.SendEmailOutput{MessageId: awssdk.String("ses-1")}, nil
		},
	}

	id, err := NewSESClientWithAPI(api).Send(context.Background(), Email{
		From: "noreply@greencrew.app", To: "pro@example.com", Subject: "Job confirmed", Text: "plain",
	})

	require.NoError(t, err)
	assert.Equal(t, "ses-1", id)
}

func TestSESClient_SendErrors(t *testing.T) {
	api := &MockSESAPI{
		SendEmailFunc: func(context.Context, *ses.SendEmailInput, ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return nil, errors.New("throttled")
		},
	}
	client := NewSESClientWithAPI(api)

	_, err := client.Send(context.Background(), Email{})
	assert.Error(t, err)

	_, err = client.Send(context.Background(), Email{To: "a@b.c"})
	assert.EqualError(t, err, "throttled")
}

func TestSNSClient_Send(t *testing.T) {
	api := &MockSNSAPI{
		PublishFunc: func(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
			assert.Equal(t, "+14155550100", *params.PhoneNumber)
			assert.Equal(t, "Transactional", *params.MessageAttributes["AWS.SNS.SMS.SMSType"].StringValue)
			assert.Equal(t, "GreenCrew", *params.MessageAttributes["AWS.SNS.SMS.SenderID"].StringValue)
			return &sns.PublishOutput{MessageId: awssdk.String("sns-1")}, nil
		},
	}

	id, err := NewSNSClientWithAPI(api).Send(context.Background(), SMS{
		PhoneNumber: "+14155550100", Message: "Job confirmed", SenderID: "GreenCrew",
	})

	require.NoError(t, err)
	assert.Equal(t, "sns-1", id)

	_, err = NewSNSClientWithAPI(api).Send(context.Background(), SMS{Message: "x"})
	assert.Error(t, err)
}
