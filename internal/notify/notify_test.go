package notify

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safecircle/server/internal/config"
)

type fakePublisher struct {
	in  *sns.PublishInput
	err error
}

func (f *fakePublisher) Publish(ctx context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-123")}, nil
}

func TestSNSSender_SendSMS(t *testing.T) {
	pub := &fakePublisher{}
	s := &SNSSender{client: pub, senderID: "SAFECIRCLE"}

	id, err := s.SendSMS(context.Background(), "+15550001", "ALERT")
	require.NoError(t, err)
	assert.Equal(t, "msg-123", id)
	assert.Equal(t, "+15550001", aws.ToString(pub.in.PhoneNumber))
	assert.Equal(t, "ALERT", aws.ToString(pub.in.Message))
	assert.Equal(t, "Transactional", aws.ToString(pub.in.MessageAttributes["AWS.SNS.SMS.SMSType"].StringValue))
	assert.Equal(t, "SAFECIRCLE", aws.ToString(pub.in.MessageAttributes["AWS.SNS.SMS.SenderID"].StringValue))
}

func TestSNSSender_error(t *testing.T) {
	s := &SNSSender{client: &fakePublisher{err: errors.New("throttled")}}

	_, err := s.SendSMS(context.Background(), "+1", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestMailer_SendOTP(t *testing.T) {
	m := NewMailer(config.SMTPConfig{Host: "mail.local", Port: 2525, From: "noreply@x.com", Username: "u", Password: "p"})

	var gotAddr string
	var gotTo []string
	var gotMsg []byte
	var gotAuth smtp.Auth
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotTo, gotMsg = addr, a, to, msg
		return nil
	}

	require.NoError(t, m.SendOTP(context.Background(), "a@x.com", "123456"))
	assert.Equal(t, "mail.local:2525", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, []string{"a@x.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: Your OTP Code\r\n")
	assert.Contains(t, string(gotMsg), "Your OTP is: 123456. It expires in 10 minutes.")
}

func TestMailer_noAuthWithoutUsername(t *testing.T) {
	m := NewMailer(config.SMTPConfig{Host: "localhost", Port: 1025, From: "noreply@x.com"})

	var gotAuth smtp.Auth
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAuth = a
		return errors.New("connection refused")
	}

	err := m.SendOTP(context.Background(), "a@x.com", "123456")
	require.Error(t, err)
	assert.Nil(t, gotAuth)
}

func TestLogSender(t *testing.T) {
	s := NewLogSender()

	id, err := s.SendSMS(context.Background(), "+15550001", "ALERT")
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	assert.NoError(t, err)

	assert.NoError(t, s.SendOTP(context.Background(), "a@x.com", "123456"))
}
