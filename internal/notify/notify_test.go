package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	awsclient "seo-offers/internal/common/aws"
	apperrors "seo-offers/internal/common/errors"
	"seo-offers/internal/common/logger"
	"seo-offers/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mocks
// ==========================

type MockSESService struct{ mock.Mock }

func (m *MockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*ses.SendEmailOutput)
	return out, args.Error(1)
}

type MockSNSService struct{ mock.Mock }

func (m *MockSNSService) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*sns.PublishOutput)
	return out, args.Error(1)
}

func createTestEvent() models.OfferSubmitted {
	return models.OfferSubmitted{
		ProjectID:     "p-1",
		OfferID:       "o-1",
		CustomerEmail: "anna@example.se",
		CustomerPhone: "0701234567",
		Domain:        "https://stadfirma.se",
		Keywords:      []string{"städfirma Stockholm", "flyttstäd"},
		Package:       models.PackageElite,
		Estimate:      models.Estimate{MonthlyPrice: 6995},
	}
}

// ==========================
// Composer Tests
// ==========================

func TestCompose(t *testing.T) {
	tests := []struct {
		name    string
		typ     EmailType
		subject string
		lead    string
	}{
		{"offer", EmailOffer, "Din SEO-offert för stadfirma.se", "Vi har mottagit din offertförfrågan för"},
		{"reminder", EmailReminder, "Påminnelse: Din SEO-offert för stadfirma.se", "Vi ville bara påminna dig om din SEO-offert för"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			email, err := Compose(tt.typ, "stadfirma.se", "pro")
			require.NoError(t, err)

			assert.Equal(t, tt.subject, email.Subject)
			assert.Contains(t, email.HTML, tt.lead)
			assert.Contains(t, email.HTML, "<strong>Paket:</strong> PRO")
			assert.Contains(t, email.HTML, "<strong>stadfirma.se</strong>")
			assert.Contains(t, email.Text, "Paket: PRO")
		})
	}
}

func TestCompose_EscapesDomain(t *testing.T) {
	email, err := Compose(EmailOffer, `<img src=x>`, "bas")
	require.NoError(t, err)
	assert.NotContains(t, email.HTML, "<img")
}

func TestParseEmailType(t *testing.T) {
	assert.Equal(t, EmailReminder, ParseEmailType(" Reminder "))
	assert.Equal(t, EmailOffer, ParseEmailType("offer"))
	assert.Equal(t, EmailOffer, ParseEmailType(""))
	assert.Equal(t, EmailOffer, ParseEmailType("anything"))
}

// ==========================
// Mailer Tests
// ==========================

func TestMailer_Send(t *testing.T) {
	sesMock := new(MockSESService)
	sesMock.On("SendEmail", mock.Anything, mock.MatchedBy(func(in *ses.SendEmailInput) bool {
		return aws.ToString(in.Source) == "SEO Platform <offert@example.se>" &&
			in.Destination.ToAddresses[0] == "anna@example.se" &&
			aws.ToString(in.Message.Subject.Data) == "Din SEO-offert för stadfirma.se"
	})).Return(&ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil)

	m := NewMailer(sesMock, "offert@example.se", "", logger.NewTestLogger(t))
	id, err := m.SendTyped(t.Context(), EmailOffer, " anna@example.se ", "stadfirma.se", "pro")

	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
	sesMock.AssertExpectations(t)
}

func TestMailer_AcceptsWrappedClient(t *testing.T) {
	sesMock := new(MockSESService)
	sesMock.On("SendEmail", mock.Anything, mock.Anything).Return(&ses.SendEmailOutput{MessageId: aws.String("msg-2")}, nil)

	m := NewMailer(awsclient.NewSESClientFrom(sesMock), "offert@example.se", "SEO Platform", logger.NewNoOpLogger())
	id, err := m.SendTyped(t.Context(), EmailReminder, "anna@example.se", "stadfirma.se", "bas")
	require.NoError(t, err)
	assert.Equal(t, "msg-2", id)
}

func TestMailer_Errors(t *testing.T) {
	sesMock := new(MockSESService)
	sesMock.On("SendEmail", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))
	m := NewMailer(sesMock, "offert@example.se", "", logger.NewNoOpLogger())

	_, err := m.SendTyped(t.Context(), EmailOffer, "not-an-email", "stadfirma.se", "pro")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidationFailed))

	_, err = m.SendTyped(t.Context(), EmailOffer, "anna@example.se", "stadfirma.se", "pro")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotificationSendFailed))

	disabled := NewMailer(nil, "", "", logger.NewNoOpLogger())
	_, err = disabled.SendTyped(t.Context(), EmailOffer, "anna@example.se", "stadfirma.se", "pro")
	stdErr, ok := apperrors.AsStandard(err)
	require.True(t, ok)
	assert.Contains(t, stdErr.Details, ErrEmailDisabled.Error())
}

// ==========================
// Alerter Tests
// ==========================

func TestStaffAlerter(t *testing.T) {
	snsMock := new(MockSNSService)
	snsMock.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		return aws.ToString(in.TopicArn) == "arn:aws:sns:eu-north-1:1:staff" &&
			aws.ToString(in.Message) == AlertMessage(createTestEvent())
	})).Return(&sns.PublishOutput{MessageId: aws.String("sns-1")}, nil)

	a := NewStaffAlerter(snsMock, "arn:aws:sns:eu-north-1:1:staff", logger.NewTestLogger(t))
	id, err := a.Alert(t.Context(), createTestEvent())

	require.NoError(t, err)
	assert.Equal(t, "sns-1", id)
	assert.Contains(t, AlertMessage(createTestEvent()), "ELITE, 6995 kr/mån")
}

func TestStaffAlerter_DisabledAndFailing(t *testing.T) {
	disabled := NewStaffAlerter(nil, "", logger.NewNoOpLogger())
	id, err := disabled.Alert(t.Context(), createTestEvent())
	require.NoError(t, err)
	assert.Empty(t, id)

	snsMock := new(MockSNSService)
	snsMock.On("Publish", mock.Anything, mock.Anything).Return(nil, errors.New("denied"))
	a := NewStaffAlerter(snsMock, "arn", logger.NewNoOpLogger())
	_, err = a.Alert(t.Context(), createTestEvent())
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotificationSendFailed))
}

// ==========================
// Dispatcher Tests
// ==========================

func TestDirectDispatcher_RunsAllActions(t *testing.T) {
	var (
		mu  sync.Mutex
		ran []string
	)
	record := func(name string, err error) Action {
		return Action{Name: name, Run: func(_ context.Context, ev models.OfferSubmitted) error {
			mu.Lock()
			ran = append(ran, name+":"+ev.OfferID)
			mu.Unlock()
			return err
		}}
	}

	d := NewDirectDispatcher([]Action{
		record("email", nil),
		record("crm", errors.New("zoho down")),
		record("index", nil),
	}, 4, 1, time.Second, logger.NewTestLogger(t))

	require.NoError(t, d.OfferSubmitted(t.Context(), createTestEvent()))
	require.NoError(t, d.Stop(t.Context()))

	assert.Equal(t, []string{"email:o-1", "crm:o-1", "index:o-1"}, ran)
	assert.ErrorIs(t, d.OfferSubmitted(t.Context(), createTestEvent()), ErrDispatcherStopped)
}

func TestDirectDispatcher_QueueFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	blocking := Action{Name: "block", Run: func(ctx context.Context, _ models.OfferSubmitted) error {
		started <- struct{}{}
		<-release
		return nil
	}}

	d := NewDirectDispatcher([]Action{blocking}, 1, 1, time.Second, logger.NewNoOpLogger())

	require.NoError(t, d.OfferSubmitted(t.Context(), createTestEvent()))
	<-started
	require.NoError(t, d.OfferSubmitted(t.Context(), createTestEvent()))
	assert.ErrorIs(t, d.OfferSubmitted(t.Context(), createTestEvent()), ErrQueueFull)

	close(release)
	require.NoError(t, d.Stop(t.Context()))
}
