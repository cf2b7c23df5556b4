package notify

import (
	"context"
	"fmt"
	"strings"

	awsclient "seo-offers/internal/common/aws"
	"seo-offers/internal/common/errors"
	"seo-offers/internal/common/logger"
	"seo-offers/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// StaffAlerter publishes new-offer alerts to the staff SNS topic.
type StaffAlerter struct {
	sns      awsclient.SNSAPI
	topicARN string
	logger   logger.Logger
}

func NewStaffAlerter(api awsclient.SNSAPI, topicARN string, log logger.Logger) *StaffAlerter {
	return &StaffAlerter{sns: api, topicARN: topicARN, logger: logger.Component(log, "staff-alerter")}
}

// Enabled reports whether a topic is configured.
func (a *StaffAlerter) Enabled() bool {
	return a.sns != nil && a.topicARN != ""
}

// AlertMessage is the SNS message body for a new offer.
func AlertMessage(ev models.OfferSubmitted) string {
	return fmt.Sprintf("Ny offertförfrågan: %s (%s, %d kr/mån) från %s, %s. Sökord: %s",
		ev.Domain,
		strings.ToUpper(string(ev.Package)),
		ev.Estimate.MonthlyPrice,
		ev.CustomerEmail,
		ev.CustomerPhone,
		strings.Join(ev.Keywords, ", "),
	)
}

// Alert publishes the message and returns the SNS message id. A disabled
// alerter returns an empty id and no error.
func (a *StaffAlerter) Alert(ctx context.Context, ev models.OfferSubmitted) (string, error) {
	if !a.Enabled() {
		a.logger.Debug("staff alert skipped, no topic configured", map[string]interface{}{"offerId": ev.OfferID})
		return "", nil
	}

	out, err := a.sns.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(a.topicARN),
		Subject:  aws.String("Ny offert: " + ev.Domain),
		Message:  aws.String(AlertMessage(ev)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"package": {DataType: aws.String("String"), StringValue: aws.String(string(ev.Package))},
			"offerId": {DataType: aws.String("String"), StringValue: aws.String(ev.OfferID)},
		},
	})
	if err != nil {
		return "", errors.NewNotificationSendFailedError("sns", err)
	}
	return aws.ToString(out.MessageId), nil
}
