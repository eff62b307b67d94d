package emailsvc

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/pkg/errors"

	"github.com/erasmushub/erasmushub/core"
)

const charset = "UTF-8"

type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type sesService struct {
	client          sesAPI
	from            mail.Address
	subjPrefix      string
	frontendBaseURL string
	logger          core.Logger
}

var _ core.EmailService = (*sesService)(nil)

// NewSESService sends through Amazon SES, with credentials resolved by the default AWS chain.
func NewSESService(ctx context.Context, conf *core.Config, logger core.Logger) (*sesService, error) {
	awsConf, err := config.LoadDefaultConfig(ctx, config.WithRegion(conf.Mail.SESRegion))
	if err != nil {
		return nil, errors.Wrap(err, "loading AWS config")
	}
	return newSESService(ses.NewFromConfig(awsConf), conf, logger), nil
}

func newSESService(client sesAPI, conf *core.Config, logger core.Logger) *sesService {
	return &sesService{
		client:          client,
		from:            conf.DefaultFromEmail,
		subjPrefix:      "[" + conf.AppName + "] ",
		frontendBaseURL: conf.FrontendBaseURL,
		logger:          logger,
	}
}

func (svc sesService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		msg := msg
		go svc.sendMessage(context.Background(), msg)
	}
}

func (svc sesService) sendMessage(ctx context.Context, msg *core.EmailMessage) {
	if err := msg.Render(svc.frontendBaseURL); err != nil {
		svc.logger.Error(fmt.Sprintf("rendering email: %v", err), err)
		return
	}
	if !msg.HasRecipients() || !msg.HasContent() {
		return
	}
	if _, err := svc.client.SendEmail(ctx, svc.prepare(*msg)); err != nil {
		svc.logger.Error(fmt.Sprintf("sending email: %v", err), err)
	}
}

func addresses(addrs []mail.Address) []string {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.String())
	}
	return out
}

func content(s string) *types.Content {
	return &types.Content{Data: aws.String(s), Charset: aws.String(charset)}
}

func (svc sesService) prepare(msg core.EmailMessage) *ses.SendEmailInput {
	body := &types.Body{}
	if msg.TextContent != "" {
		body.Text = content(msg.TextContent)
	}
	if msg.HTMLContent != "" {
		body.Html = content(msg.HTMLContent)
	}
	return &ses.SendEmailInput{
		Source: aws.String(svc.from.String()),
		Destination: &types.Destination{
			ToAddresses:  addresses(msg.To),
			CcAddresses:  addresses(msg.Cc),
			BccAddresses: addresses(msg.Bcc),
		},
		Message: &types.Message{
			Subject: content(svc.subjPrefix + msg.Subject),
			Body:    body,
		},
	}
}
