package mailer

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/LushakDataSystems/contact_svc/internal/model"
)

const (
	implicitTLSPort = 465

	fromDisplayName = "Contact Form"

	errorMessageBuildMessage    = "mailer: build message"
	errorMessageConnectDispatch = "mailer: dispatch"
)

// SMTPConfig captures the outbound mail transport settings.
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	Recipient string
}

// SMTPSender dispatches contact notifications over SMTP. Dispatch is a single
// blocking call; transport failures are surfaced to the caller unretried.
type SMTPSender struct {
	configuration SMTPConfig
	logger        *zap.Logger
	now           func() time.Time
}

// NewSMTPSender constructs an SMTPSender.
func NewSMTPSender(configuration SMTPConfig, logger *zap.Logger) *SMTPSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMTPSender{
		configuration: configuration,
		logger:        logger,
		now:           time.Now,
	}
}

// SendContactNotification renders and dispatches the notification email with
// the submission's attachments carried as raw byte buffers.
func (sender *SMTPSender) SendContactNotification(ctx context.Context, submission model.ContactSubmission) error {
	message, buildErr := sender.buildMessage(submission)
	if buildErr != nil {
		return fmt.Errorf("%s: %w", errorMessageBuildMessage, buildErr)
	}

	clientOptions := []mail.Option{
		mail.WithPort(sender.configuration.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(sender.configuration.Username),
		mail.WithPassword(sender.configuration.Password),
	}
	if useImplicitTLS(sender.configuration.Port) {
		clientOptions = append(clientOptions, mail.WithSSL())
	}

	client, clientErr := mail.NewClient(sender.configuration.Host, clientOptions...)
	if clientErr != nil {
		return fmt.Errorf("%s: %w", errorMessageConnectDispatch, clientErr)
	}

	if sendErr := client.DialAndSendWithContext(ctx, message); sendErr != nil {
		return fmt.Errorf("%s: %w", errorMessageConnectDispatch, sendErr)
	}

	sender.logger.Info("contact_notification_dispatched",
		zap.String("submission_id", submission.ID),
		zap.Int("attachments", len(submission.Attachments)),
	)
	return nil
}

// useImplicitTLS reports whether the port expects a TLS connection from the
// first byte instead of STARTTLS.
func useImplicitTLS(port int) bool {
	return port == implicitTLSPort
}

func (sender *SMTPSender) buildMessage(submission model.ContactSubmission) (*mail.Msg, error) {
	rendered, renderErr := RenderNotification(submission, sender.now())
	if renderErr != nil {
		return nil, renderErr
	}

	message := mail.NewMsg()
	if fromErr := message.FromFormat(fromDisplayName, sender.configuration.Username); fromErr != nil {
		return nil, fromErr
	}
	if toErr := message.To(sender.configuration.Recipient); toErr != nil {
		return nil, toErr
	}
	if replyToErr := message.ReplyTo(submission.Email); replyToErr != nil {
		return nil, replyToErr
	}
	message.Subject(rendered.Subject)
	message.SetBodyString(mail.TypeTextPlain, rendered.TextBody)
	message.AddAlternativeString(mail.TypeTextHTML, rendered.HTMLBody)

	for _, attachment := range submission.Attachments {
		attachErr := message.AttachReader(
			attachment.Filename,
			bytes.NewReader(attachment.Content),
			mail.WithFileContentType(mail.ContentType(attachment.ContentType)),
		)
		if attachErr != nil {
			return nil, attachErr
		}
	}

	return message, nil
}
