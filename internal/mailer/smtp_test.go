package mailer

import (
	"bytes"
	"mime"
	netmail "net/mail"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/LushakDataSystems/contact_svc/internal/model"
)

func newTestSMTPSender() *SMTPSender {
	sender := NewSMTPSender(SMTPConfig{
		Host:      "smtp.example.com",
		Port:      587,
		Username:  "mailer@example.com",
		Password:  "relay-password",
		Recipient: "owner@example.com",
	}, zap.NewNop())
	sender.now = func() time.Time {
		return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	}
	return sender
}

func writeMessage(testingT *testing.T, sender *SMTPSender, submission model.ContactSubmission) (string, netmail.Header) {
	testingT.Helper()

	message, buildErr := sender.buildMessage(submission)
	require.NoError(testingT, buildErr)

	var rawMessage bytes.Buffer
	_, writeErr := message.WriteTo(&rawMessage)
	require.NoError(testingT, writeErr)

	parsedMessage, parseErr := netmail.ReadMessage(bytes.NewReader(rawMessage.Bytes()))
	require.NoError(testingT, parseErr)
	return rawMessage.String(), parsedMessage.Header
}

func TestBuildMessageSetsReplyToSubmitter(testingT *testing.T) {
	_, header := writeMessage(testingT, newTestSMTPSender(), testSubmission())
	require.Contains(testingT, header.Get("Reply-To"), "jane.doe@example.com")
}

func TestBuildMessageAddressesEnvelope(testingT *testing.T) {
	_, header := writeMessage(testingT, newTestSMTPSender(), testSubmission())

	require.Contains(testingT, header.Get("From"), "Contact Form")
	require.Contains(testingT, header.Get("From"), "mailer@example.com")
	require.Contains(testingT, header.Get("To"), "owner@example.com")

	decoder := mime.WordDecoder{}
	decodedSubject, decodeErr := decoder.DecodeHeader(header.Get("Subject"))
	require.NoError(testingT, decodeErr)
	require.Contains(testingT, decodedSubject, "New Contact: Project inquiry")
	require.Contains(testingT, decodedSubject, "Jane Doe")
}

func TestBuildMessageCarriesBothBodyParts(testingT *testing.T) {
	rawMessage, _ := writeMessage(testingT, newTestSMTPSender(), testSubmission())

	require.Contains(testingT, rawMessage, "text/plain")
	require.Contains(testingT, rawMessage, "text/html")
	require.Contains(testingT, rawMessage, "Name: Jane Doe")
}

func TestBuildMessageAttachesFilesWithContentType(testingT *testing.T) {
	rawMessage, _ := writeMessage(testingT, newTestSMTPSender(), testSubmission())

	require.Contains(testingT, rawMessage, "brief.pdf")
	require.Contains(testingT, rawMessage, "application/pdf")
	// base64 of "pdf-bytes"
	require.Contains(testingT, rawMessage, "cGRmLWJ5dGVz")
}

func TestBuildMessageOmitsAttachmentPartsWhenNoneStaged(testingT *testing.T) {
	submission := testSubmission()
	submission.Attachments = nil

	rawMessage, _ := writeMessage(testingT, newTestSMTPSender(), submission)
	require.NotContains(testingT, rawMessage, "Content-Disposition: attachment")
}

func TestUseImplicitTLSOnlyOnDedicatedPort(testingT *testing.T) {
	require.True(testingT, useImplicitTLS(465))
	require.False(testingT, useImplicitTLS(587))
	require.False(testingT, useImplicitTLS(25))
}
