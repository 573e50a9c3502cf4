package mailer

import (
	"fmt"
	"html/template"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/LushakDataSystems/contact_svc/internal/model"
)

const (
	// NotificationTimezone is the fixed regional timezone used for the
	// timestamp rendered into the notification body.
	NotificationTimezone = "Africa/Lagos"

	contactEmailTemplateName  = "contact_email"
	notificationSubjectFormat = "New Contact: %s — %s"
	timestampLayout           = "1/2/2006, 3:04:05 PM"
	emptyPhonePlaceholder     = "—"
)

var (
	contactEmailTemplate = template.Must(template.New(contactEmailTemplateName).Parse(contactEmailTemplateHTML))
	notificationLocation = loadNotificationLocation()
)

func loadNotificationLocation() *time.Location {
	location, loadErr := time.LoadLocation(NotificationTimezone)
	if loadErr != nil {
		return time.UTC
	}
	return location
}

// RenderedNotification holds the assembled message parts ready for dispatch.
type RenderedNotification struct {
	Subject  string
	TextBody string
	HTMLBody string
}

type contactEmailTemplateData struct {
	Name            string
	Email           string
	Phone           string
	Subject         string
	Timestamp       string
	MessageHTML     template.HTML
	AttachmentNames []string
	Year            int
}

// RenderNotification builds the plain-text and HTML bodies for a validated
// submission. The timestamp is rendered in the fixed notification timezone
// and message line breaks become paragraph breaks in the HTML body.
func RenderNotification(submission model.ContactSubmission, sentAt time.Time) (RenderedNotification, error) {
	localizedTime := sentAt.In(notificationLocation)

	attachmentNames := make([]string, 0, len(submission.Attachments))
	for _, attachment := range submission.Attachments {
		attachmentNames = append(attachmentNames, attachment.Filename)
	}

	templateData := contactEmailTemplateData{
		Name:            submission.Name,
		Email:           submission.Email,
		Phone:           submission.Phone,
		Subject:         submission.Subject,
		Timestamp:       localizedTime.Format(timestampLayout),
		MessageHTML:     messageToHTML(submission.Message),
		AttachmentNames: attachmentNames,
		Year:            localizedTime.Year(),
	}

	var htmlBuilder strings.Builder
	if executeErr := contactEmailTemplate.Execute(&htmlBuilder, templateData); executeErr != nil {
		return RenderedNotification{}, fmt.Errorf("mailer: render html body: %w", executeErr)
	}

	return RenderedNotification{
		Subject:  fmt.Sprintf(notificationSubjectFormat, submission.Subject, submission.Name),
		TextBody: renderTextBody(submission),
		HTMLBody: htmlBuilder.String(),
	}, nil
}

func renderTextBody(submission model.ContactSubmission) string {
	phoneValue := submission.Phone
	if phoneValue == "" {
		phoneValue = emptyPhonePlaceholder
	}
	return fmt.Sprintf(
		"Name: %s\nEmail: %s\nPhone: %s\nSubject: %s\n\n%s",
		submission.Name, submission.Email, phoneValue, submission.Subject, submission.Message,
	)
}

func messageToHTML(message string) template.HTML {
	escaped := template.HTMLEscapeString(message)
	escaped = strings.ReplaceAll(escaped, "\r\n", "\n")
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
}
