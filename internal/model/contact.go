package model

import "strings"

const (
	// MaxAttachmentCount is the largest number of attachments accepted per submission.
	MaxAttachmentCount = 8
	// MaxTotalAttachmentBytes caps the combined size of all attachments per submission.
	MaxTotalAttachmentBytes = 20 * 1024 * 1024

	imageContentTypePrefix = "image/"
)

var allowedAttachmentContentTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
	"application/pdf":    {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
	"text/plain":               {},
	"text/csv":                 {},
	"application/vnd.ms-excel": {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": {},
	"application/zip":              {},
	"application/x-zip-compressed": {},
}

// Attachment carries one uploaded file as raw bytes together with the
// metadata declared by the client.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ContactSubmission is one contact form submission. It lives only for the
// duration of a single request and is never persisted.
type ContactSubmission struct {
	ID             string
	Name           string
	Email          string
	Phone          string
	Subject        string
	Message        string
	RecaptchaToken string
	Attachments    []Attachment
}

// TotalAttachmentBytes sums the materialized attachment sizes.
func (submission ContactSubmission) TotalAttachmentBytes() int64 {
	var total int64
	for _, attachment := range submission.Attachments {
		total += int64(len(attachment.Content))
	}
	return total
}

// IsAllowedAttachmentContentType reports whether the declared content type is
// on the attachment allow-list.
func IsAllowedAttachmentContentType(contentType string) bool {
	_, allowed := allowedAttachmentContentTypes[strings.ToLower(strings.TrimSpace(contentType))]
	return allowed
}

// IsImageContentType reports whether the declared content type belongs to the
// image family. Only image attachments receive staging previews.
func IsImageContentType(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), imageContentTypePrefix)
}
