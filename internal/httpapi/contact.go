package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/LushakDataSystems/contact_svc/internal/mailer"
	"github.com/LushakDataSystems/contact_svc/internal/model"
	"github.com/LushakDataSystems/contact_svc/internal/recaptcha"
	"github.com/LushakDataSystems/contact_svc/internal/storage"
	"github.com/LushakDataSystems/contact_svc/internal/throttle"
	"github.com/LushakDataSystems/contact_svc/internal/validation"
)

const (
	formFieldName           = "name"
	formFieldEmail          = "email"
	formFieldPhone          = "phone"
	formFieldSubject        = "subject"
	formFieldMessage        = "message"
	formFieldRecaptchaToken = "recaptchaToken"
	formFieldFiles          = "files"

	errorMessageThrottled          = "Too many requests. Try again in 1 minute."
	errorMessageBotVerification    = "reCAPTCHA verification failed."
	errorMessageTooManyFiles       = "Maximum 8 files allowed"
	errorMessageFileTypeNotAllowed = "File type not allowed"
	errorMessageSizeOverflow       = "Total uploaded size exceeds 20MB limit"
	errorMessageAttachmentFailed   = "Failed to process uploaded files."
	errorMessageDispatchFailed     = "Failed to send message."
)

// ContactHandlers serves the public contact submission endpoint.
type ContactHandlers struct {
	logger    *zap.Logger
	admitter  throttle.Admitter
	validator *validation.ContactValidator
	verifier  recaptcha.Verifier
	sender    mailer.Sender
}

// NewContactHandlers constructs a ContactHandlers instance with the provided dependencies.
func NewContactHandlers(logger *zap.Logger, admitter throttle.Admitter, validator *validation.ContactValidator, verifier recaptcha.Verifier, sender mailer.Sender) *ContactHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContactHandlers{
		logger:    logger,
		admitter:  admitter,
		validator: validator,
		verifier:  verifier,
		sender:    sender,
	}
}

// SubmitContact runs the submission pipeline: throttle, field validation, bot
// verification, attachment materialization, dispatch. Each stage short-circuits
// the request on its first failure.
func (handlers *ContactHandlers) SubmitContact(context *gin.Context) {
	requestContext := context.Request.Context()
	identifier := submitterIdentifier(context)

	admitted, admitErr := handlers.admitter.Admit(requestContext, identifier)
	if admitErr != nil {
		// The throttle is abuse mitigation, not a correctness guarantee; a
		// broken counting store must not take the endpoint down with it.
		handlers.logger.Warn("throttle_unavailable", zap.Error(admitErr), zap.String("identifier", identifier))
		admitted = true
	}
	if !admitted {
		context.JSON(http.StatusTooManyRequests, gin.H{"error": errorMessageThrottled})
		return
	}

	submission := model.ContactSubmission{
		ID:             storage.NewID(),
		Name:           context.PostForm(formFieldName),
		Email:          context.PostForm(formFieldEmail),
		Phone:          context.PostForm(formFieldPhone),
		Subject:        context.PostForm(formFieldSubject),
		Message:        context.PostForm(formFieldMessage),
		RecaptchaToken: context.PostForm(formFieldRecaptchaToken),
	}

	normalized, violations := handlers.validator.Validate(submission)
	if len(violations) > 0 {
		context.JSON(http.StatusBadRequest, gin.H{"error": violations[0].Reason})
		return
	}

	if verifyErr := handlers.verifier.Verify(requestContext, normalized.RecaptchaToken); verifyErr != nil {
		handlers.logger.Info("bot_verification_failed",
			zap.Error(verifyErr),
			zap.String("submission_id", normalized.ID),
		)
		context.JSON(http.StatusBadRequest, gin.H{"error": errorMessageBotVerification})
		return
	}

	attachments, materializeErr := materializeAttachments(fileHeaders(context))
	if materializeErr != nil {
		handlers.logger.Warn("attachments_rejected",
			zap.Error(materializeErr),
			zap.String("submission_id", normalized.ID),
		)
		responseStatus, responseMessage := materializationFailure(materializeErr)
		context.JSON(responseStatus, gin.H{"error": responseMessage})
		return
	}
	normalized.Attachments = attachments

	if dispatchErr := handlers.sender.SendContactNotification(requestContext, normalized); dispatchErr != nil {
		handlers.logger.Error("contact_dispatch_failed",
			zap.Error(dispatchErr),
			zap.String("submission_id", normalized.ID),
		)
		context.JSON(http.StatusInternalServerError, gin.H{"error": errorMessageDispatchFailed})
		return
	}

	handlers.logger.Info("contact_submission_accepted",
		zap.String("submission_id", normalized.ID),
		zap.Int("attachments", len(normalized.Attachments)),
	)
	context.JSON(http.StatusOK, gin.H{"success": true})
}

func submitterIdentifier(context *gin.Context) string {
	clientIP := strings.TrimSpace(context.ClientIP())
	if clientIP == "" {
		return throttle.AnonymousIdentifier
	}
	return clientIP
}

func fileHeaders(context *gin.Context) []*multipart.FileHeader {
	form, formErr := context.MultipartForm()
	if formErr != nil || form == nil {
		return nil
	}
	return form.File[formFieldFiles]
}

var (
	errTooManyFiles       = errors.New(errorMessageTooManyFiles)
	errSizeOverflow       = errors.New(errorMessageSizeOverflow)
	errFileTypeNotAllowed = errors.New(errorMessageFileTypeNotAllowed)
)

// materializeAttachments reads the uploaded files into memory one at a time,
// recomputing the aggregate size from actual bytes. It aborts the moment the
// running total exceeds the cap; already materialized attachments are
// discarded with the error.
func materializeAttachments(headers []*multipart.FileHeader) ([]model.Attachment, error) {
	if len(headers) == 0 {
		return nil, nil
	}
	if len(headers) > model.MaxAttachmentCount {
		return nil, errTooManyFiles
	}

	attachments := make([]model.Attachment, 0, len(headers))
	var totalBytes int64
	for _, header := range headers {
		contentType := header.Header.Get("Content-Type")
		if !model.IsAllowedAttachmentContentType(contentType) {
			return nil, errFileTypeNotAllowed
		}

		content, readErr := readAttachment(header)
		if readErr != nil {
			return nil, readErr
		}

		totalBytes += int64(len(content))
		if totalBytes > model.MaxTotalAttachmentBytes {
			return nil, errSizeOverflow
		}

		attachments = append(attachments, model.Attachment{
			Filename:    header.Filename,
			ContentType: contentType,
			Content:     content,
		})
	}
	return attachments, nil
}

// materializationFailure maps an attachment materialization error to its
// response status and user-facing message. Count and type violations are
// client errors; the aggregate overflow keeps its historical server-error
// status; anything else gets a generic message without request detail.
func materializationFailure(materializeErr error) (int, string) {
	switch {
	case errors.Is(materializeErr, errTooManyFiles), errors.Is(materializeErr, errFileTypeNotAllowed):
		return http.StatusBadRequest, materializeErr.Error()
	case errors.Is(materializeErr, errSizeOverflow):
		return http.StatusInternalServerError, materializeErr.Error()
	default:
		return http.StatusInternalServerError, errorMessageAttachmentFailed
	}
}

func readAttachment(header *multipart.FileHeader) ([]byte, error) {
	file, openErr := header.Open()
	if openErr != nil {
		return nil, fmt.Errorf("open attachment %s: %w", header.Filename, openErr)
	}
	defer func() {
		_ = file.Close()
	}()

	// Read at most one byte past the aggregate cap; anything larger would
	// overflow the total regardless of what preceded it.
	content, readErr := io.ReadAll(io.LimitReader(file, model.MaxTotalAttachmentBytes+1))
	if readErr != nil {
		return nil, fmt.Errorf("read attachment %s: %w", header.Filename, readErr)
	}
	return content, nil
}
