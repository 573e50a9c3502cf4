package mailer

import (
	"context"

	"github.com/LushakDataSystems/contact_svc/internal/model"
)

// Sender dispatches one notification per validated contact submission. A nil
// error means the transport accepted the message; no delivery confirmation
// beyond that is modeled and no retry is performed.
type Sender interface {
	SendContactNotification(ctx context.Context, submission model.ContactSubmission) error
}
