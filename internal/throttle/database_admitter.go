package throttle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/LushakDataSystems/contact_svc/internal/model"
	"github.com/LushakDataSystems/contact_svc/internal/storage"
)

const (
	errorMessageCountAdmissions = "throttle: count admissions"
	errorMessageRecordAdmission = "throttle: record admission"
	errorMessagePruneAdmissions = "throttle: prune admissions"
	errorMessageMissingDatabase = "throttle: missing database"
)

// DatabaseAdmitter counts admissions in a shared database table so several
// server instances can enforce one throttle window together.
type DatabaseAdmitter struct {
	database      *gorm.DB
	window        time.Duration
	maxAdmissions int
	now           func() time.Time
}

// NewDatabaseAdmitter constructs a DatabaseAdmitter with the default window
// and admission ceiling.
func NewDatabaseAdmitter(database *gorm.DB) (*DatabaseAdmitter, error) {
	if database == nil {
		return nil, errors.New(errorMessageMissingDatabase)
	}
	return &DatabaseAdmitter{
		database:      database,
		window:        DefaultWindow,
		maxAdmissions: DefaultMaxAdmissions,
		now:           time.Now,
	}, nil
}

// Admit counts the identifier's admissions inside the current window and
// records a new one when the ceiling has not been reached. Expired rows are
// pruned on each call.
func (admitter *DatabaseAdmitter) Admit(ctx context.Context, identifier string) (bool, error) {
	currentTime := admitter.now().UTC()
	windowStart := currentTime.Add(-admitter.window)
	database := admitter.database.WithContext(ctx)

	pruneErr := database.
		Where("identifier = ? AND admitted_at <= ?", identifier, windowStart).
		Delete(&model.ThrottleAdmission{}).Error
	if pruneErr != nil {
		return false, fmt.Errorf("%s: %w", errorMessagePruneAdmissions, pruneErr)
	}

	var admissionCount int64
	countErr := database.Model(&model.ThrottleAdmission{}).
		Where("identifier = ? AND admitted_at > ?", identifier, windowStart).
		Count(&admissionCount).Error
	if countErr != nil {
		return false, fmt.Errorf("%s: %w", errorMessageCountAdmissions, countErr)
	}
	if admissionCount >= int64(admitter.maxAdmissions) {
		return false, nil
	}

	admission := model.ThrottleAdmission{
		ID:         storage.NewID(),
		Identifier: identifier,
		AdmittedAt: currentTime,
	}
	if createErr := database.Create(&admission).Error; createErr != nil {
		return false, fmt.Errorf("%s: %w", errorMessageRecordAdmission, createErr)
	}
	return true, nil
}
