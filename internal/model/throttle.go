package model

import "time"

// ThrottleAdmission records one admitted request for the shared throttle
// counting store. Rows older than the throttle window are pruned on use.
type ThrottleAdmission struct {
	ID         string    `gorm:"primaryKey;size:36"`
	Identifier string    `gorm:"index;not null;size:64"`
	AdmittedAt time.Time `gorm:"index;not null"`
}
