package profile

import (
	"time"

	id "tutela/pkg/domain"
)

// Profile is the registered account data held about a subject. It is the
// primary target of deletion purges and the user_profile section of exports.
type Profile struct {
	SubjectID      id.SubjectID
	Name           string
	Email          string
	CreatedAt      time.Time
	LastDataExport *time.Time
}
