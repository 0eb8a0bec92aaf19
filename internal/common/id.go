package common

import (
	"github.com/google/uuid"
)

// NewReportID generates a unique report ID with the "rpt_" prefix
// Format: rpt_<uuid>
func NewReportID() string {
	return "rpt_" + uuid.New().String()
}

// NewToken generates an opaque session token
func NewToken() string {
	return uuid.New().String() + uuid.New().String()
}
