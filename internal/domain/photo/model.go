package photo

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("photo not found")

// Photo is a skin image uploaded by a patient. The bytes live in the blob
// store under ObjectKey.
type Photo struct {
	ID          uuid.UUID `json:"id"`
	PatientID   uuid.UUID `json:"patient_id"`
	ObjectKey   string    `json:"-"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Description string    `json:"description"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Upload is one incoming file.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Description string
}
