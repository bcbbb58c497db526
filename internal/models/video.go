package models

import (
	"time"
)

// Video is the metadata record of an uploaded video, addressed by its slug.
// Records are written once and never updated.
type Video struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id" dynamodbav:"id"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`

	// Public identifier embedded in share links
	Slug string `gorm:"uniqueIndex;not null" json:"slug" dynamodbav:"slug"`

	// File metadata
	Filename     string `gorm:"not null" json:"filename" dynamodbav:"filename"`             // slug + original extension
	OriginalName string `gorm:"not null" json:"original_name" dynamodbav:"original_name"`   // as supplied by the uploader
	MimeType     string `gorm:"not null" json:"mime_type" dynamodbav:"mime_type"`           // as reported by the source file
	SizeBytes    int64  `gorm:"not null" json:"size_bytes" dynamodbav:"size_bytes"`         // as reported by the source file
	StoragePath  string `gorm:"not null" json:"-" dynamodbav:"storage_path"`                // object store key

	// Access gate
	ExpiresAt    *time.Time `gorm:"index" json:"expires_at,omitempty" dynamodbav:"expires_at,omitempty"` // nil means unlimited
	PasswordHash *string    `json:"-" dynamodbav:"password_hash,omitempty"`                             // nil means no password
}

// IsExpired reports whether the video has expired at the given instant.
// A video expires exactly at ExpiresAt.
func (v *Video) IsExpired(now time.Time) bool {
	if v.ExpiresAt == nil {
		return false
	}
	return !now.Before(*v.ExpiresAt)
}

// HasPassword checks if the video is password protected
func (v *Video) HasPassword() bool {
	return v.PasswordHash != nil && *v.PasswordHash != ""
}
