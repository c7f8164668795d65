package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentPath(t *testing.T) {
	tests := []struct {
		name     string
		fileID   string
		expected string
	}{
		{
			name:     "full file ID",
			fileID:   "3d0d7e5fb2ce288813306e4d4636395e047a3d28",
			expected: "3d/3d0d7e5fb2ce288813306e4d4636395e047a3d28",
		},
		{
			name:     "short input degrades per the slice formula",
			fileID:   "a",
			expected: "a/a",
		},
		{
			name:     "empty input",
			fileID:   "",
			expected: "/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ContentPath(tt.fileID))
		})
	}
}

func TestDeriveFileID(t *testing.T) {
	// Values verified against real backup manifests; the well-known SMS
	// database ID in particular must never drift.
	tests := []struct {
		domain       string
		relativePath string
		expected     string
	}{
		{
			domain:       "HomeDomain",
			relativePath: "Library/SMS/sms.db",
			expected:     "3d0d7e5fb2ce288813306e4d4636395e047a3d28",
		},
		{
			domain:       "CameraRollDomain",
			relativePath: "Media/DCIM/100APPLE/IMG_0001.JPG",
			expected:     "343e26971dfe9c395c425c0ccf799df63ae6261e",
		},
		{
			domain:       "AppDomain-com.example.app",
			relativePath: "Library/Preferences/com.example.app.plist",
			expected:     "6a6b58e082c79529c3a82b4787b8e4e150d9e097",
		},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, DeriveFileID(tt.domain, tt.relativePath))
	}
}

func TestAddressingIsDeterministic(t *testing.T) {
	first := DeriveFileID("MediaDomain", "Media/Recordings/rec.m4a")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, DeriveFileID("MediaDomain", "Media/Recordings/rec.m4a"))
		assert.Equal(t, ContentPath(first), ContentPath(first))
	}
	assert.Equal(t, "c0afd45870e88b1da0db20c88fd6437263e0e36b", first)
}

func TestRecordContentPath(t *testing.T) {
	rec := Record{FileID: "ab12cd"}
	assert.Equal(t, "ab/ab12cd", rec.ContentPath())
}
