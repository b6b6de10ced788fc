// Package model defines the plant record and the local image reference used by the form workflow.
package model

import (
	"mime"
	"path"
	"strings"
	"time"
)

// Defaults applied to a freshly mounted add form.
const (
	DefaultWateringFrequency = "7"
	ListingRoute             = "Plants"
)

// TimestampLayout is the ISO-8601 form the API expects (UTC, millisecond precision).
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string { return t.UTC().Format(TimestampLayout) }

// Plant is a single user-owned record. PlantID is empty until the server created it.
type Plant struct {
	PlantID           string    `json:"plantid,omitempty"`
	UserID            string    `json:"userid"`
	Nickname          string    `json:"nickname"`
	Type              string    `json:"type"`
	LastWatered       time.Time `json:"lastWatered"`
	WateringFrequency string    `json:"wateringFrequency"` // days, kept as typed text
	Notes             string    `json:"notes"`
	Image             string    `json:"image,omitempty"` // server-side image reference of a created plant
}

// ImageRef is an opaque local reference (URI) to a picked image.
type ImageRef string

// Empty reports whether no image was selected.
func (r ImageRef) Empty() bool { return strings.TrimSpace(string(r)) == "" }

// URI returns the reference normalised to a file:/// URI.
func (r ImageRef) URI() string {
	return "file://" + r.Path()
}

// Normalize returns the reference in URI form.
func (r ImageRef) Normalize() ImageRef { return ImageRef(r.URI()) }

// Path returns the absolute local path the reference points to.
func (r ImageRef) Path() string {
	s := strings.TrimPrefix(strings.TrimSpace(string(r)), "file:")
	return "/" + strings.TrimLeft(s, "/")
}

// Filename is the last path segment of the reference.
func (r ImageRef) Filename() string { return path.Base(r.Path()) }

// MIMEType derives the content type from the file extension.
func (r ImageRef) MIMEType() string {
	mt := mime.TypeByExtension(strings.ToLower(path.Ext(r.Path())))
	if mt == "" {
		return "application/octet-stream"
	}
	return mt
}

// MissingRequired returns the names of required fields that are empty.
func MissingRequired(p Plant) []string {
	var missing []string
	if p.Nickname == "" {
		missing = append(missing, "nickname")
	}
	if p.Type == "" {
		missing = append(missing, "type")
	}
	return missing
}
