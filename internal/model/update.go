// Package model holds the standup data types shared by the aggregator,
// summarizers, storage and delivery layers.
package model

import (
	"regexp"
	"strings"
	"time"
)

// UpdateRecord is one person's yesterday/today/blockers submission. The text
// fields are rich-text (HTML) strings.
type UpdateRecord struct {
	PersonName string    `json:"name"`
	Role       string    `json:"role"`
	Yesterday  string    `json:"yesterday"`
	Today      string    `json:"today"`
	Blockers   string    `json:"blockers"`
	Timestamp  time.Time `json:"timestamp"`
}

// Member is a roster entry.
type Member struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Role string `json:"role" yaml:"role"`
}

// Draft is an AI-suggested update for one person.
type Draft struct {
	Yesterday string `json:"yesterday"`
	Today     string `json:"today"`
	Blockers  string `json:"blockers"`
}

// IsEmptyContent reports whether a rich-text field carries no update. Only
// the empty string and the two literal "None" forms count; variants such as
// "none" or "N/A" are real content.
func IsEmptyContent(s string) bool {
	return s == "" || s == "None" || s == "<p>None</p>"
}

// HasContent reports whether any of the record's text fields carries content.
func (r UpdateRecord) HasContent() bool {
	return !IsEmptyContent(r.Yesterday) || !IsEmptyContent(r.Today) || !IsEmptyContent(r.Blockers)
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// StripHTML removes markup tags and trims the result.
func StripHTML(s string) string {
	return strings.TrimSpace(tagPattern.ReplaceAllString(s, ""))
}
