// Package validate holds the field checks applied to caller input before any
// peer is called. Errors are plain; callers classify them.
package validate

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// String length limits
const (
	MaxIDLength          = 128
	MaxTitleLength       = 256
	MaxDescriptionLength = 16 * 1024
	MaxCoverLetterLength = 8 * 1024
	MaxURLLength         = 2048
	MaxSkillLength       = 64
	MaxSkillCount        = 50
	MaxLocationLength    = 128
)

// SafeIDPattern allows alphanumeric, hyphens, underscores
var SafeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// String validates a string field with length and content checks
func String(value, fieldName string, minLen, maxLen int, required bool) error {
	if required && strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	if value == "" {
		return nil
	}

	length := utf8.RuneCountInString(value)
	if length < minLen {
		return fmt.Errorf("%s must be at least %d characters", fieldName, minLen)
	}
	if length > maxLen {
		return fmt.Errorf("%s must not exceed %d characters", fieldName, maxLen)
	}

	if strings.Contains(value, "\x00") {
		return fmt.Errorf("%s contains invalid characters", fieldName)
	}
	return nil
}

// ID validates an identifier: job, company, candidate or application.
func ID(id, fieldName string) error {
	if err := String(id, fieldName, 1, MaxIDLength, true); err != nil {
		return err
	}
	if !SafeIDPattern.MatchString(id) {
		return fmt.Errorf("%s contains invalid characters (only alphanumeric, hyphens, and underscores allowed)", fieldName)
	}
	return nil
}

// Title validates a job title.
func Title(title string) error {
	return String(title, "title", 1, MaxTitleLength, true)
}

// Description validates free text up to MaxDescriptionLength.
func Description(description, fieldName string) error {
	return String(description, fieldName, 0, MaxDescriptionLength, false)
}

// Skills validates a skill list.
func Skills(skills []string) error {
	if len(skills) > MaxSkillCount {
		return fmt.Errorf("too many skills (maximum %d)", MaxSkillCount)
	}
	for i, skill := range skills {
		if err := String(skill, fmt.Sprintf("skills[%d]", i), 1, MaxSkillLength, true); err != nil {
			return err
		}
	}
	return nil
}

// Location validates one location component.
func Location(value, fieldName string) error {
	return String(value, fieldName, 0, MaxLocationLength, false)
}

// URL validates an optional absolute http(s) URL.
func URL(raw, fieldName string) error {
	if raw == "" {
		return nil
	}
	if err := String(raw, fieldName, 1, MaxURLLength, false); err != nil {
		return err
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%s must be an absolute http(s) URL", fieldName)
	}
	return nil
}
