package domain

import (
	"regexp"
	"strings"
)

var (
	addressRe = regexp.MustCompile(`(?i)^[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}$`)
	base64Re  = regexp.MustCompile(`^[A-Za-z0-9+/]*={0,2}$`)
	unsafeRe  = regexp.MustCompile(`[^\w.\-()+@]`)
)

// ValidAddress reports whether s looks like a deliverable email address.
func ValidAddress(s string) bool { return addressRe.MatchString(s) }

// Validate checks msg before any network call. It returns a *ValidationError
// listing every problem found, or nil.
func Validate(msg Message) error {
	var reasons []string
	if strings.TrimSpace(msg.From) == "" {
		reasons = append(reasons, "from is required")
	} else if !ValidAddress(msg.From) {
		reasons = append(reasons, "from is not a valid email address")
	}
	if strings.TrimSpace(msg.To) == "" {
		reasons = append(reasons, "to is required")
	} else if !ValidAddress(msg.To) {
		reasons = append(reasons, "to is not a valid email address")
	}
	if strings.TrimSpace(msg.Subject) == "" {
		reasons = append(reasons, "subject is required")
	}
	if strings.TrimSpace(msg.HTML) == "" {
		reasons = append(reasons, "html body is required")
	}
	if a := msg.Attachment; a != nil {
		if strings.TrimSpace(a.Name) == "" {
			reasons = append(reasons, "attachment name is required")
		}
		switch {
		case a.Content == "":
			reasons = append(reasons, "attachment content is required")
		case !validBase64(a.Content):
			reasons = append(reasons, "attachment content is not valid base64")
		case decodedLen(a.Content) > MaxAttachmentBytes:
			reasons = append(reasons, "attachment exceeds 5 MiB")
		}
	}
	if len(reasons) > 0 {
		return &ValidationError{Reasons: reasons}
	}
	return nil
}

func validBase64(s string) bool {
	return len(s)%4 == 0 && base64Re.MatchString(s)
}

func decodedLen(s string) int {
	pad := len(s) - len(strings.TrimRight(s, "="))
	return len(s)/4*3 - pad
}

// SanitizeFilename replaces characters that are unsafe in MIME filenames with
// underscores. An empty result becomes "attachment".
func SanitizeFilename(name string) string {
	name = unsafeRe.ReplaceAllString(strings.TrimSpace(name), "_")
	if name == "" {
		return "attachment"
	}
	return name
}
