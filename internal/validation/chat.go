package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	chatMessageMaxLen = 500
	streamTitleMaxLen = 255
)

// ValidateChatMessage rejects empty and oversized chat messages.
func ValidateChatMessage(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("message cannot be empty")
	}
	if utf8.RuneCountInString(text) > chatMessageMaxLen {
		return fmt.Errorf("message must be at most %d characters", chatMessageMaxLen)
	}
	return nil
}

// ValidateStreamTitle rejects empty and oversized stream titles.
func ValidateStreamTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("title cannot be empty")
	}
	if utf8.RuneCountInString(title) > streamTitleMaxLen {
		return fmt.Errorf("title must be at most %d characters", streamTitleMaxLen)
	}
	return nil
}
