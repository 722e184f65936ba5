package service

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/chepyr/go-kanban/internal/models"
)

const (
	maxBoardTitleLength       = 100
	maxBoardDescriptionLength = 500
	maxTaskTitleLength        = 200
	maxTaskDescriptionLength  = 1000
)

func validateTitle(what, title string, max int) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("%w: %s title is required", models.ErrValidation, what)
	}
	if utf8.RuneCountInString(title) > max {
		return "", fmt.Errorf("%w: %s title must be at most %d characters", models.ErrValidation, what, max)
	}
	return title, nil
}

func validateDescription(what, description string, max int) (string, error) {
	description = strings.TrimSpace(description)
	if utf8.RuneCountInString(description) > max {
		return "", fmt.Errorf("%w: %s description must be at most %d characters", models.ErrValidation, what, max)
	}
	return description, nil
}
