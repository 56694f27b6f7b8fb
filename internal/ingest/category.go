package ingest

import (
	"errors"
	"fmt"
	"strings"
)

// Category is the civil service category of a corps or concours
type Category string

const (
	CategoryAPlus         Category = "APLUS"
	CategoryA             Category = "A"
	CategoryB             Category = "B"
	CategoryC             Category = "C"
	CategoryHorsCategorie Category = "HORS_CATEGORIE"
)

// ErrInvalidCategory is wrapped by ParseCategory failures
var ErrInvalidCategory = errors.New("invalid category")

// categoryLabel drops the "Catégorie" prefix some exports carry
func categoryLabel(label string) string {
	s := strings.ToUpper(strings.TrimSpace(label))
	for _, prefix := range []string{"CATÉGORIE", "CATEGORIE"} {
		s = strings.TrimSpace(strings.TrimPrefix(s, prefix))
	}
	return s
}

// ParseCategory maps a concours category label. Unknown labels are errors.
func ParseCategory(label string) (Category, error) {
	s := categoryLabel(label)
	switch {
	case s == "":
		return "", fmt.Errorf("%w: empty", ErrInvalidCategory)
	case strings.Contains(s, "A+"):
		return CategoryAPlus, nil
	case strings.Contains(s, "A"):
		return CategoryA, nil
	case strings.Contains(s, "B"):
		return CategoryB, nil
	case strings.Contains(s, "C"):
		return CategoryC, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, label)
}

// CorpsCategory maps a corps category label; unknown labels are hors catégorie.
// The bool is false when the label is empty.
func CorpsCategory(label string) (Category, bool) {
	if strings.TrimSpace(label) == "" {
		return "", false
	}
	c, err := ParseCategory(label)
	if err != nil {
		return CategoryHorsCategorie, true
	}
	return c, true
}

var diplomaLevels = []struct {
	keywords []string
	level    int
}{
	{[]string{"niveau 8", "doctorat"}, 8},
	{[]string{"niveau 7", "master"}, 7},
	{[]string{"niveau 6", "licence"}, 6},
	{[]string{"niveau 5", "bac + 2"}, 5},
	{[]string{"niveau 4", "baccalauréat"}, 4},
	{[]string{"niveau 3", "cap", "bep"}, 3},
	{[]string{"niveau 2", "activités simples"}, 2},
	{[]string{"niveau 1", "savoirs de base"}, 1},
}

// DiplomaLevel maps a diploma label to its level (1 to 8), highest keyword first.
// An empty label yields 0 and no error.
func DiplomaLevel(label string) (int, error) {
	s := strings.ToLower(strings.TrimSpace(label))
	if s == "" {
		return 0, nil
	}
	for _, d := range diplomaLevels {
		for _, kw := range d.keywords {
			if strings.Contains(s, kw) {
				return d.level, nil
			}
		}
	}
	return 0, fmt.Errorf("invalid diploma level %q", label)
}
