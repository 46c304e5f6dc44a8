package area

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Area represents one physical space config entries are assigned to.
type Area struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validation limits matching the entry package conventions.
const (
	maxNameLength = 100
	maxSlugLength = 50
)

var slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Validate checks an area before persistence. An empty slug is derived
// from the name.
func (a *Area) Validate() error {
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidArea)
	}
	if len(a.Name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidArea, maxNameLength)
	}

	if a.Slug == "" {
		a.Slug = Slugify(a.Name)
	}
	if len(a.Slug) > maxSlugLength {
		return fmt.Errorf("%w: slug exceeds %d characters", ErrInvalidArea, maxSlugLength)
	}
	if !slugRegex.MatchString(a.Slug) {
		return fmt.Errorf("%w: slug must be lowercase alphanumeric with hyphens", ErrInvalidArea)
	}
	return nil
}

// Slugify derives a URL-safe slug from a display name.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// GenerateID returns a new unique area ID.
func GenerateID() string {
	return "area-" + uuid.NewString()[:8]
}
