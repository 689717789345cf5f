package domain

import (
	"strconv"
	"strings"
)

const (
	// DefaultGender gender of a freshly created user
	DefaultGender = "prefer not to say"
	// DefaultPreferredGender preferred gender of a freshly created user
	DefaultPreferredGender = "all genders"
	// PlaceholderImage avatar used when a user has neither storage ref nor image
	PlaceholderImage = "/placeholder.png"

	// MaxBaseUsernameLength bound applied to the email local part
	MaxBaseUsernameLength = 20
	// DefaultMaxUsernameSuffix ceiling of the numeric suffix search
	DefaultMaxUsernameSuffix = 99999
)

// StandardGenders values never written to the gender registry
var StandardGenders = map[string]struct{}{
	"male":                 {},
	"female":               {},
	DefaultGender:          {},
	DefaultPreferredGender: {},
}

// User directory record
type User struct {
	ID              string   `json:"id"`
	TokenIdentifier string   `json:"token_identifier"`
	Name            string   `json:"name"`
	Email           string   `json:"email"`
	Image           string   `json:"image"`
	ImageStorageID  *string  `json:"image_storage_id,omitempty"`
	IsOnline        bool     `json:"is_online"`
	Username        string   `json:"username"`
	InstagramHandle string   `json:"instagram_handle,omitempty"`
	TiktokHandle    string   `json:"tiktok_handle,omitempty"`
	YoutubeHandle   string   `json:"youtube_handle,omitempty"`
	Tags            []string `json:"tags"`
	Gender          string   `json:"gender"`
	PreferredGender string   `json:"preferred_gender"`
	CreatedAt       int64    `json:"created_at"`
}

// NewUser input of the lifecycle create path
type NewUser struct {
	TokenIdentifier string
	Email           string
	Name            string
	Image           string
}

// ProfileInput fields a user may edit, bounds are checked after normalization
type ProfileInput struct {
	Name            string   `json:"name" validate:"min=2,max=20"`
	Username        string   `json:"username" validate:"min=2,max=25"`
	InstagramHandle string   `json:"instagram_handle" validate:"max=25"`
	TiktokHandle    string   `json:"tiktok_handle" validate:"max=25"`
	YoutubeHandle   string   `json:"youtube_handle" validate:"max=30"`
	Tags            []string `json:"tags"`
	Gender          string   `json:"gender" validate:"max=25"`
	PreferredGender string   `json:"preferred_gender" validate:"max=25"`
	ImageStorageID  *string  `json:"image_storage_id,omitempty"`
}

// Normalize trim, lower case and default the editable fields
func (p ProfileInput) Normalize() ProfileInput {
	out := ProfileInput{
		Name:            strings.TrimSpace(p.Name),
		Username:        strings.ToLower(strings.TrimSpace(p.Username)),
		InstagramHandle: strings.TrimSpace(p.InstagramHandle),
		TiktokHandle:    strings.TrimSpace(p.TiktokHandle),
		YoutubeHandle:   strings.TrimSpace(p.YoutubeHandle),
		Tags:            NormalizeTags(p.Tags),
		Gender:          strings.ToLower(strings.TrimSpace(p.Gender)),
		PreferredGender: strings.ToLower(strings.TrimSpace(p.PreferredGender)),
		ImageStorageID:  p.ImageStorageID,
	}
	if out.Gender == "" {
		out.Gender = DefaultGender
	}
	if out.PreferredGender == "" {
		out.PreferredGender = DefaultPreferredGender
	}
	if out.ImageStorageID != nil && strings.TrimSpace(*out.ImageStorageID) == "" {
		out.ImageStorageID = nil
	}
	return out
}

// NormalizeTags lower case, trim, drop empties and duplicates keeping first-seen order
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// DiffTags tags present only in next (added) and only in prev (removed)
func DiffTags(prev, next []string) (added, removed []string) {
	prevSet := make(map[string]struct{}, len(prev))
	for _, t := range prev {
		prevSet[t] = struct{}{}
	}
	nextSet := make(map[string]struct{}, len(next))
	for _, t := range next {
		nextSet[t] = struct{}{}
		if _, ok := prevSet[t]; !ok {
			added = append(added, t)
		}
	}
	for _, t := range prev {
		if _, ok := nextSet[t]; !ok {
			removed = append(removed, t)
		}
	}
	return added, removed
}

// BaseUsername email local part, lower cased and sliced to MaxBaseUsernameLength runes
func BaseUsername(email string) string {
	local := email
	if i := strings.Index(email, "@"); i >= 0 {
		local = email[:i]
	}
	local = strings.ToLower(strings.TrimSpace(local))
	if local == "" {
		local = "user"
	}
	return truncate(local, MaxBaseUsernameLength)
}

// CandidateUsername "user" + base cut to fit the suffix + suffix
func CandidateUsername(base string, suffix int) string {
	s := strconv.Itoa(suffix)
	maxBase := MaxBaseUsernameLength - len(s)
	if maxBase < 0 {
		maxBase = 0
	}
	return "user" + truncate(base, maxBase) + s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
