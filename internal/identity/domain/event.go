package domain

import (
	"encoding/json"
	"strings"
)

// webhook event types handled by the bridge
const (
	UserCreated    = "user.created"
	UserUpdated    = "user.updated"
	SessionCreated = "session.created"
	SessionEnded   = "session.ended"
)

// WebhookEvent verified provider payload
type WebhookEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// EmailAddress provider email entry
type EmailAddress struct {
	EmailAddress string `json:"email_address"`
}

// UserData data of user.* events
type UserData struct {
	ID             string         `json:"id"`
	FirstName      string         `json:"first_name"`
	LastName       string         `json:"last_name"`
	ImageURL       string         `json:"image_url"`
	EmailAddresses []EmailAddress `json:"email_addresses"`
}

// PrimaryEmail first listed address, empty when none
func (u UserData) PrimaryEmail() string {
	if len(u.EmailAddresses) == 0 {
		return ""
	}
	return u.EmailAddresses[0].EmailAddress
}

// SessionData data of session.* events
type SessionData struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
}

// Subject the user the session belongs to
func (s SessionData) Subject() string {
	if s.UserID != "" {
		return s.UserID
	}
	return s.ID
}

// SignupNotification queued on first-ever user creation
type SignupNotification struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	TokenIdentifier string `json:"token_identifier"`
	SignedUpAt      int64  `json:"signed_up_at"`
}

// IdentityEvent audit record of a processed webhook
type IdentityEvent struct {
	Type       string `json:"type"`
	Subject    string `json:"subject"`
	ReceivedAt int64  `json:"received_at"`
}

const obfuscationAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Obfuscate after each character, with probability 1/2, insert one random alphanumeric.
// intn follows math/rand.Intn.
func Obfuscate(name string, intn func(n int) int) string {
	var b strings.Builder
	for _, r := range name {
		b.WriteRune(r)
		if intn(2) == 1 {
			b.WriteByte(obfuscationAlphabet[intn(len(obfuscationAlphabet))])
		}
	}
	return b.String()
}

// DisplayName "first last", first, last, else the obfuscated email local part
func DisplayName(u UserData, intn func(n int) int) string {
	first, last := strings.TrimSpace(u.FirstName), strings.TrimSpace(u.LastName)
	switch {
	case first != "" && last != "":
		return first + " " + last
	case first != "":
		return first
	case last != "":
		return last
	}
	local, _, _ := strings.Cut(u.PrimaryEmail(), "@")
	return Obfuscate(local, intn)
}
