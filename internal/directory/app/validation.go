package app

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// messages keyed by ProfileInput field name
var profileFieldMessages = map[string]string{
	"Name":            "Name must be between 2 and 20 characters",
	"Username":        "Username must be between 2 and 25 characters",
	"InstagramHandle": "Instagram handle must be 25 characters or less",
	"TiktokHandle":    "TikTok handle must be 25 characters or less",
	"YoutubeHandle":   "YouTube handle must be 30 characters or less",
	"Gender":          "Gender must be 25 characters or less",
	"PreferredGender": "Preferred gender must be 25 characters or less",
}

// validationMessage first failing field as a user facing sentence
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		if msg, ok := profileFieldMessages[verrs[0].StructField()]; ok {
			return msg
		}
		return verrs[0].Error()
	}
	return err.Error()
}
