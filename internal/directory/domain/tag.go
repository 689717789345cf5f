package domain

// Tag inverted index entry: tag name -> users holding it
type Tag struct {
	TagName string   `json:"tag_name"`
	UserIDs []string `json:"user_ids"`
}

// IsStandardGender report whether g is one of the built in gender values
func IsStandardGender(g string) bool {
	_, ok := StandardGenders[g]
	return ok
}
