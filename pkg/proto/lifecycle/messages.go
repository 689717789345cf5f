package lifecycle

import "google.golang.org/protobuf/types/known/structpb"

// struct field names shared by client and server
const (
	FieldTokenIdentifier = "token_identifier"
	FieldEmail           = "email"
	FieldName            = "name"
	FieldImage           = "image"
	FieldUserID          = "user_id"
	FieldUsername        = "username"
	FieldCreated         = "created"
)

// CreateUserRequest payload of CreateUser
type CreateUserRequest struct {
	TokenIdentifier string
	Email           string
	Name            string
	Image           string
}

// CreateUserResponse result of CreateUser, Created is false when the user already existed
type CreateUserResponse struct {
	UserID   string
	Username string
	Created  bool
}

// ToStruct encode r
func (r CreateUserRequest) ToStruct() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldTokenIdentifier: structpb.NewStringValue(r.TokenIdentifier),
		FieldEmail:           structpb.NewStringValue(r.Email),
		FieldName:            structpb.NewStringValue(r.Name),
		FieldImage:           structpb.NewStringValue(r.Image),
	}}
}

// CreateUserRequestFromStruct decode s
func CreateUserRequestFromStruct(s *structpb.Struct) CreateUserRequest {
	return CreateUserRequest{
		TokenIdentifier: String(s, FieldTokenIdentifier),
		Email:           String(s, FieldEmail),
		Name:            String(s, FieldName),
		Image:           String(s, FieldImage),
	}
}

// ToStruct encode r
func (r CreateUserResponse) ToStruct() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldUserID:   structpb.NewStringValue(r.UserID),
		FieldUsername: structpb.NewStringValue(r.Username),
		FieldCreated:  structpb.NewBoolValue(r.Created),
	}}
}

// CreateUserResponseFromStruct decode s
func CreateUserResponseFromStruct(s *structpb.Struct) CreateUserResponse {
	return CreateUserResponse{
		UserID:   String(s, FieldUserID),
		Username: String(s, FieldUsername),
		Created:  Bool(s, FieldCreated),
	}
}

// ImageRequest payload of UpdateUserImage
func ImageRequest(tokenIdentifier, image string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldTokenIdentifier: structpb.NewStringValue(tokenIdentifier),
		FieldImage:           structpb.NewStringValue(image),
	}}
}

// SubjectRequest payload of SetUserOnline / SetUserOffline
func SubjectRequest(tokenIdentifier string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldTokenIdentifier: structpb.NewStringValue(tokenIdentifier),
	}}
}

// String string field of s, "" when missing or of another kind
func String(s *structpb.Struct, key string) string {
	if s == nil {
		return ""
	}
	v, ok := s.GetFields()[key]
	if !ok {
		return ""
	}
	return v.GetStringValue()
}

// Bool bool field of s, false when missing
func Bool(s *structpb.Struct, key string) bool {
	if s == nil {
		return false
	}
	v, ok := s.GetFields()[key]
	if !ok {
		return false
	}
	return v.GetBoolValue()
}
