package domain

import "time"

// DefaultUploadExpiry lifetime of a presigned upload url
const DefaultUploadExpiry = 15 * time.Minute

// DefaultURLCacheTTL how long a resolved object url stays cached
const DefaultURLCacheTTL = time.Hour

// UploadTicket returned by generateUploadUrl, the client PUTs the file to UploadURL
// and later refers to it by StorageID
type UploadTicket struct {
	StorageID string `json:"storage_id"`
	UploadURL string `json:"upload_url"`
}
