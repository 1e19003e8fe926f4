package model

import "time"

// LinkState is the per-user Drive link as seen by the rest of the backend.
// RefreshToken holds the encrypted token; Linked is true exactly when it is set.
type LinkState struct {
	UserID       string    `json:"user_id"`
	RefreshToken string    `json:"-"`
	Linked       bool      `json:"linked"`
	LastLinkedAt time.Time `json:"last_linked_at,omitempty"`
}

// UserToken is the private token document stored per user.
type UserToken struct {
	UserID                string    `json:"user_id" dynamodbav:"user_id"`
	EncryptedRefreshToken string    `json:"encrypted_refresh_token,omitempty" dynamodbav:"encrypted_refresh_token,omitempty"`
	UpdatedAt             time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// DriveLink is the public per-user document carrying the linked flag.
type DriveLink struct {
	UserID       string    `json:"user_id" dynamodbav:"user_id"`
	Linked       bool      `json:"linked" dynamodbav:"linked"`
	LastLinkedAt time.Time `json:"last_linked_at,omitempty" dynamodbav:"last_linked_at,omitempty"`
}

// UploadedFileRecord is the metadata kept for every file uploaded through the app.
type UploadedFileRecord struct {
	ID          string    `json:"id" dynamodbav:"id"`
	DriveFileID string    `json:"driveFileId" dynamodbav:"drive_file_id"`
	OwnerID     string    `json:"ownerId" dynamodbav:"owner_id"`
	Title       string    `json:"title" dynamodbav:"title"`
	Description string    `json:"description" dynamodbav:"description"`
	Subject     string    `json:"subject" dynamodbav:"subject"`
	FileName    string    `json:"fileName" dynamodbav:"file_name"`
	MIMEType    string    `json:"mimeType" dynamodbav:"mime_type"`
	Size        int64     `json:"size" dynamodbav:"size"`
	FolderID    string    `json:"folderId" dynamodbav:"folder_id"`
	FileURL     string    `json:"fileUrl" dynamodbav:"file_url"`
	WebViewLink string    `json:"webViewLink" dynamodbav:"web_view_link"`
	CreatedAt   time.Time `json:"createdAt" dynamodbav:"created_at"`

	// DescriptionHTML is the rendered description. It is filled in when
	// listing and never stored.
	DescriptionHTML string `json:"descriptionHtml,omitempty" dynamodbav:"-"`
}
