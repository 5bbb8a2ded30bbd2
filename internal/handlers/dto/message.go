package dto

import "github.com/thereayou/zylo/internal/models"

// FileFields is the inline file part shared by every file event.
type FileFields struct {
	FileName string `json:"fileName" validate:"omitempty,max=255"`
	FileType string `json:"fileType" validate:"omitempty,max=255"`
	FileData string `json:"fileData"`
}

// PublicPayload carries send_message and send_file. Username is only read
// from anonymous connections.
type PublicPayload struct {
	Username string `json:"username" validate:"omitempty,max=50"`
	Message  string `json:"message"`
	FileFields
}

type GroupPayload struct {
	GroupID  string `json:"groupId" validate:"required"`
	Username string `json:"username"`
	Message  string `json:"message"`
	FileFields
}

type DirectPayload struct {
	From    string `json:"from"`
	To      string `json:"to" validate:"required,max=50"`
	Message string `json:"message"`
	FileFields
}

type TypingPayload struct {
	Username string `json:"username" validate:"omitempty,max=50"`
	GroupID  string `json:"groupId"`
	To       string `json:"to"`
}

type CreateGroupRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description" binding:"max=500"`
}

func TextContent(message string) models.Content {
	return models.Content{Text: message}
}

func (f FileFields) Content() models.Content {
	return models.Content{FileName: f.FileName, FileType: f.FileType, FileData: f.FileData}
}
