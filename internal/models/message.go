package models

import (
	"strings"
	"time"
)

const TypeFile = "file"

// Content is what a sender hands to the dispatcher: either text or a file.
type Content struct {
	Text     string
	FileName string
	FileType string
	FileData string
}

func (c Content) IsFile() bool {
	return c.FileName != "" || c.FileData != ""
}

func (c Content) IsEmpty() bool {
	return strings.TrimSpace(c.Text) == "" && !c.IsFile()
}

// Message is one entry of the public feed or of a room log. Entries are never
// mutated once appended.
type Message struct {
	Type      string    `json:"type,omitempty"`
	Username  string    `json:"username"`
	Message   string    `json:"message,omitempty"`
	FileName  string    `json:"fileName,omitempty"`
	FileType  string    `json:"fileType,omitempty"`
	FileData  string    `json:"fileData,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewMessage(sender string, content Content, at time.Time) Message {
	msg := Message{Username: sender, CreatedAt: at}
	if content.IsFile() {
		msg.Type = TypeFile
		msg.FileName = content.FileName
		msg.FileType = content.FileType
		msg.FileData = content.FileData
		return msg
	}
	msg.Message = content.Text
	return msg
}

func (m Message) IsFile() bool {
	return m.Type == TypeFile || m.FileName != ""
}
