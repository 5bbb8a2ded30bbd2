package models

import "time"

// DirectMessage is one entry of the global DM ledger. From and To are always
// two distinct users.
type DirectMessage struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Message   string    `json:"message,omitempty"`
	FileName  string    `json:"fileName,omitempty"`
	FileType  string    `json:"fileType,omitempty"`
	FileData  string    `json:"fileData,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewDirectMessage(from, to string, content Content, at time.Time) DirectMessage {
	dm := DirectMessage{From: from, To: to, CreatedAt: at}
	if content.IsFile() {
		dm.FileName = content.FileName
		dm.FileType = content.FileType
		dm.FileData = content.FileData
		return dm
	}
	dm.Message = content.Text
	return dm
}

// Between reports whether the entry belongs to the conversation of a and b,
// in either direction.
func (d DirectMessage) Between(a, b string) bool {
	return (d.From == a && d.To == b) || (d.From == b && d.To == a)
}
