package websocket

import (
	"encoding/json"
	"time"
)

// MessageType names an event carried by the envelope.
type MessageType string

const (
	// Inbound events
	TypeSendMessage      MessageType = "send_message"
	TypeSendFile         MessageType = "send_file"
	TypeJoinGroup        MessageType = "join_group"
	TypeLeaveGroup       MessageType = "leave_group"
	TypeUnsubscribeGroup MessageType = "unsubscribe_group"
	TypeSendGroupMessage MessageType = "send_group_message"
	TypeSendGroupFile    MessageType = "send_group_file"
	TypeSendDM           MessageType = "send_dm"
	TypeTyping           MessageType = "typing"
	TypePong             MessageType = "pong"

	// Outbound events
	TypeReceiveMessage      MessageType = "receive_message"
	TypeReceiveFile         MessageType = "receive_file"
	TypeReceiveGroupMessage MessageType = "receive_group_message"
	TypeReceiveGroupFile    MessageType = "receive_group_file"
	TypeReceiveDM           MessageType = "receive_dm"
	TypeGroupJoined         MessageType = "group_joined"
	TypeGroupLeft           MessageType = "group_left"
	TypeGroupUnsubscribed   MessageType = "group_unsubscribed"
	TypeUserOnline          MessageType = "user_online"
	TypeUserOffline         MessageType = "user_offline"
	TypeError               MessageType = "error"
)

// Message is the envelope exchanged in both directions over a socket.
type Message struct {
	Type      MessageType     `json:"type"`
	GroupID   string          `json:"group_id,omitempty"`
	Username  string          `json:"username,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Encode builds a serialized envelope around data.
func Encode(msgType MessageType, groupID, username string, data interface{}) ([]byte, error) {
	msg := Message{
		Type:      msgType,
		GroupID:   groupID,
		Username:  username,
		Timestamp: time.Now().UTC(),
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		msg.Data = raw
	}
	return json.Marshal(msg)
}
