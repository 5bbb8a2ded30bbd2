package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/thereayou/zylo/internal/fanout"
	"github.com/thereayou/zylo/internal/handlers/dto"
	"github.com/thereayou/zylo/internal/models"
	"github.com/thereayou/zylo/internal/rooms"
	ws "github.com/thereayou/zylo/internal/websocket"
	"github.com/thereayou/zylo/pkg/apperrors"
)

var errSignInRequired = apperrors.Unauthorized("sign in required")

// MessageHandler routes websocket events to the dispatcher and the room
// directory. It runs on the hub loop, one event at a time.
type MessageHandler struct {
	dispatcher     *fanout.Dispatcher
	rooms          *rooms.Directory
	hub            *ws.Hub
	validate       *validator.Validate
	allowAnonymous bool
	log            *slog.Logger
}

func NewMessageHandler(dispatcher *fanout.Dispatcher, directory *rooms.Directory, hub *ws.Hub, allowAnonymous bool, log *slog.Logger) *MessageHandler {
	return &MessageHandler{
		dispatcher:     dispatcher,
		rooms:          directory,
		hub:            hub,
		validate:       validator.New(),
		allowAnonymous: allowAnonymous,
		log:            log,
	}
}

func (h *MessageHandler) HandleMessage(client *ws.Client, msg *ws.Message) error {
	ctx := context.Background()

	switch msg.Type {
	case ws.TypeSendMessage:
		return h.handlePublic(ctx, client, msg, false)
	case ws.TypeSendFile:
		return h.handlePublic(ctx, client, msg, true)
	case ws.TypeJoinGroup:
		return h.handleJoin(client, msg)
	case ws.TypeLeaveGroup:
		return h.handleLeave(client, msg)
	case ws.TypeUnsubscribeGroup:
		return h.handleUnsubscribe(client, msg)
	case ws.TypeSendGroupMessage:
		return h.handleGroup(ctx, client, msg, false)
	case ws.TypeSendGroupFile:
		return h.handleGroup(ctx, client, msg, true)
	case ws.TypeSendDM:
		return h.handleDirect(ctx, client, msg)
	case ws.TypeTyping:
		return h.handleTyping(client, msg)
	default:
		h.log.Debug("Unknown event type", "type", msg.Type, "client_id", client.ID)
		return nil
	}
}

func (h *MessageHandler) decode(msg *ws.Message, v interface{}) error {
	if len(msg.Data) == 0 {
		return apperrors.Wrap(apperrors.CodeInvalidArgument, "event payload is missing", ws.ErrInvalidMessage)
	}
	if err := json.Unmarshal(msg.Data, v); err != nil {
		return apperrors.Wrap(apperrors.CodeInvalidArgument, ws.ErrInvalidMessage.Error(), err)
	}
	if err := h.validate.Struct(v); err != nil {
		return apperrors.Wrap(apperrors.CodeInvalidArgument, ws.ErrInvalidMessage.Error(), err)
	}
	return nil
}

// sender resolves who an event comes from. The authenticated name always
// wins; anonymous connections may only speak under a claimed name when
// anonymous mode is on.
func (h *MessageHandler) sender(client *ws.Client, claimed string) (string, error) {
	if client.Authenticated() {
		return client.Username, nil
	}
	claimed = strings.TrimSpace(claimed)
	if !h.allowAnonymous || claimed == "" {
		return "", errSignInRequired
	}
	return claimed, nil
}

func content(text string, file dto.FileFields, isFile bool) (models.Content, error) {
	if !isFile {
		return dto.TextContent(text), nil
	}
	c := file.Content()
	if c.FileName == "" || c.FileData == "" {
		return models.Content{}, apperrors.InvalidArg("fileName and fileData are required")
	}
	return c, nil
}

func (h *MessageHandler) handlePublic(ctx context.Context, client *ws.Client, msg *ws.Message, isFile bool) error {
	var payload dto.PublicPayload
	if err := h.decode(msg, &payload); err != nil {
		return err
	}
	sender, err := h.sender(client, payload.Username)
	if err != nil {
		return err
	}
	c, err := content(payload.Message, payload.FileFields, isFile)
	if err != nil {
		return err
	}
	_, err = h.dispatcher.SendPublic(ctx, sender, c)
	return err
}

func groupID(payload dto.GroupPayload, msg *ws.Message) string {
	if payload.GroupID != "" {
		return payload.GroupID
	}
	return msg.GroupID
}

func (h *MessageHandler) decodeGroup(msg *ws.Message) (dto.GroupPayload, error) {
	var payload dto.GroupPayload
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			return payload, apperrors.Wrap(apperrors.CodeInvalidArgument, ws.ErrInvalidMessage.Error(), err)
		}
	}
	payload.GroupID = groupID(payload, msg)
	if err := h.validate.Struct(payload); err != nil {
		return payload, apperrors.Wrap(apperrors.CodeInvalidArgument, ws.ErrInvalidMessage.Error(), err)
	}
	return payload, nil
}

// handleJoin makes the user a member and subscribes this connection. Only
// the joining connection is told about it.
func (h *MessageHandler) handleJoin(client *ws.Client, msg *ws.Message) error {
	payload, err := h.decodeGroup(msg)
	if err != nil {
		return err
	}
	if !client.Authenticated() {
		return errSignInRequired
	}

	room, err := h.rooms.Join(payload.GroupID, client.Username)
	if err != nil && !apperrors.HasCode(err, apperrors.CodeStoreWrite) {
		return err
	}
	h.hub.Subscribe(client, room.ID)
	h.reply(client, ws.TypeGroupJoined, room.ID, room)
	return err
}

func (h *MessageHandler) handleLeave(client *ws.Client, msg *ws.Message) error {
	payload, err := h.decodeGroup(msg)
	if err != nil {
		return err
	}
	if !client.Authenticated() {
		return errSignInRequired
	}

	if err := h.rooms.Leave(payload.GroupID, client.Username); err != nil && !apperrors.HasCode(err, apperrors.CodeStoreWrite) {
		return err
	}
	h.hub.UnsubscribeUser(payload.GroupID, client.Username)
	h.reply(client, ws.TypeGroupLeft, payload.GroupID, map[string]string{"groupId": payload.GroupID})
	return nil
}

// handleUnsubscribe mutes a group on this connection only. A later
// join_group subscribes it again.
func (h *MessageHandler) handleUnsubscribe(client *ws.Client, msg *ws.Message) error {
	payload, err := h.decodeGroup(msg)
	if err != nil {
		return err
	}

	h.hub.Unsubscribe(client, payload.GroupID)
	h.reply(client, ws.TypeGroupUnsubscribed, payload.GroupID, map[string]string{"groupId": payload.GroupID})
	return nil
}

func (h *MessageHandler) handleGroup(ctx context.Context, client *ws.Client, msg *ws.Message, isFile bool) error {
	payload, err := h.decodeGroup(msg)
	if err != nil {
		return err
	}
	// anonymous connections are never members, the send is dropped like any
	// other non-member send
	if !client.Authenticated() {
		h.log.Debug("Group message from anonymous connection dropped", "client_id", client.ID)
		return nil
	}
	c, err := content(payload.Message, payload.FileFields, isFile)
	if err != nil {
		return err
	}
	_, err = h.dispatcher.SendGroup(ctx, payload.GroupID, client.Username, c)
	return err
}

func (h *MessageHandler) handleDirect(ctx context.Context, client *ws.Client, msg *ws.Message) error {
	var payload dto.DirectPayload
	if err := h.decode(msg, &payload); err != nil {
		return err
	}
	if !client.Authenticated() {
		return errSignInRequired
	}
	isFile := payload.FileName != "" || payload.FileData != ""
	c, err := content(payload.Message, payload.FileFields, isFile)
	if err != nil {
		return err
	}
	_, err = h.dispatcher.SendDirect(ctx, client.Username, payload.To, c)
	return err
}

func (h *MessageHandler) handleTyping(client *ws.Client, msg *ws.Message) error {
	var payload dto.TypingPayload
	if err := h.decode(msg, &payload); err != nil {
		return err
	}
	if payload.GroupID == "" {
		payload.GroupID = msg.GroupID
	}
	username, err := h.sender(client, payload.Username)
	if err != nil {
		return nil
	}
	h.dispatcher.Typing(client.ID, fanout.TypingSignal{
		Username: username,
		GroupID:  payload.GroupID,
		To:       payload.To,
	})
	return nil
}

func (h *MessageHandler) reply(client *ws.Client, msgType ws.MessageType, groupID string, data interface{}) {
	raw, err := ws.Encode(msgType, groupID, client.Username, data)
	if err != nil {
		return
	}
	if err := client.Deliver(raw); err != nil {
		h.log.Warn("Reply not delivered", "client_id", client.ID, "type", msgType, "error", err)
	}
}
