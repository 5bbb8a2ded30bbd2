package fanout

import (
	"github.com/google/uuid"
	ws "github.com/thereayou/zylo/internal/websocket"
)

// The public channel has no membership: deliverGlobal reaches every live
// connection. Group rooms only ever use deliverScoped, which never looks
// beyond the subscribers the hub admitted after a membership check.

func (d *Dispatcher) deliverGlobal(data []byte, except uuid.UUID) Result {
	return d.deliver(d.registry.Clients(), data, except)
}

func (d *Dispatcher) deliverScoped(roomID string, data []byte, except uuid.UUID) Result {
	return d.deliver(d.registry.RoomClients(roomID), data, except)
}

func (d *Dispatcher) deliverToUsers(users []string, data []byte, except uuid.UUID) Result {
	var recipients []*ws.Client
	for _, user := range users {
		recipients = append(recipients, d.registry.UserClients(user)...)
	}
	return d.deliver(recipients, data, except)
}

// deliver pushes to each recipient independently: a full or closed queue is
// logged and skipped, the others still get the event.
func (d *Dispatcher) deliver(recipients []*ws.Client, data []byte, except uuid.UUID) Result {
	var result Result
	for _, client := range recipients {
		if client.ID == except {
			continue
		}
		if err := client.Deliver(data); err != nil {
			result.Failed++
			d.log.Warn("Delivery skipped", "client_id", client.ID, "user", client.Username, "error", err)
			continue
		}
		result.Delivered++
	}
	return result
}
