package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Riboost-Studio/print-station/internal/model"
)

// Subscribe opens one WebSocket session for the station. The server replays
// the station's current orders as order_added after the subscribe message,
// then streams changes. A dropped connection is returned as an error; the
// caller decides when to resubscribe.
func (c *Client) Subscribe(ctx context.Context, stationID string, fn func(model.OrderChange)) error {
	header := http.Header{}
	header.Add("X-Api-Key", c.apiKey)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.wsURL, header)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		conn.Close()
	})
	defer stop()

	if err := conn.WriteJSON(model.WSMessage{Type: model.MessageTypeSubscribe, Station: stationID}); err != nil {
		return fmt.Errorf("failed to send subscribe: %w", err)
	}

	for {
		var msg model.WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return fmt.Errorf("server closed the feed: %w", err)
			}
			return fmt.Errorf("read error: %w", err)
		}

		switch msg.Type {
		case model.MessageTypeSubscribed:
			c.logger.Printf("[%s] Subscribed to order feed.", stationID)

		case model.MessageTypePing:
			if err := conn.WriteJSON(model.WSMessage{Type: model.MessageTypePong, Station: stationID}); err != nil {
				return fmt.Errorf("failed to send pong: %w", err)
			}

		case model.MessageTypeError:
			return fmt.Errorf("feed error: %w", errors.New(msg.Error))

		case model.MessageTypeOrderAdded, model.MessageTypeOrderModified, model.MessageTypeOrderRemoved:
			typ, _ := msg.Type.ChangeType()
			var o model.Order
			if err := json.Unmarshal(msg.Order, &o); err != nil {
				c.logger.Printf("[%s] Error parsing order JSON: %v", stationID, err)
				continue
			}
			fn(model.OrderChange{Type: typ, Order: o})

		default:
			c.logger.Printf("[%s] Unknown message type: %s", stationID, msg.Type)
		}
	}
}
