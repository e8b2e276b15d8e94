package httpapi

import (
	"context"

	"github.com/gofiber/websocket/v2"

	"github.com/marketpulse/core/internal/model"
)

// wsSink adapts a fiber websocket connection to hub.Sink. Writes are
// serialized by the hub's single per-subscriber drain goroutine, so no
// additional locking is needed here.
type wsSink struct {
	conn *websocket.Conn
}

func newWSSink(conn *websocket.Conn) *wsSink {
	return &wsSink{conn: conn}
}

func (w *wsSink) Send(_ context.Context, frame model.Frame) error {
	return w.conn.WriteJSON(frame)
}
