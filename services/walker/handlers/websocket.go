package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/AleutianAI/reverie/services/walker/datatypes"
	"github.com/AleutianAI/reverie/services/walker/history"
	"github.com/AleutianAI/reverie/services/walker/observability"
	"github.com/AleutianAI/reverie/services/walker/walk"
)

// WSWalkFrame is one message pushed to a streaming walk client.
//
// Type is "progress" while the walk advances, then "result" with the
// final payload, or "error" when the request itself was unusable.
type WSWalkFrame struct {
	Type     string                `json:"type"`
	Progress *walk.Progress        `json:"progress,omitempty"`
	WalkID   string                `json:"walk_id,omitempty"`
	Result   *walk.GraphWalkResult `json:"result,omitempty"`
	Error    string                `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,
}

func sendJSON(ws *websocket.Conn, v interface{}) error {
	err := ws.WriteJSON(v)
	if err != nil {
		slog.Warn("Failed to write WebSocket JSON", "error", err)
	}
	return err
}

// HandleWalkStream runs walks over a websocket, pushing one progress
// frame per depth level and a final result frame per request. The client
// may send any number of walk requests over one connection.
func HandleWalkStream(walker *walk.Walker, journal *history.Journal) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("failed to upgrade the websocket", "error", err)
			return
		}
		defer ws.Close()
		slog.Info("Walk stream client connected")

		if m := observability.DefaultMetrics; m != nil {
			m.StreamStarted()
			defer m.StreamEnded()
		}

		for {
			var req datatypes.WalkRequest
			if err := ws.ReadJSON(&req); err != nil {
				slog.Info("Walk stream client disconnected", "error", err.Error())
				break
			}

			if err := req.Validate(); err != nil {
				slog.Warn("Walk stream request validation failed", "error", err)
				if sendJSON(ws, WSWalkFrame{Type: "error", Error: "invalid request: validation failed"}) != nil {
					return
				}
				continue
			}

			ctx := c.Request.Context()

			// Progress callbacks arrive on the walking goroutine, so
			// frames go out in depth order without extra locking.
			onProgress := func(p walk.Progress) {
				frame := p
				_ = sendJSON(ws, WSWalkFrame{Type: "progress", Progress: &frame})
			}

			opts := tuningOptions(req.UserID, req.Character, req.MaxDepth, req.MaxNodes, req.Serendipity, req.MinScore)
			opts = append(opts, walk.WithProgress(onProgress))
			result := walker.Explore(ctx, req.Seeds, opts...)

			walkID := journalWalk(ctx, journal, history.Entry{
				Kind:      string(observability.KindWalk),
				UserID:    req.UserID,
				Character: req.Character,
				Stats:     result.Stats,
			})
			recordWalkMetrics(observability.KindWalk, len(result.Nodes), result.Stats)

			if sendJSON(ws, WSWalkFrame{Type: "result", WalkID: walkID, Result: result}) != nil {
				return
			}
		}
	}
}
