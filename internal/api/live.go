package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/pagepilot/pagepilot/pkg/models"
)

// liveFrameInterval paces the live-view screenshot stream.
const liveFrameInterval = time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Live handles GET /v1/sessions/{id}/live: a websocket that streams PNG
// frames of the session's tab until the client disconnects or the session
// goes away. Frames go through the executor, so they serialize with any
// concurrent actions on the session.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if _, err := h.registry.Get(id); err != nil {
		writeError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("live: upgrade failed for session %s: %v", id, err)
		return
	}
	defer conn.Close()

	// Drain client messages so close frames are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(liveFrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			sess, err := h.registry.Get(id)
			if err != nil {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
					time.Now().Add(time.Second))
				return
			}

			res, err := h.exec.Execute(r.Context(), sess, models.Action{Type: models.ActionScreenshot})
			if err != nil {
				log.Printf("live: screenshot for session %s: %v", id, err)
				// A dead tab ends the stream; the next tick's Get sends
				// the close frame.
				h.closeOnDriverFailure(sess, err)
				continue
			}

			if err := conn.WriteMessage(websocket.BinaryMessage, res.Data); err != nil {
				return
			}
		}
	}
}
