package control

import (
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/netkit-project/netkit/api"
)

// handleTerminalWS serves /ws/terminal/{device}: one channel binds to one
// PTY session, per spec.md §6. The channel_id query parameter selects
// which session to attach (or create); rows/cols seed the initial size.
func (s *Server) handleTerminalWS(w http.ResponseWriter, r *http.Request) {
	device := r.PathValue("device")
	channelID := r.URL.Query().Get("channel_id")
	if channelID == "" {
		channelID = "default"
	}
	rows, cols := 24, 80

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	out, err := s.topo.AttachTerminal(device, channelID, rows, cols)
	if err != nil {
		conn.Close(websocket.StatusInternalError, err.Error())
		return
	}
	defer s.topo.DetachTerminal(device, channelID)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for chunk := range out {
			if err := conn.Write(ctx, websocket.MessageBinary, chunk); err != nil {
				return
			}
		}
	}()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			break
		}
		var frame api.TerminalFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		switch frame.Type {
		case "input":
			_ = s.topo.WriteTerminal(device, channelID, []byte(frame.Data))
		case "resize":
			_ = s.topo.ResizeTerminal(device, channelID, frame.Rows, frame.Cols)
		}
	}

	<-done
	conn.Close(websocket.StatusNormalClosure, "")
}
