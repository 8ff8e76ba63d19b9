package control

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/coder/websocket"
	"github.com/netkit-project/netkit/api"
)

// handlePacketsWS serves /ws/packets: every subscriber joins the single
// global packet fan-out, per spec.md §4.7. Clients send nothing meaningful;
// any inbound frame is treated as a heartbeat and discarded.
func (s *Server) handlePacketsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	events, dropped, cancel := s.topo.SubscribePackets(s.cfg.PacketQueueSize)
	defer cancel()

	go func() {
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	var seq uint64
	for ev := range events {
		seq++
		view := api.PacketEventView{
			Seq:           seq,
			Dropped:       atomic.LoadUint64(dropped),
			TimeUnixMicro: ev.Time.UnixMicro(),
			Device:        ev.Device,
			Iface:         ev.Iface,
			Protocol:      string(ev.Protocol),
			Subtag:        ev.Subtag,
			Src:           ev.Src,
			Dst:           ev.Dst,
			SrcPort:       ev.SrcPort,
			DstPort:       ev.DstPort,
			TTL:           ev.TTL,
			Length:        ev.Length,
			Summary:       ev.Summary,
		}
		data, err := json.Marshal(view)
		if err != nil {
			continue
		}
		if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
			return
		}
	}
}
