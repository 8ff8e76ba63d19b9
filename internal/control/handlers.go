package control

import (
	"context"
	"net/http"

	"github.com/netkit-project/netkit/api"
	"github.com/netkit-project/netkit/internal/topology"
)

// withDeadline bounds a control-plane mutation to the configured control
// deadline (default 10s), per spec.md §5. The exec verb gets the same
// treatment in exec.go.
func (s *Server) withDeadline(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.cfg.CommandDeadline)
}

func (s *Server) handleAddDevice(w http.ResponseWriter, r *http.Request) {
	var req api.AddDeviceRequest
	if err := parseRequest(r, &req); err != nil {
		sendError(w, err)
		return
	}

	ctx, cancel := s.withDeadline(r)
	defer cancel()

	dev, err := s.topo.AddDevice(ctx, req.Name, topology.DeviceKind(req.Kind), req.X, req.Y)
	if err != nil {
		sendError(w, err)
		return
	}
	sendResponse(w, api.SnapshotDevice{Name: dev.Name, Kind: string(dev.Kind), X: dev.Position.X, Y: dev.Position.Y})
}

func (s *Server) handleRemoveDevice(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	ctx, cancel := s.withDeadline(r)
	defer cancel()

	if err := s.topo.RemoveDevice(ctx, name); err != nil {
		sendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	view, err := s.topo.Inspect(name)
	if err != nil {
		sendError(w, err)
		return
	}

	ifaces := make([]api.IfaceView, 0, len(view.Interfaces))
	for _, ifc := range view.Interfaces {
		ifaces = append(ifaces, api.IfaceView{Name: ifc.Name, Addr: ifc.Addr, Up: ifc.Up})
	}
	failures := make([]api.FailureView, 0, len(view.Failures))
	for _, f := range view.Failures {
		failures = append(failures, api.FailureView{Kind: string(f.Kind), Iface: f.Iface})
	}

	sendResponse(w, api.DeviceView{
		Name: view.Name, Kind: string(view.Kind), Gateway: view.Gateway,
		Forwarding: view.Forwarding, Interfaces: ifaces, Failures: failures,
	})
}

func (s *Server) handleSetGateway(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var req api.SetGatewayRequest
	if err := parseRequest(r, &req); err != nil {
		sendError(w, err)
		return
	}

	ctx, cancel := s.withDeadline(r)
	defer cancel()

	if err := s.topo.SetGateway(ctx, name, req.Gateway); err != nil {
		sendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleInjectFailure(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var req api.FailureRequest
	if err := parseRequest(r, &req); err != nil {
		sendError(w, err)
		return
	}

	ctx, cancel := s.withDeadline(r)
	defer cancel()

	if err := s.topo.InjectFailure(ctx, name, topology.FailureKind(req.Kind), req.Iface, req.Params); err != nil {
		sendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearFailure(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	kind := r.PathValue("kind")
	iface := r.URL.Query().Get("iface")

	ctx, cancel := s.withDeadline(r)
	defer cancel()

	if err := s.topo.ClearFailure(ctx, name, topology.FailureKind(kind), iface); err != nil {
		sendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddLink(w http.ResponseWriter, r *http.Request) {
	var req api.AddLinkRequest
	if err := parseRequest(r, &req); err != nil {
		sendError(w, err)
		return
	}

	ctx, cancel := s.withDeadline(r)
	defer cancel()

	link, err := s.topo.AddLink(ctx, req.DeviceA, req.DeviceB, req.LatencyMS, req.BandwidthMbps, req.LossPct)
	if err != nil {
		sendError(w, err)
		return
	}
	sendResponse(w, linkToWire(link))
}

func (s *Server) handleRemoveLink(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	ctx, cancel := s.withDeadline(r)
	defer cancel()

	if err := s.topo.RemoveLink(ctx, id); err != nil {
		sendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := s.topo.Snapshot()

	devices := make([]api.SnapshotDevice, 0, len(snap.Devices))
	for _, d := range snap.Devices {
		devices = append(devices, api.SnapshotDevice{Name: d.Name, Kind: string(d.Kind), X: d.Position.X, Y: d.Position.Y})
	}
	links := make([]api.LinkResponse, 0, len(snap.Links))
	for _, l := range snap.Links {
		links = append(links, linkToWire(&l))
	}

	sendResponse(w, api.SnapshotResponse{Devices: devices, Links: links})
}

func linkToWire(l *topology.Link) api.LinkResponse {
	return api.LinkResponse{
		ID: l.ID, DeviceA: l.DevA, IfaceA: l.IfaceA, DeviceB: l.DevB, IfaceB: l.IfaceB,
		Subnet: l.Subnet, Switched: l.Switched,
	}
}
