package control

import (
	"net/http"

	"github.com/netkit-project/netkit/api"
	"github.com/netkit-project/netkit/internal/apierr"
)

func (s *Server) handleExec(w http.ResponseWriter, r *http.Request) {
	if !s.limit.Allow() {
		sendError(w, apierr.New(apierr.ResourceExhausted, "command-execution rate limit exceeded"))
		return
	}

	name := r.PathValue("name")
	var req api.CommandExecRequest
	if err := parseRequest(r, &req); err != nil {
		sendError(w, err)
		return
	}

	ctx, cancel := s.withDeadline(r)
	defer cancel()

	res, err := s.topo.ExecCommand(ctx, name, req.Argv)
	if err != nil {
		sendError(w, err)
		return
	}
	sendResponse(w, api.CommandExecResponse{ExitCode: res.ExitCode, Stdout: res.Stdout, Stderr: res.Stderr})
}
