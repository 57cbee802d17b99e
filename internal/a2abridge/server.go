package a2abridge

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"trpc.group/trpc-go/trpc-a2a-go/server"
	"trpc.group/trpc-go/trpc-a2a-go/taskmanager"

	"github.com/mkraev/courseforge/internal/chatlog"
)

// Server hosts the A2A card and JSON-RPC endpoint. trpc-a2a-go owns its own
// mux, so the server listens on an internal loopback port and the public
// router re-exposes it under RPCPath via ProxyHandler.
type Server struct {
	srv *server.A2AServer
}

// NewServer wires the A2A protocol stack around the chat service. A nil
// transcript logger disables transcripts.
func NewServer(card server.AgentCard, asker Asker, transcripts chatlog.Logger) (*Server, error) {
	if transcripts == nil {
		transcripts = chatlog.Nop()
	}

	tm, err := taskmanager.NewMemoryTaskManager(&processor{chat: asker, transcripts: transcripts})
	if err != nil {
		return nil, fmt.Errorf("create task manager: %w", err)
	}
	srv, err := server.NewA2AServer(card, tm)
	if err != nil {
		return nil, fmt.Errorf("create a2a server: %w", err)
	}
	return &Server{srv: srv}, nil
}

// Start serves on addr and blocks until Stop is called.
func (s *Server) Start(addr string) error {
	return s.srv.Start(addr)
}

// Stop shuts the listener down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Stop(ctx)
}

// ProxyHandler forwards the public RPCPath subtree to the internal A2A
// listener, trimming the prefix so the library sees the paths it mounted.
func ProxyHandler(internalAddr string) http.Handler {
	target := &url.URL{Scheme: "http", Host: internalAddr}
	proxy := &httputil.ReverseProxy{
		Director: func(r *http.Request) {
			r.URL.Scheme = target.Scheme
			r.URL.Host = target.Host
			r.URL.Path = strings.TrimPrefix(r.URL.Path, RPCPath)
			if r.URL.Path == "" {
				r.URL.Path = "/"
			}
			r.Host = target.Host
		},
	}
	return proxy
}
