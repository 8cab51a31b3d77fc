package api

import (
	"net/http"

	"github.com/lennythecreator/sphinx/pkg/auth"
)

type AuthHandler interface {
	Register(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
}

type AgentsHandler interface {
	List(w http.ResponseWriter, r *http.Request)
}

type StreamHandler interface {
	Stream(w http.ResponseWriter, r *http.Request)
}

// NewRouter assembles the HTTP surface. Registration, login and the advisor
// list are public; the streaming endpoints require a bearer token.
func NewRouter(
	authH AuthHandler,
	agentsH AgentsHandler,
	chatH StreamHandler,
	projectsH StreamHandler,
	verifier auth.TokenVerifier,
) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/register", authH.Register)
	mux.HandleFunc("POST /api/auth/login", authH.Login)
	mux.HandleFunc("GET /api/agents", agentsH.List)

	mux.Handle("POST /api/chat", auth.Middleware(verifier, http.HandlerFunc(chatH.Stream)))
	mux.Handle("POST /api/projects", auth.Middleware(verifier, http.HandlerFunc(projectsH.Stream)))

	return mux
}
