package auth

import (
	"encoding/json"
	"io"
	"net/http"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-poto/core"
)

// visitorLoginRequest is §4.5's optional POST /login/visitor body.
type visitorLoginRequest struct {
	VisitorID       string `json:"visitorId"`
	VisitorPassword string `json:"visitorPassword"`
}

type visitorLoginResponse struct {
	UserID   string `json:"userId"`
	Token    string `json:"token"`
	Password string `json:"password,omitempty"`
}

type loginRequest struct {
	UserID   string `json:"userId"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Handler mounts the Auth Frontend's two HTTP endpoints (§6): POST
// /login/visitor and POST /login. It satisfies http.Handler the same way
// dispatch.Dispatcher does, so both can sit on one *http.ServeMux.
type Handler struct {
	Service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/login/visitor":
		h.serveLoginVisitor(w, r)
	case "/login":
		h.serveLogin(w, r)
	default:
		writeAuthError(w, errAuthRouteNotFound(r.URL.Path))
	}
}

func (h *Handler) serveLoginVisitor(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeAuthError(w, errAuthMethodNotAllowed(r.Method))
		return
	}
	var req visitorLoginRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeAuthError(w, errMalformedLoginBody(err))
		return
	}
	result, err := h.Service.LoginVisitor(r.Context(), req.VisitorID, req.VisitorPassword)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	writeAuthJSON(w, http.StatusOK, visitorLoginResponse{
		UserID:   result.UserID,
		Token:    result.Token,
		Password: result.Password,
	})
}

func (h *Handler) serveLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeAuthError(w, errAuthMethodNotAllowed(r.Method))
		return
	}
	var req loginRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeAuthError(w, errMalformedLoginBody(err))
		return
	}
	token, err := h.Service.Login(r.Context(), req.UserID, req.Password)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	writeAuthJSON(w, http.StatusOK, loginResponse{Token: token})
}

func decodeJSONBody(r *http.Request, dest any) error {
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, dest)
}

func writeAuthJSON(w http.ResponseWriter, status int, body any) {
	encoded, err := json.Marshal(body)
	if err != nil {
		writeAuthError(w, errTokenIssuance(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(encoded)
}

// writeAuthError renders §7's "401 with a short text body naming the
// cause" rule: a plain JSON {message, textCode} body, not the Typed-Codec
// envelope the Dispatcher uses for RPC calls, since these two endpoints sit
// outside the <handler>/<method> surface.
func writeAuthError(w http.ResponseWriter, err error) {
	var richErr *goerrors.Error
	status := http.StatusInternalServerError
	textCode := core.ServiceErrorInternal
	message := "internal error"
	if goerrors.As(err, &richErr) && richErr != nil {
		if richErr.Code != 0 {
			status = richErr.Code
		}
		if richErr.TextCode != "" {
			textCode = richErr.TextCode
		}
		if richErr.Message != "" {
			message = richErr.Message
		}
	} else if err != nil {
		message = err.Error()
	}
	writeAuthJSONStatus(w, status, map[string]string{"message": message, "textCode": textCode})
}

func writeAuthJSONStatus(w http.ResponseWriter, status int, body any) {
	encoded, err := json.Marshal(body)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err != nil {
		_, _ = w.Write([]byte(`{"message":"internal error","textCode":"internal"}`))
		return
	}
	_, _ = w.Write(encoded)
}
