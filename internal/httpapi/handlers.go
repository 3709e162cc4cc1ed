package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"strings"

	"panelbot/internal/apperrors"
	"panelbot/internal/feature/user"
	"panelbot/web"
)

type errorResponse struct {
	Error string `json:"error"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

func (a *api) handleBanner(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(Banner))
}

func (a *api) handleUserPage(w http.ResponseWriter, r *http.Request) {
	a.servePage(w, r, web.UserPage)
}

func (a *api) handleAdminPage(w http.ResponseWriter, r *http.Request) {
	a.servePage(w, r, web.AdminPage)
}

func (a *api) servePage(w http.ResponseWriter, r *http.Request, name string) {
	body, err := fs.ReadFile(a.pages, name)
	if err != nil {
		requestLog(a.logger, r, "page_missing").
			WithField("page", name).
			WithError(err).Error("failed to read panel page")
		http.Error(w, "page unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(body)
}

func (a *api) handleRegister(w http.ResponseWriter, r *http.Request) {
	if a.users == nil {
		a.writeError(w, r, errors.New("user service is not configured"))
		return
	}

	req, err := decodeRegisterRequest(w, r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	if _, err := a.users.Register(r.Context(), req); err != nil {
		a.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (a *api) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if a.users == nil {
		a.writeError(w, r, errors.New("user service is not configured"))
		return
	}

	users, err := a.users.List(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, users)
}

func (a *api) handleStats(w http.ResponseWriter, r *http.Request) {
	if a.stats == nil {
		a.writeError(w, r, fmt.Errorf("stats: %w", apperrors.ErrNotFound))
		return
	}

	stats, err := a.stats.Stats(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// decodeRegisterRequest accepts JSON and urlencoded form bodies.
func decodeRegisterRequest(w http.ResponseWriter, r *http.Request) (user.RegisterRequest, error) {
	var req user.RegisterRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		parse := r.ParseForm
		if mediaType == "multipart/form-data" {
			parse = func() error { return r.ParseMultipartForm(maxBodyBytes) }
		}
		if err := parse(); err != nil {
			return req, fmt.Errorf("%w: malformed form body", apperrors.ErrBadRequest)
		}
		if err := req.UserID.UnmarshalText([]byte(r.PostFormValue("user_id"))); err != nil {
			return req, fmt.Errorf("%w: %v", apperrors.ErrBadRequest, err)
		}
		req.Name = r.PostFormValue("name")
	default:
		dec := json.NewDecoder(r.Body)
		if err := dec.Decode(&req); err != nil {
			return req, fmt.Errorf("%w: malformed JSON body: %v", apperrors.ErrBadRequest, err)
		}
		// The body must hold exactly one JSON value.
		if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
			return req, fmt.Errorf("%w: malformed JSON body: unexpected data after JSON value", apperrors.ErrBadRequest)
		}
	}

	return req, nil
}

func (a *api) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, apperrors.ErrBadRequest):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: clientMessage(err)})
	case errors.Is(err, apperrors.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Unauthorized"})
	case errors.Is(err, apperrors.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	default:
		requestLog(a.logger, r, "api_error").
			WithField("path", r.URL.Path).
			WithError(err).Error("request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// clientMessage strips the wrapping prefix so only the validation detail is
// returned to callers.
func clientMessage(err error) string {
	msg := err.Error()
	if idx := strings.Index(msg, apperrors.ErrBadRequest.Error()+": "); idx >= 0 {
		return msg[idx+len(apperrors.ErrBadRequest.Error())+2:]
	}
	return msg
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
