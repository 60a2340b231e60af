package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/John-Robertt/vless2clash/internal/uuidgen"
)

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	WriteText(w, http.StatusOK, "ok\n")
}

func (s *server) handleIPLookup(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ip, err := singleQuery(q, "ip", false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opt.IPLookupTimeout)
	defer cancel()

	info, err := s.ip.Lookup(ctx, ip)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	WriteJSON(w, http.StatusOK, info)
}

type uuidResponse struct {
	UUIDs []string `json:"uuids"`
}

func (s *server) handleUUID(w http.ResponseWriter, r *http.Request) {
	raw, err := singleQuery(r.URL.Query(), "count", false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	n := 1
	if raw = strings.TrimSpace(raw); raw != "" {
		n, err = strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, r, requestError("INVALID_ARGUMENT", "count must be an integer", "expected: 1..100"))
			return
		}
	}
	w.Header().Set("Cache-Control", "no-store")
	WriteJSON(w, http.StatusOK, uuidResponse{UUIDs: uuidgen.Generate(n)})
}
