package httpapi

import (
	_ "embed"
	"net/http"
)

// The page posts to /api/convert; it has no assets of its own.
//
//go:embed ui/index.html
var indexPage []byte

func handleIndex(w http.ResponseWriter, r *http.Request) {
	WriteHTML(w, http.StatusOK, indexPage)
}
