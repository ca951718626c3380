package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"vidiooh/internal/artifact"

	"github.com/rs/zerolog"
)

// ArtifactHandler serves transcoded outputs by token. The token itself is
// the credential: it is an unguessable UUID handed out only in the
// conversion response, so these routes carry no auth middleware and work
// from plain download links.
type ArtifactHandler struct {
	store  *artifact.Store
	logger zerolog.Logger
}

// NewArtifactHandler creates a new ArtifactHandler.
func NewArtifactHandler(store *artifact.Store, logger zerolog.Logger) *ArtifactHandler {
	return &ArtifactHandler{store: store, logger: logger}
}

// RegisterRoutes mounts artifact routes
func (h *ArtifactHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/artifacts/", http.HandlerFunc(h.download))
}

// download godoc
// @Summary Download a conversion artifact
// @Description Streams the encoded video for a local artifact token. Tokens expire with the artifact TTL.
// @Tags artifacts
// @Produce video/mp4
// @Param token path string true "Artifact token"
// @Success 200 {file} file "encoded video"
// @Failure 410 {string} string "artifact expired or unknown"
// @Router /artifacts/{token} [get]
func (h *ArtifactHandler) download(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	token := strings.TrimPrefix(r.URL.Path, "/artifacts/")
	if token == "" {
		http.NotFound(w, r)
		return
	}
	entry, err := h.store.Get(token)
	if err != nil {
		if errors.Is(err, artifact.ErrExpired) {
			http.Error(w, "artifact expired or unknown", http.StatusGone)
			return
		}
		h.logger.Error().Err(err).Msg("Artifact lookup failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Length", strconv.FormatInt(entry.Size, 10))
	w.Header().Set("Content-Disposition", `attachment; filename="`+entry.Name+`"`)
	http.ServeFile(w, r, entry.Path)
}
