package handler

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// FrontendHandler serves the built single-page app and answers unknown
// API paths with JSON.
type FrontendHandler struct {
	dir string
}

// NewFrontendHandler creates a handler serving files under dir.
func NewFrontendHandler(dir string) *FrontendHandler {
	return &FrontendHandler{dir: dir}
}

// NoRoute is installed as the router fallback.
// Existing files are served as-is; any other path gets index.html so the
// client-side router can take over.
func (h *FrontendHandler) NoRoute(c *gin.Context) {
	reqPath := c.Request.URL.Path
	if reqPath == "/api" || strings.HasPrefix(reqPath, "/api/") {
		respondError(c, http.StatusNotFound, "Not found")
		return
	}
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		respondError(c, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	index := filepath.Join(h.dir, "index.html")
	if !isFile(index) {
		respondError(c, http.StatusNotFound, "Frontend build not found")
		return
	}

	// path.Clean on a rooted path cannot climb above the root
	clean := path.Clean("/" + reqPath)
	if clean != "/" {
		candidate := filepath.Join(h.dir, filepath.FromSlash(clean))
		if isFile(candidate) {
			c.File(candidate)
			return
		}
	}
	c.File(index)
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
