package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"iracgo/internal/middleware"
)

func (h *Handler) index(c *gin.Context) {
	h.serveStatic(c, "index.html")
}

// static serves files under staticDir for unmatched GET requests.
func (h *Handler) static(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		h.notFound(c)
		return
	}
	h.serveStatic(c, c.Request.URL.Path)
}

func (h *Handler) serveStatic(c *gin.Context, name string) {
	path, ok := h.resolveStatic(name)
	if !ok {
		h.notFound(c)
		return
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		h.notFound(c)
		return
	}
	c.File(path)
}

// resolveStatic maps a request path onto staticDir, refusing anything that escapes it
// or names a dotfile such as .env.
func (h *Handler) resolveStatic(name string) (string, bool) {
	if h.staticDir == "" || strings.Contains(name, "\x00") {
		return "", false
	}
	root, err := filepath.Abs(h.staticDir)
	if err != nil {
		return "", false
	}
	cleaned := filepath.Clean("/" + filepath.FromSlash(name))
	for _, seg := range strings.Split(cleaned, string(filepath.Separator)) {
		if strings.HasPrefix(seg, ".") {
			return "", false
		}
	}
	full := filepath.Join(root, cleaned)
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return full, true
}

func (h *Handler) notFound(c *gin.Context) {
	middleware.AbortWithError(c, http.StatusNotFound, "not_found", "The requested resource was not found")
}
