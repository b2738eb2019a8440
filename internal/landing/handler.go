// Package landing serves the static informational pages of the portal.
package landing

import (
	"log/slog"
	"net/http"
	"time"

	"scholarship-portal/internal/flash"
	"scholarship-portal/internal/web"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	renderer *web.Renderer
	content  Content
	clock    func() time.Time
	logger   *slog.Logger
}

func NewHandler(renderer *web.Renderer, content Content, clock func() time.Time, logger *slog.Logger) *Handler {
	if clock == nil {
		clock = time.Now
	}
	return &Handler{
		renderer: renderer,
		content:  content,
		clock:    clock,
		logger:   logger,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Home)
	r.Get("/login", h.Login)
}

func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	content := h.content
	content.Year = h.clock().Year()

	h.renderer.Render(w, r, http.StatusOK, "landing", web.Page{
		Title:  content.Heading,
		Notice: readNotice(w, r),
		Data:   content,
	})
}

// Login is the placeholder destination the signup flow navigates to.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	h.logger.DebugContext(r.Context(), "login placeholder requested")
	h.renderer.Render(w, r, http.StatusOK, "login", web.Page{
		Title:  "Sign in",
		Notice: readNotice(w, r),
	})
}

func readNotice(w http.ResponseWriter, r *http.Request) *flash.Notice {
	if notice, ok := flash.ReadAndClear(w, r); ok {
		return &notice
	}
	return nil
}
