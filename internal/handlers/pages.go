package handlers

import (
	"net/http"
)

// PageData contains common data for all pages
type PageData struct {
	Title string
	Depot string
}

// HandleIndexPage handles GET /
func (h *Handler) HandleIndexPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	data := PageData{
		Title: "Tour Planner",
		Depot: h.Planner.Depot(),
	}
	if err := h.Templates.ExecuteTemplate(w, "index.html", data); err != nil {
		h.logger(r).Error("Template execute error", "template", "index.html", "err", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
