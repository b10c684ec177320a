package inbox

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/pulse/pkg/fault"
	"github.com/JaimeStill/pulse/pkg/handlers"
	"github.com/JaimeStill/pulse/pkg/middleware"
	"github.com/JaimeStill/pulse/pkg/pagination"
	"github.com/JaimeStill/pulse/pkg/routes"
)

// Handler provides HTTP endpoints for inbox operations.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// NewHandler creates a Handler with the given system, logger, and pagination config.
func NewHandler(sys System, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "inbox"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for inbox endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/inbox",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "POST", Pattern: "/{id}/actions", Handler: h.Act},
			{Method: "POST", Pattern: "/{id}/read", Handler: h.MarkRead},
			{Method: "POST", Pattern: "/read-all", Handler: h.MarkAllRead},
		},
	}
}

// List returns a filtered page of inbox items with the global counts.
// The counts never vary with the filter.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filters := FiltersFromQuery(r.URL.Query())
	if filters.State != nil {
		if *filters.State == "all" {
			handlers.RespondFault(w, h.logger, fault.New(fault.InvalidParam, "state=all is not a valid filter; omit state instead"))
			return
		}
		if !State(*filters.State).Valid() {
			handlers.RespondFault(w, h.logger, fault.New(fault.InvalidParam, "unknown state filter %q", *filters.State))
			return
		}
	}

	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)

	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns one inbox item with its allowed actions and display severity.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondFault(w, h.logger, fault.New(fault.InvalidParam, "invalid inbox item id"))
		return
	}

	item, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondFault(w, h.logger, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, item)
}

// Act applies one user action to an inbox item.
func (h *Handler) Act(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondFault(w, h.logger, fault.New(fault.InvalidParam, "invalid inbox item id"))
		return
	}

	var cmd ActionCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondFault(w, h.logger, fault.Wrap(fault.InvalidParam, err, "malformed action body"))
		return
	}
	cmd.Actor = middleware.Actor(r.Context())

	item, err := h.sys.Act(r.Context(), id, cmd)
	if err != nil {
		handlers.RespondFault(w, h.logger, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, item)
}

// MarkRead flags one item as read, independent of its lifecycle state.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondFault(w, h.logger, fault.New(fault.InvalidParam, "invalid inbox item id"))
		return
	}

	if err := h.sys.MarkRead(r.Context(), id); err != nil {
		handlers.RespondFault(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MarkAllRead flags every unread proposed item as read.
func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.sys.MarkAllRead(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, map[string]int{"marked": n})
}
