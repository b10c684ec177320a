package issues

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

// Handler provides HTTP endpoints for issue operations.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// SearchRequest combines pagination and filter criteria for the search endpoint.
type SearchRequest struct {
	pagination.PageRequest
	Filters
}

// NewHandler creates a Handler with the given system, logger, and pagination config.
func NewHandler(sys System, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "issues"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for issue endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/issues",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "GET", Pattern: "/{id}/transitions", Handler: h.Transitions},
			{Method: "POST", Pattern: "/search", Handler: h.Search},
			{Method: "POST", Pattern: "/{id}/actions", Handler: h.Act},
		},
	}
}

// List returns a paginated list of issues. Detected issues are excluded
// unless a state filter names them; state=all is rejected.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filters := FiltersFromQuery(r.URL.Query())
	if err := validateStateFilter(filters.State); err != nil {
		handlers.RespondFault(w, h.logger, err)
		return
	}

	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)

	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns one issue with its allowed-action set.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondFault(w, h.logger, fault.New(fault.InvalidParam, "invalid issue id"))
		return
	}

	issue, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondFault(w, h.logger, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, issue)
}

// Transitions returns the append-only audit trail for an issue.
func (h *Handler) Transitions(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondFault(w, h.logger, fault.New(fault.InvalidParam, "invalid issue id"))
		return
	}

	entries, err := h.sys.Transitions(r.Context(), id)
	if err != nil {
		handlers.RespondFault(w, h.logger, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, entries)
}

// Search accepts a JSON body with pagination and filter criteria.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondFault(w, h.logger, fault.Wrap(fault.InvalidParam, err, "malformed search body"))
		return
	}

	if err := validateStateFilter(req.State); err != nil {
		handlers.RespondFault(w, h.logger, err)
		return
	}

	req.PageRequest.Normalize(h.pagination)

	result, err := h.sys.List(r.Context(), req.PageRequest, req.Filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Act applies one user action to an issue. The actor comes from the
// authenticated request context, never the payload.
func (h *Handler) Act(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondFault(w, h.logger, fault.New(fault.InvalidParam, "invalid issue id"))
		return
	}

	var cmd ActionCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondFault(w, h.logger, fault.Wrap(fault.InvalidParam, err, "malformed action body"))
		return
	}
	cmd.Actor = middleware.Actor(r.Context())

	issue, err := h.sys.Act(r.Context(), id, cmd)
	if err != nil {
		handlers.RespondFault(w, h.logger, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, issue)
}

// validateStateFilter rejects wildcard and unknown state filters. Listing
// every state is expressed by omitting the filter, never by state=all.
func validateStateFilter(state *string) error {
	if state == nil {
		return nil
	}
	if *state == "all" {
		return fault.New(fault.InvalidParam, "state=all is not a valid filter; omit state instead")
	}

	s := State(*state)
	if !s.Persistable() {
		return fault.New(fault.InvalidParam, "unknown state filter %q", *state)
	}
	return nil
}
