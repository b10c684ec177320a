package api

import (
	"net/http"

	"github.com/JaimeStill/pulse/pkg/routes"
)

func registerRoutes(mux *http.ServeMux, domain *Domain) {
	routes.Register(
		mux,
		domain.Signals.Handler().Routes(),
		domain.Issues.Handler().Routes(),
		domain.Inbox.Handler().Routes(),
		domain.Suppression.Handler().Routes(),
	)
}
