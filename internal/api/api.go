// Package api assembles the API module with all domain systems and route
// registration.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/JaimeStill/pulse/internal/config"
	"github.com/JaimeStill/pulse/internal/infrastructure"
	"github.com/JaimeStill/pulse/pkg/middleware"
	"github.com/JaimeStill/pulse/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, *Domain, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(cfg, runtime)

	mux := http.NewServeMux()
	registerRoutes(mux, domain)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))

	if cfg.API.Auth.Enabled {
		verifier, err := middleware.NewOIDCVerifier(context.Background(), &cfg.API.Auth)
		if err != nil {
			return nil, nil, fmt.Errorf("auth init failed: %w", err)
		}
		m.Use(middleware.Auth(verifier, runtime.Logger))
	}

	// Logger sits inside Auth so request logs carry the verified actor.
	m.Use(middleware.Logger(runtime.Logger))

	return m, domain, nil
}
