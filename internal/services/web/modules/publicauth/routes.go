package publicauth

import (
	"net/http"

	"github.com/louisbranch/babylon-auth/internal/services/web/routepath"
)

func registerRoutes(mux *http.ServeMux, h handlers) {
	if mux == nil {
		return
	}
	mux.HandleFunc(http.MethodGet+" "+routepath.RootPattern, h.handleAuthPage)
	mux.HandleFunc(http.MethodPost+" "+routepath.RootPattern, h.handleSubmit)
}
