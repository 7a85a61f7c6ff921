package main

import (
	"log/slog"
	"net/http"

	"github.com/adampresley/photoportfolio/pkg/services"
)

/*
newOwnerAccessMiddleware only lets requests through while the owner
is signed in. Everyone else is sent back to the home page.
*/
func newOwnerAccessMiddleware(credentialService services.CredentialServicer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !credentialService.IsAuthorized() {
				slog.Warn("owner route requested without sign in", "path", r.URL.Path)
				http.Redirect(w, r, "/", http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
