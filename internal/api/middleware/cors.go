package middleware

import (
	"github.com/go-chi/cors"
)

// CORSHandler builds the CORS options for the browser client. Range is
// allowed and the range response headers are exposed so a player on
// another origin can seek in /media; Content-Disposition keeps download
// file names.
func CORSHandler(allowedOrigins []string) cors.Options {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	// credentials cannot be combined with a wildcard origin
	allowCreds := true
	for _, o := range allowedOrigins {
		if o == "*" {
			allowCreds = false
			break
		}
	}

	return cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Range"},
		ExposedHeaders: []string{
			"Content-Length", "Content-Range", "Accept-Ranges", "Content-Disposition",
		},
		AllowCredentials: allowCreds,
		MaxAge:           300,
	}
}
