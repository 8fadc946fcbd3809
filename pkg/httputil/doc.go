// Package httputil provides HTTP handler utilities for consistent error handling,
// JSON encoding/decoding, and request parsing.
//
// Response helpers:
//
//	httputil.WriteSuccess(w, plugins)
//	httputil.WriteError(w, err) // status chosen from the ofx.Kind
//
// Route and query parameters (gorilla/mux):
//
//	p := httputil.NewParams(r)
//	id, major := p.String("id"), p.Version("major")
//	if !p.OK(w) {
//		return
//	}
//
// Middleware:
//
//	router.Use(httputil.RequestIDMiddleware)
//	router.Use(httputil.LoggingMiddleware(log))
//	router.Use(httputil.RecoveryMiddleware(log))
package httputil
