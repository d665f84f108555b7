package handler

import "net/http"

// chiRouter is the part of chi.Router the handlers register on.
type chiRouter interface {
	Get(pattern string, handlerFn http.HandlerFunc)
	Method(method, pattern string, handler http.Handler)
}
