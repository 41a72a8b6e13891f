package api

import (
	"net/http"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type Route struct {
	Name        string
	Method      string
	Pattern     string
	HandlerFunc http.HandlerFunc
}

func NewRouter(routes []Route) *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	for _, route := range routes {
		router.
			Methods(route.Method).
			Path(route.Pattern).
			Name(route.Name).
			Handler(logged(route.Name, route.HandlerFunc))
	}
	return router
}

func logged(name string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debugf("handling %s %s (%s)", r.Method, r.URL.Path, name)
		handler(w, r)
	}
}

func SendJSONReplyOK(w http.ResponseWriter, replyContent any) {
	SendJSONReplyStatus(w, http.StatusOK, replyContent)
}

func SendJSONReplyStatus(w http.ResponseWriter, status int, replyContent any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(replyContent); err != nil {
		log.Errorf("failed to encode reply: %v", err)
	}
}
