package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	kerrors "k8s.io/apimachinery/pkg/api/errors"

	"github.com/kubedeployer/kubedeployer/internal/api"
	"github.com/kubedeployer/kubedeployer/pkg/deployer"
)

type server struct {
	engine *deployer.Deployer
}

func (s *server) deploy(w http.ResponseWriter, r *http.Request) {
	var request api.DeployRequestBody
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		api.SendJSONReplyStatus(w, http.StatusBadRequest, api.ErrorResponseBody{Error: fmt.Sprintf("failed to decode request: %v", err)})
		return
	}
	if request.Definition.Name == "" {
		api.SendJSONReplyStatus(w, http.StatusBadRequest, api.ErrorResponseBody{Error: "app definition requires a name"})
		return
	}

	appID, err := s.engine.Deploy(r.Context(), request)
	if err != nil {
		api.SendJSONReplyStatus(w, statusForError(err), api.ErrorResponseBody{Error: err.Error()})
		return
	}

	api.SendJSONReplyStatus(w, http.StatusCreated, api.DeployResponseBody{AppID: appID})
}

func (s *server) status(w http.ResponseWriter, r *http.Request) {
	appID := mux.Vars(r)[api.AppIDPathVar]

	status, err := s.engine.Status(r.Context(), appID)
	if err != nil {
		api.SendJSONReplyStatus(w, http.StatusInternalServerError, api.ErrorResponseBody{Error: err.Error()})
		return
	}
	if status.State() == deployer.StateUnknown {
		api.SendJSONReplyStatus(w, http.StatusNotFound, api.ErrorResponseBody{Error: fmt.Sprintf("app %s not found", appID)})
		return
	}

	api.SendJSONReplyOK(w, status)
}

func (s *server) list(w http.ResponseWriter, r *http.Request) {
	apps, err := s.engine.List(r.Context())
	if err != nil {
		api.SendJSONReplyStatus(w, http.StatusInternalServerError, api.ErrorResponseBody{Error: err.Error()})
		return
	}

	api.SendJSONReplyOK(w, api.ListResponseBody{Apps: apps})
}

func (s *server) undeploy(w http.ResponseWriter, r *http.Request) {
	appID := mux.Vars(r)[api.AppIDPathVar]

	if err := s.engine.Undeploy(r.Context(), appID); err != nil {
		api.SendJSONReplyStatus(w, statusForError(err), api.ErrorResponseBody{Error: err.Error()})
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func statusForError(err error) int {
	var numErr *strconv.NumError
	switch {
	case deployer.IsConflict(err):
		return http.StatusConflict
	case errors.As(err, &numErr):
		return http.StatusBadRequest
	case kerrors.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
