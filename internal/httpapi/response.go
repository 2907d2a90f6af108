// Package httpapi exposes component external interfaces of spec.md §6 over
// HTTP: the room/event/agent/edition/change CRUD surface, rendered with the
// same util.JSONResponse convention the teacher's clientapi/routing package
// uses, and the {status,kind,title,detail} error envelope of spec.md §6/§7.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/matrix-org/util"
	"github.com/sirupsen/logrus"

	"github.com/foxford/eventd/internal/apierrors"
)

// apiHandler is the handler shape every route in this package is written
// against, mirroring clientapi/routing's `func(*http.Request) util.JSONResponse`
// convention: a handler returns the response to write rather than writing it
// itself, so error translation and logging happen in one place.
type apiHandler func(req *http.Request) util.JSONResponse

// wrap adapts an apiHandler into an http.Handler, writing the JSON body and
// recovering from handler panics the way the teacher's internal.MakeExternalAPI
// does.
func wrap(name string, h apiHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logrus.WithField("route", name).WithField("panic", rec).Error("httpapi: handler panicked")
				writeJSON(w, http.StatusInternalServerError, apierrors.New(apierrors.KindDBQueryFailed, "internal error").ToEnvelope())
			}
		}()
		res := h(req)
		writeJSON(w, res.Code, res.JSON)
	})
}

// errorResponse renders err as the closed-vocabulary envelope of spec.md §6,
// recovering a *apierrors.Error from the chain if present and otherwise
// falling back to a generic internal error.
func errorResponse(err error) util.JSONResponse {
	if apiErr, ok := apierrors.As(err); ok {
		return util.JSONResponse{Code: apiErr.Status(), JSON: apiErr.ToEnvelope()}
	}
	env := apierrors.New(apierrors.KindDBQueryFailed, err.Error()).ToEnvelope()
	return util.JSONResponse{Code: http.StatusInternalServerError, JSON: env}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeBody parses the request body into v, returning an invalid_payload
// apierror on failure (spec.md §6 error kind `invalid_payload`).
func decodeBody(req *http.Request, v interface{}) error {
	if req.Body == nil {
		return apierrors.New(apierrors.KindInvalidPayload, "missing request body")
	}
	defer req.Body.Close()
	dec := json.NewDecoder(req.Body)
	if err := dec.Decode(v); err != nil {
		return apierrors.New(apierrors.KindInvalidPayload, err.Error())
	}
	return nil
}
