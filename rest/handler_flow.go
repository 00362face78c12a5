package rest

import (
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/mohitkumar/funnel/flow"
	"github.com/mohitkumar/funnel/logger"
	"github.com/mohitkumar/funnel/model"
	"go.uber.org/zap"
)

func (s *Server) HandleListFlows(w http.ResponseWriter, r *http.Request) {
	flows, err := s.flowService.List(r.Context())
	if err != nil {
		respondWithError(w, statusFor(err), err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, flows)
}

func (s *Server) HandleCreateFlow(w http.ResponseWriter, r *http.Request) {
	var fl model.Flow
	if err := decodeBody(w, r, &fl); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := s.flowService.Create(r.Context(), fl)
	if err != nil {
		respondWithError(w, statusFor(err), "error creating flow")
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (s *Server) HandleGetFlow(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	fl, err := s.flowService.Get(r.Context(), id)
	if err != nil {
		logger.Info("flow does not exist", zap.String("id", id))
		respondWithError(w, statusFor(err), err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, fl)
}

func (s *Server) HandleUpdateFlow(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var fl model.Flow
	if err := decodeBody(w, r, &fl); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := s.flowService.Update(r.Context(), id, fl)
	if err != nil {
		respondWithError(w, statusFor(err), err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (s *Server) HandleDeleteFlow(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.flowService.Delete(r.Context(), id); err != nil {
		respondWithError(w, statusFor(err), err.Error())
		return
	}
	respondOK(w, map[string]any{"deleted": true})
}

func (s *Server) HandleDuplicateFlow(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	dup, err := s.flowService.Duplicate(r.Context(), id)
	if err != nil {
		respondWithError(w, statusFor(err), err.Error())
		return
	}
	respondWithJSON(w, http.StatusCreated, dup)
}

func (s *Server) HandleExportFlow(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	file, err := s.flowService.Export(r.Context(), id)
	if err != nil {
		respondWithError(w, statusFor(err), err.Error())
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="flow-`+id+`.json"`)
	respondWithJSON(w, http.StatusOK, file)
}

func (s *Server) HandleImportFlow(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MAX_BODY_BYTES))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	format := flow.ToFormat(r.URL.Query().Get("format"))
	if len(format) == 0 && strings.Contains(r.Header.Get("Content-Type"), "yaml") {
		format = flow.YAML_FORMAT
	}
	imported, err := s.flowService.Import(r.Context(), data, format)
	if err != nil {
		respondWithError(w, statusFor(err), err.Error())
		return
	}
	respondWithJSON(w, http.StatusCreated, imported)
}

func (s *Server) HandleValidateFlow(w http.ResponseWriter, r *http.Request) {
	var req model.ValidationRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, s.flowService.Validate(req.Steps, req.Links))
}
