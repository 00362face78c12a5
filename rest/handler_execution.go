package rest

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/mohitkumar/funnel/logger"
	"github.com/mohitkumar/funnel/model"
	"go.uber.org/zap"
)

func (s *Server) HandleExecuteFlow(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req model.ExecutionRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(strings.TrimSpace(req.Recipient)) == 0 {
		respondWithError(w, http.StatusBadRequest, "recipient is required")
		return
	}
	if req.Async {
		if err := s.executionService.TriggerAsync(id, req.Recipient, req.Context); err != nil {
			respondWithError(w, statusFor(err), err.Error())
			return
		}
		respondWithJSON(w, http.StatusAccepted, map[string]any{"queued": true})
		return
	}
	res, err := s.executionService.Trigger(r.Context(), id, req.Recipient, req.Context)
	if err != nil {
		logger.Error("error executing flow", zap.String("id", id), zap.Error(err))
		respondWithError(w, statusFor(err), err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}

// HandleReply accepts a reply from a recipient. Without a flow id every run
// waiting on the recipient gets the reply.
func (s *Server) HandleReply(w http.ResponseWriter, r *http.Request) {
	var reply model.InboundReply
	if err := decodeBody(w, r, &reply); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(strings.TrimSpace(reply.Recipient)) == 0 {
		respondWithError(w, http.StatusBadRequest, "recipient is required")
		return
	}
	if len(reply.FlowId) != 0 {
		res, err := s.executionService.HandleReply(r.Context(), reply.FlowId, reply.Recipient, reply.Text)
		if err != nil {
			respondWithError(w, statusFor(err), err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, res)
		return
	}
	results, err := s.executionService.HandleInbound(r.Context(), reply.Recipient, reply.Text)
	if err != nil && len(results) == 0 {
		respondWithError(w, statusFor(err), err.Error())
		return
	}
	if err != nil {
		logger.Error("some sessions failed to resume", zap.String("recipient", reply.Recipient), zap.Error(err))
	}
	respondWithJSON(w, http.StatusOK, results)
}
