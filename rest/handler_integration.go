package rest

import (
	"net/http"

	"github.com/mohitkumar/funnel/model"
)

func (s *Server) HandleGetChannelConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.channelConfigs.GetChannelConfig(r.Context())
	if err != nil {
		respondWithError(w, statusFor(err), err.Error())
		return
	}
	if cfg == nil {
		cfg = &model.ChannelConfig{}
	}
	respondWithJSON(w, http.StatusOK, cfg)
}

func (s *Server) HandleSaveChannelConfig(w http.ResponseWriter, r *http.Request) {
	var cfg model.ChannelConfig
	if err := decodeBody(w, r, &cfg); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.channelConfigs.SaveChannelConfig(r.Context(), cfg); err != nil {
		respondWithError(w, statusFor(err), err.Error())
		return
	}
	respondOK(w, map[string]any{"saved": true})
}
