package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/mohitkumar/funnel/analytics"
	"github.com/mohitkumar/funnel/channel"
	"github.com/mohitkumar/funnel/flow"
	"github.com/mohitkumar/funnel/logger"
	"github.com/mohitkumar/funnel/metadata"
	"github.com/mohitkumar/funnel/persistence"
	"github.com/mohitkumar/funnel/service"
	"go.uber.org/zap"
)

const MAX_BODY_BYTES = 5 << 20

type Server struct {
	http.Server
	Port             int
	flowService      *metadata.FlowService
	executionService *service.ExecutionService
	channelConfigs   persistence.ChannelConfigDao
	events           *analytics.Broadcaster
}

func NewServer(httpPort int, flowService *metadata.FlowService, executionService *service.ExecutionService, channelConfigs persistence.ChannelConfigDao, events *analytics.Broadcaster) (*Server, error) {
	s := &Server{
		Server: http.Server{
			Addr:        fmt.Sprintf(":%d", httpPort),
			IdleTimeout: 2 * time.Second,
		},
		flowService:      flowService,
		executionService: executionService,
		channelConfigs:   channelConfigs,
		events:           events,
		Port:             httpPort,
	}

	router := mux.NewRouter()
	router.HandleFunc("/flows", s.HandleListFlows).Methods(http.MethodGet)
	router.HandleFunc("/flows", s.HandleCreateFlow).Methods(http.MethodPost)
	router.HandleFunc("/flows/import", s.HandleImportFlow).Methods(http.MethodPost)
	router.HandleFunc("/flows/validate", s.HandleValidateFlow).Methods(http.MethodPost)
	router.HandleFunc("/flows/{id}", s.HandleGetFlow).Methods(http.MethodGet)
	router.HandleFunc("/flows/{id}", s.HandleUpdateFlow).Methods(http.MethodPut)
	router.HandleFunc("/flows/{id}", s.HandleDeleteFlow).Methods(http.MethodDelete)
	router.HandleFunc("/flows/{id}/duplicate", s.HandleDuplicateFlow).Methods(http.MethodPost)
	router.HandleFunc("/flows/{id}/export", s.HandleExportFlow).Methods(http.MethodGet)
	router.HandleFunc("/flows/{id}/execute", s.HandleExecuteFlow).Methods(http.MethodPost)

	router.HandleFunc("/webhook/reply", s.HandleReply).Methods(http.MethodPost)

	router.HandleFunc("/integration/channel", s.HandleGetChannelConfig).Methods(http.MethodGet)
	router.HandleFunc("/integration/channel", s.HandleSaveChannelConfig).Methods(http.MethodPut)

	if events != nil {
		router.HandleFunc("/ws/executions", s.HandleExecutionEvents).Methods(http.MethodGet)
	}

	router.Use(loggingMiddleware)
	s.Handler = router
	return s, nil
}

func (s *Server) Start() error {
	logger.Info("starting http server on", zap.Int("port", s.Port))
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop() error {
	logger.Info("stopping http server")
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := s.Shutdown(ctx)
	if err != nil {
		logger.Error("error shutting down http server", zap.Error(err))
	}
	return nil
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Info(r.RequestURI, zap.String("method", r.Method), zap.Duration("took", time.Since(start)))
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, MAX_BODY_BYTES)).Decode(v)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var importErr flow.ImportError
	var invalidErr service.InvalidFlowError
	switch {
	case errors.Is(err, service.ErrSessionAbandoned):
		return http.StatusGone
	case errors.Is(err, persistence.ErrFlowNotFound), errors.Is(err, service.ErrNoActiveSession):
		return http.StatusNotFound
	case errors.As(err, &importErr), errors.As(err, &invalidErr):
		return http.StatusBadRequest
	case errors.Is(err, channel.ErrNoChannelConfig), errors.Is(err, channel.ErrNoMailer):
		return http.StatusConflict
	case errors.Is(err, service.ErrQueueFull):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondOK(w http.ResponseWriter, message map[string]any) {
	respondWithJSON(w, http.StatusOK, message)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
