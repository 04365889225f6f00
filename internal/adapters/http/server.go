// Package http exposes the alerting service over a JSON API: alert ingestion
// from helmet devices, acknowledgments, worker registration, and the TwiML
// webhook the telephony provider fetches when an escalation call connects.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomasbasham/guardcall/internal/alerting"
)

// Service defines the interface for the alerting core.
type Service interface {
	RegisterWorker(ctx context.Context, w *alerting.Worker) error
	RaiseAlert(ctx context.Context, helmetID, message string, lat, lng float64) (*alerting.Alert, error)
	Acknowledge(ctx context.Context, helmetID string) (*alerting.Alert, error)
}

// Server handles HTTP requests against the alerting service.
type Server struct {
	service Service
}

// NewHandler creates a new HTTP handler for the service.
func NewHandler(service Service) http.Handler {
	server := &Server{service: service}
	r := chi.NewRouter()

	r.Post("/api/workers", server.registerWorker)
	r.Post("/api/alerts", server.raiseAlert)
	r.Post("/api/alerts/{helmetID}/ack", server.acknowledge)
	r.Post("/voice/alert", server.voiceAlert)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (s *Server) registerWorker(w http.ResponseWriter, r *http.Request) {
	var worker alerting.Worker
	if err := json.NewDecoder(r.Body).Decode(&worker); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.service.RegisterWorker(r.Context(), &worker); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, worker)
}

// RaiseAlertRequest is the alert ingestion payload sent by helmet devices.
type RaiseAlertRequest struct {
	HelmetID string  `json:"helmet_id"`
	Message  string  `json:"message"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

func (s *Server) raiseAlert(w http.ResponseWriter, r *http.Request) {
	var body RaiseAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if body.HelmetID == "" {
		http.Error(w, "helmet_id is required", http.StatusBadRequest)
		return
	}

	alert, err := s.service.RaiseAlert(r.Context(), body.HelmetID, body.Message, body.Lat, body.Lng)
	if err != nil {
		if errors.Is(err, alerting.ErrWorkerNotFound) {
			http.Error(w, "Unknown helmet", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to raise alert", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, alert)
}

func (s *Server) acknowledge(w http.ResponseWriter, r *http.Request) {
	helmetID := chi.URLParam(r, "helmetID")

	alert, err := s.service.Acknowledge(r.Context(), helmetID)
	if err != nil {
		if errors.Is(err, alerting.ErrAlertNotFound) {
			http.Error(w, "No open alert", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to acknowledge alert", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, alert)
}

// voiceAlert returns the call instructions Twilio fetches once an escalation
// call connects.
func (s *Server) voiceAlert(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/xml")
	w.Write([]byte(voiceAlertTwiML))
}

const voiceAlertTwiML = `<?xml version="1.0" encoding="UTF-8"?>
<Response>
  <Say voice="alice">This is an automated safety call. A safety alert for your family member has not been acknowledged. Please check on them immediately.</Say>
</Response>
`

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
