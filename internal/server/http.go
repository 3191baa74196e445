package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/pairdaily/pairing-service/internal/app"
	"github.com/pairdaily/pairing-service/internal/config"
	svcErr "github.com/pairdaily/pairing-service/internal/errors"
	"github.com/pairdaily/pairing-service/internal/service/cycle"
	"github.com/pairdaily/pairing-service/internal/utils/cycledate"
)

// StartHTTPServer boots the trigger surface: a health check and the
// manual cycle trigger used by operators and the external scheduler.
func StartHTTPServer(cfg *config.Config, appCtx *app.AppContext, svc *cycle.Service) error {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	}).Methods("GET")

	r.HandleFunc("/cycle/run", func(w http.ResponseWriter, req *http.Request) {
		date, err := cycledate.Parse(req.URL.Query().Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		result, err := svc.Run(req.Context(), date)
		if err != nil {
			appCtx.Logger.Error("cycle run failed", "err", err)
			writeError(w, svcErr.Map(err), err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}).Methods("POST")

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler(r)

	addr := fmt.Sprintf("%s:%s", cfg.HTTP.Host, cfg.HTTP.Port)
	appCtx.Logger.Info("starting HTTP server", "addr", addr)
	return http.ListenAndServe(addr, corsHandler)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
