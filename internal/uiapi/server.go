package uiapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/m0rg5/SolSum-1.9/internal/engine"
	"github.com/m0rg5/SolSum-1.9/internal/irradiance"
	"github.com/m0rg5/SolSum-1.9/internal/store"
)

type Server struct {
	store  *store.Store
	solar  *irradiance.Client
	logger *slog.Logger
}

func NewServer(store *store.Store, solar *irradiance.Client, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:  store,
		solar:  solar,
		logger: logger,
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// CORS for local development
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)

		r.Get("/loads", s.handleGetLoads)
		r.Post("/loads", s.handleCreateLoad)
		r.Get("/loads/{id}", s.handleGetLoad)
		r.Put("/loads/{id}", s.handleUpdateLoad)
		r.Delete("/loads/{id}", s.handleDeleteLoad)

		r.Get("/sources", s.handleGetSources)
		r.Post("/sources", s.handleCreateSource)
		r.Get("/sources/{id}", s.handleGetSource)
		r.Put("/sources/{id}", s.handleUpdateSource)
		r.Delete("/sources/{id}", s.handleDeleteSource)

		r.Get("/battery", s.handleGetBattery)
		r.Put("/battery", s.handleUpdateBattery)

		r.Get("/totals", s.handleGetTotals)
		r.Get("/autonomy", s.handleGetAutonomy)
		r.Get("/solar-hours", s.handleGetSolarHours)
		r.Post("/forecast/refresh", s.handleRefreshForecast)
	})

	return r
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": "1.9.0",
	})
}

func (s *Server) handleGetLoads(w http.ResponseWriter, r *http.Request) {
	loads, err := s.store.GetLoads()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, loads)
}

func (s *Server) handleCreateLoad(w http.ResponseWriter, r *http.Request) {
	var load engine.LoadItem
	if err := json.NewDecoder(r.Body).Decode(&load); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !load.Category.Valid() {
		respondError(w, http.StatusBadRequest, "unknown load category: "+string(load.Category))
		return
	}
	if load.ID == uuid.Nil {
		load.ID = uuid.New()
	}

	if err := s.store.SaveLoad(&load); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, load)
}

func (s *Server) handleGetLoad(w http.ResponseWriter, r *http.Request) {
	load, err := s.store.GetLoad(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "load not found")
		return
	}
	respondJSON(w, http.StatusOK, load)
}

func (s *Server) handleUpdateLoad(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid load id")
		return
	}

	var load engine.LoadItem
	if err := json.NewDecoder(r.Body).Decode(&load); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !load.Category.Valid() {
		respondError(w, http.StatusBadRequest, "unknown load category: "+string(load.Category))
		return
	}

	load.ID = id
	if err := s.store.SaveLoad(&load); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, load)
}

func (s *Server) handleDeleteLoad(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.DeleteLoad(id); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "deleted", "id": id})
}

func (s *Server) handleGetSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.store.GetSources()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, sources)
}

func (s *Server) handleCreateSource(w http.ResponseWriter, r *http.Request) {
	var src engine.GenerationSource
	if err := json.NewDecoder(r.Body).Decode(&src); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !src.Type.Valid() {
		respondError(w, http.StatusBadRequest, "unknown source type: "+string(src.Type))
		return
	}
	if src.ID == uuid.Nil {
		src.ID = uuid.New()
	}

	if err := s.store.SaveSource(&src); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, src)
}

func (s *Server) handleGetSource(w http.ResponseWriter, r *http.Request) {
	src, err := s.store.GetSource(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "source not found")
		return
	}
	respondJSON(w, http.StatusOK, src)
}

func (s *Server) handleUpdateSource(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid source id")
		return
	}

	var src engine.GenerationSource
	if err := json.NewDecoder(r.Body).Decode(&src); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !src.Type.Valid() {
		respondError(w, http.StatusBadRequest, "unknown source type: "+string(src.Type))
		return
	}

	src.ID = id
	if err := s.store.SaveSource(&src); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, src)
}

func (s *Server) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.DeleteSource(id); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "deleted", "id": id})
}

func (s *Server) handleGetBattery(w http.ResponseWriter, r *http.Request) {
	battery, err := s.store.GetBattery()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, battery)
}

func (s *Server) handleUpdateBattery(w http.ResponseWriter, r *http.Request) {
	var battery engine.BatteryConfig
	if err := json.NewDecoder(r.Body).Decode(&battery); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if battery.Forecast != nil && !battery.Forecast.Mode.Valid() {
		respondError(w, http.StatusBadRequest, "unknown forecast mode: "+string(battery.Forecast.Mode))
		return
	}

	if err := s.store.SaveBattery(battery); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, battery)
}

func (s *Server) handleGetTotals(w http.ResponseWriter, r *http.Request) {
	loads, sources, battery, err := s.snapshot()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, engine.Totals(loads, sources, battery))
}

func (s *Server) handleGetAutonomy(w http.ResponseWriter, r *http.Request) {
	loads, sources, battery, err := s.snapshot()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var currentSoC *float64
	if raw := r.URL.Query().Get("soc"); raw != "" {
		var soc float64
		if err := json.Unmarshal([]byte(raw), &soc); err != nil {
			respondError(w, http.StatusBadRequest, "invalid soc parameter")
			return
		}
		currentSoC = &soc
	}

	if raw := r.URL.Query().Get("scenario"); raw != "" {
		scenario := engine.Scenario(raw)
		if !scenario.Valid() {
			respondError(w, http.StatusBadRequest, "unknown scenario: "+raw)
			return
		}
		respondJSON(w, http.StatusOK, engine.ProjectAutonomy(loads, sources, battery, scenario, currentSoC))
		return
	}

	respondJSON(w, http.StatusOK, engine.ProjectAllScenarios(loads, sources, battery, currentSoC))
}

func (s *Server) handleGetSolarHours(w http.ResponseWriter, r *http.Request) {
	battery, err := s.store.GetBattery()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, engine.NormalizeSolarHours(battery))
}

type refreshRequest struct {
	Mode  engine.ForecastMode `json:"mode"`
	Month int                 `json:"month"`
}

func (s *Server) handleRefreshForecast(w http.ResponseWriter, r *http.Request) {
	if s.solar == nil {
		respondError(w, http.StatusServiceUnavailable, "forecast fetching not configured")
		return
	}

	var req refreshRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if req.Mode == "" {
		req.Mode = engine.ForecastNow
	}
	if !req.Mode.Valid() {
		respondError(w, http.StatusBadRequest, "unknown forecast mode: "+string(req.Mode))
		return
	}

	battery, err := s.store.GetBattery()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	month := battery.TargetMonth
	if req.Month != 0 {
		month = time.Month(req.Month)
	}
	if month == 0 {
		month = time.Now().Month()
	}

	var forecast engine.IrradianceForecast
	switch req.Mode {
	case engine.ForecastMonthAvg:
		forecast, err = s.solar.FetchMonthAvg(r.Context(), month)
	default:
		forecast, err = s.solar.FetchNow(r.Context())
	}
	if err != nil {
		s.logger.Warn("forecast fetch failed", "mode", req.Mode, "error", err)
	}

	battery.TargetMonth = month
	battery.Forecast = &forecast
	if err := s.store.SaveBattery(battery); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, forecast)
}

// snapshot reads the full working system in one place
func (s *Server) snapshot() ([]engine.LoadItem, []engine.GenerationSource, engine.BatteryConfig, error) {
	loads, err := s.store.GetLoads()
	if err != nil {
		return nil, nil, engine.BatteryConfig{}, err
	}
	sources, err := s.store.GetSources()
	if err != nil {
		return nil, nil, engine.BatteryConfig{}, err
	}
	battery, err := s.store.GetBattery()
	if err != nil {
		return nil, nil, engine.BatteryConfig{}, err
	}
	return loads, sources, battery, nil
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
