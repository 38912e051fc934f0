package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/netzhuffle/tcgp-tracker/internal/api/response"
	"github.com/netzhuffle/tcgp-tracker/internal/storage/models"
	"github.com/netzhuffle/tcgp-tracker/internal/storage/repository"
	"github.com/netzhuffle/tcgp-tracker/internal/tcgp/catalog"
	"github.com/netzhuffle/tcgp-tracker/internal/version"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.health)
	s.router.Method(http.MethodGet, "/metrics",
		promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/sync", s.syncCatalog)
		r.Get("/sets", s.listSets)

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/stats", s.userStats)
			r.Get("/sets/{setKey}/stats", s.userSetStats)
			r.Get("/boosters/{boosterID}/probability", s.boosterProbability)
			r.Put("/sets/{setKey}/cards/{number}", s.putCard)
			r.Delete("/sets/{setKey}/cards/{number}", s.deleteCard)
		})
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.GetVersion(),
	})
}

// syncCatalog reloads the source document and reconciles it against
// storage. Source-document defects come back as 422 with the defect
// joined into the message; storage failures stay 500. Independent sets
// still synchronize.
func (s *Server) syncCatalog(w http.ResponseWriter, r *http.Request) {
	doc, err := catalog.Load(s.sourcePath)
	if err != nil {
		response.InternalError(w, err)
		return
	}

	report, err := s.synchronizer.Synchronize(r.Context(), doc)
	s.metrics.RecordSync(err != nil, report.SetsCreated, report.BoostersCreated, report.CardsCreated)
	if err != nil {
		if catalog.IsValidationError(err) {
			response.UnprocessableEntity(w, err)
		} else {
			response.InternalError(w, err)
		}
		return
	}
	response.Success(w, report)
}

func (s *Server) listSets(w http.ResponseWriter, r *http.Request) {
	sets, err := s.sets.List(r.Context())
	if err != nil {
		response.InternalError(w, err)
		return
	}
	response.Success(w, sets)
}

func (s *Server) userStats(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt64(r, "userID")
	if err != nil {
		response.BadRequest(w, err)
		return
	}

	stats, err := s.collection.Stats(r.Context(), userID)
	if err != nil {
		response.InternalError(w, err)
		return
	}
	response.Success(w, stats)
}

func (s *Server) userSetStats(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt64(r, "userID")
	if err != nil {
		response.BadRequest(w, err)
		return
	}

	stats, err := s.collection.SetStatsByKey(r.Context(), userID, chi.URLParam(r, "setKey"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.Success(w, stats)
}

func (s *Server) boosterProbability(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt64(r, "userID")
	if err != nil {
		response.BadRequest(w, err)
		return
	}
	boosterID, err := pathInt64(r, "boosterID")
	if err != nil {
		response.BadRequest(w, err)
		return
	}

	start := time.Now()
	p, err := s.collection.BoosterProbability(r.Context(), userID, boosterID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	s.metrics.ObserveProbability(time.Since(start))
	response.Success(w, map[string]float64{"probability": p})
}

type putCardRequest struct {
	Status models.OwnershipStatus `json:"status"`
}

func (s *Server) putCard(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt64(r, "userID")
	if err != nil {
		response.BadRequest(w, err)
		return
	}
	number, err := pathInt(r, "number")
	if err != nil {
		response.BadRequest(w, err)
		return
	}

	req := putCardRequest{Status: models.StatusOwned}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, fmt.Errorf("invalid request body: %w", err))
			return
		}
	}
	if !req.Status.Valid() {
		response.BadRequest(w, fmt.Errorf("invalid status %q", req.Status))
		return
	}

	if err := s.collection.AddCard(r.Context(), userID, chi.URLParam(r, "setKey"), number, req.Status); err != nil {
		writeServiceError(w, err)
		return
	}
	response.NoContent(w)
}

func (s *Server) deleteCard(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt64(r, "userID")
	if err != nil {
		response.BadRequest(w, err)
		return
	}
	number, err := pathInt(r, "number")
	if err != nil {
		response.BadRequest(w, err)
		return
	}

	if err := s.collection.RemoveCard(r.Context(), userID, chi.URLParam(r, "setKey"), number); err != nil {
		writeServiceError(w, err)
		return
	}
	response.NoContent(w)
}

// writeServiceError maps service errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		response.NotFound(w, err)
		return
	}
	response.InternalError(w, err)
}

func pathInt64(r *http.Request, name string) (int64, error) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return v, nil
}

func pathInt(r *http.Request, name string) (int, error) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return v, nil
}
