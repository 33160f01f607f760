package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/MikePfunk28/intelhub/internal/embedder"
	"github.com/MikePfunk28/intelhub/internal/models"
	"github.com/MikePfunk28/intelhub/internal/provider"
	"github.com/MikePfunk28/intelhub/internal/search"
	"github.com/MikePfunk28/intelhub/internal/storage"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request",
		zap.String("query", req.Query),
		zap.String("search_type", string(req.Mode)),
		zap.Int("limit", req.Limit))

	start := time.Now()
	resp, err := s.client.Search(r.Context(), &req)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		searchRequests.WithLabelValues(string(req.Mode), "error").Inc()
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	searchRequests.WithLabelValues(string(resp.SearchType), "ok").Inc()
	searchDuration.Observe(time.Since(start).Seconds())
	if resp.Fallback {
		searchFallbacks.Inc()
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEmbed(w http.ResponseWriter, r *http.Request) {
	var req embedder.EmbedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("embed request",
		zap.String("content_id", req.ContentID),
		zap.String("content_type", req.ContentType),
		zap.Bool("force", req.ForceRegenerate))

	result, err := s.embedSvc.EmbedContent(r.Context(), &req)
	if err != nil {
		s.logger.Error("embedding failed", zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	if result.Created {
		embeddingsGenerated.Inc()
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"embeddingId": result.EmbeddingID,
		"message":     result.Message,
	})
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req embedder.BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Info("batch embed request",
		zap.String("content_type", req.ContentType),
		zap.Int("batch_size", req.BatchSize))

	progress, err := s.embedSvc.RunBatch(r.Context(), &req)
	if err != nil {
		s.logger.Error("batch run failed", zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	embeddingsGenerated.Add(float64(progress.Successful))
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"progress": progress,
		"message":  batchMessage(progress),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.logger.Error("stats failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"stats":   stats,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	contentCount, err := s.store.CountContent(ctx, "")
	if err != nil {
		s.logger.Error("status: count content failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	embeddingCount, err := s.store.CountEmbeddings(ctx, "")
	if err != nil {
		s.logger.Error("status: count embeddings failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	keywordDocs, err := s.keywords.DocCount()
	if err != nil {
		s.logger.Error("status: keyword doc count failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := map[string]interface{}{
		"content_items":      contentCount,
		"embeddings":         embeddingCount,
		"vector_index_size":  s.vectors.Size(),
		"keyword_index_docs": keywordDocs,
	}

	configInfo := map[string]interface{}{
		"embedding_model":      s.config.Provider.Model,
		"embedding_dimensions": s.config.Provider.Dimensions,
		"default_threshold":    s.config.Search.DefaultThreshold,
		"semantic_weight":      s.config.Search.SemanticWeight,
		"keyword_weight":       s.config.Search.KeywordWeight,
		"database_path":        s.config.Storage.DatabasePath,
		"bleve_index_path":     s.config.Storage.BleveIndexPath,
	}
	diskBytes, err := storage.DiskUsageBytes(
		s.config.Storage.DatabasePath,
		s.config.Storage.BleveIndexPath,
	)
	if err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	resp["config"] = configInfo
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps the error taxonomy onto HTTP statuses: caller mistakes are
// 400, upstream provider failures are 502, everything else is 500.
func statusFor(err error) int {
	var qe *search.QueryError
	var re *embedder.RequestError
	switch {
	case errors.As(err, &qe), errors.As(err, &re):
		return http.StatusBadRequest
	case provider.IsProviderError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func batchMessage(p *models.BatchProgress) string {
	if p.TotalItems == 0 {
		return "nothing to embed"
	}
	if p.Failed > 0 {
		return "batch completed with errors"
	}
	return "batch completed"
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
