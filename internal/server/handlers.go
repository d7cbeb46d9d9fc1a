package server

import (
	"encoding/json"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/granskad/hamta/internal/engine"
	"github.com/granskad/hamta/internal/indexer"
	"github.com/granskad/hamta/internal/storage"
)

type askRequest struct {
	Question    string   `json:"question"`
	Workspace   string   `json:"workspace"`
	DocumentIDs []string `json:"document_ids,omitempty"`
	Mode        string   `json:"mode,omitempty"`
	Verbose     bool     `json:"verbose,omitempty"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		s.respondError(w, http.StatusBadRequest, "question is required")
		return
	}
	if req.Workspace == "" {
		s.respondError(w, http.StatusBadRequest, "workspace is required")
		return
	}
	requestID := uuid.NewString()
	s.logger.Debug("ask request",
		zap.String("request_id", requestID),
		zap.String("workspace", req.Workspace),
		zap.String("mode", req.Mode),
	)

	eng, err := s.registry.Get(r.Context(), req.Workspace)
	if err != nil {
		s.logger.Error("engine build failed", zap.String("workspace", req.Workspace), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	answer, err := eng.Ask(r.Context(), engine.AskRequest{
		Question:    req.Question,
		DocumentIDs: req.DocumentIDs,
		Mode:        req.Mode,
		Verbose:     req.Verbose,
		RequestID:   requestID,
	})
	if err != nil {
		s.logger.Error("ask failed", zap.String("request_id", requestID), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"request_id": requestID,
		"answer":     answer.Answer,
		"mode":       answer.Mode,
		"sources":    answer.Sources,
	})
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	workspace := chi.URLParam(r, "workspace")
	if workspace == "" {
		s.respondError(w, http.StatusBadRequest, "workspace is required")
		return
	}
	docsDir := filepath.Join(s.cfg.Storage.DocsDir, workspace)
	docs, err := indexer.ScanDocuments(docsDir)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	items, err := s.indexer.BuildWorkspace(r.Context(), workspace, docs)
	if err != nil {
		s.logger.Error("rebuild failed", zap.String("workspace", workspace), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// The cached engine still holds the old snapshot; the next ask rebuilds
	// it from the fresh one.
	s.registry.Invalidate(workspace)
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"workspace": workspace,
		"documents": len(docs),
		"chunks":    len(items),
		"status":    "rebuilt",
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"workspaces_loaded": s.registry.Loaded(),
	}
	if s.store != nil {
		ctx := r.Context()
		docCount, err := s.store.CountDocuments(ctx)
		if err != nil {
			s.logger.Error("status: count documents failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		chunkCount, err := s.store.CountChunks(ctx)
		if err != nil {
			s.logger.Error("status: count chunks failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp["documents"] = docCount
		resp["chunks"] = chunkCount
	}
	if diskBytes, err := storage.DiskUsageBytes(
		s.cfg.Storage.DatabasePath,
		s.cfg.Storage.IndexDir,
	); err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	resp["config"] = map[string]interface{}{
		"retrieval_mode":       s.cfg.Retrieval.Mode,
		"top_k":                s.cfg.Retrieval.TopK,
		"embedding_model":      s.cfg.Embedding.Model,
		"embedding_dimensions": s.cfg.Embedding.Dimensions,
		"rerank_enabled":       s.cfg.Rerank.Enabled,
		"chunk_target_words":   s.cfg.Chunking.TargetWords,
		"chunk_overlap_words":  s.cfg.Chunking.OverlapWords,
		"index_dir":            s.cfg.Storage.IndexDir,
		"docs_dir":             s.cfg.Storage.DocsDir,
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
