package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/serpmax/content-api/internal/article"
	"github.com/serpmax/content-api/internal/auditlog"
	"github.com/serpmax/content-api/internal/slug"
	"github.com/serpmax/content-api/internal/store"
	"github.com/serpmax/content-api/internal/telemetry"
)

type publishRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Date        string   `json:"date"`
	Slug        string   `json:"slug"`
	Keywords    []string `json:"keywords"`
	Author      string   `json:"author"`
	Image       string   `json:"image"`
	Content     string   `json:"content"`
	Published   *bool    `json:"published"`
}

type publishResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Slug    string `json:"slug"`
	URL     string `json:"url"`
	Version string `json:"version"`
}

type listResponse struct {
	Articles []string `json:"articles"`
	Total    int      `json:"total"`
}

type missingFieldsResponse struct {
	Error    string   `json:"error"`
	Required []string `json:"required"`
}

func (s *Server) publishArticle(w http.ResponseWriter, r *http.Request) {
	key := clientKey(r)
	if limit := s.limiter.Check(key); !limit.Allowed {
		telemetry.ObserveRateLimited()
		writeError(w, http.StatusTooManyRequests, limit.Message)
		return
	}

	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	art := article.Article{
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		Slug:        req.Slug,
		Keywords:    req.Keywords,
		Author:      req.Author,
		Image:       req.Image,
		Content:     req.Content,
		Published:   valueOrDefault(req.Published, true),
	}

	if missing := art.MissingFields(); len(missing) > 0 {
		writeJSON(w, http.StatusBadRequest, missingFieldsResponse{
			Error:    "missing required fields",
			Required: missing,
		})
		return
	}

	art.Slug = slug.Normalize(art.Slug)
	if err := slug.Validate(art.Slug); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	art.ApplyDefaults(s.clock.Now())

	result, err := s.upserter.Upsert(r.Context(), art.Slug, art.Document())
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			telemetry.ObservePublish("upsert", "conflict")
			writeError(w, http.StatusConflict, "article was modified concurrently, re-read and retry")
			return
		}
		telemetry.ObservePublish("upsert", "error")
		s.logger.Error("upsert failed", zap.String("slug", art.Slug), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	action := "updated"
	if result.Created {
		action = "created"
	}
	telemetry.ObservePublish(action, "success")

	publicPath := s.cfg.PublicPath(art.Slug)
	s.signalRevalidation(r.Context(), s.cfg.Content.ListingPath, publicPath)
	s.recordPublish(r.Context(), auditlog.Entry{
		Slug:      art.Slug,
		Action:    action,
		ClientKey: key,
		Version:   result.Token,
		At:        s.clock.Now(),
	})

	writeJSON(w, http.StatusCreated, publishResponse{
		Success: true,
		Message: result.Message,
		Slug:    art.Slug,
		URL:     publicPath,
		Version: result.Token,
	})
}

func (s *Server) listArticles(w http.ResponseWriter, r *http.Request) {
	slugs, err := s.upserter.Slugs(r.Context())
	if err != nil {
		s.logger.Error("list articles failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Articles: slugs, Total: len(slugs)})
}

// signalRevalidation tells the rendering site to rebuild the affected
// pages. Best-effort: failures are logged, not surfaced to the publisher.
func (s *Server) signalRevalidation(ctx context.Context, paths ...string) {
	if err := s.revalidator.Revalidate(ctx, paths...); err != nil {
		telemetry.ObserveRevalidation("error")
		s.logger.Warn("revalidation failed", zap.Strings("paths", paths), zap.Error(err))
		return
	}
	telemetry.ObserveRevalidation("success")
}

func (s *Server) recordPublish(ctx context.Context, e auditlog.Entry) {
	if err := s.audit.Record(ctx, e); err != nil {
		s.logger.Warn("audit record failed", zap.String("slug", e.Slug), zap.Error(err))
	}
}

// clientKey derives the rate limit key from request metadata. Behind a
// proxy the first X-Forwarded-For entry is the client address.
func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	return "unknown"
}

func valueOrDefault[T any](ptr *T, def T) T {
	if ptr == nil {
		return def
	}
	return *ptr
}
