package api

import (
	"encoding/xml"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

type sitemapURL struct {
	Loc        string `xml:"loc"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

// sitemap serves an XML sitemap of the site root and every stored article.
func (s *Server) sitemap(w http.ResponseWriter, r *http.Request) {
	slugs, err := s.upserter.Slugs(r.Context())
	if err != nil {
		s.logger.Error("sitemap listing failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list articles")
		return
	}

	origin := strings.TrimSuffix(s.cfg.Content.SiteURL, "/")
	set := sitemapURLSet{
		Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs: []sitemapURL{
			{Loc: origin + "/", ChangeFreq: "daily", Priority: "1.0"},
		},
	}
	for _, sl := range slugs {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        origin + s.cfg.PublicPath(sl),
			ChangeFreq: "monthly",
			Priority:   "0.8",
		})
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	if _, err := w.Write([]byte(xml.Header)); err != nil {
		s.logger.Error("sitemap write failed", zap.Error(err))
		return
	}
	if err := xml.NewEncoder(w).Encode(set); err != nil {
		s.logger.Error("sitemap encode failed", zap.Error(err))
	}
}
