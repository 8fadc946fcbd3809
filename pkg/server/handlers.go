package server

import (
	"errors"
	"net/http"

	"github.com/platinummonkey/ofxhost/pkg/httputil"
	"github.com/platinummonkey/ofxhost/pkg/ofx"
	"github.com/platinummonkey/ofxhost/pkg/plugincache"
	"github.com/platinummonkey/ofxhost/pkg/watch"
)

var errCacheEmpty = errors.New("plugin cache has not been read or scanned")

// PluginList is the response of GET /api/v1/plugins
type PluginList struct {
	Generation string                    `json:"generation"`
	Plugins    []*plugincache.Descriptor `json:"plugins"`
}

// StatsResponse is the response of GET /api/v1/stats
type StatsResponse struct {
	Cache  *plugincache.Stats `json:"cache"`
	Rescan *watch.Status      `json:"rescan,omitempty"`
}

func (s *Server) listPlugins(w http.ResponseWriter, r *http.Request) {
	ix := s.cache.Index()
	plugins := ix.Plugins()

	if tag := r.URL.Query().Get("context"); tag != "" {
		ctx := ofx.ParseContextTag(tag)
		if ctx == ofx.ContextNone {
			httputil.WriteBadRequest(w, "unknown context: "+tag)
			return
		}
		filtered := plugins[:0:0]
		for _, d := range plugins {
			if d.SupportsContext(ctx) {
				filtered = append(filtered, d)
			}
		}
		plugins = filtered
	}
	if plugins == nil {
		plugins = []*plugincache.Descriptor{}
	}

	httputil.WriteSuccess(w, PluginList{Generation: ix.Generation.String(), Plugins: plugins})
}

func (s *Server) listVersions(w http.ResponseWriter, r *http.Request) {
	p := httputil.NewParams(r)
	id := p.String("id")
	if !p.OK(w) {
		return
	}
	versions := s.cache.Index().Versions(id)
	if len(versions) == 0 {
		httputil.WriteError(w, ofx.NewError(ofx.NotFound, "server.listVersions", id))
		return
	}
	httputil.WriteSuccess(w, versions)
}

func (s *Server) getPluginByID(w http.ResponseWriter, r *http.Request) {
	p := httputil.NewParams(r)
	id, major := p.String("id"), p.Version("major")
	if !p.OK(w) {
		return
	}

	d, err := s.cache.GetPluginByID(id, major)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, d)
}

func (s *Server) getPluginByLabel(w http.ResponseWriter, r *http.Request) {
	p := httputil.NewParams(r)
	label, major := p.String("label"), p.Version("major")
	if !p.OK(w) {
		return
	}

	d, err := s.cache.GetPluginByLabel(label, major)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, d)
}

func (s *Server) listModules(w http.ResponseWriter, r *http.Request) {
	p := httputil.NewParams(r)
	failedOnly := p.QueryBool("failed", false)
	if !p.OK(w) {
		return
	}

	modules := []*plugincache.ModuleRecord{}
	for _, rec := range s.cache.Modules() {
		if failedOnly && rec.State != plugincache.StateFailed {
			continue
		}
		modules = append(modules, rec)
	}
	httputil.WriteSuccess(w, modules)
}

func (s *Server) listCollisions(w http.ResponseWriter, r *http.Request) {
	collisions := s.cache.Collisions()
	if collisions == nil {
		collisions = []plugincache.Collision{}
	}
	httputil.WriteSuccess(w, collisions)
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{Cache: s.cache.Stats()}
	if s.rescanner != nil {
		status := s.rescanner.Status()
		resp.Rescan = &status
	}
	httputil.WriteSuccess(w, resp)
}

func (s *Server) rescan(w http.ResponseWriter, r *http.Request) {
	if s.rescanner == nil {
		httputil.WriteErrorMessage(w, http.StatusServiceUnavailable, "rescans are not enabled")
		return
	}
	if err := s.rescanner.Rescan(r.Context()); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	s.getStats(w, r)
}
