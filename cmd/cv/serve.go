package main

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/drakos74/microbe-cv/internal/pipeline"
	"github.com/drakos74/microbe-cv/internal/server"
	"github.com/drakos74/microbe-cv/internal/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// reports serves the latest report from memory and older ones from the storage.
type reports struct {
	mutex  *sync.RWMutex
	latest *pipeline.Report
	store  storage.Persistence
}

func newReports(store storage.Persistence) *reports {
	return &reports{
		mutex: new(sync.RWMutex),
		store: store,
	}
}

func (rr *reports) set(r *pipeline.Report) {
	rr.mutex.Lock()
	defer rr.mutex.Unlock()
	rr.latest = r
}

func (rr *reports) get(r *http.Request) ([]byte, int, error) {
	run := r.URL.Query().Get("run")
	rr.mutex.RLock()
	latest := rr.latest
	rr.mutex.RUnlock()

	if latest != nil && (run == "" || run == latest.RunID) {
		return server.Json(latest)
	}
	if run == "" {
		return nil, http.StatusNotFound, fmt.Errorf("no report available yet")
	}
	report, err := pipeline.Load(rr.store, run)
	if errors.Is(err, storage.NotFoundErr) {
		return nil, http.StatusNotFound, err
	}
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	return server.Json(report)
}

func newServer(port int, rr *reports) *server.Server {
	return server.NewServer(app, port).
		Add(server.Live()).
		AddRoute(server.GET, server.Api, "report", rr.get).
		Handle("/metrics", promhttp.Handler())
}
