package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"cavecraft.ai/internal/persistence/indexdb"
	"cavecraft.ai/internal/persistence/r2s3"
	"cavecraft.ai/internal/sim/service"
	"cavecraft.ai/internal/sim/tuning"
	"cavecraft.ai/internal/transport/ws"
)

// generationQuerier is the read side of the sqlite index.
type generationQuerier interface {
	Recent(ctx context.Context, n int) ([]indexdb.GenerationSummary, error)
	Rooms(ctx context.Context, genID string) ([]indexdb.RoomSummary, error)
	Flush(ctx context.Context) error
}

type api struct {
	svc    *service.Service
	ws     *ws.Server
	index  service.Index
	mirror *r2s3.Mirror
	log    logrus.FieldLogger

	enableAdmin bool
	enablePprof bool
}

func (a *api) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /metrics", a.metrics)
	mux.HandleFunc("GET /v1/current", a.current)
	mux.HandleFunc("GET /v1/generations", a.generations)
	mux.HandleFunc("GET /v1/generations/{id}/rooms", a.rooms)
	mux.HandleFunc("/v1/ws", a.ws.Handler())

	if a.enableAdmin {
		mux.HandleFunc("POST /admin/v1/regenerate", a.regenerate)
	} else {
		a.log.Info("admin endpoints disabled (CC_ENABLE_ADMIN_HTTP=false)")
	}
	if a.enablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	return mux
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func (a *api) querier(rw http.ResponseWriter) (generationQuerier, bool) {
	q, ok := a.index.(generationQuerier)
	if !ok {
		http.Error(rw, "generation index is not queryable (CC_INDEX_BACKEND=sqlite required)", http.StatusNotImplemented)
		return nil, false
	}
	return q, true
}

func (a *api) generations(rw http.ResponseWriter, r *http.Request) {
	q, ok := a.querier(rw)
	if !ok {
		return
	}
	n := 20
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 || parsed > 500 {
			http.Error(rw, "n must be in [1,500]", http.StatusBadRequest)
			return
		}
		n = parsed
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	_ = q.Flush(ctx)
	rows, err := q.Recent(ctx, n)
	if err != nil {
		a.log.WithError(err).Error("query recent generations")
		http.Error(rw, "query failed", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []indexdb.GenerationSummary{}
	}
	writeJSON(rw, http.StatusOK, map[string]any{"generations": rows})
}

func (a *api) rooms(rw http.ResponseWriter, r *http.Request) {
	q, ok := a.querier(rw)
	if !ok {
		return
	}
	id := strings.TrimSpace(r.PathValue("id"))
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	_ = q.Flush(ctx)
	rows, err := q.Rooms(ctx, id)
	if err != nil {
		a.log.WithError(err).Error("query rooms")
		http.Error(rw, "query failed", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []indexdb.RoomSummary{}
	}
	writeJSON(rw, http.StatusOK, map[string]any{"gen_id": id, "rooms": rows})
}

func (a *api) current(rw http.ResponseWriter, r *http.Request) {
	out := a.svc.Current()
	if out == nil {
		http.Error(rw, "no cave generated yet", http.StatusNotFound)
		return
	}
	writeJSON(rw, http.StatusOK, ws.GeneratedMsg("", out, r.URL.Query().Get("mesh") == "1"))
}

type regenerateRequest struct {
	Rank          int    `json:"rank"`
	Seed          string `json:"seed"`
	UseRandomSeed bool   `json:"use_random_seed"`
	Pin           bool   `json:"pin"`
}

func (a *api) regenerate(rw http.ResponseWriter, r *http.Request) {
	if !isLoopbackRemote(r.RemoteAddr) {
		http.Error(rw, "forbidden", http.StatusForbidden)
		return
	}
	var req regenerateRequest
	if err := json.NewDecoder(http.MaxBytesReader(rw, r.Body, 4096)).Decode(&req); err != nil {
		http.Error(rw, "bad json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Rank == 0 {
		req.Rank = 2
	}
	out, err := a.svc.Regenerate(r.Context(), service.Request(req))
	switch {
	case errors.Is(err, tuning.ErrInvalidConfig), errors.Is(err, service.ErrPinWithoutSnapshot):
		writeJSON(rw, http.StatusBadRequest, map[string]any{"ok": false, "error": err.Error()})
		return
	case err != nil:
		writeJSON(rw, http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "generated": ws.GeneratedMsg("", out, false)})
}

func (a *api) metrics(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

	fmt.Fprintf(rw, "# HELP cavecraft_ws_sessions Connected websocket sessions.\n")
	fmt.Fprintf(rw, "# TYPE cavecraft_ws_sessions gauge\n")
	fmt.Fprintf(rw, "cavecraft_ws_sessions %d\n", a.ws.Sessions())

	if out := a.svc.Current(); out != nil {
		st := out.Result.Stats
		fmt.Fprintf(rw, "# HELP cavecraft_current_cave Shape of the live cave.\n")
		fmt.Fprintf(rw, "# TYPE cavecraft_current_cave gauge\n")
		fmt.Fprintf(rw, "cavecraft_current_cave{rank=\"%d\",metric=%q} %d\n", out.Result.Rank, "rooms", st.Rooms)
		fmt.Fprintf(rw, "cavecraft_current_cave{rank=\"%d\",metric=%q} %d\n", out.Result.Rank, "links", st.Links)
		fmt.Fprintf(rw, "cavecraft_current_cave{rank=\"%d\",metric=%q} %d\n", out.Result.Rank, "vertices", st.Vertices)
		fmt.Fprintf(rw, "cavecraft_current_cave{rank=\"%d\",metric=%q} %d\n", out.Result.Rank, "triangles", st.Triangles)
		fmt.Fprintf(rw, "cavecraft_current_cave{rank=\"%d\",metric=%q} %d\n", out.Result.Rank, "chunks", st.Chunks)

		fmt.Fprintf(rw, "# HELP cavecraft_generate_ms Duration of the last rebuild in milliseconds.\n")
		fmt.Fprintf(rw, "# TYPE cavecraft_generate_ms gauge\n")
		fmt.Fprintf(rw, "cavecraft_generate_ms %d\n", out.Duration.Milliseconds())
	}

	switch idx := a.index.(type) {
	case *indexdb.SQLiteIndex:
		s := idx.Stats()
		fmt.Fprintf(rw, "# HELP cavecraft_index_queue_depth Index writer backlog.\n")
		fmt.Fprintf(rw, "# TYPE cavecraft_index_queue_depth gauge\n")
		fmt.Fprintf(rw, "cavecraft_index_queue_depth{backend=\"sqlite\"} %d\n", s.QueueDepth)
		fmt.Fprintf(rw, "# HELP cavecraft_index_dropped_total Index writes dropped on a full queue.\n")
		fmt.Fprintf(rw, "# TYPE cavecraft_index_dropped_total counter\n")
		fmt.Fprintf(rw, "cavecraft_index_dropped_total{backend=\"sqlite\"} %d\n", s.DropGenerationTotal)
	case *indexdb.D1Index:
		s := idx.Stats()
		fmt.Fprintf(rw, "# HELP cavecraft_index_queue_depth Index writer backlog.\n")
		fmt.Fprintf(rw, "# TYPE cavecraft_index_queue_depth gauge\n")
		fmt.Fprintf(rw, "cavecraft_index_queue_depth{backend=\"d1\"} %d\n", s.QueueDepth)
		fmt.Fprintf(rw, "# HELP cavecraft_index_dropped_total Index writes dropped on a full queue.\n")
		fmt.Fprintf(rw, "# TYPE cavecraft_index_dropped_total counter\n")
		fmt.Fprintf(rw, "cavecraft_index_dropped_total{backend=\"d1\"} %d\n", s.QueueDroppedTotal)
		fmt.Fprintf(rw, "cavecraft_index_flush_fail_total{backend=\"d1\"} %d\n", s.FlushFailTotal)
	}

	writeMirrorMetrics(rw, a.mirror)
}

func writeMirrorMetrics(rw http.ResponseWriter, mirror *r2s3.Mirror) {
	if mirror == nil {
		return
	}
	s := mirror.Stats()
	fmt.Fprintf(rw, "# HELP cavecraft_s3_mirror_queue_depth Current snapshot mirror queue depth.\n")
	fmt.Fprintf(rw, "# TYPE cavecraft_s3_mirror_queue_depth gauge\n")
	fmt.Fprintf(rw, "cavecraft_s3_mirror_queue_depth %d\n", s.QueueDepth)

	fmt.Fprintf(rw, "# HELP cavecraft_s3_mirror_dropped_total Snapshots dropped because the queue stayed saturated.\n")
	fmt.Fprintf(rw, "# TYPE cavecraft_s3_mirror_dropped_total counter\n")
	fmt.Fprintf(rw, "cavecraft_s3_mirror_dropped_total %d\n", s.DroppedTotal)

	fmt.Fprintf(rw, "# HELP cavecraft_s3_mirror_upload_success_total Successful uploads.\n")
	fmt.Fprintf(rw, "# TYPE cavecraft_s3_mirror_upload_success_total counter\n")
	fmt.Fprintf(rw, "cavecraft_s3_mirror_upload_success_total %d\n", s.UploadSuccessTotal)

	fmt.Fprintf(rw, "# HELP cavecraft_s3_mirror_upload_fail_total Uploads that failed after retry.\n")
	fmt.Fprintf(rw, "# TYPE cavecraft_s3_mirror_upload_fail_total counter\n")
	fmt.Fprintf(rw, "cavecraft_s3_mirror_upload_fail_total %d\n", s.UploadFailTotal)

	fmt.Fprintf(rw, "# HELP cavecraft_s3_mirror_last_success_unix Unix time of the last successful upload.\n")
	fmt.Fprintf(rw, "# TYPE cavecraft_s3_mirror_last_success_unix gauge\n")
	fmt.Fprintf(rw, "cavecraft_s3_mirror_last_success_unix %d\n", s.LastSuccessUnix)
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
