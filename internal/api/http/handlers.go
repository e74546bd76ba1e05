package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/execdesk/execdesk/internal/app"
	"github.com/execdesk/execdesk/internal/application/tasks"
	"github.com/execdesk/execdesk/internal/domain/event"
	"github.com/execdesk/execdesk/internal/domain/metric"
	"github.com/execdesk/execdesk/internal/domain/workitem"
)

type ctxKey int

const orgKey ctxKey = iota

// requireOrg resolves the {org} path parameter to a runtime or answers 404.
func (s *Server) requireOrg(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "org")
		rt, ok := s.app.Org(key)
		if !ok {
			respondError(w, http.StatusNotFound, "unknown_org", "no such organization: "+key)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), orgKey, rt)))
	})
}

func orgFrom(r *http.Request) *app.OrgRuntime {
	return r.Context().Value(orgKey).(*app.OrgRuntime)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) runCycle(w http.ResponseWriter, r *http.Request) {
	rt := orgFrom(r)
	sum, err := rt.Orchestrator.Cycle(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "cycle_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, sum)
}

func (s *Server) planDay(w http.ResponseWriter, r *http.Request) {
	rt := orgFrom(r)
	recs, err := rt.KPI.ProactiveRecommendations(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "trend_failed", err.Error())
		return
	}
	items, err := rt.Orchestrator.PlanDay(r.Context(), recs)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "plan_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"planned": len(items),
		"items":   items,
	})
}

type eventRequest struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

func (s *Server) ingestEvent(w http.ResponseWriter, r *http.Request) {
	rt := orgFrom(r)
	var req eventRequest
	if err := decodeBody(r, &req); err != nil || req.Type == "" {
		respondError(w, http.StatusBadRequest, "bad_request", "type is required")
		return
	}
	results, err := rt.Orchestrator.IngestEvent(r.Context(), event.New(req.Type, req.Payload))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "event_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

func (s *Server) taskTree(w http.ResponseWriter, r *http.Request) {
	rt := orgFrom(r)
	tree, err := rt.Tasks.OpenTaskTree(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "tree_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"tree":     tree,
		"rendered": tasks.FormatTree(tree),
	})
}

func (s *Server) awaitingReview(w http.ResponseWriter, r *http.Request) {
	rt := orgFrom(r)
	items, err := rt.Tasks.AwaitingReview(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

type reviewRequest struct {
	Approved bool   `json:"approved"`
	Reviewer string `json:"reviewer"`
	Comments string `json:"comments,omitempty"`
}

func (s *Server) reviewTask(w http.ResponseWriter, r *http.Request) {
	rt := orgFrom(r)
	id, err := parseUUIDParam(r, "taskId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", "invalid task id")
		return
	}
	var req reviewRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if req.Reviewer == "" {
		req.Reviewer = "operator"
	}
	if err := rt.Orchestrator.Review(r.Context(), id, req.Approved, req.Reviewer, req.Comments); err != nil {
		if errors.Is(err, workitem.ErrNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "no such task")
			return
		}
		respondError(w, http.StatusInternalServerError, "review_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"reviewed": id, "approved": req.Approved})
}

type doneRequest struct {
	Delegate string `json:"delegate,omitempty"`
}

func (s *Server) markDone(w http.ResponseWriter, r *http.Request) {
	rt := orgFrom(r)
	id, err := parseUUIDParam(r, "taskId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", "invalid task id")
		return
	}
	var req doneRequest
	_ = decodeBody(r, &req)
	if req.Delegate == "" {
		req.Delegate = "operator"
	}
	if err := rt.Tasks.MarkDoneByDelegate(r.Context(), id, req.Delegate); err != nil {
		if errors.Is(err, workitem.ErrNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "no such task")
			return
		}
		respondError(w, http.StatusInternalServerError, "done_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"done": id})
}

type subtaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Domain      string `json:"domain,omitempty"`
	Owner       string `json:"owner,omitempty"`
	Priority    int    `json:"priority,omitempty"`
}

func (s *Server) createSubtask(w http.ResponseWriter, r *http.Request) {
	rt := orgFrom(r)
	parentID, err := parseUUIDParam(r, "taskId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", "invalid task id")
		return
	}
	var req subtaskRequest
	if err := decodeBody(r, &req); err != nil || req.Title == "" {
		respondError(w, http.StatusBadRequest, "bad_request", "title is required")
		return
	}
	if req.Description == "" {
		req.Description = req.Title
	}
	child, err := rt.Tasks.CreateSubtask(r.Context(), parentID, workitem.Draft{
		Title:       req.Title,
		Description: req.Description,
		Domain:      req.Domain,
		Owner:       req.Owner,
		Priority:    req.Priority,
		Tool:        workitem.ToolLog,
	})
	if err != nil {
		if errors.Is(err, workitem.ErrParentNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "no such parent task")
			return
		}
		respondError(w, http.StatusInternalServerError, "subtask_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, child)
}

type readingRequest struct {
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	Unit      string  `json:"unit,omitempty"`
	Source    string  `json:"source,omitempty"`
	Timestamp string  `json:"timestamp,omitempty"`
}

func (s *Server) recordReading(w http.ResponseWriter, r *http.Request) {
	rt := orgFrom(r)
	var req readingRequest
	if err := decodeBody(r, &req); err != nil || req.Name == "" {
		respondError(w, http.StatusBadRequest, "bad_request", "name is required")
		return
	}
	reading := metric.Reading{Name: req.Name, Value: req.Value, Unit: req.Unit, Source: req.Source}
	if req.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			respondError(w, http.StatusBadRequest, "bad_request", "timestamp must be RFC3339")
			return
		}
		reading.Timestamp = ts
	}
	alerts, err := rt.KPI.Record(r.Context(), reading)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "record_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{"alerts": alerts})
}

func (s *Server) trends(w http.ResponseWriter, r *http.Request) {
	rt := orgFrom(r)
	if name := r.URL.Query().Get("metric"); name != "" {
		snap, err := rt.KPI.AnalyzeTrend(r.Context(), name)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "trend_failed", err.Error())
			return
		}
		if snap == nil {
			respondJSON(w, http.StatusOK, map[string]interface{}{"metric": name, "trend": nil, "reason": "insufficient history"})
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"metric": name, "trend": snap})
		return
	}
	recs, err := rt.KPI.ProactiveRecommendations(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "trend_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"recommendations": recs})
}

func (s *Server) staff(w http.ResponseWriter, r *http.Request) {
	rt := orgFrom(r)
	roster, err := rt.Pool.Summarize(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "staff_failed", err.Error())
		return
	}
	byRole, byDept, err := rt.Pool.Breakdown(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "staff_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"staff":        roster,
		"byRole":       byRole,
		"byDepartment": byDept,
	})
}

// learningPatterns reports accumulated executor success patterns; with
// ?domain= it also names the best-scoring executor for that domain.
func (s *Server) learningPatterns(w http.ResponseWriter, r *http.Request) {
	rt := orgFrom(r)
	resp := map[string]interface{}{"patterns": rt.Learning.Patterns()}
	if domain := r.URL.Query().Get("domain"); domain != "" {
		if best, ok := rt.Learning.BestExecutor(domain); ok {
			resp["bestExecutor"] = best
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// stream serves the org's live event feed as server-sent events.
func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	rt := orgFrom(r)
	fl, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "stream_unsupported", "response writer cannot stream")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	id, ch := s.app.Stream.Subscribe(rt.Key)
	defer s.app.Stream.Unsubscribe(id)

	writeSSE(w, "connected", rt.Key)
	fl.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, open := <-ch:
			if !open {
				return
			}
			writeSSE(w, msg.Event, msg.Data)
			fl.Flush()
		}
	}
}

// writeSSE emits one event, splitting multi-line data across data: lines as
// the protocol requires.
func writeSSE(w io.Writer, event, data string) {
	fmt.Fprintf(w, "event: %s\n", event)
	for _, line := range strings.Split(data, "\n") {
		fmt.Fprintf(w, "data: %s\n", line)
	}
	fmt.Fprint(w, "\n")
}

func (s *Server) journalSummary(w http.ResponseWriter, r *http.Request) {
	rt := orgFrom(r)
	day := time.Now().UTC()
	if v := r.URL.Query().Get("date"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "bad_request", "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}
	sum, err := rt.Journal.Summary(r.Context(), day)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "summary_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, sum)
}
