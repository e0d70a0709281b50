package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/tablewright/tablewright/internal/ddl"
	"github.com/tablewright/tablewright/internal/diagram"
	"github.com/tablewright/tablewright/internal/executor"
	"github.com/tablewright/tablewright/internal/render"
	"github.com/tablewright/tablewright/internal/state"
)

const defaultHistoryLimit = 50

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleConnections(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, s.engine.Connections())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			errorResponse(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	conn := r.PathValue("conn")
	if _, err := s.engine.ResolveSchema(conn, ""); err != nil {
		writeError(w, err)
		return
	}
	entries, err := s.engine.History(r.Context(), conn, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, entries)
}

func (s *Server) handleTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.engine.ColumnTypes(r.URL.Query().Get("engine"))
	if err != nil {
		writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, types)
}

func (s *Server) handleGetWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, err := s.engine.Workspace()
	if err != nil {
		writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, ws)
}

func (s *Server) handlePutWorkspace(w http.ResponseWriter, r *http.Request) {
	var ws state.Workspace
	if err := json.NewDecoder(r.Body).Decode(&ws); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.engine.SaveWorkspace(&ws); err != nil {
		writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, &ws)
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	tables, err := s.engine.Tables(r.Context(), r.PathValue("conn"), r.PathValue("schema"))
	if err != nil {
		writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, tables)
}

func (s *Server) handleTableSchema(w http.ResponseWriter, r *http.Request) {
	t, err := s.engine.TableSchema(r.Context(), r.PathValue("conn"), r.PathValue("schema"), r.PathValue("table"))
	if err != nil {
		writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, t)
}

// session returns the diagram named by the request path, writing the error
// response itself when it cannot.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*diagram.Session, bool) {
	sess, err := s.engine.Diagram(r.Context(), r.PathValue("conn"), r.PathValue("schema"))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) currentView(connectionID, schemaName string) (*diagram.View, bool) {
	sess, ok := s.engine.Session(connectionID, schemaName)
	if !ok {
		return nil, false
	}
	v := sess.View()
	return v, v != nil
}

func (s *Server) handleDiagram(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if strategy := r.URL.Query().Get("layout"); strategy != "" {
		view, err := sess.SetLayout(strategy)
		if err != nil {
			errorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
		jsonResponse(w, http.StatusOK, view)
		return
	}
	jsonResponse(w, http.StatusOK, sess.View())
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.Refresh(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, sess.View())
}

func (s *Server) handleMermaid(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(render.Mermaid(sess.Graph())))
}

// writeOutcome answers an intent or confirm request.
func writeOutcome(w http.ResponseWriter, out *executor.Outcome, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, operationResponse(out))
}

func (s *Server) handleCreateTable(w http.ResponseWriter, r *http.Request) {
	var req CreateTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	out, err := sess.CreateTable(r.Context(), req.Name)
	writeOutcome(w, out, err)
}

func (s *Server) handleDropTable(w http.ResponseWriter, r *http.Request) {
	cascade := false
	if v := r.URL.Query().Get("cascade"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errorResponse(w, http.StatusBadRequest, "cascade must be true or false")
			return
		}
		cascade = b
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	out, err := sess.DropTable(r.Context(), r.PathValue("table"), cascade)
	writeOutcome(w, out, err)
}

func (s *Server) handleAddColumn(w http.ResponseWriter, r *http.Request) {
	var req AddColumnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	out, err := sess.AddColumn(r.Context(), r.PathValue("table"), ddl.ColumnSpec{
		Name:     req.Name,
		Type:     req.Type,
		Nullable: req.Nullable,
		Default:  req.Default,
	})
	writeOutcome(w, out, err)
}

func (s *Server) handleDropColumn(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	out, err := sess.DropColumn(r.Context(), r.PathValue("table"), r.PathValue("column"))
	writeOutcome(w, out, err)
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	out, err := sess.Connect(r.Context(), req.SourceTable, req.SourceColumn, req.TargetTable, req.TargetColumn)
	writeOutcome(w, out, err)
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, PendingResponse{State: sess.State(), Pending: sess.Pending()})
}

func pendingID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid operation id")
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	id, ok := pendingID(w, r)
	if !ok {
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	out, err := sess.Confirm(r.Context(), id)
	writeOutcome(w, out, err)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pendingID(w, r)
	if !ok {
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.Cancel(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"status": "cancelled"})
}
