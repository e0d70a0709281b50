package api

import (
	"github.com/tablewright/tablewright/internal/executor"
	"github.com/tablewright/tablewright/internal/source"
)

// CreateTableRequest is the body of POST …/diagram/tables.
type CreateTableRequest struct {
	Name string `json:"name"`
}

// AddColumnRequest is the body of POST …/diagram/tables/{table}/columns.
type AddColumnRequest struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
	Default  string `json:"default,omitempty"`
}

// ConnectRequest is the body of POST …/diagram/relationships.
type ConnectRequest struct {
	SourceTable  string `json:"source_table"`
	SourceColumn string `json:"source_column"`
	TargetTable  string `json:"target_table"`
	TargetColumn string `json:"target_column"`
}

// OperationResponse is returned by every intent endpoint and by confirm.
type OperationResponse struct {
	Status       executor.Status            `json:"status"`
	SQL          string                     `json:"sql"`
	Result       *source.QueryResult        `json:"result,omitempty"`
	Pending      *executor.PendingOperation `json:"pending,omitempty"`
	RefreshError string                     `json:"refresh_error,omitempty"`
}

func operationResponse(out *executor.Outcome) OperationResponse {
	resp := OperationResponse{
		Status:  out.Status,
		SQL:     out.SQL,
		Result:  out.Result,
		Pending: out.Pending,
	}
	if out.RefreshError != nil {
		resp.RefreshError = out.RefreshError.Error()
	}
	return resp
}

// PendingResponse describes the gate of a diagram.
type PendingResponse struct {
	State   executor.State             `json:"state"`
	Pending *executor.PendingOperation `json:"pending"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	SQL   string `json:"sql,omitempty"`
}
