package memory

import (
	"context"
	"errors"
)

// Status is the outcome class of a Handle call.
type Status string

// Status values returned across the store boundary.
const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
	StatusMiss  Status = "miss"
)

// Result is the structured outcome of a Handle call. Errors never cross
// the store boundary as Go errors; they are carried in Status and Msg.
type Result struct {
	Status Status `json:"status"`
	Data   any    `json:"data,omitempty"`
	Msg    string `json:"msg,omitempty"`
}

// Handle is the unified dispatch entry for the memory surface.
// mode is "save" or "query"; the payload is resolved into exactly one
// typed request at this boundary. An absent fact lookup yields
// StatusMiss, distinct from StatusError.
func Handle(ctx context.Context, store Store, mode string, payload map[string]any) Result {
	switch mode {
	case "save":
		req, err := ParseSave(payload)
		if err != nil {
			return Result{Status: StatusError, Msg: invalidPayloadMsg}
		}
		return executeSave(ctx, store, req)
	case "query":
		req, err := ParseQuery(payload)
		if err != nil {
			return Result{Status: StatusError, Msg: invalidPayloadMsg}
		}
		return executeQuery(ctx, store, req)
	default:
		return Result{Status: StatusError, Msg: "unknown mode: " + mode}
	}
}

func executeSave(ctx context.Context, store Store, req SaveRequest) Result {
	var err error
	switch r := req.(type) {
	case SaveMessage:
		err = store.AppendMessage(ctx, r.SessionID, r.Role, r.Content, r.Timestamp)
	case RecordOperation:
		err = store.RecordOperation(ctx, r.SessionID, r.OpType, r.Summary, r.Metadata)
	case PutFact:
		err = store.PutFact(ctx, r.SessionID, r.Key, r.Value)
	default:
		return Result{Status: StatusError, Msg: invalidPayloadMsg}
	}
	if err != nil {
		return Result{Status: StatusError, Msg: err.Error()}
	}
	return Result{Status: StatusOK}
}

func executeQuery(ctx context.Context, store Store, req QueryRequest) Result {
	switch r := req.(type) {
	case QueryContext:
		turns, err := store.RecentMessages(ctx, r.SessionID, r.Limit)
		return collectionResult(turns, err)
	case SearchContext:
		turns, err := store.SearchMessages(ctx, r.SessionID, r.Keyword, r.Limit)
		return collectionResult(turns, err)
	case QueryOperations:
		ops, err := store.RecentOperations(ctx, r.SessionID, r.Limit)
		return collectionResult(ops, err)
	case SearchOperations:
		ops, err := store.SearchOperations(ctx, r.SessionID, r.Keyword, r.Limit)
		return collectionResult(ops, err)
	case GetFact:
		value, err := store.GetFact(ctx, r.SessionID, r.Key)
		if errors.Is(err, ErrFactNotFound) {
			return Result{Status: StatusMiss, Msg: "fact not found: " + r.Key}
		}
		if err != nil {
			return Result{Status: StatusError, Msg: err.Error()}
		}
		return Result{Status: StatusOK, Data: value}
	default:
		return Result{Status: StatusError, Msg: invalidPayloadMsg}
	}
}

func collectionResult[T Turn | Operation](items []T, err error) Result {
	if err != nil {
		return Result{Status: StatusError, Msg: err.Error()}
	}
	if items == nil {
		items = []T{}
	}
	return Result{Status: StatusOK, Data: items}
}
