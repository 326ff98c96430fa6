package memory

import (
	"fmt"
	"time"
)

// Save request variants. Exactly one variant is produced per payload;
// the boundary decides, never the store.

// SaveRequest is a tagged save operation decided at the boundary.
type SaveRequest interface{ isSaveRequest() }

// SaveMessage appends a conversation turn.
type SaveMessage struct {
	SessionID string
	Role      string
	Content   string
	Timestamp time.Time
}

// RecordOperation appends an operation audit entry.
type RecordOperation struct {
	SessionID string
	OpType    string
	Summary   string
	Metadata  map[string]string
}

// PutFact appends a new version of a key/value fact.
type PutFact struct {
	SessionID string
	Key       string
	Value     any
}

func (SaveMessage) isSaveRequest()     {}
func (RecordOperation) isSaveRequest() {}
func (PutFact) isSaveRequest()         {}

// QueryRequest is a tagged query operation decided at the boundary.
type QueryRequest interface{ isQueryRequest() }

// QueryContext reads the most recent turns for a session.
type QueryContext struct {
	SessionID string
	Limit     int
}

// SearchContext searches turns by content substring.
type SearchContext struct {
	SessionID string
	Keyword   string
	Limit     int
}

// QueryOperations reads the most recent operation records.
type QueryOperations struct {
	SessionID string
	Limit     int
}

// SearchOperations searches operation records by summary substring.
type SearchOperations struct {
	SessionID string
	Keyword   string
	Limit     int
}

// GetFact reads the most recent value for a key.
type GetFact struct {
	SessionID string
	Key       string
}

func (QueryContext) isQueryRequest()     {}
func (SearchContext) isQueryRequest()    {}
func (QueryOperations) isQueryRequest()  {}
func (SearchOperations) isQueryRequest() {}
func (GetFact) isQueryRequest()          {}

// ErrInvalidPayload marks a payload whose fields resolve to no request
// variant, or to more than one.
const invalidPayloadMsg = "invalid_payload"

const defaultQueryLimit = 10

// ParseSave resolves a raw save payload into exactly one SaveRequest.
// Resolution is by field presence: content ⇒ message, op_type+summary ⇒
// operation, key+value ⇒ fact. Ambiguous or incomplete combinations are
// rejected rather than guessed at.
func ParseSave(payload map[string]any) (SaveRequest, error) {
	sessionID, _ := payload["session_id"].(string)

	_, hasContent := payload["content"]
	_, hasOpType := payload["op_type"]
	_, hasSummary := payload["summary"]
	_, hasKey := payload["key"]
	_, hasValue := payload["value"]

	isMessage := hasContent
	isOperation := hasOpType && hasSummary
	isFact := hasKey && hasValue

	matched := 0
	for _, ok := range []bool{isMessage, isOperation, isFact} {
		if ok {
			matched++
		}
	}
	if matched != 1 {
		return nil, fmt.Errorf("%s", invalidPayloadMsg)
	}

	switch {
	case isMessage:
		content, ok := payload["content"].(string)
		if !ok {
			return nil, fmt.Errorf("%s", invalidPayloadMsg)
		}
		role, _ := payload["role"].(string)
		if role == "" {
			role = "user"
		}
		return SaveMessage{SessionID: sessionID, Role: role, Content: content}, nil

	case isOperation:
		opType, okT := payload["op_type"].(string)
		summary, okS := payload["summary"].(string)
		if !okT || !okS {
			return nil, fmt.Errorf("%s", invalidPayloadMsg)
		}
		var metadata map[string]string
		if raw, ok := payload["metadata"].(map[string]any); ok {
			metadata = make(map[string]string, len(raw))
			for k, v := range raw {
				metadata[k] = fmt.Sprint(v)
			}
		}
		return RecordOperation{SessionID: sessionID, OpType: opType, Summary: summary, Metadata: metadata}, nil

	default:
		key, ok := payload["key"].(string)
		if !ok || key == "" {
			return nil, fmt.Errorf("%s", invalidPayloadMsg)
		}
		return PutFact{SessionID: sessionID, Key: key, Value: payload["value"]}, nil
	}
}

// ParseQuery resolves a raw query payload into exactly one QueryRequest
// using the "type" discriminator.
func ParseQuery(payload map[string]any) (QueryRequest, error) {
	sessionID, _ := payload["session_id"].(string)
	keyword, _ := payload["keyword"].(string)

	limit := defaultQueryLimit
	if raw, ok := payload["limit"].(float64); ok && raw > 0 {
		limit = int(raw)
	}

	typ, _ := payload["type"].(string)
	switch typ {
	case "recent", "context", "":
		return QueryContext{SessionID: sessionID, Limit: limit}, nil
	case "search":
		if keyword == "" {
			return nil, fmt.Errorf("%s", invalidPayloadMsg)
		}
		return SearchContext{SessionID: sessionID, Keyword: keyword, Limit: limit}, nil
	case "operations":
		return QueryOperations{SessionID: sessionID, Limit: limit}, nil
	case "search_operations":
		if keyword == "" {
			return nil, fmt.Errorf("%s", invalidPayloadMsg)
		}
		return SearchOperations{SessionID: sessionID, Keyword: keyword, Limit: limit}, nil
	case "fact":
		key, _ := payload["key"].(string)
		if key == "" {
			return nil, fmt.Errorf("%s", invalidPayloadMsg)
		}
		return GetFact{SessionID: sessionID, Key: key}, nil
	default:
		return nil, fmt.Errorf("%s", invalidPayloadMsg)
	}
}
