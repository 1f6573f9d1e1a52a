package store

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/shelfcheck/internal/core/model"
)

type executed struct {
	Query  string
	Params map[string]interface{}
}

// MockDriver keeps Verification nodes as JSON strings and answers the
// store queries.
type MockDriver struct {
	Executed []executed
	Nodes    []string
	Err      error
	Indexed  bool
	Closed   bool
}

func (m *MockDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	m.Executed = append(m.Executed, executed{Query: query, Params: params})
	if m.Err != nil {
		return neo4j.EagerResult{}, m.Err
	}

	switch {
	case strings.Contains(query, "count(v)"):
		var n int64
		for _, node := range m.Nodes {
			var rec model.VerificationRecord
			_ = json.Unmarshal([]byte(node), &rec)
			if rec.ID == params["id"] {
				n++
			}
		}
		return neo4j.EagerResult{Records: []*neo4j.Record{{Keys: []string{"n"}, Values: []any{n}}}}, nil
	case strings.Contains(query, "CREATE (v:Verification"):
		m.Nodes = append(m.Nodes, params["record"].(string))
		return neo4j.EagerResult{}, nil
	case strings.Contains(query, "LIMIT 1"):
		for _, node := range m.Nodes {
			var rec model.VerificationRecord
			_ = json.Unmarshal([]byte(node), &rec)
			if rec.ID == params["id"] {
				return neo4j.EagerResult{Records: []*neo4j.Record{{Keys: []string{"record"}, Values: []any{node}}}}, nil
			}
		}
		return neo4j.EagerResult{}, nil
	default:
		var rows []*neo4j.Record
		for _, node := range m.Nodes {
			rows = append(rows, &neo4j.Record{Keys: []string{"record"}, Values: []any{node}})
		}
		return neo4j.EagerResult{Records: rows}, nil
	}
}

func (m *MockDriver) BuildIndices(ctx context.Context) error {
	m.Indexed = true
	return nil
}

func (m *MockDriver) Close(ctx context.Context) error {
	m.Closed = true
	return nil
}
