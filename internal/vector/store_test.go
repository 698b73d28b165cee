package vector

import (
	"context"
	"fmt"
	"testing"

	"github.com/recallhq/recall/internal/clients/pinecone"
	"github.com/recallhq/recall/internal/platform/logger"
	"github.com/recallhq/recall/internal/types"
)

type fakePinecone struct {
	describe    *pinecone.IndexDescription
	describeErr error

	upserts    []pinecone.UpsertRequest
	upsertHost string

	queryResp *pinecone.QueryResponse
	queryErr  error
	queryReq  pinecone.QueryRequest
}

func (f *fakePinecone) DescribeIndex(context.Context, string) (*pinecone.IndexDescription, error) {
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	return f.describe, nil
}

func (f *fakePinecone) UpsertVectors(_ context.Context, host string, req pinecone.UpsertRequest) (*pinecone.UpsertResponse, error) {
	f.upsertHost = host
	f.upserts = append(f.upserts, req)
	return &pinecone.UpsertResponse{UpsertedCount: int64(len(req.Vectors))}, nil
}

func (f *fakePinecone) Query(_ context.Context, _ string, req pinecone.QueryRequest) (*pinecone.QueryResponse, error) {
	f.queryReq = req
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.queryResp, nil
}

func newTestStore(t *testing.T, pc pinecone.Client) Store {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	t.Setenv("PINECONE_INDEX_NAME", "test-index")
	t.Setenv("PINECONE_INDEX_HOST", "test-index.example.io")
	t.Setenv("PINECONE_NAMESPACE", "test-ns")
	s, err := NewStore(log, pc)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func TestStore_HostBootstrapViaDescribe(t *testing.T) {
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	pc := &fakePinecone{describe: &pinecone.IndexDescription{Host: "resolved.example.io", Dimension: 3}}
	t.Setenv("PINECONE_INDEX_NAME", "test-index")
	t.Setenv("PINECONE_INDEX_HOST", "")
	t.Setenv("PINECONE_NAMESPACE", "")

	s, err := NewStore(log, pc)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if s.Dimension() != 3 {
		t.Fatalf("dimension: %d", s.Dimension())
	}

	// A known dimension rejects mismatched embeddings up front.
	err = s.Upsert(context.Background(), []types.VectorRecord{{ID: "a", Embedding: []float32{1, 2}}})
	if err == nil {
		t.Fatalf("expected dimension mismatch error")
	}
}

func TestStore_UpsertSendsNamespaceAndVectors(t *testing.T) {
	pc := &fakePinecone{}
	s := newTestStore(t, pc)

	records := []types.VectorRecord{
		{ID: "doc:0", Embedding: []float32{1, 2, 3}, Metadata: map[string]any{"text": "first"}},
		{ID: "doc:1", Embedding: []float32{4, 5, 6}, Metadata: map[string]any{"text": "second"}},
	}
	if err := s.Upsert(context.Background(), records); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if pc.upsertHost != "test-index.example.io" {
		t.Fatalf("host: %q", pc.upsertHost)
	}
	if len(pc.upserts) != 1 {
		t.Fatalf("expected 1 upsert call, got %d", len(pc.upserts))
	}
	req := pc.upserts[0]
	if req.Namespace != "test-ns" || len(req.Vectors) != 2 {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.Vectors[0].ID != "doc:0" {
		t.Fatalf("vector id: %q", req.Vectors[0].ID)
	}
}

func TestStore_UpsertRejectsMissingID(t *testing.T) {
	s := newTestStore(t, &fakePinecone{})
	err := s.Upsert(context.Background(), []types.VectorRecord{{ID: " ", Embedding: []float32{1}}})
	if err == nil {
		t.Fatalf("expected error for blank id")
	}
}

func TestStore_QueryDropsTextlessMatches(t *testing.T) {
	pc := &fakePinecone{queryResp: &pinecone.QueryResponse{
		Matches: []pinecone.QueryMatch{
			{ID: "a", Score: 0.9, Metadata: map[string]any{"text": "kept"}},
			{ID: "b", Score: 0.8, Metadata: map[string]any{"other": "x"}},
			{ID: "c", Score: 0.7, Metadata: map[string]any{"text": "  "}},
			{ID: "d", Score: 0.6, Metadata: map[string]any{"text": "also kept"}},
		},
	}}
	s := newTestStore(t, pc)

	got, err := s.Query(context.Background(), []float32{1, 2, 3}, 4)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 2 || got[0].Text != "kept" || got[1].Text != "also kept" {
		t.Fatalf("unexpected snippets: %+v", got)
	}
	if !pc.queryReq.IncludeMetadata || pc.queryReq.TopK != 4 || pc.queryReq.Namespace != "test-ns" {
		t.Fatalf("unexpected query request: %+v", pc.queryReq)
	}
}

func TestStore_QueryErrorPropagates(t *testing.T) {
	pc := &fakePinecone{queryErr: fmt.Errorf("index down")}
	s := newTestStore(t, pc)

	if _, err := s.Query(context.Background(), []float32{1}, 4); err == nil {
		t.Fatalf("expected error")
	}
}
