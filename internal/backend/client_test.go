package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/starford/graphflow/internal/apperr"
	"github.com/starford/graphflow/internal/workflow"
)

func testServer(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return New(srv.URL + "/")
}

func TestProceduresAndGraphs(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /gaf", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`["cypher","page_rank"]`))
	})
	mux.HandleFunc("GET /graphs", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"default/Graph/b":{},"default/Graph/a":{"name":"a"}}`))
	})
	c := testServer(t, mux)

	keys, err := c.Procedures(context.Background())
	if err != nil || len(keys) != 2 || keys[1] != "page_rank" {
		t.Fatalf("Procedures = %v, %v", keys, err)
	}
	ids, err := c.Graphs(context.Background())
	if err != nil || len(ids) != 2 || ids[0] != "default/Graph/a" {
		t.Fatalf("Graphs = %v, %v", ids, err)
	}
}

func TestConfigSchema(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /configs/export", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"Export":{"sink_infra":{"input_type":"select","key":"infra","value":["redis"]}}}`))
	})
	c := testServer(t, mux)

	s, err := c.ConfigSchema(context.Background(), "export")
	if err != nil {
		t.Fatalf("ConfigSchema: %v", err)
	}
	if len(s.Entries) != 1 || s.Entries[0].Name != "Export" {
		t.Errorf("schema = %+v", s.Entries)
	}
}

func TestNon2xxIsBackendError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /gaf", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	c := testServer(t, mux)
	_, err := c.Procedures(context.Background())
	if !errors.Is(err, apperr.ErrBackend) {
		t.Fatalf("err = %v, want ErrBackend", err)
	}
}

func TestTransformationNotFound(t *testing.T) {
	c := testServer(t, http.NewServeMux())
	_, err := c.Transformation(context.Background(), "default/Transformation/x")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSaveTransformation(t *testing.T) {
	var got workflow.Record
	mux := http.NewServeMux()
	mux.HandleFunc("POST /transformation", func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(data, &got); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(got.ResourceID()))
	})
	c := testServer(t, mux)

	id, err := c.SaveTransformation(context.Background(), &workflow.Record{Name: "wf", Body: "{}"})
	if err != nil {
		t.Fatalf("SaveTransformation: %v", err)
	}
	if id != "default/Transformation/wf" || got.Name != "wf" {
		t.Errorf("id = %q, record = %+v", id, got)
	}
}

func TestSaveTransformationNon200(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /transformation", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	c := testServer(t, mux)
	if _, err := c.SaveTransformation(context.Background(), &workflow.Record{Name: "wf", Body: "{}"}); !errors.Is(err, apperr.ErrBackend) {
		t.Fatalf("err = %v, want ErrBackend", err)
	}
}
