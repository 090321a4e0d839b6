package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
)

func newSnapshotServer(t *testing.T) *httptest.Server {
	t.Helper()
	r := mux.NewRouter()
	r.HandleFunc("/orders/{id}", func(w http.ResponseWriter, req *http.Request) {
		if req.Header.Get("Accept") != "application/json" {
			t.Errorf("missing accept header")
		}
		switch mux.Vars(req)["id"] {
		case "3":
			io.WriteString(w, `{"id":3,"status":"shipped","items":[]}`)
		case "7":
			io.WriteString(w, `{"id":7,`)
		default:
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"detail":"Order not found"}`)
		}
	}).Methods(http.MethodGet)
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts
}

func TestFetchSnapshot(t *testing.T) {
	ts := newSnapshotServer(t)
	cli := &SnapshotClient{BaseURL: ts.URL + "/", HTTPClient: ts.Client()}

	snap, err := cli.FetchSnapshot(context.Background(), "3")
	if err != nil {
		t.Fatalf("fetch err: %v", err)
	}
	if snap.ID != "3" || snap.Status != "shipped" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestFetchSnapshotNotFound(t *testing.T) {
	ts := newSnapshotServer(t)
	cli := &SnapshotClient{BaseURL: ts.URL, HTTPClient: ts.Client()}

	_, err := cli.FetchSnapshot(context.Background(), "99")
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fe.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", fe.StatusCode)
	}
}

func TestFetchSnapshotMalformedBody(t *testing.T) {
	ts := newSnapshotServer(t)
	cli := &SnapshotClient{BaseURL: ts.URL, HTTPClient: ts.Client()}

	_, err := cli.FetchSnapshot(context.Background(), "7")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestFetchSnapshotTransportError(t *testing.T) {
	ts := newSnapshotServer(t)
	url := ts.URL
	ts.Close()
	cli := &SnapshotClient{BaseURL: url, HTTPClient: NewDefaultHTTPClient(0)}

	_, err := cli.FetchSnapshot(context.Background(), "3")
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fe.StatusCode != 0 || fe.Err == nil {
		t.Fatalf("unexpected fetch error %+v", fe)
	}
}

func TestFetchSnapshotNilClient(t *testing.T) {
	var cli *SnapshotClient
	if _, err := cli.FetchSnapshot(context.Background(), "3"); err == nil {
		t.Fatalf("expected error for nil client")
	}
}
