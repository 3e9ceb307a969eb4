package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/inkwell/inkwell-cli/internal/models"
	"github.com/inkwell/inkwell-cli/internal/output"
)

func TestListDocuments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/documents" {
			t.Errorf("Path = %q, want /v1/documents", r.URL.Path)
		}
		fmt.Fprint(w, `[
			{"id": "doc-1", "slug": "first-post", "title": "First post", "version": 3},
			{"id": "doc-2", "slug": "second-post", "title": "Second post", "version": 1}
		]`)
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL, &staticTokens{token: "tok"})

	docs, err := client.ListDocuments(context.Background(), ListOptions{})
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("Documents = %d, want 2", len(docs))
	}
	if docs[0].ID != "doc-1" || docs[0].Slug != "first-post" {
		t.Errorf("First doc = %+v", docs[0])
	}
	if docs[1].Version != 1 {
		t.Errorf("Second doc version = %d, want 1", docs[1].Version)
	}
}

func TestListDocumentsQueryParams(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, `[]`)
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL, &staticTokens{token: "tok"})

	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err := client.ListDocuments(context.Background(), ListOptions{
		Archived:     true,
		UpdatedSince: since,
		Query:        "draft",
		Limit:        25,
	})
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}

	q := "archived=true&limit=25&q=draft&updated_since=2026-03-01T00%3A00%3A00Z"
	if gotQuery != q {
		t.Errorf("Query = %q, want %q", gotQuery, q)
	}
}

func TestGetDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/documents/doc-1" {
			t.Errorf("Path = %q", r.URL.Path)
		}
		fmt.Fprint(w, `{"id": "doc-1", "title": "First post", "body": "Hello", "version": 3}`)
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL, &staticTokens{token: "tok"})

	doc, err := client.GetDocument(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if doc.ID != "doc-1" || doc.Body != "Hello" || doc.Version != 3 {
		t.Errorf("Document = %+v", doc)
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL, &staticTokens{token: "tok"})

	_, err := client.GetDocument(context.Background(), "missing")
	if err == nil {
		t.Fatal("GetDocument should fail")
	}

	apiErr := output.AsError(err)
	if apiErr.Code != output.CodeNotFound {
		t.Errorf("Code = %q, want %q", apiErr.Code, output.CodeNotFound)
	}
	// The reference the caller used, not the URL, names the document
	if apiErr.Message != "Document not found: missing" {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestCreateDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/v1/documents" {
			t.Errorf("%s %s, want POST /v1/documents", r.Method, r.URL.Path)
		}

		body, _ := io.ReadAll(r.Body)
		var req models.NewDocument
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("Request body: %v", err)
		}
		if req.Title != "New post" {
			t.Errorf("Title = %q", req.Title)
		}

		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": "doc-9", "title": "New post", "version": 1}`)
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL, &staticTokens{token: "tok"})

	doc, err := client.CreateDocument(context.Background(), models.NewDocument{Title: "New post", Body: "Hello"})
	if err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}
	if doc.ID != "doc-9" {
		t.Errorf("ID = %q, want doc-9", doc.ID)
	}
}

func TestUpdateDocumentSendsBaseVersion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "PUT" || r.URL.Path != "/v1/documents/doc-1" {
			t.Errorf("%s %s, want PUT /v1/documents/doc-1", r.Method, r.URL.Path)
		}

		body, _ := io.ReadAll(r.Body)
		var req models.DocumentUpdate
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("Request body: %v", err)
		}
		if req.Body != "New body" || req.Title != "New title" {
			t.Errorf("Update = %+v", req)
		}
		if req.BaseVersion != 7 {
			t.Errorf("BaseVersion = %d, want 7", req.BaseVersion)
		}

		fmt.Fprint(w, `{"id": "doc-1", "title": "New title", "body": "New body", "version": 8}`)
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL, &staticTokens{token: "tok"})

	doc, err := client.UpdateDocument(context.Background(), "doc-1", "New body", "New title", 7)
	if err != nil {
		t.Fatalf("UpdateDocument failed: %v", err)
	}
	if doc.Version != 8 {
		t.Errorf("Version = %d, want 8", doc.Version)
	}
}

func TestUpdateDocumentStaleRevisionConflicts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprint(w, `{"message": "Version conflict", "document": {"id": "doc-1", "version": 9, "body": "Theirs"}}`)
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL, &staticTokens{token: "tok"})

	_, err := client.UpdateDocument(context.Background(), "doc-1", "Mine", "", 7)
	if !output.IsConflict(err) {
		t.Fatalf("IsConflict = false for %v", err)
	}
	info, ok := output.ConflictDetails(err)
	if !ok || info.RemoteVersion != 9 || info.RemoteBody != "Theirs" {
		t.Errorf("ConflictDetails = %+v, ok=%v", info, ok)
	}
}

func TestDeleteDocument(t *testing.T) {
	var deleted bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "DELETE" && r.URL.Path == "/v1/documents/doc-1" {
			deleted = true
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL, &staticTokens{token: "tok"})

	if err := client.DeleteDocument(context.Background(), "doc-1"); err != nil {
		t.Fatalf("DeleteDocument failed: %v", err)
	}
	if !deleted {
		t.Error("Server never saw the delete")
	}
}

func TestDocumentIDsAreEscaped(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		fmt.Fprint(w, `{"id": "a/b"}`)
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL, &staticTokens{token: "tok"})

	if _, err := client.GetDocument(context.Background(), "a/b"); err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if gotPath != "/v1/documents/a%2Fb" {
		t.Errorf("Path = %q, want escaped id", gotPath)
	}
}

func TestMe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/me" {
			t.Errorf("Path = %q, want /v1/me", r.URL.Path)
		}
		fmt.Fprint(w, `{"id": "acct-1", "email": "writer@example.com", "plan": "pro"}`)
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL, &staticTokens{token: "tok"})

	account, err := client.Me(context.Background())
	if err != nil {
		t.Fatalf("Me failed: %v", err)
	}
	if account.Email != "writer@example.com" || account.Plan != "pro" {
		t.Errorf("Account = %+v", account)
	}
}

func TestHealth(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/v1/health" {
			t.Errorf("Path = %q, want /v1/health", r.URL.Path)
		}
		fmt.Fprint(w, `{"status": "ok"}`)
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL, &staticTokens{token: "tok"})

	if err := client.Health(context.Background()); err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if gotAuth != "" {
		t.Errorf("Health should not send credentials, got %q", gotAuth)
	}
}

func TestHealthUnhealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL, &staticTokens{token: "tok"})

	if err := client.Health(context.Background()); err == nil {
		t.Fatal("Health should fail on a 5xx")
	}
}
