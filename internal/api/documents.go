package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/inkwell/inkwell-cli/internal/models"
	"github.com/inkwell/inkwell-cli/internal/observability"
	"github.com/inkwell/inkwell-cli/internal/output"
	"github.com/inkwell/inkwell-cli/internal/version"
)

// ListOptions filters ListDocuments.
type ListOptions struct {
	Archived     bool
	UpdatedSince time.Time
	Query        string
	Limit        int
}

// ListDocuments fetches document summaries, following pagination unless a
// limit is set.
func (c *Client) ListDocuments(ctx context.Context, opts ListOptions) ([]models.DocumentSummary, error) {
	ctx, done := c.startOp(ctx, "documents.list", "", false)

	path := "/v1/documents"
	if q := opts.query(); q != "" {
		path += "?" + q
	}

	var docs []models.DocumentSummary
	var err error

	if opts.Limit > 0 {
		var resp *Response
		resp, err = c.Get(ctx, path)
		if err == nil {
			err = resp.UnmarshalData(&docs)
		}
	} else {
		var pages []json.RawMessage
		pages, err = c.GetAll(ctx, path)
		if err == nil {
			docs = make([]models.DocumentSummary, 0, len(pages))
			for _, raw := range pages {
				var d models.DocumentSummary
				if uerr := json.Unmarshal(raw, &d); uerr != nil {
					err = uerr
					break
				}
				docs = append(docs, d)
			}
		}
	}

	done(err)
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (o ListOptions) query() string {
	v := url.Values{}
	if o.Archived {
		v.Set("archived", "true")
	}
	if !o.UpdatedSince.IsZero() {
		v.Set("updated_since", o.UpdatedSince.UTC().Format(time.RFC3339))
	}
	if o.Query != "" {
		v.Set("q", o.Query)
	}
	if o.Limit > 0 {
		v.Set("limit", strconv.Itoa(o.Limit))
	}
	return v.Encode()
}

// GetDocument fetches a single document by ID.
func (c *Client) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	ctx, done := c.startOp(ctx, "documents.get", id, false)

	resp, err := c.Get(ctx, "/v1/documents/"+url.PathEscape(id))
	var doc models.Document
	if err == nil {
		err = resp.UnmarshalData(&doc)
	}

	done(err)
	if err != nil {
		return nil, remapNotFound(err, id)
	}
	return &doc, nil
}

// CreateDocument creates a new document.
func (c *Client) CreateDocument(ctx context.Context, doc models.NewDocument) (*models.Document, error) {
	ctx, done := c.startOp(ctx, "documents.create", "", true)

	resp, err := c.Post(ctx, "/v1/documents", doc)
	var created models.Document
	if err == nil {
		err = resp.UnmarshalData(&created)
	}

	done(err)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateDocument writes body and title against a base revision. The service
// compares baseVersion to its current revision and answers 409 when they
// diverge, carrying its copy of the document.
func (c *Client) UpdateDocument(ctx context.Context, id, body, title string, baseVersion int64) (*models.Document, error) {
	ctx, done := c.startOp(ctx, "documents.update", id, true)

	update := models.DocumentUpdate{
		Title:       title,
		Body:        body,
		BaseVersion: baseVersion,
	}

	resp, err := c.Put(ctx, "/v1/documents/"+url.PathEscape(id), update)
	var updated models.Document
	if err == nil {
		err = resp.UnmarshalData(&updated)
	}

	done(err)
	if err != nil {
		return nil, remapNotFound(err, id)
	}
	return &updated, nil
}

// DeleteDocument removes a document.
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	ctx, done := c.startOp(ctx, "documents.delete", id, true)

	_, err := c.Delete(ctx, "/v1/documents/"+url.PathEscape(id))

	done(err)
	if err != nil {
		return remapNotFound(err, id)
	}
	return nil
}

// Me fetches the authenticated account.
func (c *Client) Me(ctx context.Context) (*models.Account, error) {
	ctx, done := c.startOp(ctx, "me", "", false)

	resp, err := c.Get(ctx, "/v1/me")
	var account models.Account
	if err == nil {
		err = resp.UnmarshalData(&account)
	}

	done(err)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// Health checks service reachability without authentication. Outcomes feed
// the connectivity reporter like any other request.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL("/v1/health"), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.reportFailure()
		return output.ErrNetwork(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		c.reportFailure()
		return output.ErrAPI(resp.StatusCode, fmt.Sprintf("Service unhealthy (HTTP %d)", resp.StatusCode))
	}

	c.reportSuccess()
	return nil
}

// startOp opens an operation span around a typed API call.
func (c *Client) startOp(ctx context.Context, name, docID string, mutation bool) (context.Context, func(error)) {
	op := observability.OperationInfo{
		Operation:  name,
		DocumentID: docID,
		IsMutation: mutation,
	}
	ctx = c.hooks.OnOperationStart(ctx, op)
	start := time.Now()

	return ctx, func(err error) {
		c.hooks.OnOperationEnd(ctx, op, err, time.Since(start))
	}
}

// remapNotFound rewrites the generic 404 message with the document reference
// the caller used.
func remapNotFound(err error, id string) error {
	if e, ok := err.(*output.Error); ok && e.Code == output.CodeNotFound {
		return output.ErrNotFoundHint("Document", id, "List documents with: inkwell docs list")
	}
	return err
}
