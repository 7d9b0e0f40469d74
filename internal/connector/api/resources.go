package api

import (
	"context"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
)

// Resource wraps an entity endpoint (customer, invoice, ...) with the
// common CRUD and query operations.
type Resource struct {
	client *CompanyClient
	name   string
}

// Resource returns a helper for an arbitrary entity name.
func (c *CompanyClient) Resource(name string) Resource {
	return Resource{client: c, name: strings.ToLower(name)}
}

func (c *CompanyClient) Accounts() Resource    { return c.Resource("account") }
func (c *CompanyClient) Bills() Resource       { return c.Resource("bill") }
func (c *CompanyClient) CreditMemos() Resource { return c.Resource("creditmemo") }
func (c *CompanyClient) Employees() Resource   { return c.Resource("employee") }
func (c *CompanyClient) Estimates() Resource   { return c.Resource("estimate") }
func (c *CompanyClient) Invoices() Resource    { return c.Resource("invoice") }
func (c *CompanyClient) Items() Resource       { return c.Resource("item") }
func (c *CompanyClient) Payments() Resource    { return c.Resource("payment") }
func (c *CompanyClient) Vendors() Resource     { return c.Resource("vendor") }

// Customers carries an extra lookup on top of the generic resource.
func (c *CompanyClient) Customers() CustomerResource {
	return CustomerResource{Resource{client: c, name: "customer"}}
}

// entity is the capitalized form used in query statements, e.g. "Customer".
func (r Resource) entity() string {
	return strings.ToUpper(r.name[:1]) + r.name[1:]
}

// All lists entities via a full-table query.
func (r Resource) All(ctx context.Context) (map[string]any, error) {
	return r.client.Query(ctx, "SELECT * FROM "+r.entity())
}

// Find fetches one entity by provider id.
func (r Resource) Find(ctx context.Context, id string) (map[string]any, error) {
	return r.client.Get(ctx, r.name+"/"+url.PathEscape(id), nil)
}

// Create posts a new entity.
func (r Resource) Create(ctx context.Context, payload map[string]any) (map[string]any, error) {
	return r.client.Post(ctx, r.name, payload)
}

// Update performs a full update. The payload must carry the provider's
// Id and SyncToken fields.
func (r Resource) Update(ctx context.Context, payload map[string]any) (map[string]any, error) {
	return r.client.Post(ctx, r.name, payload)
}

// SparseUpdate updates only the supplied fields, leaving the rest intact.
func (r Resource) SparseUpdate(ctx context.Context, payload map[string]any) (map[string]any, error) {
	sparse := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		sparse[k] = v
	}
	sparse["sparse"] = true
	return r.client.Post(ctx, r.name, sparse)
}

// Query runs a statement against this entity with a caller-supplied
// WHERE clause, e.g. `Active = true`.
func (r Resource) Query(ctx context.Context, where string) (map[string]any, error) {
	stmt := "SELECT * FROM " + r.entity()
	if where != "" {
		stmt += " WHERE " + where
	}
	return r.client.Query(ctx, stmt)
}

type CustomerResource struct {
	Resource
}

// FindByEmail looks a customer up by primary email address.
func (r CustomerResource) FindByEmail(ctx context.Context, email string) (map[string]any, error) {
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("invalid email address %q: %w", email, err)
	}
	return r.Query(ctx, "PrimaryEmailAddr = '"+escapeQueryValue(email)+"'")
}

// escapeQueryValue escapes the characters the provider's query language
// treats specially inside single-quoted literals.
func escapeQueryValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return v
}
