// Package router assembles the gin engine of the ledger API.
package router

import (
	"cmp"
	"net/http"
	"path"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
)

// APIPrefix is the mount point of every versioned resource
const APIPrefix = "/api/v1"

// Resource is a tree of routes sharing a path prefix and middleware.
// Routes are declared first and attached to gin by Mount, so the full
// table can be listed without an engine.
type Resource struct {
	prefix     string
	middleware []gin.HandlerFunc
	routes     []route
	children   []*Resource
}

type route struct {
	method  string
	path    string
	handler gin.HandlerFunc
}

// NewResource creates a resource whose routes run behind middleware
func NewResource(prefix string, middleware ...gin.HandlerFunc) *Resource {
	return &Resource{prefix: prefix, middleware: middleware}
}

// Nest adds a child resource inheriting this one's prefix and middleware
func (r *Resource) Nest(prefix string) *Resource {
	child := NewResource(prefix)
	r.children = append(r.children, child)
	return child
}

func (r *Resource) handle(method, p string, h gin.HandlerFunc) *Resource {
	r.routes = append(r.routes, route{method: method, path: p, handler: h})
	return r
}

func (r *Resource) GET(p string, h gin.HandlerFunc) *Resource    { return r.handle(http.MethodGet, p, h) }
func (r *Resource) POST(p string, h gin.HandlerFunc) *Resource   { return r.handle(http.MethodPost, p, h) }
func (r *Resource) PUT(p string, h gin.HandlerFunc) *Resource    { return r.handle(http.MethodPut, p, h) }
func (r *Resource) DELETE(p string, h gin.HandlerFunc) *Resource { return r.handle(http.MethodDelete, p, h) }

// Mount attaches the resource tree to parent
func (r *Resource) Mount(parent gin.IRouter) {
	g := parent.Group(r.prefix, r.middleware...)
	for _, rt := range r.routes {
		g.Handle(rt.method, rt.path, rt.handler)
	}
	for _, child := range r.children {
		child.Mount(g)
	}
}

// Table lists every route as "METHOD /full/path", sorted by path then method
func (r *Resource) Table(base string) []string {
	var out []string
	r.collect(base, &out)
	slices.SortFunc(out, func(a, b string) int {
		ma, pa, _ := strings.Cut(a, " ")
		mb, pb, _ := strings.Cut(b, " ")
		return cmp.Or(strings.Compare(pa, pb), strings.Compare(ma, mb))
	})
	return out
}

func (r *Resource) collect(base string, out *[]string) {
	prefix := path.Join(base, r.prefix)
	for _, rt := range r.routes {
		full := prefix
		if rt.path != "" {
			full = path.Join(prefix, rt.path)
		}
		*out = append(*out, rt.method+" "+full)
	}
	for _, child := range r.children {
		child.collect(prefix, out)
	}
}
