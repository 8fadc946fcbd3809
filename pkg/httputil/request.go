package httputil

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// Params reads route variables and query values from a request. The first
// parse error is kept and later reads return zero values.
type Params struct {
	r    *http.Request
	vars map[string]string
	err  error
}

// NewParams wraps r. Route variables come from gorilla/mux.
func NewParams(r *http.Request) *Params {
	return &Params{r: r, vars: mux.Vars(r)}
}

// String returns a required route variable
func (p *Params) String(key string) string {
	if p.err != nil {
		return ""
	}
	v := p.vars[key]
	if v == "" {
		p.err = fmt.Errorf("missing path parameter: %s", key)
	}
	return v
}

// Version returns a route variable holding a non-negative version number
func (p *Params) Version(key string) int {
	s := p.String(key)
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseUint(s, 10, 31)
	if err != nil {
		p.err = fmt.Errorf("invalid version for %s: %s", key, s)
		return 0
	}
	return int(v)
}

// QueryBool returns an optional boolean query value, def when absent
func (p *Params) QueryBool(key string, def bool) bool {
	if p.err != nil {
		return def
	}
	s := p.r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		p.err = fmt.Errorf("invalid boolean for query param %s: %s", key, s)
		return def
	}
	return v
}

// Err returns the first parse error
func (p *Params) Err() error {
	return p.err
}

// OK writes a 400 response for the first parse error. Handlers return when
// it reports false.
func (p *Params) OK(w http.ResponseWriter) bool {
	if p.err != nil {
		WriteBadRequest(w, p.err.Error())
		return false
	}
	return true
}
