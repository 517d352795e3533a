// Package pagination reads limit/offset query parameters and builds the
// list metadata returned alongside them.
package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/vehicle-marketplace/pkg/common"
)

// Window bounds the page size of one listing endpoint.
type Window struct {
	Default int
	Max     int
}

var (
	// Reservations covers the owner inbox, a requester's history and the admin list.
	Reservations = Window{Default: 25, Max: 100}
	// Vehicles covers an owner's own listings.
	Vehicles = Window{Default: 12, Max: 50}
)

// Params is a resolved page request.
type Params struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Parse reads ?limit= and ?offset=. Missing, malformed or negative values
// fall back to the window default and zero; limit is capped at w.Max.
func (w Window) Parse(c *gin.Context) Params {
	p := Params{Limit: w.Default}
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		p.Limit = min(v, w.Max)
	}
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v > 0 {
		p.Offset = v
	}
	return p
}

// Meta describes where this page sits within total rows.
func (p Params) Meta(total int64) *common.Meta {
	meta := &common.Meta{
		Limit:   p.Limit,
		Offset:  p.Offset,
		Total:   total,
		HasMore: int64(p.Offset+p.Limit) < total,
	}
	if p.Limit > 0 {
		meta.TotalPages = int((total + int64(p.Limit) - 1) / int64(p.Limit))
	}
	return meta
}
