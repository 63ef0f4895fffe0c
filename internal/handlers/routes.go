package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// RegisterRoutes registers the link routes.
func RegisterRoutes(api huma.API, h *LinkHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "shorten",
		Method:        http.MethodPost,
		Path:          "/shorten",
		DefaultStatus: http.StatusCreated,
		Summary:       "Shorten a URL",
		Description: "Returns the link for a URL, reusing an existing link for an identical URL. " +
			"An optional custom label becomes the identifier when it is free and allowed.",
		Tags: []string{"Links"},
	}, h.Shorten)

	huma.Register(api, huma.Operation{
		OperationID: "link-info",
		Method:      http.MethodGet,
		Path:        "/info/{identifier}",
		Summary:     "Link statistics",
		Description: "Returns visit counts per day and per country with chart URLs.",
		Tags:        []string{"Links"},
	}, h.Info)

	huma.Register(api, huma.Operation{
		OperationID: "redirect",
		Method:      http.MethodGet,
		Path:        "/{identifier}",
		Summary:     "Redirect to original URL",
		Description: "Records a visit and permanently redirects to the original URL.",
		Tags:        []string{"Links"},
	}, h.Redirect)
}
