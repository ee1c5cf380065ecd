package handlers

import (
	"net/http"

	"github.com/rogerio-castellano/storefront/internal/notice"
)

// GetNoticesHandler godoc
// @Summary Pending user notices
// @Description Returns and forgets every notice raised since the previous call
// @Tags notices
// @Produce json
// @Success 200 {object} NoticesResponse
// @Router /notices [get]
func GetNoticesHandler(w http.ResponseWriter, r *http.Request) {
	resp := NoticesResponse{Notices: []notice.Notice{}}
	if noticeFeed != nil {
		resp.Notices = noticeFeed.Drain()
	}
	respond(w, http.StatusOK, resp)
}
