package http

import (
	"net/http"
	"ticketer/common/vars"
)

type BoardHttp struct{}

func RegisterBoardHttp(mux *http.ServeMux) *BoardHttp {
	in := &BoardHttp{}

	mux.HandleFunc("GET /api/board", in.get)

	return in
}

func (in *BoardHttp) get(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, vars.GetBoard())
}
