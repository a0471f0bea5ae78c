package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (a *API) balance(w http.ResponseWriter, r *http.Request) {
	t, err := a.world.Token(chi.URLParam(r, TokenURLParam))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	holder, err := parseAddress(chi.URLParam(r, AddressURLParam))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.httpWriteJSON(w, BalanceResponse{Token: t.Symbol(), Holder: holder, Balance: t.BalanceOf(holder).Handle})
}

func (a *API) mint(w http.ResponseWriter, r *http.Request) {
	var req MintRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	receipt, err := a.world.Mint(r.Context(), req.Token, req.To, req.Amount)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.committed(); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.httpWriteJSON(w, receipt)
}

func (a *API) setOperator(w http.ResponseWriter, r *http.Request) {
	var req OperatorRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	var names []string
	if req.Token != "" {
		names = append(names, req.Token)
	}
	receipt, err := a.world.Authorize(r.Context(), req.Holder, req.Until, names...)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.committed(); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.httpWriteJSON(w, receipt)
}
