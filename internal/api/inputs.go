package api

import (
	"net/http"
)

func (a *API) encryptInput(w http.ResponseWriter, r *http.Request) {
	var req InputRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if len(req.Values) == 0 {
		a.writeError(w, r, ErrEmptyInput)
		return
	}
	b := a.world.Relayer.NewInput(req.Contract, req.User)
	for _, v := range req.Values {
		b.Add64(v)
	}
	in, err := b.Encrypt(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.httpWriteJSON(w, in)
}

func (a *API) decrypt(w http.ResponseWriter, r *http.Request) {
	var req DecryptRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	v, err := a.world.Gateway.UserDecrypt(r.Context(), req.Handle, req.Contract, req.User)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.httpWriteJSON(w, DecryptResponse{Handle: req.Handle, Value: v})
}
