package api

import (
	"encoding/json"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// httpWriteJSON helper function allows to write a JSON response.
func (a *API) httpWriteJSON(w http.ResponseWriter, data interface{}) {
	jdata, err := json.Marshal(data)
	if err != nil {
		ErrMarshalingServerJSONFailed.WithErr(err).Write(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	n, err := w.Write(jdata)
	if err != nil {
		a.logger.Warn("failed to write http response", zap.Error(err))
	}
	if _, err := w.Write([]byte("\n")); err != nil {
		a.logger.Warn("failed to write on response", zap.Error(err))
	}
	a.logger.Debug("api response", zap.Int("bytes", n))
}

// httpWriteOK helper function allows to write an OK response.
func (a *API) httpWriteOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("\n")); err != nil {
		a.logger.Warn("failed to write on response", zap.Error(err))
	}
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := errorFor(err)
	if apiErr.HTTPstatus >= http.StatusInternalServerError {
		a.logger.Error("api error", zap.String("path", r.URL.Path), zap.Int("code", apiErr.Code), zap.Error(err))
	} else {
		a.logger.Debug("api error", zap.String("path", r.URL.Path), zap.Int("code", apiErr.Code), zap.Error(err))
	}
	apiErr.Write(w)
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return ErrMalformedBody.WithErr(err)
	}
	return nil
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, ErrMalformedAddress.With(s)
	}
	return common.HexToAddress(s), nil
}
