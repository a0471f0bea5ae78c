package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"hiddenLiquidity/internal/chain"
	"hiddenLiquidity/internal/engine"
	"hiddenLiquidity/internal/ledger"
)

func (a *API) addresses(w http.ResponseWriter, r *http.Request) {
	a.httpWriteJSON(w, AddressesResponse{
		ChainID:   a.world.Config.ChainID,
		Backend:   a.world.Backend.Name(),
		Contracts: a.world.Addresses,
		Tokens:    a.world.TokenMetas(),
		Block:     a.world.Runtime.BlockNumber(),
	})
}

func (a *API) pool(w http.ResponseWriter, r *http.Request) {
	id, err := ledger.ParsePool(chi.URLParam(r, PoolURLParam))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	base, eth, err := a.world.Exchange.GetPool(id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.httpWriteJSON(w, PoolResponse{Pool: id.String(), ReserveBase: base.Handle, ReserveEth: eth.Handle})
}

func (a *API) position(w http.ResponseWriter, r *http.Request) {
	user, err := parseAddress(chi.URLParam(r, AddressURLParam))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	usdc, usdt := a.world.Exchange.GetPosition(user)
	a.httpWriteJSON(w, PositionResponse{User: user, ShareUSDC: usdc.Handle, ShareUSDT: usdt.Handle})
}

func (a *API) addLiquidity(w http.ResponseWriter, r *http.Request) {
	var req AddLiquidityRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	pool, err := ledger.ParsePool(req.Pool)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	ethProof := req.EthProof
	if len(ethProof) == 0 {
		ethProof = req.BaseProof
	}
	receipt, out, err := a.world.Exchange.AddLiquidity(r.Context(), req.Sender, pool, req.BaseHandle, req.BaseProof, req.EthHandle, ethProof)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.committed(); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.httpWriteJSON(w, liquidityResponse(receipt, out))
}

func (a *API) removeLiquidity(w http.ResponseWriter, r *http.Request) {
	var req RemoveLiquidityRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	pool, err := ledger.ParsePool(req.Pool)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	receipt, out, err := a.world.Exchange.RemoveLiquidity(r.Context(), req.Sender, pool, req.ShareHandle, req.Proof)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.committed(); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.httpWriteJSON(w, liquidityResponse(receipt, out))
}

func (a *API) swap(w http.ResponseWriter, r *http.Request) {
	var req SwapRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	direction, err := ledger.ParseDirection(req.Direction)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	receipt, out, err := a.world.Exchange.Swap(r.Context(), req.Sender, direction, req.Handle, req.Proof)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.committed(); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.httpWriteJSON(w, SwapResponse{
		Receipt:   receipt,
		Direction: out.Direction.String(),
		AmountIn:  out.AmountIn.Handle,
		AmountOut: out.AmountOut.Handle,
	})
}

func liquidityResponse(receipt *chain.Receipt, out engine.LiquidityReceipt) LiquidityResponse {
	return LiquidityResponse{
		Receipt:  receipt,
		Pool:     out.Pool.String(),
		Base:     out.BaseAmount.Handle,
		Eth:      out.EthAmount.Handle,
		Share:    out.Share.Handle,
		Position: out.Position.Handle,
	}
}
