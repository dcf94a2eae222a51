package pos

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"MiniMart/internal/assets"
	"MiniMart/internal/cart"
	"MiniMart/internal/catalog"
	"MiniMart/internal/receipt"
	"MiniMart/internal/session"
	"MiniMart/pkg/kit"
)

const receiptFilename = "receipt.pdf"

type Server struct {
	Catalog *catalog.Service
	Carts   *cart.Registry
	Tokens  *session.TokenMaker
	Assets  assets.Dir
	Metrics *Metrics
	Log     *zap.Logger

	// ReceiptPath names the PDF written for a session's checkout. Each
	// checkout overwrites the previous file of that session.
	ReceiptPath func(session string) string
}

type productReq struct {
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
	Price    int64  `json:"price"`
}

type stockReq struct {
	Quantity int64 `json:"quantity"`
}

type priceReq struct {
	Price int64 `json:"price"`
}

type itemReq struct {
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
}

type quantityReq struct {
	Quantity int64 `json:"quantity"`
}

type sessionResp struct {
	SessionID string    `json:"session_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type cartResp struct {
	SessionID string           `json:"session_id"`
	Entries   []cart.Entry     `json:"entries"`
	Receipt   *receipt.Receipt `json:"receipt,omitempty"`
}

type checkoutResp struct {
	Receipt  receipt.Receipt `json:"receipt"`
	Text     string          `json:"text"`
	Download string          `json:"download,omitempty"`
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.Catalog.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, products)
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.Catalog.Get(r.Context(), productParam(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) addProduct(w http.ResponseWriter, r *http.Request) {
	var req productReq
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	p, err := s.Catalog.AddProduct(r.Context(), catalog.Product{Name: req.Name, Quantity: req.Quantity, Price: req.Price})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusCreated, p)
}

func (s *Server) addStock(w http.ResponseWriter, r *http.Request) {
	var req stockReq
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	p, err := s.Catalog.AddStock(r.Context(), productParam(r), req.Quantity)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) updatePrice(w http.ResponseWriter, r *http.Request) {
	var req priceReq
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	p, err := s.Catalog.UpdatePrice(r.Context(), productParam(r), req.Price)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) productImage(w http.ResponseWriter, r *http.Request) {
	path, err := s.Assets.Lookup(productParam(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	http.ServeFile(w, r, path)
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	id, tok, exp, err := s.Tokens.New()
	if err != nil {
		s.Log.Error("session token issue", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	s.Carts.Ledger(id)

	kit.WriteJSON(w, http.StatusCreated, sessionResp{SessionID: id, Token: tok, ExpiresAt: exp})
}

func (s *Server) endSession(w http.ResponseWriter, r *http.Request) {
	id, _ := SessionFromContext(r.Context())
	if err := s.Carts.End(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) viewCart(w http.ResponseWriter, r *http.Request) {
	l := s.ledger(r)

	resp := cartResp{SessionID: l.ID(), Entries: l.Entries()}
	rc, err := l.Preview(r.Context())
	switch {
	case errors.Is(err, cart.ErrEmptyCart):
	case err != nil:
		s.writeError(w, r, err)
		return
	default:
		resp.Receipt = &rc
	}
	kit.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) reserve(w http.ResponseWriter, r *http.Request) {
	var req itemReq
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	e, err := s.ledger(r).Reserve(r.Context(), req.Name, req.Quantity)
	s.Metrics.reservation("reserve", outcome(err))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, e)
}

func (s *Server) updateItem(w http.ResponseWriter, r *http.Request) {
	var req quantityReq
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	e, err := s.ledger(r).UpdateQuantity(r.Context(), productParam(r), req.Quantity)
	s.Metrics.reservation("update", outcome(err))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, e)
}

func (s *Server) resetCart(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger(r).Reset(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.Metrics.reset()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) checkout(w http.ResponseWriter, r *http.Request) {
	l := s.ledger(r)

	rc, err := l.Checkout(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var units int64
	for _, line := range rc.Lines {
		units += line.Quantity
	}
	s.Metrics.checkout(units, rc.Total)

	resp := checkoutResp{Receipt: rc, Text: rc.Text()}
	if s.ReceiptPath != nil {
		// The sale is final at this point; a failed PDF only loses the download.
		if err := rc.SavePDF(s.ReceiptPath(l.ID())); err != nil {
			s.Log.Error("receipt pdf failed", zap.Error(err), zap.String("session_id", l.ID()))
		} else {
			resp.Download = "/cart/receipt"
		}
	}

	s.Log.Info("checkout",
		zap.String("session_id", l.ID()),
		zap.Int("lines", len(rc.Lines)),
		zap.Int64("total", rc.Total))

	kit.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) downloadReceipt(w http.ResponseWriter, r *http.Request) {
	id, _ := SessionFromContext(r.Context())
	if s.ReceiptPath == nil {
		kit.WriteError(w, r, http.StatusNotFound, "no receipt", nil)
		return
	}

	f, err := os.Open(s.ReceiptPath(id))
	if errors.Is(err, os.ErrNotExist) {
		kit.WriteError(w, r, http.StatusNotFound, "no receipt", nil)
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+receiptFilename+`"`)
	http.ServeContent(w, r, receiptFilename, st.ModTime(), f)
}

func (s *Server) ledger(r *http.Request) *cart.Ledger {
	id, _ := SessionFromContext(r.Context())
	return s.Carts.Ledger(id)
}

func productParam(r *http.Request) string {
	name := chi.URLParam(r, "name")
	if r.URL.RawPath != "" {
		if u, err := url.PathUnescape(name); err == nil {
			name = u
		}
	}
	return name
}

func outcome(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case isRejection(err):
		return outcomeRejected
	default:
		return outcomeError
	}
}

func isRejection(err error) bool {
	return statusFor(err) < http.StatusInternalServerError
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, cart.ErrNotInCart),
		errors.Is(err, assets.ErrAssetNotFound):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrInsufficientStock),
		errors.Is(err, cart.ErrEmptyCart):
		return http.StatusConflict
	case errors.Is(err, cart.ErrSessionClosed):
		return http.StatusGone
	case errors.Is(err, catalog.ErrInvalidQuantity),
		errors.Is(err, catalog.ErrInvalidPrice),
		errors.Is(err, catalog.ErrInvalidName),
		errors.Is(err, catalog.ErrDuplicateProduct),
		errors.Is(err, receipt.ErrTotalOverflow):
		return http.StatusBadRequest
	case isTimeoutErr(err):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusInternalServerError:
		s.Log.Error("request failed", zap.Error(err), zap.String("path", r.URL.Path))
		kit.WriteError(w, r, status, "server error", nil)
	case http.StatusGatewayTimeout:
		kit.WriteError(w, r, status, "timeout", nil)
	default:
		kit.WriteError(w, r, status, errorMessage(err), map[string]any{"cause": err.Error()})
	}
}

func errorMessage(err error) string {
	for _, known := range []error{
		catalog.ErrProductNotFound,
		catalog.ErrInsufficientStock,
		catalog.ErrInvalidQuantity,
		catalog.ErrInvalidPrice,
		catalog.ErrInvalidName,
		catalog.ErrDuplicateProduct,
		cart.ErrNotInCart,
		cart.ErrEmptyCart,
		cart.ErrSessionClosed,
		assets.ErrAssetNotFound,
		receipt.ErrTotalOverflow,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "bad request"
}

func isTimeoutErr(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
