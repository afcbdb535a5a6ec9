// Package rest exposes the cart store to storefront clients over HTTP/JSON.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dwikikusuma/rocketshoes-cart/internal/cart/app"
	"github.com/dwikikusuma/rocketshoes-cart/internal/cart/domain"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

type Server struct {
	svc   *app.Service
	ready func(context.Context) error
	log   *slog.Logger
}

// NewServer wires the handlers. ready is consulted by /readyz and may be nil.
func NewServer(svc *app.Service, ready func(context.Context) error, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{svc: svc, ready: ready, log: log}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.HandleFunc("GET /readyz", s.readyz)

	mux.HandleFunc("GET /cart", s.getCart)
	mux.HandleFunc("POST /cart/items/{productId}", s.addProduct)
	mux.HandleFunc("PUT /cart/items/{productId}", s.updateProductAmount)
	mux.HandleFunc("DELETE /cart/items/{productId}", s.removeProduct)

	return s.withRequestID(mux)
}

type cartResponse struct {
	Cart         domain.Cart   `json:"cart"`
	Notification *notification `json:"notification,omitempty"`
}

type notification struct {
	Kind    app.NotificationKind `json:"kind"`
	Message string               `json:"message"`
}

func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	s.writeCart(w, r, http.StatusOK, nil)
}

func (s *Server) addProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := s.productID(w, r)
	if !ok {
		return
	}
	s.respond(w, r, s.svc.AddProduct(r.Context(), id))
}

func (s *Server) removeProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := s.productID(w, r)
	if !ok {
		return
	}
	s.respond(w, r, s.svc.RemoveProduct(r.Context(), id))
}

func (s *Server) updateProductAmount(w http.ResponseWriter, r *http.Request) {
	id, ok := s.productID(w, r)
	if !ok {
		return
	}

	var body struct {
		Amount *int `json:"amount"`
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<16))
	if err := dec.Decode(&body); err != nil || body.Amount == nil {
		writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "body must be {\"amount\": <integer>}")
		return
	}

	err := s.svc.UpdateProductAmount(r.Context(), app.UpdateProductAmount{ProductID: id, Amount: *body.Amount})
	s.respond(w, r, err)
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.log.WarnContext(r.Context(), "readiness check failed", slog.Any("err", err))
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) productID(w http.ResponseWriter, r *http.Request) (domain.ProductID, bool) {
	raw := r.PathValue("productId")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid product id: "+raw)
		return 0, false
	}
	return domain.ProductID(id), true
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		s.writeCart(w, r, http.StatusOK, nil)
		return
	}
	status, kind := httpStatusFromErr(err)
	var n *notification
	if kind != "" {
		n = &notification{Kind: kind, Message: app.Message(kind)}
	}
	s.writeCart(w, r, status, n)
}

func (s *Server) writeCart(w http.ResponseWriter, r *http.Request, status int, n *notification) {
	cart := s.svc.Cart(r.Context())
	if cart == nil {
		cart = domain.Cart{}
	}
	writeJSON(w, status, cartResponse{Cart: cart, Notification: n})
}

// httpStatusFromErr maps cart operation outcomes to HTTP statuses.
func httpStatusFromErr(err error) (int, app.NotificationKind) {
	kind, ok := app.KindOf(err)
	if !ok {
		return http.StatusInternalServerError, ""
	}
	switch {
	case errors.Is(err, app.ErrQuantityUnavailable):
		return http.StatusConflict, kind
	case errors.Is(err, app.ErrRemoveFailed):
		return http.StatusNotFound, kind
	default:
		return http.StatusBadGateway, kind
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"code": code, "message": msg})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		s.log.InfoContext(r.Context(), "http request",
			slog.String("request_id", id),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("elapsed", time.Since(start)))
	})
}
