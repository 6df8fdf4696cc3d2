//-------------------------------------------------------------------------
//
// pgEdge Dummy Data Generator
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pgEdge/pgedge-dummydata/internal/httpapi"
	"github.com/pgEdge/pgedge-dummydata/internal/logging"
)

// DefaultLimit is the page size used when none is configured.
const DefaultLimit = 10

// Handler serves the catalog API.
type Handler struct {
	repo         Repository
	validate     *validator.Validate
	defaultLimit int
	router       chi.Router
}

// NewHandler creates the catalog handler and registers its routes. A
// non-positive defaultLimit falls back to DefaultLimit.
func NewHandler(repo Repository, defaultLimit int) *Handler {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	h := &Handler{
		repo:         repo,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		defaultLimit: defaultLimit,
		router:       httpapi.NewRouter(),
	}

	h.router.Get("/ping", h.handlePing)
	h.router.Route("/v1", func(r chi.Router) {
		r.Get("/products", h.handleListProducts)
		r.Get("/products/{id}", h.handleGetProduct)
		r.Delete("/products/{id}", h.handleDeleteProduct)
		r.Patch("/products/{id}", h.handleUpdateStock)
		r.Get("/orders", h.handleListOrders)
		r.Delete("/orders/{id}", h.handleDeleteOrder)
		r.Get("/restock", h.handleListRestock)
	})
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// Run serves the API on addr until ctx is cancelled.
func (h *Handler) Run(ctx context.Context, addr string) error {
	return httpapi.Serve(ctx, "catalog", addr, h)
}

// ParsePage reads limit and offset from the query string. Missing or
// invalid values fall back to defaultLimit and 0.
func ParsePage(r *http.Request, defaultLimit int) Page {
	page := Page{Limit: defaultLimit}
	q := r.URL.Query()
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		page.Limit = n
	}
	if n, err := strconv.Atoi(q.Get("offset")); err == nil && n >= 0 {
		page.Offset = n
	}
	return page
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

func (h *Handler) handlePing(w http.ResponseWriter, _ *http.Request) {
	httpapi.WriteMessage(w, http.StatusOK, "pong")
}

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, total, err := h.repo.ListProducts(r.Context(), ParsePage(r, h.defaultLimit))
	if err != nil {
		logging.Error().Err(err).Msg("List products failed")
		httpapi.WriteError(w, http.StatusInternalServerError, "Failed to get products")
		return
	}

	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, p.View())
	}
	httpapi.WriteJSON(w, http.StatusOK, List[ProductView]{Total: total, Data: views})
}

func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpapi.WriteError(w, http.StatusBadRequest, "Id must be an integer")
		return
	}

	p, err := h.repo.GetProduct(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		httpapi.WriteError(w, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		logging.Error().Err(err).Int64("id", id).Msg("Get product failed")
		httpapi.WriteError(w, http.StatusInternalServerError, "Failed to get product")
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, p.View())
}

func (h *Handler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	h.handleDelete(w, r, h.repo.DeleteProduct)
}

func (h *Handler) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	h.handleDelete(w, r, h.repo.DeleteOrder)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request, del func(context.Context, int64) error) {
	id, ok := pathID(r)
	if !ok {
		httpapi.WriteError(w, http.StatusBadRequest, "Id must be an integer")
		return
	}

	err := del(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		httpapi.WriteError(w, http.StatusBadRequest, "No record to delete")
		return
	}
	if err != nil {
		logging.Error().Err(err).Int64("id", id).Msg("Delete failed")
		httpapi.WriteError(w, http.StatusInternalServerError, "Failed to delete")
		return
	}
	httpapi.WriteMessage(w, http.StatusOK, fmt.Sprintf("Deleted record with id: %d", id))
}

func (h *Handler) handleUpdateStock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpapi.WriteError(w, http.StatusBadRequest, "Id must be an integer")
		return
	}

	var body StockUpdate
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, httpapi.MaxBodyBytes)).Decode(&body); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	if err := h.validate.Struct(body); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.repo.UpdateStock(r.Context(), id, *body.Amount)
	if errors.Is(err, ErrNotFound) {
		httpapi.WriteError(w, http.StatusBadRequest, "No product to update")
		return
	}
	if err != nil {
		logging.Error().Err(err).Int64("id", id).Msg("Update stock failed")
		httpapi.WriteError(w, http.StatusInternalServerError, "Failed to update stock")
		return
	}
	httpapi.WriteMessage(w, http.StatusOK, fmt.Sprintf("Updated stock of product with id: %d", id))
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, total, err := h.repo.ListOrders(r.Context(), ParsePage(r, h.defaultLimit))
	if err != nil {
		logging.Error().Err(err).Msg("List orders failed")
		httpapi.WriteError(w, http.StatusInternalServerError, "Failed to get orders")
		return
	}

	views := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, o.View())
	}
	httpapi.WriteJSON(w, http.StatusOK, List[OrderView]{Total: total, Data: views})
}

func (h *Handler) handleListRestock(w http.ResponseWriter, r *http.Request) {
	restock, total, err := h.repo.ListRestock(r.Context(), ParsePage(r, h.defaultLimit))
	if err != nil {
		logging.Error().Err(err).Msg("List restock failed")
		httpapi.WriteError(w, http.StatusInternalServerError, "Failed to get restock information")
		return
	}
	if restock == nil {
		restock = []Restock{}
	}
	httpapi.WriteJSON(w, http.StatusOK, List[Restock]{Total: total, Data: restock})
}
