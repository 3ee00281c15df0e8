package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/akarpov/go-shop/internal/domain"
)

type CategoryHandler struct {
	catalog CatalogService
}

func NewCategoryHandler(catalog CatalogService) *CategoryHandler {
	return &CategoryHandler{catalog: catalog}
}

type CategoryRequestDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type CategoryDetailResponseDTO struct {
	Category *domain.Category  `json:"category"`
	Products []*domain.Product `json:"products"`
}

// GET /api/categories
func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if categories == nil {
		categories = []*domain.Category{}
	}
	respondJSON(w, http.StatusOK, categories)
}

// GET /api/categories/{category_id}
func (h *CategoryHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := parseIDParam(w, r, "category_id")
	if !ok {
		return
	}

	category, products, err := h.catalog.GetCategoryWithProducts(r.Context(), categoryID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if products == nil {
		products = []*domain.Product{}
	}
	respondJSON(w, http.StatusOK, CategoryDetailResponseDTO{Category: category, Products: products})
}

// POST /api/categories
func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respondError(w, http.StatusBadRequest, "invalid_name", "name is required")
		return
	}

	created, err := h.catalog.CreateCategory(r.Context(), &domain.Category{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, created)
}

// PUT /api/categories/{category_id}
func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := parseIDParam(w, r, "category_id")
	if !ok {
		return
	}

	var req CategoryRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respondError(w, http.StatusBadRequest, "invalid_name", "name is required")
		return
	}

	updated, err := h.catalog.UpdateCategory(r.Context(), &domain.Category{
		ID:          categoryID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

// DELETE /api/categories/{category_id}
func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := parseIDParam(w, r, "category_id")
	if !ok {
		return
	}

	if err := h.catalog.DeleteCategory(r.Context(), categoryID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
