package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/taskhub/internal/catalog"
	"github.com/charlesng35/taskhub/pkg/errors"
	"github.com/charlesng35/taskhub/pkg/response"
)

// CatalogHandler exposes the notification category catalog.
type CatalogHandler struct {
	provider *catalog.Provider
}

// NewCatalogHandler constructs a CatalogHandler.
func NewCatalogHandler(provider *catalog.Provider) *CatalogHandler {
	return &CatalogHandler{provider: provider}
}

// Categories lists every category in catalog order.
func (h *CatalogHandler) Categories(c *gin.Context) {
	response.Success(c, http.StatusOK, h.provider.Categories())
}

// Category returns one category by code, ignoring case.
func (h *CatalogHandler) Category(c *gin.Context) {
	category, ok := h.provider.GetCategoryByCode(c.Param("code"))
	if !ok {
		response.Error(c, errors.ErrNotFound)
		return
	}
	response.Success(c, http.StatusOK, category)
}

// SubCategory returns one sub-category together with its owning category code.
func (h *CatalogHandler) SubCategory(c *gin.Context) {
	sub, ok := h.provider.GetSubCategoryByCode(c.Param("code"))
	if !ok {
		response.Error(c, errors.ErrNotFound)
		return
	}
	response.Success(c, http.StatusOK, sub)
}

// Status reports where the catalog came from and whether it is degraded.
func (h *CatalogHandler) Status(c *gin.Context) {
	response.Success(c, http.StatusOK, h.provider.Status())
}
