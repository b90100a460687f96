package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mlefevre/boutique-api/internal/logging"
	"github.com/mlefevre/boutique-api/internal/repository"
)

// ProductHandler serves the product listing endpoint.
type ProductHandler struct {
	Products *repository.ProductRepo
}

func NewProductHandler(p *repository.ProductRepo) *ProductHandler {
	return &ProductHandler{Products: p}
}

// List translates the query string into a ProductQuery and runs it.
// Validation failures (unknown field, bad sort, non-numeric filter) come
// back as 400 with the builder's message; anything else is a generic 500.
func (h *ProductHandler) List(c echo.Context) error {
	// Atoi errors are deliberately ignored: absent or garbage page/limit
	// values fall back to the builder's defaults.
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	q := repository.ProductQuery{
		Page:            page,
		Limit:           limit,
		Sort:            c.QueryParam("sort"),
		Fields:          c.QueryParam("fields"),
		IncludeCategory: includes(c.QueryParam("include"), "category"),
		Category:        c.QueryParam("category"),
		MinPrice:        c.QueryParam("minPrice"),
		MaxPrice:        c.QueryParam("maxPrice"),
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	listing, err := h.Products.List(ctx, q)
	if err != nil {
		var ve *repository.ValidationError
		if errors.As(err, &ve) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Message})
		}
		logging.FromContext(ctx).Error("products: listing failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "unexpected server error"})
	}
	return c.JSON(http.StatusOK, listing)
}

// includes reports whether a comma-separated list contains the given value.
func includes(param, value string) bool {
	for _, v := range strings.Split(param, ",") {
		if strings.TrimSpace(v) == value {
			return true
		}
	}
	return false
}
