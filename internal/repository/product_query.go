package repository

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
)

// Allow-lists for the product listing endpoint. Every name a client may
// reference is enumerated here with its physical column; anything else is
// rejected before query construction, so untrusted strings never reach the
// statement text. Sortable columns are a deliberately narrower set.
var allowedFields = map[string]string{
	"id":         "p.id",
	"name":       "p.name",
	"price":      "p.price",
	"stock":      "p.stock",
	"createdAt":  "p.created_at",
	"categoryId": "p.category_id",
}

// fieldOrder fixes the default projection order (map iteration is random).
var fieldOrder = []string{"id", "name", "price", "stock", "createdAt", "categoryId"}

var allowedSort = map[string]string{
	"name":      "p.name",
	"price":     "p.price",
	"createdAt": "p.created_at",
}

const (
	defaultLimit = 10
	maxLimit     = 100
)

// ProductQuery carries the untrusted listing inputs as received from the
// client. Page and Limit are zero when absent or non-numeric.
type ProductQuery struct {
	Page            int
	Limit           int
	Sort            string
	Fields          string // comma-separated projection, empty means all
	IncludeCategory bool
	Category        string // filters arrive as raw strings and are
	MinPrice        string // validated here, not in the handler
	MaxPrice        string
}

// Pagination describes the page window of a listing response.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int64 `json:"totalPages"`
}

// ProductListing is the full listing response body.
type ProductListing struct {
	Data       []map[string]any `json:"data"`
	Pagination Pagination       `json:"pagination"`
}

// ProductRepo runs allow-listed dynamic listing queries over products and
// categories.
type ProductRepo struct{ DB *sql.DB }

func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{DB: db} }

// parseFields resolves the requested projection. Absent means every
// allow-listed field; any unknown name fails the whole request.
func parseFields(fieldsParam string) ([]string, error) {
	if fieldsParam == "" {
		return fieldOrder, nil
	}
	var requested []string
	for _, f := range strings.Split(fieldsParam, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if _, ok := allowedFields[f]; !ok {
			return nil, validationf("projection field %q is not allowed", f)
		}
		requested = append(requested, f)
	}
	return requested, nil
}

// parseSort resolves the sort spec. A leading "-" flips direction to
// descending; the default is newest first.
func parseSort(sortParam string) (column, direction string, err error) {
	if sortParam == "" {
		return allowedSort["createdAt"], "DESC", nil
	}
	direction = "ASC"
	field := sortParam
	if strings.HasPrefix(sortParam, "-") {
		direction = "DESC"
		field = sortParam[1:]
	}
	column, ok := allowedSort[field]
	if !ok {
		return "", "", validationf("sort field %q is not allowed", field)
	}
	return column, direction, nil
}

// buildFilters turns the optional filters into a WHERE fragment plus bound
// args. Filters combine with AND; absent filters are omitted entirely.
func buildFilters(q ProductQuery) (where string, args []any, err error) {
	var conds []string

	if q.Category != "" {
		id, err := strconv.ParseInt(q.Category, 10, 64)
		if err != nil {
			return "", nil, validationf("category filter must be a number")
		}
		conds = append(conds, "p.category_id = ?")
		args = append(args, id)
	}
	if q.MinPrice != "" {
		min, err := strconv.ParseFloat(q.MinPrice, 64)
		if err != nil {
			return "", nil, validationf("minPrice filter must be a number")
		}
		conds = append(conds, "p.price >= ?")
		args = append(args, min)
	}
	if q.MaxPrice != "" {
		max, err := strconv.ParseFloat(q.MaxPrice, 64)
		if err != nil {
			return "", nil, validationf("maxPrice filter must be a number")
		}
		conds = append(conds, "p.price <= ?")
		args = append(args, max)
	}

	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}
	return where, args, nil
}

// List validates the request against the allow-lists, then runs the data
// and count queries sharing the same predicate. The identity column is
// always fetched so rows map correctly, but it is filtered from the output
// unless the caller asked for "id".
func (r *ProductRepo) List(ctx context.Context, q ProductQuery) (*ProductListing, error) {
	fields, err := parseFields(q.Fields)
	if err != nil {
		return nil, err
	}
	sortCol, sortDir, err := parseSort(q.Sort)
	if err != nil {
		return nil, err
	}
	where, args, err := buildFilters(q)
	if err != nil {
		return nil, err
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	responseFields := make(map[string]bool, len(fields))
	for _, f := range fields {
		responseFields[f] = true
	}

	// Identity is fetched under an internal alias when not requested, so it
	// never leaks into the projection by accident.
	var selectPieces []string
	if !responseFields["id"] {
		selectPieces = append(selectPieces, "p.id AS _internal_id")
	}
	for _, f := range fields {
		selectPieces = append(selectPieces, allowedFields[f]+" AS "+f)
	}

	joinClause := ""
	if q.IncludeCategory {
		selectPieces = append(selectPieces,
			"c.id AS category_id",
			"c.name AS category_name",
			"c.description AS category_description")
		joinClause = "LEFT JOIN categories c ON c.id = p.category_id"
	}

	// Every identifier below comes from the allow-list maps above; user
	// values travel exclusively through bound parameters.
	dataSQL := "SELECT " + strings.Join(selectPieces, ", ") +
		" FROM products p " + joinClause + " " + where +
		" ORDER BY " + sortCol + " " + sortDir + ", p.id ASC" +
		" LIMIT ? OFFSET ?"

	dataArgs := append(append([]any{}, args...), limit, offset)
	rows, err := r.DB.QueryContext(ctx, dataSQL, dataArgs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	data := make([]map[string]any, 0, limit)
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		data = append(data, mapProduct(cols, vals, q.IncludeCategory, responseFields))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var total int64
	countSQL := "SELECT COUNT(*) FROM products p " + where
	if err := r.DB.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, err
	}

	return &ProductListing{
		Data: data,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			TotalItems: total,
			TotalPages: (total + int64(limit) - 1) / int64(limit),
		},
	}, nil
}

// mapProduct projects one scanned row into the response shape: internal and
// join columns are stripped, and category columns nest under "category"
// when requested. A dangling category reference yields null fields.
func mapProduct(cols []string, vals []any, includeCategory bool, responseFields map[string]bool) map[string]any {
	product := make(map[string]any, len(cols))
	category := map[string]any{"id": nil, "name": nil, "description": nil}

	for i, col := range cols {
		v := vals[i]
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		switch {
		case strings.HasPrefix(col, "_internal"):
		case strings.HasPrefix(col, "category_"):
			category[strings.TrimPrefix(col, "category_")] = v
		case responseFields[col]:
			product[col] = v
		}
	}

	if includeCategory {
		product["category"] = category
	}
	return product
}
