package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/happy-baby-style/internal/order"
	"github.com/vasiliy-maslov/happy-baby-style/internal/product"
	"github.com/vasiliy-maslov/happy-baby-style/internal/report"
	"github.com/vasiliy-maslov/happy-baby-style/internal/user"
)

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal JSON response")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondWithServiceError writes the status mapped from err. Domain errors are
// shown to the client as is; anything else is logged and replaced by fallback.
func respondWithServiceError(w http.ResponseWriter, err error, fallback string) {
	code := mapErrorToStatusCode(err)
	if code == http.StatusInternalServerError {
		log.Error().Err(err).Msg(fallback)
		respondWithError(w, code, fallback)
		return
	}
	log.Warn().Err(err).Int("status", code).Msg("Request rejected")
	respondWithError(w, code, err.Error())
}

func mapErrorToStatusCode(err error) int {
	var (
		validationErr      *order.ValidationError
		notFoundErr        *order.NotFoundError
		variantNotFoundErr *order.VariantNotFoundError
		inactiveProductErr *order.InactiveProductError
		inactiveVariantErr *order.InactiveVariantError
		stockErr           *order.InsufficientStockError
		transitionErr      *order.InvalidTransitionError
	)

	switch {
	case errors.As(err, &validationErr),
		errors.Is(err, product.ErrInvalidProduct),
		errors.Is(err, user.ErrEmptyPassword),
		errors.Is(err, user.ErrInvalidRole),
		errors.Is(err, report.ErrInvalidThreshold):
		return http.StatusBadRequest
	case errors.As(err, &notFoundErr),
		errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, product.ErrProductNotFound),
		errors.Is(err, product.ErrVariantNotFound),
		errors.Is(err, user.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &variantNotFoundErr),
		errors.As(err, &inactiveProductErr),
		errors.As(err, &inactiveVariantErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &stockErr),
		errors.As(err, &transitionErr),
		errors.Is(err, order.ErrConcurrentModification),
		errors.Is(err, product.ErrDuplicateVariant),
		errors.Is(err, product.ErrProductInUse),
		errors.Is(err, user.ErrEmailExists):
		return http.StatusConflict
	case errors.Is(err, user.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// queryInt reads a non-negative integer query parameter, returning def when absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, &order.ValidationError{Field: name, Message: "must be a non-negative integer"}
	}
	return v, nil
}
