package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/happy-baby-style/internal/user"
)

type CreateUserRequest struct {
	FirstName string `json:"first_name" validate:"required,min=2"`
	LastName  string `json:"last_name" validate:"required,min=2"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	Role      string `json:"role,omitempty" validate:"omitempty,oneof=admin manager"`
}

type UpdateUserRequest struct {
	FirstName string  `json:"first_name" validate:"required,min=2"`
	LastName  string  `json:"last_name" validate:"required,min=2"`
	Email     string  `json:"email" validate:"required,email"`
	Password  *string `json:"password,omitempty" validate:"omitempty,min=8"`
	Role      string  `json:"role,omitempty" validate:"omitempty,oneof=admin manager"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Role      user.Role `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type UserHandler struct {
	service  user.Service
	validate *validator.Validate
}

func NewUserHandler(service user.Service) *UserHandler {
	return &UserHandler{
		service:  service,
		validate: newValidator(),
	}
}

func (h *UserHandler) RegisterRoutes(router chi.Router) {
	router.Post("/users", h.handleCreateUser)
	router.Get("/users/{id}", h.handleGetUserByID)
	router.Get("/users/email/{email}", h.handleGetUserByEmail)
	router.Put("/users/{id}", h.handleUpdateUser)
	router.Delete("/users/{id}", h.handleDeleteUser)
	router.Post("/auth/login", h.handleLogin)
}

func (h *UserHandler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var requestPayload CreateUserRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	domainUser := user.User{
		FirstName:    requestPayload.FirstName,
		LastName:     requestPayload.LastName,
		Email:        requestPayload.Email,
		PasswordHash: requestPayload.Password,
		Role:         user.Role(requestPayload.Role),
	}

	createdUser, err := h.service.CreateUser(r.Context(), &domainUser)
	if err != nil {
		respondWithServiceError(w, err, "Failed to create user")
		return
	}

	respondWithJSON(w, http.StatusCreated, newUserResponse(createdUser))
}

func (h *UserHandler) handleGetUserByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	foundUser, err := h.service.GetUserByID(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get user by id")
		return
	}

	respondWithJSON(w, http.StatusOK, newUserResponse(foundUser))
}

func (h *UserHandler) handleGetUserByEmail(w http.ResponseWriter, r *http.Request) {
	emailParam := chi.URLParam(r, "email")
	if emailParam == "" {
		log.Warn().Msg("Failed to parse email from param")
		respondWithError(w, http.StatusBadRequest, "Email parameter cannot be empty")
		return
	}

	foundUser, err := h.service.GetUserByEmail(r.Context(), emailParam)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get user by email")
		return
	}

	respondWithJSON(w, http.StatusOK, newUserResponse(foundUser))
}

func (h *UserHandler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var requestPayload UpdateUserRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	domainUser := user.User{
		ID:        userID,
		FirstName: requestPayload.FirstName,
		LastName:  requestPayload.LastName,
		Email:     requestPayload.Email,
		Role:      user.Role(requestPayload.Role),
	}
	if requestPayload.Password != nil {
		domainUser.PasswordHash = *requestPayload.Password
	}

	if err := h.service.UpdateUser(r.Context(), &domainUser); err != nil {
		respondWithServiceError(w, err, "Failed to update user")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteUser(r.Context(), userID); err != nil {
		respondWithServiceError(w, err, "Failed to delete user")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var requestPayload LoginRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	authenticated, err := h.service.Authenticate(r.Context(), requestPayload.Email, requestPayload.Password)
	if err != nil {
		respondWithServiceError(w, err, "Failed to authenticate user")
		return
	}

	respondWithJSON(w, http.StatusOK, newUserResponse(authenticated))
}
