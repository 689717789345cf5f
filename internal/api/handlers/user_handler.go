package handlers

import (
	dirapp "chat_platform/internal/directory/app"
	"chat_platform/internal/directory/domain"
	"chat_platform/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
)

// UserHandler 處理 user directory 與 search 的 HTTP 請求
type UserHandler struct {
	Directory dirapp.DirectoryUseCase
	Search    dirapp.SearchUseCase
}

// NewUserHandler create UserHandler
func NewUserHandler(directory dirapp.DirectoryUseCase, search dirapp.SearchUseCase) *UserHandler {
	return &UserHandler{Directory: directory, Search: search}
}

// AvailabilityResponse result of the username probe
type AvailabilityResponse struct {
	Available bool `json:"available"`
}

// GetMe current user
// @Summary Current user
// @Tags Users
// @Produce json
// @Success 200 {object} domain.User
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/users/me [get]
func (h *UserHandler) GetMe(c *fiber.Ctx) error {
	u, err := h.Directory.GetMe(c.UserContext(), middlewares.CallerIdentity(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(u)
}

// UpdateProfile edit the caller's profile
// @Summary Update profile
// @Tags Users
// @Accept json
// @Produce json
// @Param request body domain.ProfileInput true "profile"
// @Success 200 {object} domain.User
// @Failure 400 {object} ErrorResponse
// @Router /api/users/me [put]
func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	var in domain.ProfileInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid request")
	}
	u, err := h.Directory.UpdateProfile(c.UserContext(), middlewares.CallerIdentity(c), in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(u)
}

// GetUsers everyone except the caller
// @Summary List users
// @Tags Users
// @Produce json
// @Success 200 {array} domain.User
// @Router /api/users [get]
func (h *UserHandler) GetUsers(c *fiber.Ctx) error {
	users, err := h.Directory.GetUsers(c.UserContext(), middlewares.CallerIdentity(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(users)
}

// GetOnlineUsers
// @Summary Online users
// @Tags Users
// @Produce json
// @Success 200 {array} domain.User
// @Router /api/users/online [get]
func (h *UserHandler) GetOnlineUsers(c *fiber.Ctx) error {
	users, err := h.Directory.GetOnlineUsers(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(users)
}

// GetUserByUsername null body when absent
// @Summary User by username
// @Tags Users
// @Produce json
// @Param username path string true "username"
// @Success 200 {object} domain.User
// @Router /api/users/username/{username} [get]
func (h *UserHandler) GetUserByUsername(c *fiber.Ctx) error {
	u, err := h.Directory.GetUserByUsername(c.UserContext(), c.Params("username"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(u)
}

// GetUserByID
// @Summary User by id
// @Tags Users
// @Produce json
// @Param id path string true "user id"
// @Success 200 {object} domain.User
// @Failure 404 {object} ErrorResponse
// @Router /api/users/{id} [get]
func (h *UserHandler) GetUserByID(c *fiber.Ctx) error {
	u, err := h.Directory.GetUserByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(u)
}

// CheckUsernameAvailability
// @Summary Username availability
// @Tags Users
// @Produce json
// @Param username query string true "username"
// @Success 200 {object} AvailabilityResponse
// @Router /api/users/availability [get]
func (h *UserHandler) CheckUsernameAvailability(c *fiber.Ctx) error {
	ok, err := h.Directory.CheckUsernameAvailability(c.UserContext(), c.Query("username"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(AvailabilityResponse{Available: ok})
}

// GetAllGenders
// @Summary Registered genders
// @Tags Users
// @Produce json
// @Success 200 {array} string
// @Router /api/genders [get]
func (h *UserHandler) GetAllGenders(c *fiber.Ctx) error {
	genders, err := h.Directory.GetAllGenders(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(genders)
}

// SearchUsersByName
// @Summary Search users by name
// @Tags Search
// @Produce json
// @Param term query string true "term"
// @Success 200 {array} domain.User
// @Router /api/search/users/name [get]
func (h *UserHandler) SearchUsersByName(c *fiber.Ctx) error {
	users, err := h.Search.SearchUsersByName(c.UserContext(), c.Query("term"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(users)
}

// SearchUsersByTerm name and username hits merged
// @Summary Search users
// @Tags Search
// @Produce json
// @Param term query string true "term"
// @Success 200 {array} domain.User
// @Router /api/search/users [get]
func (h *UserHandler) SearchUsersByTerm(c *fiber.Ctx) error {
	users, err := h.Search.SearchUsersByTerm(c.UserContext(), c.Query("term"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(users)
}

// SearchUsersByTag
// @Summary Users holding a tag
// @Tags Search
// @Produce json
// @Param tag path string true "tag"
// @Success 200 {array} domain.User
// @Router /api/search/tags/{tag}/users [get]
func (h *UserHandler) SearchUsersByTag(c *fiber.Ctx) error {
	users, err := h.Search.SearchUsersByTag(c.UserContext(), c.Params("tag"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(users)
}

// SearchTagsByTerm
// @Summary Search tags
// @Tags Search
// @Produce json
// @Param term query string true "term"
// @Success 200 {array} domain.Tag
// @Router /api/search/tags [get]
func (h *UserHandler) SearchTagsByTerm(c *fiber.Ctx) error {
	tags, err := h.Search.SearchTagsByTerm(c.UserContext(), c.Query("term"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(tags)
}
