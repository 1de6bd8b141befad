package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/quillhub/blog/internal/api/metrics"
	"github.com/quillhub/blog/internal/core/domain"
	"github.com/quillhub/blog/internal/core/ports"
)

// PostHandler handles HTTP requests for post listing and post mutation.
type PostHandler struct {
	posts   ports.PostService
	avatars AvatarURLs
	metrics *metrics.Metrics
}

func NewPostHandler(posts ports.PostService, avatars AvatarURLs, m *metrics.Metrics) *PostHandler {
	return &PostHandler{posts: posts, avatars: avatars, metrics: m}
}

// --- Request / Response types ---

type postRequest struct {
	Title   string `json:"title"   form:"title"`
	Content string `json:"content" form:"content"`
}

type postIDParam struct {
	ID string `param:"id" validate:"required,uuid"`
}

type usernameParam struct {
	Username string `param:"username" validate:"required,max=20"`
}

type postFormResponse struct {
	Form   formSchema    `json:"form"`
	Values *postResponse `json:"values,omitempty"`
}

type aboutResponse struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Home handles GET / and GET /home.
//
// @Summary      List posts, newest first
// @Tags         posts
// @Produce      json
// @Param        page      query     int  false  "1-based page number"
// @Param        per_page  query     int  false  "Page size (max 50)"
// @Success      200       {object}  pageResponse
// @Router       /home [get]
func (h *PostHandler) Home(c echo.Context) error {
	page, perPage := listParams(c)
	result, err := h.posts.ListPage(c.Request().Context(), ports.ListPostsInput{Page: page, PerPage: perPage})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toPageResponse(result, h.avatars))
}

// UserPosts handles GET /user/:username.
//
// @Summary      List one author's posts, newest first
// @Tags         posts
// @Produce      json
// @Param        username  path      string  true   "Author username"
// @Param        page      query     int     false  "1-based page number"
// @Success      200       {object}  pageResponse
// @Failure      404       {object}  map[string]string
// @Router       /user/{username} [get]
func (h *PostHandler) UserPosts(c echo.Context) error {
	p := usernameParam{Username: c.Param("username")}
	if err := c.Validate(&p); err != nil {
		return domain.ErrUserNotFound
	}

	page, perPage := listParams(c)
	result, err := h.posts.ListPage(c.Request().Context(), ports.ListPostsInput{
		AuthorUsername: p.Username,
		Page:           page,
		PerPage:        perPage,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toPageResponse(result, h.avatars))
}

// About handles GET /about.
//
// @Summary      About page
// @Tags         pages
// @Produce      json
// @Success      200  {object}  aboutResponse
// @Router       /about [get]
func (h *PostHandler) About(c echo.Context) error {
	return c.JSON(http.StatusOK, aboutResponse{
		Title:       "About",
		Description: "A small multi-user blog. Register, write posts and keep your profile up to date.",
	})
}

// Show handles GET /post/:id.
//
// @Summary      Get a post
// @Tags         posts
// @Produce      json
// @Param        id   path      string  true  "Post id"
// @Success      200  {object}  postResponse
// @Failure      404  {object}  map[string]string
// @Router       /post/{id} [get]
func (h *PostHandler) Show(c echo.Context) error {
	id, err := h.postID(c)
	if err != nil {
		return err
	}
	detail, err := h.posts.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toPostResponse(*detail, h.avatars))
}

// NewForm handles GET /post/new.
//
// @Summary      Describe the new-post form
// @Tags         posts
// @Produce      json
// @Success      200  {object}  postFormResponse
// @Router       /post/new [get]
func (h *PostHandler) NewForm(c echo.Context) error {
	return c.JSON(http.StatusOK, postFormResponse{Form: postForm("New Post")})
}

// Create handles POST /post/new.
//
// @Summary      Create a post
// @Tags         posts
// @Accept       json
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        body  body      postRequest  true  "Title and content"
// @Success      201   {object}  postResponse
// @Failure      422   {object}  map[string]any
// @Router       /post/new [post]
func (h *PostHandler) Create(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}

	var req postRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	post, err := h.posts.Create(c.Request().Context(), user, ports.PostInput{Title: req.Title, Content: req.Content})
	if err != nil {
		return err
	}
	h.metrics.Post(metrics.PostCreated)

	c.Response().Header().Set(echo.HeaderLocation, "/post/"+post.ID)
	return c.JSON(http.StatusCreated, toPostResponse(ownPost(post, user), h.avatars))
}

// EditForm handles GET /post/:id/update.
//
// @Summary      Current values of a post, for editing by its author
// @Tags         posts
// @Produce      json
// @Param        id   path      string  true  "Post id"
// @Success      200  {object}  postFormResponse
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /post/{id}/update [get]
func (h *PostHandler) EditForm(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}
	id, err := h.postID(c)
	if err != nil {
		return err
	}

	post, err := h.posts.GetForEdit(c.Request().Context(), user, id)
	if err != nil {
		return err
	}
	values := toPostResponse(ownPost(post, user), h.avatars)
	return c.JSON(http.StatusOK, postFormResponse{Form: postForm("Update Post"), Values: &values})
}

// Update handles POST /post/:id/update.
//
// @Summary      Update a post
// @Tags         posts
// @Accept       json
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        id    path      string       true  "Post id"
// @Param        body  body      postRequest  true  "New title and content"
// @Success      200   {object}  postResponse
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      422   {object}  map[string]any
// @Router       /post/{id}/update [post]
func (h *PostHandler) Update(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}
	id, err := h.postID(c)
	if err != nil {
		return err
	}

	var req postRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	post, err := h.posts.Update(c.Request().Context(), user, id, ports.PostInput{Title: req.Title, Content: req.Content})
	if err != nil {
		return err
	}
	h.metrics.Post(metrics.PostUpdated)
	return c.JSON(http.StatusOK, toPostResponse(ownPost(post, user), h.avatars))
}

// Delete handles POST /post/:id/delete.
//
// @Summary      Delete a post
// @Tags         posts
// @Param        id   path  string  true  "Post id"
// @Success      302
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /post/{id}/delete [post]
func (h *PostHandler) Delete(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}
	id, err := h.postID(c)
	if err != nil {
		return err
	}

	if err := h.posts.Delete(c.Request().Context(), user, id); err != nil {
		return err
	}
	h.metrics.Post(metrics.PostDeleted)
	return c.Redirect(http.StatusFound, "/home")
}

// postID reads and checks the :id path parameter. Ids that cannot exist are
// reported as a missing post.
func (h *PostHandler) postID(c echo.Context) (string, error) {
	var p postIDParam
	if err := (&echo.DefaultBinder{}).BindPathParams(c, &p); err != nil {
		return "", domain.ErrPostNotFound
	}
	if err := c.Validate(&p); err != nil {
		return "", domain.ErrPostNotFound
	}
	return p.ID, nil
}
