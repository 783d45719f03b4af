package server

import (
	"fmt"

	"photostream/internal/models"
	"photostream/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreatePost handles POST /api/posts. The request is multipart: caption
// fields plus the image file under the "image" part.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	principal := s.principal(c)

	file, err := c.FormFile("image")
	if err != nil {
		return s.respondError(c, models.NewValidationError("Image file is required"))
	}

	f, err := file.Open()
	if err != nil {
		return s.respondError(c, models.NewInternalError(err))
	}
	defer f.Close()

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	post, err := s.postService.CreatePost(c.Context(), principal, service.CreatePostInput{
		Title:       c.FormValue("title"),
		Caption:     c.FormValue("caption"),
		Location:    c.FormValue("location"),
		Filename:    file.Filename,
		Image:       f,
		Size:        file.Size,
		ContentType: contentType,
	})
	if err != nil {
		return s.respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"post":    post,
	})
}

// GetFeed handles GET /api/posts. The optional q parameter filters by
// case-insensitive substring over title, caption and location; creators only
// ever see their own posts.
func (s *Server) GetFeed(c *fiber.Ctx) error {
	principal := s.principal(c)
	q := c.Query("q")

	posts, err := s.postService.Feed(c.Context(), principal, service.FeedInput{
		Search: q,
		Limit:  c.QueryInt("limit", 0),
	})
	if err != nil {
		return s.respondError(c, err)
	}
	if posts == nil {
		posts = []*models.Post{}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"q":       q,
		"posts":   posts,
	})
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPost(c.Context(), s.principal(c), id)
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"post":    post,
	})
}

// UpdatePost handles PUT /api/posts/:id. Only title, caption and location
// are updatable; absent fields are written as empty strings.
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Title    *string `json:"title"`
		Caption  *string `json:"caption"`
		Location *string `json:"location"`
	}
	if err := c.BodyParser(&req); err != nil {
		return s.respondError(c, models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.UpdatePost(c.Context(), s.principal(c), service.UpdatePostInput{
		PostID:   id,
		Title:    req.Title,
		Caption:  req.Caption,
		Location: req.Location,
	})
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"post":    post,
	})
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.postService.DeletePost(c.Context(), s.principal(c), id); err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"postId":  id,
	})
}

// LikePost handles POST /api/posts/:id/like. The like is a toggle: liking an
// already-liked post removes the like.
func (s *Server) LikePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	result, err := s.postService.ToggleLike(c.Context(), s.principal(c), id)
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"postId":     result.PostID,
		"liked":      result.Liked,
		"likesCount": result.LikesCount,
	})
}

// DownloadPostImage handles GET /api/posts/:id/download. The route is public;
// the image bytes are proxied from the blob store with the stored content
// type and an attachment disposition.
func (s *Server) DownloadPostImage(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	result, err := s.postService.Download(c.Context(), s.optionalPrincipal(c), id)
	if err != nil {
		return s.respondError(c, err)
	}

	c.Set(fiber.HeaderContentType, result.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", result.Filename))

	if result.Size > 0 {
		return c.SendStream(result.Stream, int(result.Size))
	}
	return c.SendStream(result.Stream)
}
