package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/01moynul/bazaar-golang/internal/apperrors"
	"github.com/01moynul/bazaar-golang/internal/middleware"
	"github.com/01moynul/bazaar-golang/internal/models"
	"github.com/01moynul/bazaar-golang/internal/store"
	"github.com/gin-gonic/gin"
)

type CreateCommentInput struct {
	ProductID int64  `json:"productId" binding:"required,gt=0"`
	ParentID  *int64 `json:"parentId" binding:"omitempty,gt=0"`
	Text      string `json:"text" binding:"required,max=2000"`
}

type UpdateCommentInput struct {
	Text string `json:"text" binding:"required,max=2000"`
}

type RatingInput struct {
	ProductID int64 `json:"productId" binding:"required,gt=0"`
	Score     int   `json:"score" binding:"required,min=1,max=5"`
}

// activeProduct loads a product that can still receive comments and ratings.
func (h *Handlers) activeProduct(c *gin.Context, id int64) error {
	p, err := h.Store.GetProduct(c.Request.Context(), id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if p == nil || !p.Lifecycle.IsActive() {
		return apperrors.FieldError("productId", "Product does not exist.")
	}
	return nil
}

//
// --- Comments ---
//

// ListComments is the handler for GET /v1/comments?productId=
func (h *Handlers) ListComments(c *gin.Context) {
	var f store.CommentFilter
	if raw := c.Query("productId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			h.respondError(c, apperrors.FieldError("productId", "Must be a positive integer."))
			return
		}
		f.ProductID = id
	}
	comments, err := h.Store.ListComments(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

// GetComment is the handler for GET /v1/comments/:id
func (h *Handlers) GetComment(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	cm, err := h.Store.GetComment(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, notFound(err, "Comment"))
		return
	}
	if !visible(c, cm.Lifecycle) {
		h.respondError(c, apperrors.NotFound("Comment"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"comment": cm})
}

// CreateComment is the handler for POST /v1/comments
// A reply must point at an active comment on the same product.
func (h *Handlers) CreateComment(c *gin.Context) {
	var input CreateCommentInput
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.activeProduct(c, input.ProductID); err != nil {
		h.respondError(c, err)
		return
	}
	ctx := c.Request.Context()

	if input.ParentID != nil {
		parent, err := h.Store.GetComment(ctx, *input.ParentID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			h.respondError(c, err)
			return
		}
		if parent == nil || !parent.Lifecycle.IsActive() || parent.ProductID != input.ProductID {
			h.respondError(c, apperrors.FieldError("parentId", "Parent comment does not exist on this product."))
			return
		}
	}

	cm := &models.Comment{
		UserID:    middleware.IdentityFrom(c).UserID,
		ProductID: input.ProductID,
		ParentID:  input.ParentID,
		Text:      input.Text,
	}
	if err := h.Store.CreateComment(ctx, cm); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"comment": cm})
}

func (h *Handlers) loadOwnedComment(c *gin.Context) (*models.Comment, error) {
	id, err := paramID(c, "id")
	if err != nil {
		return nil, err
	}
	cm, err := h.Store.GetComment(c.Request.Context(), id)
	if err != nil {
		return nil, notFound(err, "Comment")
	}
	if err := h.authorize(c, cm, "comment"); err != nil {
		return nil, err
	}
	if !cm.Lifecycle.IsActive() {
		return nil, apperrors.NotFound("Comment")
	}
	return cm, nil
}

// UpdateComment is the handler for PUT /v1/comments/:id
func (h *Handlers) UpdateComment(c *gin.Context) {
	cm, err := h.loadOwnedComment(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	var input UpdateCommentInput
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, err)
		return
	}
	cm.Text = input.Text
	if err := h.Store.UpdateComment(c.Request.Context(), cm); err != nil {
		h.respondError(c, notFound(err, "Comment"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"comment": cm})
}

// DeactivateComment is the handler for DELETE /v1/comments/:id
func (h *Handlers) DeactivateComment(c *gin.Context) {
	cm, err := h.loadOwnedComment(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.Store.DeactivateComment(c.Request.Context(), cm.ID); err != nil {
		h.respondError(c, notFound(err, "Comment"))
		return
	}
	c.Status(http.StatusNoContent)
}

//
// --- Ratings ---
//

// CreateRating is the handler for POST /v1/ratings (one per user and product).
func (h *Handlers) CreateRating(c *gin.Context) {
	var input RatingInput
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.activeProduct(c, input.ProductID); err != nil {
		h.respondError(c, err)
		return
	}

	r := &models.Rating{
		UserID:    middleware.IdentityFrom(c).UserID,
		ProductID: input.ProductID,
		Score:     input.Score,
	}
	if err := h.Store.CreateRating(c.Request.Context(), r); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			err = apperrors.Wrap(apperrors.Conflict("You have already rated this product"), err)
		}
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"rating": r})
}

// GetRating is the handler for GET /v1/ratings/:id
func (h *Handlers) GetRating(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	r, err := h.Store.GetRating(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, notFound(err, "Rating"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"rating": r})
}
