package itemsapi

import (
	"errors"
	"net/http"
	"strings"

	"item-console/internal/model"
	"item-console/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// itemPayload mirrors model.Item with validation rules.
type itemPayload struct {
	Name        string   `json:"name" binding:"required,max=50"`
	Description *string  `json:"description" binding:"omitempty,max=300"`
	Price       *float64 `json:"price" binding:"required,gt=0"`
	Tax         *float64 `json:"tax" binding:"omitempty,gte=0"`
}

func (p itemPayload) item() model.Item {
	it := model.Item{Name: p.Name, Description: p.Description, Price: p.Price}
	if p.Tax != nil {
		it.Tax = *p.Tax
	}
	return it
}

type errorBody struct {
	Detail string `json:"detail"`
}

type ItemHandler struct {
	repo ItemRepository
	log  *logrus.Logger
}

func NewItemHandler(repo ItemRepository, logger *logrus.Logger) *ItemHandler {
	return &ItemHandler{repo: repo, log: logger}
}

func (h *ItemHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("/items/", h.ListItems)
	router.POST("/items/", h.CreateItem)
	router.PUT("/items/:id", h.UpdateItem)
	router.DELETE("/items/:id", h.DeleteItem)
	router.GET("/cdc/items", h.ListChanges)
}

func (h *ItemHandler) ListItems(c *gin.Context) {
	items, err := h.repo.List(c.Request.Context())
	if err != nil {
		h.log.Errorf("Unexpected error while getting all items: %v", err)
		c.JSON(http.StatusInternalServerError, errorBody{Detail: "Internal Server Error"})
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *ItemHandler) CreateItem(c *gin.Context) {
	var p itemPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		h.log.Warnf("Rejected item payload: %v", err)
		c.JSON(http.StatusUnprocessableEntity, errorBody{Detail: err.Error()})
		return
	}

	created, err := h.repo.Create(c.Request.Context(), p.item())
	if err != nil {
		h.writeRepoError(c, "inserting item "+p.Name, err)
		return
	}

	h.log.Infof("Item with ID %s inserted successfully.", created.ItemID)
	c.JSON(http.StatusCreated, gin.H{"message": "Item created", "item_id": created.ItemID, "item": created.Item})
}

func (h *ItemHandler) UpdateItem(c *gin.Context) {
	id := model.ItemID(strings.TrimSpace(c.Param("id")))

	var p itemPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		h.log.Warnf("Rejected item payload for %s: %v", id, err)
		c.JSON(http.StatusUnprocessableEntity, errorBody{Detail: err.Error()})
		return
	}

	if _, err := h.repo.Get(c.Request.Context(), id); err != nil {
		h.writeRepoError(c, "updating item with ID "+id.String(), err)
		return
	}

	updated, err := h.repo.Update(c.Request.Context(), id, p.item())
	if err != nil {
		h.writeRepoError(c, "updating item with ID "+id.String(), err)
		return
	}

	h.log.Infof("Item with ID %s updated successfully.", id)
	c.JSON(http.StatusOK, gin.H{"message": "Item updated", "item": updated.Item})
}

func (h *ItemHandler) DeleteItem(c *gin.Context) {
	id := model.ItemID(strings.TrimSpace(c.Param("id")))

	if _, err := h.repo.Get(c.Request.Context(), id); err != nil {
		h.writeRepoError(c, "deleting item with ID "+id.String(), err)
		return
	}

	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		h.writeRepoError(c, "deleting item with ID "+id.String(), err)
		return
	}

	h.log.Infof("Item with ID %s deleted successfully.", id)
	c.Status(http.StatusNoContent)
}

func (h *ItemHandler) ListChanges(c *gin.Context) {
	changes, err := h.repo.Changes(c.Request.Context(), model.ItemID(strings.TrimSpace(c.Query("item_id"))))
	if err != nil {
		h.writeRepoError(c, "listing changes", err)
		return
	}
	c.JSON(http.StatusOK, changes)
}

func (h *ItemHandler) writeRepoError(c *gin.Context, action string, err error) {
	switch {
	case errors.Is(err, store.ErrItemNotFound):
		h.log.Warnf("Item not found while %s", action)
		c.JSON(http.StatusNotFound, errorBody{Detail: "Item not found"})
	case errors.Is(err, store.ErrDuplicateName):
		h.log.Warnf("Duplicate name while %s", action)
		c.JSON(http.StatusConflict, errorBody{Detail: "Item name already exists"})
	default:
		h.log.Errorf("Unexpected error while %s: %v", action, err)
		c.JSON(http.StatusInternalServerError, errorBody{Detail: "Internal Server Error"})
	}
}
