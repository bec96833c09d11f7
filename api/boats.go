package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sailingloc/boatbooking/internal/service/boats"
)

type BoatHandler struct {
	service boats.BoatUseCase
}

func NewBoatHandler(service boats.BoatUseCase) *BoatHandler {
	return &BoatHandler{service: service}
}

func (h *BoatHandler) Register(router *gin.RouterGroup) {
	router.GET("/", h.list)
	router.GET("/:id", h.get)
}

func (h *BoatHandler) list(c *gin.Context) {
	boats, err := h.service.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, boats)
}

func (h *BoatHandler) get(c *gin.Context) {
	boat, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, boat)
}
