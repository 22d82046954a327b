package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"brand-review-api/config"
	"brand-review-api/models"
)

var validDealStages = map[models.DealStage]bool{
	models.StageLead:        true,
	models.StageQualified:   true,
	models.StageProposal:    true,
	models.StageNegotiation: true,
	models.StageActive:      true,
	models.StageClosedWon:   true,
	models.StageClosedLost:  true,
	models.StageRejected:    true,
}

// GetBrandDeals lists all live deals for a brand.
func GetBrandDeals(c *gin.Context) {
	brandID, err := strconv.Atoi(c.Param("id"))
	if err != nil || brandID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid brand ID"})
		return
	}

	var deals []models.Deal
	if err := config.DB.Where("brand_id = ? AND delete_at IS NULL", brandID).
		Order("created_at DESC").
		Find(&deals).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch deals"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"deals":   deals,
		"total":   len(deals),
	})
}

// CreateDeal adds a commercial pipeline record for a brand.
func CreateDeal(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		BrandID  int      `json:"brand_id" binding:"required"`
		DealName string   `json:"deal_name" binding:"required"`
		Stage    string   `json:"stage" binding:"required"`
		Amount   *float64 `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	stage := models.DealStage(req.Stage)
	if !validDealStages[stage] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid deal stage"})
		return
	}

	var brand models.Brand
	if err := config.DB.Where("brand_id = ? AND delete_at IS NULL", req.BrandID).First(&brand).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Brand not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch brand"})
		return
	}

	deal := models.Deal{
		BrandID:   req.BrandID,
		DealName:  req.DealName,
		Stage:     stage,
		Amount:    req.Amount,
		OwnerID:   &userID,
		CreatedAt: time.Now(),
	}
	if err := config.DB.Create(&deal).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create deal"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"deal":    deal,
	})
}

// UpdateDealStage moves a deal along the sales pipeline. This never
// touches the medical review state machine.
func UpdateDealStage(c *gin.Context) {
	dealID, err := strconv.Atoi(c.Param("id"))
	if err != nil || dealID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid deal ID"})
		return
	}

	var req struct {
		Stage string `json:"stage" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	stage := models.DealStage(req.Stage)
	if !validDealStages[stage] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid deal stage"})
		return
	}

	now := time.Now()
	result := config.DB.Model(&models.Deal{}).
		Where("deal_id = ? AND delete_at IS NULL", dealID).
		Updates(map[string]interface{}{
			"stage":      stage,
			"updated_at": now,
		})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update deal"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Deal not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Deal stage updated",
	})
}
