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
	"brand-review-api/services"
	"brand-review-api/utils"
)

// GetBrands lists all live brands with their resolved commercial status.
func GetBrands(c *gin.Context) {
	var brands []models.Brand
	if err := config.DB.Preload("Owner").
		Where("delete_at IS NULL").
		Order("brand_name ASC").
		Find(&brands).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch brands"})
		return
	}

	brandIDs := make([]int, 0, len(brands))
	for _, brand := range brands {
		brandIDs = append(brandIDs, brand.BrandID)
	}
	dealsByBrand, err := services.LoadDealsByBrand(config.DB, brandIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch deals"})
		return
	}

	type brandRow struct {
		models.Brand
		CommercialStatus models.CommercialStatus `json:"commercial_status"`
	}
	rows := make([]brandRow, 0, len(brands))
	for _, brand := range brands {
		rows = append(rows, brandRow{
			Brand:            brand,
			CommercialStatus: services.ResolveCommercialStatus(dealsByBrand[brand.BrandID]),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"brands":  rows,
		"total":   len(rows),
	})
}

// GetBrand returns one brand with deals and commercial status.
func GetBrand(c *gin.Context) {
	brandID, err := strconv.Atoi(c.Param("id"))
	if err != nil || brandID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid brand ID"})
		return
	}

	var brand models.Brand
	if err := config.DB.Preload("Owner").
		Where("brand_id = ? AND delete_at IS NULL", brandID).
		First(&brand).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Brand not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch brand"})
		return
	}

	// Deals go through the same loader the queue uses so soft-deleted
	// deals never skew the status on one screen but not another.
	dealsByBrand, err := services.LoadDealsByBrand(config.DB, []int{brand.BrandID})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch deals"})
		return
	}
	brand.Deals = dealsByBrand[brand.BrandID]

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"brand":             brand,
		"commercial_status": services.ResolveCommercialStatus(brand.Deals),
	})
}

// CreateBrand registers a new partner brand.
func CreateBrand(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		BrandName   string  `json:"brand_name" binding:"required"`
		CompanyName *string `json:"company_name"`
		Website     *string `json:"website"`
		ContactName *string `json:"contact_name"`
		Email       *string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	req.BrandName = utils.SanitizeInput(req.BrandName)
	if req.BrandName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Brand name is required"})
		return
	}
	if req.Email != nil && !utils.ValidateEmail(*req.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid contact email"})
		return
	}

	brand := models.Brand{
		BrandName:   req.BrandName,
		CompanyName: req.CompanyName,
		Website:     req.Website,
		ContactName: req.ContactName,
		Email:       req.Email,
		OwnerID:     &userID,
		CreateAt:    time.Now(),
	}
	if err := config.DB.Create(&brand).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create brand"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"brand":   brand,
	})
}
