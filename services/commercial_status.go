package services

import (
	"gorm.io/gorm"

	"brand-review-api/models"
)

// ResolveCommercialStatus classifies a brand's sales-pipeline standing
// from its deals. Partner status dominates: one won/active deal makes the
// brand a partner no matter what else is in the pipeline. A lost/rejected
// deal with no active one means rejected. Anything else in progress means
// prospect, and no deals at all means unknown.
//
// Pure read-side projection. It annotates queue rows only and is never
// consulted when deciding whether a review transition is legal.
func ResolveCommercialStatus(deals []models.Deal) models.CommercialStatus {
	if len(deals) == 0 {
		return models.CommercialUnknown
	}

	anyLost := false
	for _, deal := range deals {
		if deal.Stage.Won() {
			return models.CommercialPartner
		}
		if deal.Stage.Lost() {
			anyLost = true
		}
	}

	if anyLost {
		return models.CommercialRejected
	}
	return models.CommercialProspect
}

// LoadDealsByBrand fetches all live deals for the given brands, grouped
// by brand id. Used by the queue projections to resolve commercial status
// in one query instead of per row.
func LoadDealsByBrand(db *gorm.DB, brandIDs []int) (map[int][]models.Deal, error) {
	grouped := make(map[int][]models.Deal, len(brandIDs))
	if len(brandIDs) == 0 {
		return grouped, nil
	}

	var deals []models.Deal
	if err := db.Where("brand_id IN ? AND delete_at IS NULL", brandIDs).Find(&deals).Error; err != nil {
		return nil, err
	}

	for _, deal := range deals {
		grouped[deal.BrandID] = append(grouped[deal.BrandID], deal)
	}
	return grouped, nil
}
