// Package catalog defines the pulsera catalog item and its validation rules.
package catalog

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/pulseritas/storefront/internal/platform/errors"
)

// MaxImageBytes caps uploaded item images at 2 MiB.
const MaxImageBytes = 2 * 1024 * 1024

// Item is one catalog entry ("pulsera") in the storefront.
type Item struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"price_cents"`
	ImageURL    string    `json:"image_url"`
	ImagePath   string    `json:"image_path"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Price renders the item price as a two-decimal string.
func (i Item) Price() string {
	return fmt.Sprintf("%d.%02d", i.PriceCents/100, i.PriceCents%100)
}

// Validate checks the fields required to publish an item.
func (i Item) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return apperrors.New(apperrors.CodeItemNameEmpty, "item name is required")
	}
	if strings.TrimSpace(i.Description) == "" {
		return apperrors.New(apperrors.CodeItemDescriptionEmpty, "item description is required")
	}
	if i.PriceCents <= 0 {
		return apperrors.New(apperrors.CodeItemPriceInvalid, "item price must be greater than zero")
	}
	if strings.TrimSpace(i.ImageURL) == "" || strings.TrimSpace(i.ImagePath) == "" {
		return apperrors.New(apperrors.CodeItemImageMissing, "item image is required")
	}
	return nil
}

// ValidateImageSize checks an uploaded image payload against MaxImageBytes.
func ValidateImageSize(size int64) error {
	if size <= 0 {
		return apperrors.New(apperrors.CodeItemImageMissing, "item image is required")
	}
	if size > MaxImageBytes {
		return apperrors.WithMetadata(
			apperrors.CodeItemImageTooLarge,
			"item image exceeds the size limit",
			map[string]string{"max_bytes": strconv.FormatInt(MaxImageBytes, 10)},
		)
	}
	return nil
}

// ParsePrice converts a decimal price string (e.g. "12.50") to cents.
// Prices are rounded to two decimals, matching the storefront's display.
func ParsePrice(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, apperrors.New(apperrors.CodeItemPriceInvalid, "item price is required")
	}
	price, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, apperrors.New(apperrors.CodeItemPriceInvalid, "item price is not a number")
	}
	cents := int64(math.Round(price * 100))
	if cents <= 0 {
		return 0, apperrors.New(apperrors.CodeItemPriceInvalid, "item price must be greater than zero")
	}
	return cents, nil
}

// ItemUpdate carries a partial item mutation; nil fields are left unchanged.
type ItemUpdate struct {
	Name        *string
	Description *string
	PriceCents  *int64
	ImageURL    *string
	ImagePath   *string
}

// Validate checks whichever fields the update carries.
func (u ItemUpdate) Validate() error {
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return apperrors.New(apperrors.CodeItemNameEmpty, "item name is required")
	}
	if u.Description != nil && strings.TrimSpace(*u.Description) == "" {
		return apperrors.New(apperrors.CodeItemDescriptionEmpty, "item description is required")
	}
	if u.PriceCents != nil && *u.PriceCents <= 0 {
		return apperrors.New(apperrors.CodeItemPriceInvalid, "item price must be greater than zero")
	}
	return nil
}

// Empty reports whether the update changes nothing.
func (u ItemUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.PriceCents == nil &&
		u.ImageURL == nil && u.ImagePath == nil
}
