// internal/handlers/product.go
package handlers

import (
	"io"
	"mime/multipart"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/secondhand/marketplace-backend/internal/i18n"
	"github.com/secondhand/marketplace-backend/internal/services"
	"github.com/secondhand/marketplace-backend/internal/utils"
)

type ProductHandler struct {
	productService *services.ProductService
	storageService *services.StorageService
}

func NewProductHandler(productService *services.ProductService, storageService *services.StorageService) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		storageService: storageService,
	}
}

// POST /api/products/list
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.CreateProductRequest
	if err := c.ShouldBind(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	images, err := h.readImages(c)
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "images"), err.Error())
		return
	}
	req.Images = images

	result, err := h.productService.CreateProduct(c.Request.Context(), callerID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":       i18n.T(lang, i18n.KeyProductCreated),
		"product_id":    result.ProductID,
		"nano_tag":      result.NanoTag,
		"blockchain_id": result.BlockchainID,
		"status":        result.Status,
	})
}

// readImages reads at most MaxFiles parts named "images". Parts with a
// disallowed type or size are skipped.
func (h *ProductHandler) readImages(c *gin.Context) ([]services.ImageInput, error) {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		// Not a multipart request; the listing has no photos.
		return nil, nil
	}

	options := h.storageService.ProductImageOptions()
	files := form.File["images"]
	if options.MaxFiles > 0 && len(files) > options.MaxFiles {
		files = files[:options.MaxFiles]
	}

	images := make([]services.ImageInput, 0, len(files))
	for _, header := range files {
		if err := h.storageService.CheckFile(header, options); err != nil {
			logrus.WithError(err).WithField("filename", header.Filename).Warn("Skipping upload")
			continue
		}

		data, err := readFile(header)
		if err != nil {
			return nil, err
		}
		images = append(images, services.ImageInput{Filename: header.Filename, Data: data})
	}
	return images, nil
}

func readFile(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return io.ReadAll(file)
}

// POST /api/products/activate/:product_id
func (h *ProductHandler) ActivateProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	product, err := h.productService.ActivateProduct(c.Request.Context(), c.Param("product_id"), callerID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":    i18n.T(lang, i18n.KeyProductActivated),
		"product_id": product.ID,
		"status":     product.Status,
		"nano_tag":   product.NanoTag,
	})
}

// GET /api/products/feed
func (h *ProductHandler) GetFeed(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	products, total, err := h.productService.GetFeed(c.Request.Context(), params)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(products, total, params))
}

// GET /api/products/:product_id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	detail, err := h.productService.GetProductDetail(c.Request.Context(), c.Param("product_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, detail)
}

// GET /api/products/verify/:product_id
func (h *ProductHandler) VerifyProduct(c *gin.Context) {
	verification, err := h.productService.VerifyProduct(c.Request.Context(), c.Param("product_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, verification)
}

// GET /api/products/history/:product_id
func (h *ProductHandler) GetHistory(c *gin.Context) {
	entries, err := h.productService.GetHistory(c.Request.Context(), c.Param("product_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"product_id": c.Param("product_id"),
		"entries":    entries,
	})
}

// POST /api/products/transfer/:product_id
func (h *ProductHandler) TransferProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	result, err := h.productService.TransferOwnership(c.Request.Context(), c.Param("product_id"), callerID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response := gin.H{
		"message":       i18n.T(lang, i18n.KeyProductTransferred),
		"blockchain_id": result.BlockchainID,
		"status":        result.Status,
	}
	if result.Payment != nil {
		response["payment"] = result.Payment
	}
	utils.SuccessResponse(c, response)
}

// DELETE /api/products/:product_id
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	product, err := h.productService.RemoveProduct(c.Request.Context(), c.Param("product_id"), callerID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":    i18n.T(lang, i18n.KeyProductRemoved),
		"product_id": product.ID,
		"status":     product.Status,
	})
}
