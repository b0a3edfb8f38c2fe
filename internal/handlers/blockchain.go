// internal/handlers/blockchain.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/secondhand/marketplace-backend/internal/i18n"
	"github.com/secondhand/marketplace-backend/internal/services"
	"github.com/secondhand/marketplace-backend/internal/utils"
)

type BlockchainHandler struct {
	blockchainService *services.BlockchainService
}

func NewBlockchainHandler(blockchainService *services.BlockchainService) *BlockchainHandler {
	return &BlockchainHandler{
		blockchainService: blockchainService,
	}
}

// GET /api/blockchain/validate
func (h *BlockchainHandler) Validate(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	report, err := h.blockchainService.Validate(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	message := i18n.T(lang, i18n.KeyBlockchainValid)
	if !report.OK {
		message = i18n.T(lang, i18n.KeyBlockchainInvalid)
	}

	utils.SuccessResponse(c, gin.H{
		"message": message,
		"report":  report,
	})
}
