package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lukamba/kitadi-backend/internal/dto"
	"github.com/lukamba/kitadi-backend/internal/http/handlers/common"
	"github.com/lukamba/kitadi-backend/internal/service"
)

// WalletHandler обслуживает кошельки, пополнения и переводы.
type WalletHandler struct {
	wallets *service.WalletService
}

// NewWalletHandler создаёт новый хэндлер.
func NewWalletHandler(wallets *service.WalletService) *WalletHandler {
	return &WalletHandler{wallets: wallets}
}

// Create POST /wallets
func (h *WalletHandler) Create(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	wallet, err := h.wallets.CreateWallet(c.Request.Context(), userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, wallet)
}

// GetDefault GET /wallets/default
func (h *WalletHandler) GetDefault(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	view, err := h.wallets.GetDefaultWallet(c.Request.Context(), userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// Get GET /wallets/:id
func (h *WalletHandler) Get(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	walletID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	view, err := h.wallets.GetWallet(c.Request.Context(), walletID, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// Deposit POST /wallets/deposit
func (h *WalletHandler) Deposit(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "сумма должна быть положительной")
		return
	}

	walletID, err := common.ParseOptionalUUID(req.WalletID)
	if err != nil {
		common.RespondBadRequest(c, "неверный wallet_id")
		return
	}

	tx, err := h.wallets.Deposit(c.Request.Context(), userID, walletID, req.Amount, req.Currency, req.Description)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, tx)
}

// Transfer POST /wallets/transfer
func (h *WalletHandler) Transfer(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "некорректный запрос перевода")
		return
	}

	toUserID, err := uuid.Parse(req.ToUserID)
	if err != nil {
		common.RespondBadRequest(c, "неверный to_user_id")
		return
	}

	fromWalletID, err := common.ParseOptionalUUID(req.FromWalletID)
	if err != nil {
		common.RespondBadRequest(c, "неверный from_wallet_id")
		return
	}
	toWalletID, err := common.ParseOptionalUUID(req.ToWalletID)
	if err != nil {
		common.RespondBadRequest(c, "неверный to_wallet_id")
		return
	}

	tx, err := h.wallets.Transfer(c.Request.Context(), service.TransferInput{
		FromUserID:   userID,
		ToUserID:     toUserID,
		FromWalletID: fromWalletID,
		ToWalletID:   toWalletID,
		Amount:       req.Amount,
		Currency:     req.Currency,
		Description:  req.Description,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, tx)
}

// ListTransactions GET /wallets/transactions
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)

	transactions, err := h.wallets.ListTransactions(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}
