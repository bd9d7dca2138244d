package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lukamba/kitadi-backend/internal/condition"
	"github.com/lukamba/kitadi-backend/internal/dto"
	"github.com/lukamba/kitadi-backend/internal/http/handlers/common"
	"github.com/lukamba/kitadi-backend/internal/service"
)

// ContractHandler обслуживает смарт-контракты: условные платежи,
// подтверждения и статистику.
type ContractHandler struct {
	contracts *service.ContractService
}

// NewContractHandler создаёт новый хэндлер.
func NewContractHandler(contracts *service.ContractService) *ContractHandler {
	return &ContractHandler{contracts: contracts}
}

// Create POST /contracts
func (h *ContractHandler) Create(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.CreateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "некорректный запрос создания контракта")
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

	cond, err := buildCondition(req.Condition)
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	contract, err := h.contracts.Create(c.Request.Context(), service.CreateContractInput{
		FromUserID:   userID,
		ToUserID:     toUserID,
		FromWalletID: fromWalletID,
		ToWalletID:   toWalletID,
		Amount:       req.Amount,
		Currency:     req.Currency,
		Description:  req.Description,
		Condition:    cond,
		Metadata:     req.Metadata,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, contract)
}

// Confirm POST /contracts/:id/confirm
func (h *ContractHandler) Confirm(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	contractID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	// Тело запроса необязательно.
	var req dto.ConfirmContractRequest
	_ = c.ShouldBindJSON(&req)

	contract, err := h.contracts.Confirm(c.Request.Context(), contractID, userID, req.Notes)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, contract)
}

// Cancel POST /contracts/:id/cancel
func (h *ContractHandler) Cancel(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	contractID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	contract, err := h.contracts.Cancel(c.Request.Context(), contractID, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, contract)
}

// Get GET /contracts/:id
func (h *ContractHandler) Get(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	contractID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	contract, err := h.contracts.Get(c.Request.Context(), contractID, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, contract)
}

// List GET /contracts
func (h *ContractHandler) List(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)

	contracts, total, err := h.contracts.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewPage(contracts, total, limit, offset))
}

// PendingConfirmations GET /contracts/confirmations/pending
func (h *ContractHandler) PendingConfirmations(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)

	confirmations, total, err := h.contracts.PendingConfirmations(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewPage(confirmations, total, limit, offset))
}

// Stats GET /contracts/stats
func (h *ContractHandler) Stats(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	stats, err := h.contracts.Stats(c.Request.Context(), userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// buildCondition преобразует условие из запроса во внутреннее
// представление.
func buildCondition(req dto.ConditionRequest) (*condition.Condition, error) {
	cond := &condition.Condition{Type: condition.Type(req.Type)}

	switch cond.Type {
	case condition.TypeManual:
		confirmUserID, err := common.ParseOptionalUUID(req.ConfirmUserID)
		if err != nil || confirmUserID == nil {
			return nil, common.ErrInvalidUUID
		}
		cond.Manual = &condition.Manual{ConfirmUserID: *confirmUserID}

	case condition.TypeMultiParty:
		confirmers := make([]uuid.UUID, 0, len(req.Confirmers))
		for _, raw := range req.Confirmers {
			id, err := uuid.Parse(raw)
			if err != nil {
				return nil, common.ErrInvalidUUID
			}
			confirmers = append(confirmers, id)
		}
		cond.MultiParty = &condition.MultiParty{
			Confirmers:            confirmers,
			RequiredConfirmations: req.RequiredConfirmations,
		}

	case condition.TypeTimeBased:
		cond.TimeBased = &condition.TimeBased{Timeout: req.Timeout}
	}

	// Неизвестный тип отлавливается валидацией в сервисе.
	return cond, nil
}
