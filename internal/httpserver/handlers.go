package httpserver

import (
	"context"
	"net/http"

	"github.com/MarkoPoloResearchLab/giftcard/pkg/giftcard"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type createCardRequest struct {
	Email              string `json:"email"`
	Name               string `json:"name"`
	Note               string `json:"note"`
	OwnerUserID        string `json:"owner_user_id"`
	VariantID          string `json:"variant_id"`
	LineItemID         string `json:"line_item_id"`
	OriginalValueCents *int64 `json:"original_value_cents"`
	CurrentValueCents  *int64 `json:"current_value_cents"`
	ExpiresAtUnix      int64  `json:"expires_at_unix"`
}

type orderPayload struct {
	OrderID    string `json:"order_id"`
	TotalCents int64  `json:"order_total_cents"`
	State      string `json:"order_state"`
	OwnerID    string `json:"order_user_id"`
}

type applyCodeRequest struct {
	Code string `json:"code"`
	orderPayload
}

type debitRequest struct {
	AmountCents int64  `json:"amount_cents"`
	OrderID     string `json:"order_id"`
}

type transferRequest struct {
	Email string `json:"email"`
	Note  string `json:"note"`
}

type cardResponse struct {
	CardID             string `json:"card_id"`
	Code               string `json:"code"`
	OriginalValueCents int64  `json:"original_value_cents"`
	CurrentValueCents  int64  `json:"current_value_cents"`
	Email              string `json:"email"`
	Name               string `json:"name"`
	Note               string `json:"note,omitempty"`
	OwnerUserID        string `json:"owner_user_id,omitempty"`
	ExpiresAtUnix      int64  `json:"expires_at_unix"`
	CreatedAtUnix      int64  `json:"created_at_unix"`
	DeletedAtUnix      int64  `json:"deleted_at_unix,omitempty"`
	Status             string `json:"status"`
}

type adjustmentResponse struct {
	OriginatorID   string `json:"originator_id"`
	OriginatorType string `json:"originator_type"`
	Label          string `json:"label"`
	AmountCents    int64  `json:"amount_cents"`
	Mandatory      bool   `json:"mandatory"`
}

// requestOrder adapts the JSON order payload to the Order contract and
// captures the adjustment apply writes, so the response can return it
// to the checkout pipeline.
type requestOrder struct {
	orderID    giftcard.OrderID
	payload    orderPayload
	adjustment *giftcard.Adjustment
}

func newRequestOrder(payload orderPayload) (*requestOrder, error) {
	orderID, err := giftcard.NewOrderID(payload.OrderID)
	if err != nil {
		return nil, err
	}
	return &requestOrder{orderID: orderID, payload: payload}, nil
}

func (order *requestOrder) OrderID() giftcard.OrderID {
	return order.orderID
}

func (order *requestOrder) TotalCents() giftcard.AmountCents {
	return giftcard.AmountCents(order.payload.TotalCents)
}

func (order *requestOrder) OwnerID() (giftcard.UserID, bool) {
	if order.payload.OwnerID == "" {
		return giftcard.UserID{}, false
	}
	owner, err := giftcard.NewUserID(order.payload.OwnerID)
	if err != nil {
		return giftcard.UserID{}, false
	}
	return owner, true
}

func (order *requestOrder) State() giftcard.OrderState {
	if order.payload.State == "" {
		return giftcard.OrderState("cart")
	}
	return giftcard.OrderState(order.payload.State)
}

func (order *requestOrder) UpsertAdjustment(_ context.Context, adjustment giftcard.Adjustment) error {
	order.adjustment = &adjustment
	return nil
}

func (handler *httpHandler) handleCreate(ctx *gin.Context) {
	var body createCardRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	input := giftcard.CreateInput{
		Name:             body.Name,
		Note:             body.Note,
		VariantID:        body.VariantID,
		LineItemID:       body.LineItemID,
		ExpiresAtUnixUTC: body.ExpiresAtUnix,
	}
	if body.Email != "" {
		email, err := giftcard.NewEmailAddress(body.Email)
		if err != nil {
			handler.renderError(ctx, err)
			return
		}
		input.Email = email
	}
	if body.OwnerUserID != "" {
		owner, err := giftcard.NewUserID(body.OwnerUserID)
		if err != nil {
			handler.renderError(ctx, err)
			return
		}
		input.OwnerID = owner
	}
	if body.OriginalValueCents != nil {
		amount, err := giftcard.NewAmountCents(*body.OriginalValueCents)
		if err != nil {
			handler.renderError(ctx, err)
			return
		}
		input.OriginalValueCents = &amount
	}
	if body.CurrentValueCents != nil {
		amount, err := giftcard.NewAmountCents(*body.CurrentValueCents)
		if err != nil {
			handler.renderError(ctx, err)
			return
		}
		input.CurrentValueCents = &amount
	}
	card, err := handler.service.Create(ctx.Request.Context(), input)
	if err != nil {
		handler.renderError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, formatCard(card, handler.nowFn()))
}

func (handler *httpHandler) handleGet(ctx *gin.Context) {
	cardID, err := giftcard.NewCardID(ctx.Param("id"))
	if err != nil {
		handler.renderError(ctx, err)
		return
	}
	includeDeleted := ctx.Query("include_deleted") == "true"
	card, err := handler.service.Lookup(ctx.Request.Context(), cardID, includeDeleted)
	if err != nil {
		handler.renderError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, formatCard(card, handler.nowFn()))
}

func (handler *httpHandler) handleList(ctx *gin.Context) {
	query := giftcard.ListQuery{
		OnlyActive:     ctx.Query("active") == "true",
		IncludeDeleted: ctx.Query("include_deleted") == "true",
	}
	if ownerValue := ctx.Query("owner"); ownerValue != "" {
		// "me" scopes the listing to the authenticated caller.
		if ownerValue == "me" {
			claims := callerClaims(ctx)
			if claims == nil {
				ctx.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
				return
			}
			ownerValue = claims.UserID
		}
		owner, err := giftcard.NewUserID(ownerValue)
		if err != nil {
			handler.renderError(ctx, err)
			return
		}
		query.OwnerID = owner
	}
	order := giftcard.ListOrder(ctx.DefaultQuery("sort", string(giftcard.ListOrderExpiration)))
	cards, err := handler.service.ListCards(ctx.Request.Context(), query, order)
	if err != nil {
		handler.renderError(ctx, err)
		return
	}
	nowUnixUTC := handler.nowFn()
	responses := make([]cardResponse, 0, len(cards))
	for _, card := range cards {
		responses = append(responses, formatCard(card, nowUnixUTC))
	}
	ctx.JSON(http.StatusOK, gin.H{"cards": responses})
}

func (handler *httpHandler) handleTransactions(ctx *gin.Context) {
	cardID, err := giftcard.NewCardID(ctx.Param("id"))
	if err != nil {
		handler.renderError(ctx, err)
		return
	}
	transactions, err := handler.service.ListTransactions(ctx.Request.Context(), cardID)
	if err != nil {
		handler.renderError(ctx, err)
		return
	}
	type transactionResponse struct {
		TransactionID string `json:"transaction_id"`
		OrderID       string `json:"order_id"`
		AmountCents   int64  `json:"amount_cents"`
		CreatedAtUnix int64  `json:"created_at_unix"`
	}
	responses := make([]transactionResponse, 0, len(transactions))
	for _, transaction := range transactions {
		responses = append(responses, transactionResponse{
			TransactionID: transaction.TransactionID,
			OrderID:       transaction.OrderID.String(),
			AmountCents:   transaction.AmountCents.Int64(),
			CreatedAtUnix: transaction.CreatedUnixUTC,
		})
	}
	ctx.JSON(http.StatusOK, gin.H{"transactions": responses})
}

func (handler *httpHandler) handleApply(ctx *gin.Context) {
	cardID, err := giftcard.NewCardID(ctx.Param("id"))
	if err != nil {
		handler.renderError(ctx, err)
		return
	}
	var payload orderPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	order, err := newRequestOrder(payload)
	if err != nil {
		handler.renderError(ctx, err)
		return
	}
	if err := handler.service.Apply(ctx.Request.Context(), cardID, order); err != nil {
		handler.renderError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"adjustment": formatAdjustment(order.adjustment)})
}

func (handler *httpHandler) handleApplyCode(ctx *gin.Context) {
	var body applyCodeRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	order, err := newRequestOrder(body.orderPayload)
	if err != nil {
		handler.renderError(ctx, err)
		return
	}
	if err := handler.service.ApplyCode(ctx.Request.Context(), body.Code, order); err != nil {
		handler.renderError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"adjustment": formatAdjustment(order.adjustment)})
}

func (handler *httpHandler) handleDebit(ctx *gin.Context) {
	cardID, err := giftcard.NewCardID(ctx.Param("id"))
	if err != nil {
		handler.renderError(ctx, err)
		return
	}
	var body debitRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	orderID, err := giftcard.NewOrderID(body.OrderID)
	if err != nil {
		handler.renderError(ctx, err)
		return
	}
	if err := handler.service.Debit(ctx.Request.Context(), cardID, body.AmountCents, orderID); err != nil {
		handler.renderError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "settled"})
}

func (handler *httpHandler) handleSoftDelete(ctx *gin.Context) {
	cardID, err := giftcard.NewCardID(ctx.Param("id"))
	if err != nil {
		handler.renderError(ctx, err)
		return
	}
	if err := handler.service.SoftDelete(ctx.Request.Context(), cardID); err != nil {
		handler.renderError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (handler *httpHandler) handleRestore(ctx *gin.Context) {
	cardID, err := giftcard.NewCardID(ctx.Param("id"))
	if err != nil {
		handler.renderError(ctx, err)
		return
	}
	if err := handler.service.Restore(ctx.Request.Context(), cardID); err != nil {
		handler.renderError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "restored"})
}

func (handler *httpHandler) handleTransfer(ctx *gin.Context) {
	cardID, err := giftcard.NewCardID(ctx.Param("id"))
	if err != nil {
		handler.renderError(ctx, err)
		return
	}
	var body transferRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	email, err := giftcard.NewEmailAddress(body.Email)
	if err != nil {
		handler.renderError(ctx, err)
		return
	}
	input := giftcard.TransferInput{Email: email, Note: body.Note}
	if err := handler.service.Transfer(ctx.Request.Context(), cardID, input); err != nil {
		handler.renderError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "transferred"})
}

func (handler *httpHandler) handleSortableAttributes(ctx *gin.Context) {
	type attributeResponse struct {
		Label  string `json:"label"`
		Column string `json:"column"`
	}
	attributes := giftcard.SortableAttributes()
	responses := make([]attributeResponse, 0, len(attributes))
	for _, attribute := range attributes {
		responses = append(responses, attributeResponse{Label: attribute.Label, Column: attribute.Column})
	}
	ctx.JSON(http.StatusOK, gin.H{"sortable_attributes": responses})
}

func (handler *httpHandler) renderError(ctx *gin.Context, err error) {
	status, code := mapDomainError(err)
	if status == http.StatusInternalServerError && handler.logger != nil {
		handler.logger.Error("request failed", zap.String("path", ctx.FullPath()), zap.Error(err))
	}
	ctx.JSON(status, gin.H{"error": code, "detail": err.Error()})
}

func formatCard(card giftcard.Card, nowUnixUTC int64) cardResponse {
	return cardResponse{
		CardID:             card.CardID.String(),
		Code:               card.Code.String(),
		OriginalValueCents: card.OriginalValueCents.Int64(),
		CurrentValueCents:  card.CurrentValueCents.Int64(),
		Email:              card.Email.String(),
		Name:               card.Name,
		Note:               card.Note,
		OwnerUserID:        card.OwnerID.String(),
		ExpiresAtUnix:      card.ExpiresAtUnixUTC,
		CreatedAtUnix:      card.CreatedUnixUTC,
		DeletedAtUnix:      card.DeletedUnixUTC,
		Status:             card.Status(nowUnixUTC).String(),
	}
}

func formatAdjustment(adjustment *giftcard.Adjustment) *adjustmentResponse {
	if adjustment == nil {
		return nil
	}
	return &adjustmentResponse{
		OriginatorID:   adjustment.OriginatorID.String(),
		OriginatorType: adjustment.OriginatorType,
		Label:          adjustment.Label,
		AmountCents:    adjustment.AmountCents.Int64(),
		Mandatory:      adjustment.Mandatory,
	}
}
