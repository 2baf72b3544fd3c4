package handler

import (
	"fmt"
	"net/http"

	"neuriax/internal/apierror"
	"neuriax/internal/dto"
	"neuriax/internal/middleware"
	"neuriax/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type InvoiceHandler struct{ svc service.InvoiceService }

func NewInvoiceHandler(svc service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{svc: svc}
}

// Create godoc
// @Summary Issue a new invoice with a sequential number
// @Tags invoices
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CreateInvoiceRequest true "Invoice data"
// @Success 201 {object} dto.InvoiceResponse
// @Failure 400 {object} apierror.APIError
// @Router /v1/invoices [post]
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req dto.CreateInvoiceRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), middleware.TenantID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Get godoc
// @Summary Fetch one invoice with lines and payments
// @Tags invoices
// @Produce json
// @Security BearerAuth
// @Param id path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/invoices/{id} [get]
func (h *InvoiceHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid invoice id"))
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), middleware.TenantID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// List godoc
// @Summary List invoices with status/type/date filters
// @Tags invoices
// @Produce json
// @Security BearerAuth
// @Param status query string false "issued | partial | paid | overdue | void"
// @Param type query string false "ordinary | simplified | proforma | corrective"
// @Success 200 {object} dto.InvoiceListResponse
// @Router /v1/invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	var filter dto.InvoiceFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid filter: "+err.Error()))
		return
	}
	if err := validate.Struct(filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid filter: "+err.Error()))
		return
	}
	resp, err := h.svc.List(c.Request.Context(), middleware.TenantID(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListOverdue godoc
// @Summary List unpaid invoices past their due date
// @Tags invoices
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.InvoiceResponse
// @Router /v1/invoices/overdue [get]
func (h *InvoiceHandler) ListOverdue(c *gin.Context) {
	resp, err := h.svc.ListOverdue(c.Request.Context(), middleware.TenantID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ApplyPayment godoc
// @Summary Apply a payment against an invoice
// @Tags invoices
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Invoice ID"
// @Param body body dto.ApplyPaymentRequest true "Payment"
// @Success 201 {object} dto.PaymentResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/invoices/{id}/payments [post]
func (h *InvoiceHandler) ApplyPayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid invoice id"))
		return
	}
	var req dto.ApplyPaymentRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.ApplyPayment(c.Request.Context(), middleware.TenantID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Void godoc
// @Summary Void an invoice (requires a reason; number is never reused)
// @Tags invoices
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Invoice ID"
// @Param body body dto.VoidInvoiceRequest true "Void reason"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/invoices/{id}/void [post]
func (h *InvoiceHandler) Void(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid invoice id"))
		return
	}
	var req dto.VoidInvoiceRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Void(c.Request.Context(), middleware.TenantID(c), id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Export godoc
// @Summary Export an invoice as json, xml, facturae or pdf
// @Tags invoices
// @Produce json
// @Security BearerAuth
// @Param id path string true "Invoice ID"
// @Param format query string false "json | xml | facturae | pdf" default(json)
// @Success 200
// @Failure 404 {object} apierror.APIError
// @Router /v1/invoices/{id}/export [get]
func (h *InvoiceHandler) Export(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid invoice id"))
		return
	}
	format := c.DefaultQuery("format", "json")

	data, contentType, err := h.svc.Export(c.Request.Context(), middleware.TenantID(c), id, format)
	if err != nil {
		respondError(c, err)
		return
	}
	if format == "pdf" {
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=invoice_%s.pdf", id))
	}
	c.Data(http.StatusOK, contentType, data)
}
