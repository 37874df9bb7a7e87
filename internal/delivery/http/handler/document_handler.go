package handler

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"wizesign/internal/domain/entity"
	"wizesign/internal/usecase"
)

type DocumentHandler struct {
	workflow usecase.DocumentWorkflow
	otp      usecase.OtpVerifier
	logger   *zap.Logger
}

func NewDocumentHandler(workflow usecase.DocumentWorkflow, otp usecase.OtpVerifier, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		workflow: workflow,
		otp:      otp,
		logger:   logger,
	}
}

// Create godoc
// @Summary Create document
// @Description Register a document for signing and issue a secure patient link
// @Tags documents
// @Accept json
// @Produce json
// @Param request body usecase.CreateDocumentRequest true "Document intake payload"
// @Success 201 {object} entity.APIResponse
// @Failure 400 {object} entity.APIResponse
// @Failure 500 {object} entity.APIResponse
// @Router /api/v1/documents/create [post]
func (h *DocumentHandler) Create(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req usecase.CreateDocumentRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(
			entity.NewErrorResponse("BAD_REQUEST", "Invalid request body"),
		)
	}

	result, err := h.workflow.CreateDocument(ctx, &req)
	if err != nil {
		h.logger.Error("Failed to create document", zap.Error(err))
		return h.respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(
		entity.NewSuccessResponse(result, "Document created successfully"),
	)
}

// List godoc
// @Summary List documents
// @Description List documents, optionally filtered by status
// @Tags documents
// @Accept json
// @Produce json
// @Param status query string false "Status filter"
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} entity.APIResponse
// @Failure 500 {object} entity.APIResponse
// @Router /api/v1/documents [get]
func (h *DocumentHandler) List(c *fiber.Ctx) error {
	ctx := c.UserContext()

	status := entity.DocumentStatus(c.Query("status"))
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	docs, err := h.workflow.ListDocuments(ctx, status, limit, offset)
	if err != nil {
		h.logger.Error("Failed to list documents", zap.Error(err))
		return h.respondError(c, err)
	}

	return c.JSON(entity.NewSuccessResponse(docs, "Documents retrieved successfully"))
}

// Get godoc
// @Summary Get document
// @Description Get a document by its id
// @Tags documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} entity.APIResponse
// @Failure 404 {object} entity.APIResponse
// @Router /api/v1/documents/{id} [get]
func (h *DocumentHandler) Get(c *fiber.Ctx) error {
	ctx := c.UserContext()

	doc, err := h.workflow.GetDocument(ctx, c.Params("id"))
	if err != nil {
		return h.respondError(c, err)
	}

	return c.JSON(entity.NewSuccessResponse(doc, "Document retrieved successfully"))
}

// GetByToken godoc
// @Summary Open secure link
// @Description Resolve a document by its secure token, recording first access
// @Tags documents
// @Accept json
// @Produce json
// @Param token path string true "Secure token"
// @Success 200 {object} entity.APIResponse
// @Failure 404 {object} entity.APIResponse
// @Failure 410 {object} entity.APIResponse
// @Router /api/v1/documents/by-token/{token} [get]
func (h *DocumentHandler) GetByToken(c *fiber.Ctx) error {
	ctx := c.UserContext()

	doc, err := h.workflow.OpenLink(ctx, c.Params("token"), c.IP())
	if err != nil {
		return h.respondError(c, err)
	}

	return c.JSON(entity.NewSuccessResponse(doc, "Document retrieved successfully"))
}

// Sign godoc
// @Summary Submit signature
// @Description Accept the patient's signature and finalize the document
// @Tags documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param request body usecase.SignatureSubmission true "Signature payload"
// @Success 200 {object} entity.APIResponse
// @Failure 400 {object} entity.APIResponse
// @Failure 410 {object} entity.APIResponse
// @Router /api/v1/documents/{id}/sign [post]
func (h *DocumentHandler) Sign(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var sub usecase.SignatureSubmission
	if err := c.BodyParser(&sub); err != nil {
		h.logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(
			entity.NewErrorResponse("BAD_REQUEST", "Invalid request body"),
		)
	}
	if sub.IPAddress == "" {
		sub.IPAddress = c.IP()
	}

	doc, err := h.workflow.SubmitSignature(ctx, c.Params("id"), &sub)
	if err != nil {
		h.logger.Warn("Failed to submit signature",
			zap.String("document_id", c.Params("id")),
			zap.Error(err),
		)
		return h.respondError(c, err)
	}

	return c.JSON(entity.NewSuccessResponse(doc, "Document signed successfully"))
}

// Download godoc
// @Summary Download signed document
// @Description Download the composed signed PDF of a signed document
// @Tags documents
// @Produce application/pdf
// @Param id path string true "Document ID"
// @Success 200 {file} binary
// @Failure 400 {object} entity.APIResponse
// @Failure 404 {object} entity.APIResponse
// @Router /api/v1/documents/{id}/download [get]
func (h *DocumentHandler) Download(c *fiber.Ctx) error {
	ctx := c.UserContext()

	content, err := h.workflow.Download(ctx, c.Params("id"))
	if err != nil {
		return h.respondError(c, err)
	}

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="signed_%s.pdf"`, c.Params("id")))
	return c.Send(content)
}

// SendOtp godoc
// @Summary Send OTP
// @Description Issue a one-time code and deliver it to the patient over WhatsApp
// @Tags documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} entity.APIResponse
// @Failure 404 {object} entity.APIResponse
// @Failure 502 {object} entity.APIResponse
// @Router /api/v1/documents/{id}/send-otp [post]
func (h *DocumentHandler) SendOtp(c *fiber.Ctx) error {
	ctx := c.UserContext()

	if err := h.otp.Issue(ctx, c.Params("id")); err != nil {
		h.logger.Warn("Failed to issue OTP",
			zap.String("document_id", c.Params("id")),
			zap.Error(err),
		)
		return h.respondError(c, err)
	}

	return c.JSON(entity.NewSuccessResponse(nil, "OTP sent successfully"))
}

type verifyOtpRequest struct {
	Code string `json:"code"`
}

// VerifyOtp godoc
// @Summary Verify OTP
// @Description Check a submitted one-time code against the issued one
// @Tags documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param request body verifyOtpRequest true "OTP code"
// @Success 200 {object} entity.APIResponse
// @Failure 400 {object} entity.APIResponse
// @Failure 429 {object} entity.APIResponse
// @Router /api/v1/documents/{id}/verify-otp [post]
func (h *DocumentHandler) VerifyOtp(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req verifyOtpRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(
			entity.NewErrorResponse("BAD_REQUEST", "Invalid request body"),
		)
	}

	if err := h.otp.Verify(ctx, c.Params("id"), req.Code); err != nil {
		h.logger.Warn("OTP verification failed",
			zap.String("document_id", c.Params("id")),
			zap.Error(err),
		)
		return h.respondError(c, err)
	}

	return c.JSON(entity.NewSuccessResponse(nil, "OTP verified successfully"))
}

type sendWhatsAppRequest struct {
	Phone string `json:"phone"`
}

// SendWhatsApp godoc
// @Summary Send signing link
// @Description Deliver the patient link over WhatsApp
// @Tags documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param request body sendWhatsAppRequest false "Override phone"
// @Success 200 {object} entity.APIResponse
// @Failure 404 {object} entity.APIResponse
// @Failure 502 {object} entity.APIResponse
// @Router /api/v1/documents/{id}/send-whatsapp [post]
func (h *DocumentHandler) SendWhatsApp(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req sendWhatsAppRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(
				entity.NewErrorResponse("BAD_REQUEST", "Invalid request body"),
			)
		}
	}

	if err := h.workflow.SendLink(ctx, c.Params("id"), req.Phone); err != nil {
		h.logger.Warn("Failed to send signing link",
			zap.String("document_id", c.Params("id")),
			zap.Error(err),
		)
		return h.respondError(c, err)
	}

	return c.JSON(entity.NewSuccessResponse(nil, "WhatsApp message sent successfully"))
}

// respondError maps workflow sentinels onto HTTP statuses and the shared
// response envelope.
func (h *DocumentHandler) respondError(c *fiber.Ctx, err error) error {
	status, code := fiber.StatusInternalServerError, "INTERNAL_ERROR"

	switch {
	case errors.Is(err, entity.ErrNotFound):
		status, code = fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, entity.ErrLinkExpired):
		status, code = fiber.StatusGone, "LINK_EXPIRED"
	case errors.Is(err, entity.ErrOtpExpired):
		status, code = fiber.StatusGone, "OTP_EXPIRED"
	case errors.Is(err, entity.ErrOtpAttemptsExceeded):
		status, code = fiber.StatusTooManyRequests, "OTP_ATTEMPTS_EXCEEDED"
	case errors.Is(err, entity.ErrAlreadySigned):
		status, code = fiber.StatusBadRequest, "ALREADY_SIGNED"
	case errors.Is(err, entity.ErrNotSigned):
		status, code = fiber.StatusBadRequest, "NOT_SIGNED"
	case errors.Is(err, entity.ErrNoOtpIssued):
		status, code = fiber.StatusBadRequest, "NO_OTP_ISSUED"
	case errors.Is(err, entity.ErrOtpInvalid):
		status, code = fiber.StatusBadRequest, "OTP_INVALID"
	case errors.Is(err, entity.ErrInvalidInput):
		status, code = fiber.StatusBadRequest, "BAD_REQUEST"
	case errors.Is(err, entity.ErrDelivery):
		status, code = fiber.StatusBadGateway, "DELIVERY_FAILED"
	}

	if status == fiber.StatusInternalServerError {
		h.logger.Error("Unhandled error", zap.Error(err))
	}

	return c.Status(status).JSON(entity.NewErrorResponse(code, err.Error()))
}
