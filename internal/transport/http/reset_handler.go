package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fitfuel/fitfuel-api/internal/service"
	"github.com/fitfuel/fitfuel-api/internal/util"
)

// ResetHandler exposes the password reset flow over HTTP. Each client flow
// is addressed by the flow_id issued on the initial request.
type ResetHandler struct {
	flows *FlowRegistry
}

func NewResetHandler(flows *FlowRegistry) *ResetHandler {
	return &ResetHandler{flows: flows}
}

func (h *ResetHandler) Register(g *echo.Group) {
	g.POST("/reset/request", h.Request)
	g.POST("/reset/verify", h.Verify)
	g.POST("/reset/resend", h.Resend)
	g.POST("/reset/confirm", h.Confirm)
}

type requestResetRequest struct {
	Email string `json:"email"`
}

type flowResponse struct {
	FlowID          string `json:"flow_id"`
	State           string `json:"state"`
	Message         string `json:"message,omitempty"`
	Warning         string `json:"warning,omitempty"`
	RedirectAfterMS int64  `json:"redirect_after_ms,omitempty"`
}

func (h *ResetHandler) Request(c echo.Context) error {
	var req requestResetRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	id, flow := h.flows.Create()
	c.Set(contextFlowIDKey, id)

	if err := flow.RequestReset(c.Request().Context(), req.Email); err != nil {
		h.flows.Remove(id)
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusAccepted, flowResponse{
		FlowID:  id,
		State:   flow.State().String(),
		Message: service.GenericRequestMessage,
	})
}

type verifyResetRequest struct {
	FlowID string `json:"flow_id"`
	Email  string `json:"email"`
	Code   string `json:"code"`
}

func (h *ResetHandler) Verify(c echo.Context) error {
	var req verifyResetRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	flow, ok := h.flows.Get(req.FlowID)
	if !ok {
		return c.JSON(http.StatusNotFound, util.Error("unknown or expired flow"))
	}
	c.Set(contextFlowIDKey, req.FlowID)

	if _, err := flow.VerifyOTP(c.Request().Context(), req.Email, req.Code); err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, flowResponse{
		FlowID:          req.FlowID,
		State:           flow.State().String(),
		Warning:         flow.Warning(),
		RedirectAfterMS: flow.ConfirmDelay().Milliseconds(),
	})
}

type resendResetRequest struct {
	FlowID string `json:"flow_id"`
}

func (h *ResetHandler) Resend(c echo.Context) error {
	var req resendResetRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	flow, ok := h.flows.Get(req.FlowID)
	if !ok {
		return c.JSON(http.StatusNotFound, util.Error("unknown or expired flow"))
	}
	c.Set(contextFlowIDKey, req.FlowID)

	if err := flow.Resend(c.Request().Context()); err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusAccepted, flowResponse{
		FlowID:  req.FlowID,
		State:   flow.State().String(),
		Message: service.GenericRequestMessage,
	})
}

type confirmResetRequest struct {
	FlowID          string `json:"flow_id"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	CallbackURL     string `json:"callback_url,omitempty"`
}

func (h *ResetHandler) Confirm(c echo.Context) error {
	var req confirmResetRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	flow, ok := h.flows.Get(req.FlowID)
	if !ok {
		return c.JSON(http.StatusNotFound, util.Error("unknown or expired flow"))
	}
	c.Set(contextFlowIDKey, req.FlowID)

	if req.CallbackURL != "" {
		flow.SetCallbackURL(req.CallbackURL)
	}

	if err := flow.SetNewPassword(c.Request().Context(), req.Password, req.ConfirmPassword); err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, flowResponse{
		FlowID:          req.FlowID,
		State:           flow.State().String(),
		Message:         "Your password has been updated. You can now sign in with it.",
		RedirectAfterMS: flow.CompleteDelay().Milliseconds(),
	})
}

// writeError maps flow errors onto HTTP statuses. The body always carries
// the flow's user-facing string, never raw provider text.
func (h *ResetHandler) writeError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrInvalidCode),
		errors.Is(err, service.ErrEmailMissing),
		errors.Is(err, service.ErrPasswordMismatch),
		errors.Is(err, service.ErrTokenMissing),
		errors.Is(err, service.ErrTokenInvalid):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrPasswordTooWeak),
		errors.Is(err, service.ErrPasswordSame):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrCodeInvalid):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrCodeNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrCodeExpired),
		errors.Is(err, service.ErrTokenExpired),
		errors.Is(err, service.ErrSessionExpired):
		status = http.StatusGone
	case errors.Is(err, service.ErrSessionInvalid),
		errors.Is(err, service.ErrSessionForbidden),
		errors.Is(err, service.ErrSessionMissing):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrFlowState),
		errors.Is(err, service.ErrFlowClosed):
		status = http.StatusConflict
	case errors.Is(err, service.ErrTooManyRequests):
		status = http.StatusTooManyRequests
	case errors.Is(err, service.ErrProviderUnavailable):
		status = http.StatusServiceUnavailable
	}

	if errors.Is(err, service.ErrTooManyRequests) {
		c.Response().Header().Set("Retry-After", "60")
	}
	return c.JSON(status, util.Error(service.UserMessage(err)))
}
