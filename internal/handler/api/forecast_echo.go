package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"FerryCast/internal/domain/models"
	"FerryCast/internal/services/artifacts"
	"FerryCast/internal/usecase"
	xhttp "FerryCast/pkg/http"
	xlogger "FerryCast/pkg/logger"
)

// ForecastUsecase is the forecasting surface the handler serves.
type ForecastUsecase interface {
	Predict(ctx context.Context, target string, req models.ForecastRequest) (*models.ForecastResult, error)
	PredictDaily(ctx context.Context, target string, req models.ForecastRequest) (*models.ForecastResult, error)
	PredictCombined(ctx context.Context, req models.ForecastRequest) (*models.CombinedResult, error)
}

// ArtifactStatus reports whether model artifacts are loaded.
type ArtifactStatus interface {
	Get() (*artifacts.Artifacts, error)
}

// ForecastEchoHandler serves the prediction and probe routes.
type ForecastEchoHandler struct {
	logger *xlogger.Logger
	fc     ForecastUsecase
	status ArtifactStatus
}

func NewForecastEchoHandler(logger *xlogger.Logger, fc ForecastUsecase, status ArtifactStatus) *ForecastEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &ForecastEchoHandler{logger: logger, fc: fc, status: status}
}

func (h *ForecastEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
	e.GET("/ready", h.Ready)

	g := e.Group("/predict")
	g.POST("/combined", h.Combined)
	g.POST("/:model", h.Single)
	g.POST("/:model/daily", h.Daily)
}

// Health reports process liveness. It is 200 even before artifacts load.
func (h *ForecastEchoHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, h.health())
}

// Ready is 200 once artifacts are loaded and 503 before.
func (h *ForecastEchoHandler) Ready(c echo.Context) error {
	res := h.health()
	if !res.ArtifactsLoaded {
		return c.JSON(http.StatusServiceUnavailable, res)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *ForecastEchoHandler) Single(c echo.Context) error {
	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	model := c.Param("model")

	res, err := h.fc.Predict(c.Request().Context(), model, *req)
	if err != nil {
		return h.fail(c, "predict", model, err)
	}
	return xhttp.SuccessResponse(c, models.NewForecastResponse(res))
}

func (h *ForecastEchoHandler) Daily(c echo.Context) error {
	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	model := c.Param("model")

	res, err := h.fc.PredictDaily(c.Request().Context(), model, *req)
	if err != nil {
		return h.fail(c, "predict daily", model, err)
	}
	return xhttp.SuccessResponse(c, models.NewForecastResponse(res))
}

func (h *ForecastEchoHandler) Combined(c echo.Context) error {
	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.fc.PredictCombined(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "predict combined", "combined", err)
	}
	return xhttp.SuccessResponse(c, models.NewCombinedResponse(res))
}

func (h *ForecastEchoHandler) health() models.HealthResponse {
	res := models.HealthResponse{Status: "ok"}
	if h.status == nil {
		return res
	}
	if a, err := h.status.Get(); err == nil {
		res.ArtifactsLoaded = true
		res.ArtifactsVersion = a.Version
		res.Lookback = a.Lookback
	}
	return res
}

func (h *ForecastEchoHandler) fail(c echo.Context, op, model string, err error) error {
	appErr := MapError(err)
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error(op+" usecase error",
			xlogger.String("model", model),
			xlogger.String("kind", usecase.ErrorKind(err)),
			xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

// MapError converts a pipeline failure into its HTTP form.
func MapError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	switch {
	case errors.Is(err, models.ErrInvalidRange):
		appErr = xhttp.BadRequestError(err.Error())
		appErr.Field = "start_date"
	case errors.Is(err, models.ErrUnsupportedTarget):
		appErr = xhttp.NotFoundError(err.Error())
		appErr.Field = "model"
		appErr.WithParam("options", []string{"pasajeros", "vehiculos"})
	case errors.Is(err, models.ErrArtifactsNotLoaded):
		appErr = xhttp.ServiceUnavailableError(err.Error())
	case errors.Is(err, models.ErrBackend):
		appErr = xhttp.BadGatewayError(models.ErrBackend.Error())
	case errors.Is(err, context.DeadlineExceeded):
		appErr = xhttp.NewAppError("ERR_TIMEOUT", "", "forecast timed out", http.StatusGatewayTimeout)
	case errors.Is(err, models.ErrSchemaMismatch):
		appErr = xhttp.InternalError(err.Error())
	default:
		appErr = xhttp.InternalError("forecast failed")
	}
	return appErr.WithError(err)
}
