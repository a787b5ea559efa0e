package routes

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/drydock-platform/drydock/internal/entity"
	"github.com/drydock-platform/drydock/internal/usecase"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

func RegisterAPI(injector *do.Injector, e *echo.Echo) {
	api := e.Group("/api")

	api.POST("/builds", func(c echo.Context) error {
		type request struct {
			OrgID       int64                 `json:"org_id"`
			CreatedByID int64                 `json:"created_by_id"`
			Repo        string                `json:"repo"`
			Branch      string                `json:"branch"`
			Commit      string                `json:"commit"`
			Manifest    []entity.ManifestFile `json:"manifest"`
			NoCache     bool                  `json:"no_cache"`
			Manual      bool                  `json:"manual"`
		}
		var req request
		if err := c.Bind(&req); err != nil {
			return c.NoContent(http.StatusBadRequest)
		}
		uc := do.MustInvoke[usecase.TriggerBuildUsecase](injector)
		build, err := uc.Execute(c.Request().Context(), usecase.TriggerBuildInput{
			OrgID:       req.OrgID,
			CreatedByID: req.CreatedByID,
			Repo:        req.Repo,
			Branch:      req.Branch,
			Commit:      req.Commit,
			Manifest:    req.Manifest,
			NoCache:     req.NoCache,
			Manual:      req.Manual,
		})
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(http.StatusAccepted, build)
	})

	api.POST("/instances/:id/redeploy", func(c echo.Context) error {
		type request struct {
			TriggeredByID int64 `json:"triggered_by_id"`
		}
		var req request
		if err := c.Bind(&req); err != nil {
			return c.NoContent(http.StatusBadRequest)
		}
		uc := do.MustInvoke[usecase.RedeployInstanceUsecase](injector)
		deploymentID, err := uc.Execute(c.Request().Context(), entity.ID(c.Param("id")), req.TriggeredByID)
		if err != nil {
			return errorResponse(c, err)
		}
		type response struct {
			DeploymentID string `json:"deployment_id"`
		}
		return c.JSON(http.StatusAccepted, &response{DeploymentID: deploymentID})
	})

	api.POST("/docks/removed", func(c echo.Context) error {
		type request struct {
			Host string `json:"host"`
		}
		var req request
		if err := c.Bind(&req); err != nil {
			return c.NoContent(http.StatusBadRequest)
		}
		uc := do.MustInvoke[usecase.ReportDockRemovedUsecase](injector)
		if err := uc.Execute(c.Request().Context(), req.Host); err != nil {
			return errorResponse(c, err)
		}
		return c.NoContent(http.StatusAccepted)
	})

	api.POST("/isolations/:id/sync", func(c echo.Context) error {
		type request struct {
			InstanceID    string `json:"instance_id"`
			TriggeredByID int64  `json:"triggered_by_id"`
		}
		var req request
		if err := c.Bind(&req); err != nil {
			return c.NoContent(http.StatusBadRequest)
		}
		uc := do.MustInvoke[usecase.SyncIsolationUsecase](injector)
		err := uc.Execute(c.Request().Context(),
			entity.ID(c.Param("id")), entity.ID(req.InstanceID), req.TriggeredByID)
		if err != nil {
			return errorResponse(c, err)
		}
		return c.NoContent(http.StatusAccepted)
	})

	api.GET("/instances/:id", func(c echo.Context) error {
		uc := do.MustInvoke[usecase.GetInstanceUsecase](injector)
		inst, err := uc.Execute(c.Request().Context(), entity.ID(c.Param("id")))
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(http.StatusOK, inst)
	})

	api.GET("/context-versions/:id", func(c echo.Context) error {
		uc := do.MustInvoke[usecase.GetContextVersionUsecase](injector)
		cv, err := uc.Execute(c.Request().Context(), entity.ID(c.Param("id")))
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(http.StatusOK, cv)
	})

	api.PUT("/orgs/:id", func(c echo.Context) error {
		orgID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			return c.NoContent(http.StatusBadRequest)
		}
		type request struct {
			Name    string `json:"name"`
			Allowed bool   `json:"allowed"`
		}
		var req request
		if err := c.Bind(&req); err != nil {
			return c.NoContent(http.StatusBadRequest)
		}
		uc := do.MustInvoke[usecase.WhitelistOrgUsecase](injector)
		err = uc.Execute(c.Request().Context(), &entity.OrgRecord{
			OrgID:   orgID,
			Name:    req.Name,
			Allowed: req.Allowed,
		})
		if err != nil {
			return errorResponse(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	})
}

func errorResponse(c echo.Context, err error) error {
	switch {
	case errors.Is(err, entity.ErrInvalid):
		return c.NoContent(http.StatusBadRequest)
	case errors.Is(err, entity.ErrNotFound):
		return c.NoContent(http.StatusNotFound)
	case errors.Is(err, entity.ErrConflict):
		return c.NoContent(http.StatusConflict)
	default:
		return c.NoContent(http.StatusInternalServerError)
	}
}
