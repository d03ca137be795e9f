package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mtaala/core"
	"github.com/trezcool/mtaala/core/changelog"
	"github.com/trezcool/mtaala/core/curriculum"
)

type curriculumApi struct {
	svc      *curriculum.Service
	validate *validator.Validate
}

func registerCurriculumAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *curriculum.Service, validate *validator.Validate) {
	api := curriculumApi{svc: svc, validate: validate}

	cg := g.Group("/curricula", jwt)

	dg := cg.Group("/:offeringID")
	dg.GET("", api.retrieve)
	dg.PUT("", api.save)
	dg.GET("/history", api.history)
	dg.POST("/changes", api.recordChanges)
	dg.POST("/suggestions", api.applySuggestion)
	dg.POST("/resources", api.attachResource)
}

// Handlers

func (api *curriculumApi) retrieve(ctx echo.Context) error {
	doc, err := api.svc.Load(ctx.Request().Context(), ctx.Param("offeringID"))
	if err != nil {
		if errors.Cause(err) == curriculum.ErrNotFound {
			return errHttpNotFound // nothing to load; first edit creates it client-side
		}
		return errors.Wrap(err, "loading document")
	}
	return ctx.JSON(http.StatusOK, doc)
}

// save replaces the whole stored snapshot with the client's document and
// broadcasts it to the other open clients. Clients edit locally; this is the
// only write path, and the last full-document save wins.
func (api *curriculumApi) save(ctx echo.Context) error {
	var doc curriculum.Document
	if err := ctx.Bind(&doc); err != nil {
		return errors.Wrap(err, "binding to Document")
	}
	doc.OfferingID = ctx.Param("offeringID")

	actor, err := contextActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}

	saved, err := api.svc.Save(ctx.Request().Context(), doc, actor)
	if err != nil {
		return errors.Wrap(err, "saving document")
	}
	return ctx.JSON(http.StatusOK, saved)
}

func (api *curriculumApi) history(ctx echo.Context) error {
	limit, _ := strconv.Atoi(ctx.QueryParam("limit"))
	records, err := api.svc.History(ctx.Request().Context(), ctx.Param("offeringID"), limit)
	if err != nil {
		return errors.Wrap(err, "listing change history")
	}
	if records == nil {
		records = make([]changelog.Record, 0)
	}
	return ctx.JSON(http.StatusOK, records)
}

// recordChanges appends client-produced audit entries. Always 202: the change
// log is best-effort and never blocks editing.
func (api *curriculumApi) recordChanges(ctx echo.Context) error {
	var data recordChangesRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to recordChangesRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	actor, err := contextActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}

	offeringID := ctx.Param("offeringID")
	for _, chg := range data.Changes {
		api.svc.RecordChange(ctx.Request().Context(), changelog.Record{
			OfferingID:  offeringID,
			ChangeType:  changelog.ChangeType(chg.ChangeType),
			Path:        chg.Path,
			OldValue:    chg.OldValue,
			NewValue:    chg.NewValue,
			Description: chg.Description,
		}, actor)
	}
	return ctx.NoContent(http.StatusAccepted)
}

// applySuggestion inserts an accepted AI-suggested content block at a path in
// the stored document and saves the result.
func (api *curriculumApi) applySuggestion(ctx echo.Context) error {
	var data suggestionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to suggestionRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	actor, err := contextActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}

	doc, err := api.svc.Load(ctx.Request().Context(), ctx.Param("offeringID"))
	if err != nil {
		return err
	}
	if _, err = api.svc.InsertSuggestion(ctx.Request().Context(), &doc, data.Path, curriculum.Suggestion{
		Title: core.CleanString(data.Title),
		Body:  core.CleanString(data.Body),
	}, actor); err != nil {
		return err
	}

	saved, err := api.svc.Save(ctx.Request().Context(), doc, actor)
	if err != nil {
		return errors.Wrap(err, "saving document")
	}
	return ctx.JSON(http.StatusOK, saved)
}

// attachResource links a resource-library reference to a node in the stored
// document and saves the result. Only the reference is stored.
func (api *curriculumApi) attachResource(ctx echo.Context) error {
	var data attachResourceRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to attachResourceRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	actor, err := contextActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}

	doc, err := api.svc.Load(ctx.Request().Context(), ctx.Param("offeringID"))
	if err != nil {
		return err
	}
	if err = api.svc.AttachResource(ctx.Request().Context(), &doc, data.Path, data.Resource.ref(), actor); err != nil {
		return err
	}

	saved, err := api.svc.Save(ctx.Request().Context(), doc, actor)
	if err != nil {
		return errors.Wrap(err, "saving document")
	}
	return ctx.JSON(http.StatusOK, saved)
}
