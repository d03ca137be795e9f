package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mtaala/core"
	"github.com/trezcool/mtaala/core/collab"
	"github.com/trezcool/mtaala/core/curriculum"
)

var upgrader = websocket.Upgrader{
	// auth happens at the JWT middleware; cross-origin apps are expected
	CheckOrigin: func(r *http.Request) bool { return true },
}

type collabApi struct {
	svc         *collab.Service
	broadcaster curriculum.Broadcaster
	logger      core.Logger
	validate    *validator.Validate
}

func registerCollabAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *collab.Service,
	broadcaster curriculum.Broadcaster,
	logger core.Logger,
	validate *validator.Validate,
) {
	api := collabApi{svc: svc, broadcaster: broadcaster, logger: logger, validate: validate}

	cg := g.Group("/curricula/:offeringID/collab", jwt)
	cg.POST("/open", api.open)
	cg.PUT("/heartbeat", api.heartbeat)
	cg.GET("/collaborators", api.collaborators)
	cg.GET("/live", api.live)
}

// Handlers

// open finds or creates the editing session for a document and joins the
// actor. In degraded mode (collaboration backend down) the session is null and
// editing continues without presence.
func (api *collabApi) open(ctx echo.Context) error {
	actor, err := contextActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}

	sess, err := api.svc.Open(ctx.Request().Context(), ctx.Param("offeringID"), actor)
	if err != nil {
		return errors.Wrap(err, "opening session")
	}

	resp := openResponse{Collaborators: make([]collab.Presence, 0)}
	if !sess.IsZero() {
		resp.Session = &collabSessionPayload{ID: sess.ID, OfferingID: sess.OfferingID}
		resp.Collaborators = api.svc.Collaborators(ctx.Request().Context(), sess.ID, actor)
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *collabApi) heartbeat(ctx echo.Context) error {
	var data heartbeatRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to heartbeatRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	actor, err := contextActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}

	api.svc.Heartbeat(ctx.Request().Context(), data.SessionID, actor)
	return ctx.NoContent(http.StatusNoContent)
}

func (api *collabApi) collaborators(ctx echo.Context) error {
	sessID, err := uuid.Parse(ctx.QueryParam("session_id"))
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "session_id", Error: "invalid session id"})
	}

	actor, err := contextActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}

	presences := api.svc.Collaborators(ctx.Request().Context(), sessID, actor)
	if presences == nil {
		presences = make([]collab.Presence, 0)
	}
	return ctx.JSON(http.StatusOK, presences)
}

// live streams saved snapshots of a document over a websocket until the client
// disconnects. A broadcast-subscribe failure closes the socket without error:
// the client falls back to "no live updates" and can still edit and save.
func (api *collabApi) live(ctx echo.Context) error {
	offeringID := ctx.Param("offeringID")

	conn, err := upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		return errors.Wrap(err, "upgrading connection")
	}
	defer func() { _ = conn.Close() }()

	sub, err := api.broadcaster.Subscribe(ctx.Request().Context(), offeringID)
	if err != nil {
		api.logger.Warn("live feed unavailable", err, map[string]interface{}{"offering_id": offeringID})
		return nil
	}
	defer func() { _ = sub.Close() }()

	// detect client disconnect
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return nil
		case snap, ok := <-sub.Updates():
			if !ok {
				return nil
			}
			if err := conn.WriteJSON(snap); err != nil {
				return nil
			}
		case err, ok := <-sub.Err():
			if !ok {
				return nil
			}
			api.logger.Warn("live feed", err, map[string]interface{}{"offering_id": offeringID})
		}
	}
}
