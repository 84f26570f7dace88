package main

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vendroute/packing-player/internal/application"
	"github.com/vendroute/packing-player/pkg/api"
	"github.com/vendroute/packing-player/pkg/errors"
	"github.com/vendroute/packing-player/pkg/logging"
	"github.com/vendroute/packing-player/pkg/middleware"
)

func startSessionHandler(service *application.PlayerApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var cmd application.StartSessionCommand
		if appErr := api.BindAndValidate(c, &cmd); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"run.id":     cmd.RunID,
			"session.id": cmd.PackingSessionID,
		})

		snapshot, err := service.StartSession(c.Request.Context(), cmd)
		if err != nil {
			if appErr, ok := err.(*errors.AppError); ok {
				responder.RespondWithAppError(appErr)
			} else {
				responder.RespondInternalError(err)
			}
			return
		}

		c.JSON(http.StatusCreated, snapshot)
	}
}

func getSessionHandler(service *application.PlayerApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		sessionID := c.Param("sessionId")
		middleware.AddSpanAttributes(c, map[string]interface{}{
			"session.id": sessionID,
		})

		snapshot, err := service.State(sessionID)
		if err != nil {
			if appErr, ok := err.(*errors.AppError); ok {
				responder.RespondWithAppError(appErr)
			} else {
				responder.RespondInternalError(err)
			}
			return
		}

		c.JSON(http.StatusOK, snapshot)
	}
}

func transitionHandler(service *application.PlayerApplicationService, logger *logging.Logger, op string) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		sessionID := c.Param("sessionId")
		middleware.AddSpanAttributes(c, map[string]interface{}{
			"session.id": sessionID,
			"player.op":  op,
		})

		ctx := c.Request.Context()
		var snapshot *application.SessionSnapshot
		var err error
		switch op {
		case "forward":
			snapshot, err = service.Forward(ctx, sessionID)
		case "skip":
			snapshot, err = service.Skip(ctx, sessionID)
		case "back":
			snapshot, err = service.Back(ctx, sessionID)
		case "repeat":
			snapshot, err = service.Repeat(ctx, sessionID)
		case "pause":
			snapshot, err = service.Pause(ctx, sessionID)
		case "resume":
			snapshot, err = service.Resume(ctx, sessionID)
		}

		if err != nil {
			if appErr, ok := err.(*errors.AppError); ok {
				responder.RespondWithAppError(appErr)
			} else {
				responder.RespondInternalError(err)
			}
			return
		}

		c.JSON(http.StatusOK, snapshot)
	}
}

func stopSessionHandler(service *application.PlayerApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		sessionID := c.Param("sessionId")
		middleware.AddSpanAttributes(c, map[string]interface{}{
			"session.id": sessionID,
		})

		result, err := service.Stop(c.Request.Context(), sessionID)
		if err != nil {
			if appErr, ok := err.(*errors.AppError); ok {
				responder.RespondWithAppError(appErr)
			} else {
				responder.RespondInternalError(err)
			}
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func abandonSessionHandler(service *application.PlayerApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		sessionID := c.Param("sessionId")
		middleware.AddSpanAttributes(c, map[string]interface{}{
			"session.id": sessionID,
		})

		result, err := service.Abandon(c.Request.Context(), sessionID)
		if err != nil {
			if appErr, ok := err.(*errors.AppError); ok {
				responder.RespondWithAppError(appErr)
			} else {
				responder.RespondInternalError(err)
			}
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

// watchSessionHandler streams state snapshots over server-sent events.
// The stream ends when the session terminates or the client disconnects.
func watchSessionHandler(service *application.PlayerApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		sessionID := c.Param("sessionId")
		ch, cancel, err := service.Watch(sessionID)
		if err != nil {
			if appErr, ok := err.(*errors.AppError); ok {
				responder.RespondWithAppError(appErr)
			} else {
				responder.RespondInternalError(err)
			}
			return
		}
		defer cancel()

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")

		c.Stream(func(w io.Writer) bool {
			select {
			case snapshot, open := <-ch:
				if !open {
					return false
				}
				c.SSEvent("snapshot", snapshot)
				return true
			case <-c.Request.Context().Done():
				return false
			}
		})
	}
}
