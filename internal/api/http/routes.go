package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/i474232898/route-command-engine/internal/command"
	"github.com/i474232898/route-command-engine/internal/future"
	"github.com/i474232898/route-command-engine/internal/geocode"
	"github.com/i474232898/route-command-engine/internal/route"
	"github.com/i474232898/route-command-engine/internal/routebuilder"
	"github.com/i474232898/route-command-engine/internal/store"
)

var validate = validator.New()

// DefaultWaitTimeout bounds how long a request waits for its command to settle.
const DefaultWaitTimeout = 30 * time.Second

// Geocoder resolves addresses for new waypoints.
type Geocoder interface {
	Locate(ctx context.Context, addr geocode.Address) (route.LatLon, error)
}

// HistoryStore serves stored route snapshots.
type HistoryStore interface {
	GetRange(key string, from, to time.Time) ([]route.Snapshot, error)
	GetRevision(key string, revision uint64) (route.Snapshot, error)
	Delete(key string)
}

// Services are the dependencies of the HTTP handlers. Store and Geocoder may be nil.
type Services struct {
	Registry    *routebuilder.Registry
	Store       HistoryStore
	Geocoder    Geocoder
	WaitTimeout time.Duration
	Logger      zerolog.Logger
}

type handlers struct {
	Services
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, svc Services) {
	if svc.WaitTimeout <= 0 {
		svc.WaitTimeout = DefaultWaitTimeout
	}
	h := &handlers{Services: svc}

	v1 := app.Group("/api/v1")

	v1.Post("/routes", h.createRoute)
	v1.Get("/routes/:id", h.getRoute)
	v1.Delete("/routes/:id", h.deleteRoute)
	v1.Put("/routes/:id", h.resetRoute)
	v1.Get("/routes/:id/export", h.exportRoute)
	v1.Post("/routes/:id/waypoints", h.addWaypoint)
	v1.Delete("/routes/:id/waypoints", h.clearRoute)
	v1.Delete("/routes/:id/waypoints/:wid", h.removeWaypoint)
	v1.Post("/routes/:id/undo", h.undo)
	v1.Post("/routes/:id/redo", h.redo)
	v1.Get("/routes/:id/commands", h.commands)
	v1.Get("/routes/:id/history", h.history)
	v1.Get("/routes/:id/history/:revision", h.revision)
}

func (h *handlers) session(c *fiber.Ctx) (*routebuilder.Builder, error) {
	b, err := h.Registry.Get(c.Params("id"))
	if err != nil {
		return nil, toHTTPError(err)
	}
	return b, nil
}

// await blocks until f settles or the wait timeout elapses.
func (h *handlers) await(c *fiber.Ctx, f *future.Future, err error) ([]any, error) {
	if err != nil {
		return nil, toHTTPError(err)
	}
	ctx, cancel := context.WithTimeout(c.UserContext(), h.WaitTimeout)
	defer cancel()

	args, err := f.Wait(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fiber.NewError(fiber.StatusGatewayTimeout, "operation is still pending")
		}
		h.Logger.Warn().Err(err).Str("path", c.Path()).Msg("operation rejected")
		return nil, toHTTPError(&rejectedError{err: err})
	}
	return args, nil
}

type createRouteRequest struct {
	Waypoints json.RawMessage `json:"waypoints"`
}

func (h *handlers) createRoute(c *fiber.Ctx) error {
	var req createRouteRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
	}

	var waypoints []*route.Waypoint
	if len(req.Waypoints) > 0 {
		var err error
		if waypoints, err = route.Import(req.Waypoints); err != nil {
			return toHTTPError(err)
		}
	}

	b, err := h.Registry.Create(waypoints...)
	if err != nil {
		return toHTTPError(err)
	}
	h.Logger.Info().Str("session", b.ID()).Int("waypoints", len(waypoints)).Msg("route session created")

	return c.Status(fiber.StatusCreated).JSON(newRouteView(b))
}

func (h *handlers) getRoute(c *fiber.Ctx) error {
	b, err := h.session(c)
	if err != nil {
		return err
	}
	return c.JSON(newRouteView(b))
}

func (h *handlers) deleteRoute(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.Registry.Delete(id); err != nil {
		return toHTTPError(err)
	}
	if h.Store != nil {
		h.Store.Delete(id)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handlers) exportRoute(c *fiber.Ctx) error {
	b, err := h.session(c)
	if err != nil {
		return err
	}
	doc, err := b.ExportRoute()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to export route")
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(doc)
}

// addWaypointRequest locates the waypoint by coordinates or by address.
type addWaypointRequest struct {
	Lat         *float64         `json:"lat" validate:"required_without=Address,omitempty,latitude"`
	Lon         *float64         `json:"lon" validate:"required_with=Lat,omitempty,longitude"`
	Address     *geocode.Address `json:"address" validate:"required_without=Lat"`
	FollowPaths *bool            `json:"followPaths"`
	TravelMode  string           `json:"travelMode" validate:"omitempty,oneof=WALKING DRIVING BICYCLING walking driving bicycling"`
}

func (h *handlers) addWaypoint(c *fiber.Ctx) error {
	b, err := h.session(c)
	if err != nil {
		return err
	}

	var req addWaypointRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	ll, err := h.locate(c, req)
	if err != nil {
		return err
	}

	mode, err := route.ParseTravelMode(req.TravelMode)
	if err != nil {
		return toHTTPError(err)
	}
	opts := []route.WaypointOption{route.WithTravelMode(mode)}
	if req.FollowPaths != nil {
		opts = append(opts, route.WithFollowPaths(*req.FollowPaths))
	}
	w := route.NewWaypoint(ll, opts...)

	f, err := b.AddWaypoint(w)
	if _, err := h.await(c, f, err); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(newWaypointView(w))
}

func (h *handlers) locate(c *fiber.Ctx, req addWaypointRequest) (route.LatLon, error) {
	if req.Lat != nil {
		return route.NewLatLon(*req.Lat, *req.Lon), nil
	}
	if h.Geocoder == nil {
		return route.LatLon{}, toHTTPError(geocode.ErrNotConfigured)
	}
	ll, err := h.Geocoder.Locate(c.UserContext(), *req.Address)
	if err != nil {
		return route.LatLon{}, toHTTPError(err)
	}
	return ll, nil
}

func (h *handlers) removeWaypoint(c *fiber.Ctx) error {
	b, err := h.session(c)
	if err != nil {
		return err
	}
	f, err := b.RemoveWaypointByID(c.Params("wid"))
	if _, err := h.await(c, f, err); err != nil {
		return err
	}
	return c.JSON(newRouteView(b))
}

type resetRouteRequest struct {
	Waypoints json.RawMessage `json:"waypoints" validate:"required"`
	Refresh   bool            `json:"refresh"`
}

func (h *handlers) resetRoute(c *fiber.Ctx) error {
	b, err := h.session(c)
	if err != nil {
		return err
	}

	var req resetRouteRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	f, err := b.ImportRoute(req.Waypoints, req.Refresh)
	if _, err := h.await(c, f, err); err != nil {
		return err
	}
	return c.JSON(newRouteView(b))
}

func (h *handlers) clearRoute(c *fiber.Ctx) error {
	b, err := h.session(c)
	if err != nil {
		return err
	}
	f, err := b.ClearRoute()
	if _, err := h.await(c, f, err); err != nil {
		return err
	}
	return c.JSON(newRouteView(b))
}

func (h *handlers) undo(c *fiber.Ctx) error {
	b, err := h.session(c)
	if err != nil {
		return err
	}
	f, err := b.Undo()
	if _, err := h.await(c, f, err); err != nil {
		return err
	}
	return c.JSON(newRouteView(b))
}

func (h *handlers) redo(c *fiber.Ctx) error {
	b, err := h.session(c)
	if err != nil {
		return err
	}
	f, err := b.Redo()
	if _, err := h.await(c, f, err); err != nil {
		return err
	}
	return c.JSON(newRouteView(b))
}

func (h *handlers) commands(c *fiber.Ctx) error {
	b, err := h.session(c)
	if err != nil {
		return err
	}
	undo, redo := b.History()
	return c.JSON(fiber.Map{
		"undo":    undo,
		"redo":    redo,
		"pending": b.Manager().Pending(),
	})
}

func (h *handlers) history(c *fiber.Ctx) error {
	b, err := h.session(c)
	if err != nil {
		return err
	}
	if h.Store == nil {
		return fiber.NewError(fiber.StatusNotFound, "no route history available")
	}

	var req historyQuery
	if err := req.bind(c); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	snapshots, err := h.Store.GetRange(b.ID(), req.From, req.To)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "no route history for requested range")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch route history")
	}

	return c.JSON(fiber.Map{
		"id":        b.ID(),
		"from":      req.From,
		"to":        req.To,
		"snapshots": snapshots,
	})
}

func (h *handlers) revision(c *fiber.Ctx) error {
	b, err := h.session(c)
	if err != nil {
		return err
	}
	if h.Store == nil {
		return fiber.NewError(fiber.StatusNotFound, "no route history available")
	}

	rev, err := strconv.ParseUint(c.Params("revision"), 10, 64)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "revision must be a non-negative integer")
	}

	snap, err := h.Store.GetRevision(b.ID(), rev)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "no route snapshot for revision")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch route snapshot")
	}
	return c.JSON(snap)
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (q *historyQuery) bind(c *fiber.Ctx) error {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	q.From = from
	q.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}

// rejectedError marks a failure reported through a settled operation.
type rejectedError struct {
	err error
}

func (e *rejectedError) Error() string { return e.err.Error() }
func (e *rejectedError) Unwrap() error { return e.err }

// toHTTPError maps domain errors to status codes.
func toHTTPError(err error) error {
	var rejected *rejectedError
	switch {
	case errors.Is(err, routebuilder.ErrSessionNotFound),
		errors.Is(err, route.ErrWaypointNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, command.ErrCommandHistory),
		errors.Is(err, command.ErrAlreadyExecuted),
		errors.Is(err, command.ErrNotExecuted):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, command.ErrInvalidArgument),
		errors.Is(err, route.ErrParse),
		errors.Is(err, route.ErrDuplicateWaypoint),
		errors.Is(err, geocode.ErrEmptyAddress):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, geocode.ErrNotConfigured):
		return fiber.NewError(fiber.StatusNotImplemented, "address lookup is not configured")
	case errors.As(err, &rejected):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}
