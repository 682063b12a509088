package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"

	"github.com/fahmi-aa/routepack/pkg/datastructure"
	"github.com/fahmi-aa/routepack/pkg/engine/routingalgorithm"
	"github.com/fahmi-aa/routepack/pkg/server/rest/service"
)

type NavigationService interface {
	Route(ctx context.Context, positions []datastructure.Coordinate) (routingalgorithm.RoutingResult, string, error)
	Nearest(ctx context.Context, lat, lon float64) ([]service.NearestResult, error)
}

type NavigationHandler struct {
	svc NavigationService
}

func NavigationRouter(r *chi.Mux, svc NavigationService) {
	handler := &NavigationHandler{svc}

	r.Group(func(r chi.Router) {
		r.Route("/api/navigation", func(r chi.Router) {
			r.Post("/route", handler.Route)
			r.Post("/nearest", handler.Nearest)
		})
	})
}

type Coord struct {
	Lat float64 `json:"lat" validate:"required,lt=90,gt=-90"`
	Lon float64 `json:"lon" validate:"required,lt=180,gt=-180"`
}

type RouteRequest struct {
	Coordinates []Coord `json:"coordinates" validate:"required,min=2,dive"`
	Format      string  `json:"format,omitempty" validate:"omitempty,oneof=json gpx"`
}

func (s *RouteRequest) Bind(r *http.Request) error {
	if len(s.Coordinates) < 2 {
		return errors.New("route request needs at least two coordinates")
	}
	return nil
}

type InstructionResponse struct {
	Type          string  `json:"type"`
	Description   string  `json:"description"`
	StreetName    string  `json:"street_name,omitempty"`
	Distance      float64 `json:"distance"`
	Time          float64 `json:"time"`
	GeometryIndex int     `json:"geometry_index"`
}

type RouteResponse struct {
	Status       string                `json:"status"`
	Polyline     string                `json:"polyline,omitempty"`
	Instructions []InstructionResponse `json:"instructions,omitempty"`
	Distance     float64               `json:"distance"`
	Time         float64               `json:"time"`
}

func RenderRouteResponse(result routingalgorithm.RoutingResult, poly string) *RouteResponse {
	resp := &RouteResponse{
		Status:   result.Status.String(),
		Polyline: poly,
		Distance: result.Distance,
		Time:     result.Time,
	}
	for _, ins := range result.Instructions {
		if ins.Type.Silent() {
			continue
		}
		resp.Instructions = append(resp.Instructions, InstructionResponse{
			Type:          ins.Type.String(),
			Description:   ins.Description,
			StreetName:    ins.StreetName,
			Distance:      ins.Distance,
			Time:          ins.Time,
			GeometryIndex: ins.GeometryIndex,
		})
	}
	return resp
}

func (h *NavigationHandler) Route(w http.ResponseWriter, r *http.Request) {
	data := &RouteRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	validate := validator.New()
	if err := validate.Struct(*data); err != nil {
		english := en.New()
		uni := ut.New(english, english)
		trans, _ := uni.GetTranslator("en")
		_ = enTranslations.RegisterDefaultTranslations(validate, trans)
		vv := translateError(err, trans)
		render.Render(w, r, ErrValidation(err, vv))
		return
	}

	positions := make([]datastructure.Coordinate, 0, len(data.Coordinates))
	for _, c := range data.Coordinates {
		positions = append(positions, datastructure.NewCoordinate(c.Lat, c.Lon))
	}

	result, poly, err := h.svc.Route(r.Context(), positions)
	if err != nil {
		render.Render(w, r, ErrInternalServerErrorRend(errors.New("internal server error")))
		return
	}

	if data.Format == "gpx" {
		if result.Status != routingalgorithm.StatusOK {
			render.Render(w, r, ErrNotFoundRend(errors.New("no route found")))
			return
		}
		RenderGPX(w, result)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, RenderRouteResponse(result, poly))
}

type NearestRequest struct {
	Lat float64 `json:"lat" validate:"required,lt=90,gt=-90"`
	Lon float64 `json:"lon" validate:"required,lt=180,gt=-180"`
}

func (s *NearestRequest) Bind(r *http.Request) error {
	return nil
}

type NearestResponse struct {
	Candidates []struct {
		Coord        Coord   `json:"coordinates"`
		StreetName   string  `json:"street_name,omitempty"`
		Distance     float64 `json:"distance"`
		SegmentIndex int     `json:"segment_index"`
		RelPos       float64 `json:"rel_pos"`
	} `json:"candidates"`
}

func RenderNearestResponse(results []service.NearestResult) *NearestResponse {
	resp := &NearestResponse{}
	for _, res := range results {
		resp.Candidates = append(resp.Candidates, struct {
			Coord        Coord   `json:"coordinates"`
			StreetName   string  `json:"street_name,omitempty"`
			Distance     float64 `json:"distance"`
			SegmentIndex int     `json:"segment_index"`
			RelPos       float64 `json:"rel_pos"`
		}{
			Coord:        Coord{Lat: res.Snap.Position.Lat, Lon: res.Snap.Position.Lon},
			StreetName:   res.StreetName,
			Distance:     res.Snap.Distance,
			SegmentIndex: res.Snap.SegmentIndex,
			RelPos:       res.Snap.RelPos,
		})
	}
	return resp
}

func (h *NavigationHandler) Nearest(w http.ResponseWriter, r *http.Request) {
	data := &NearestRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	validate := validator.New()
	if err := validate.Struct(*data); err != nil {
		english := en.New()
		uni := ut.New(english, english)
		trans, _ := uni.GetTranslator("en")
		_ = enTranslations.RegisterDefaultTranslations(validate, trans)
		vv := translateError(err, trans)
		render.Render(w, r, ErrValidation(err, vv))
		return
	}

	results, err := h.svc.Nearest(r.Context(), data.Lat, data.Lon)
	if err != nil {
		if errors.Is(err, service.ErrNotCovered) {
			render.Render(w, r, ErrNotFoundRend(err))
			return
		}
		render.Render(w, r, ErrInternalServerErrorRend(errors.New("internal server error")))
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, RenderNearestResponse(results))
}

type ErrResponse struct {
	Err            error `json:"-"`
	HTTPStatusCode int   `json:"-"`

	StatusText    string   `json:"status"`
	AppCode       int64    `json:"code,omitempty"`
	ErrorText     string   `json:"error,omitempty"`
	ErrValidation []string `json:"validation,omitempty"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func ErrInvalidRequest(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: 400,
		StatusText:     "Invalid request.",
		ErrorText:      err.Error(),
	}
}

func ErrValidation(err error, errV []error) render.Renderer {
	vv := []string{}
	for _, v := range errV {
		vv = append(vv, v.Error())
	}
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: 400,
		StatusText:     "Invalid request.",
		ErrorText:      err.Error(),
		ErrValidation:  vv,
	}
}

func ErrNotFoundRend(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: 404,
		StatusText:     "Resource not found.",
		ErrorText:      err.Error(),
	}
}

func ErrInternalServerErrorRend(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: 500,
		StatusText:     "Internal server error.",
		ErrorText:      err.Error(),
	}
}

func translateError(err error, trans ut.Translator) (errs []error) {
	if err == nil {
		return nil
	}
	validatorErrs := err.(validator.ValidationErrors)
	for _, e := range validatorErrs {
		translatedErr := fmt.Errorf("%s", e.Translate(trans))
		errs = append(errs, translatedErr)
	}
	return errs
}
