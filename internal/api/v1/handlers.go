package v1

import (
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/turtleson01/bird-app/internal/errors"
	"github.com/turtleson01/bird-app/internal/identify"
	"github.com/turtleson01/bird-app/internal/logger"
	"github.com/turtleson01/bird-app/internal/reference"
)

// ListSpecies handles GET /api/v1/species. ?family= filters by family.
func (c *Controller) ListSpecies(ctx echo.Context) error {
	family := strings.TrimSpace(ctx.QueryParam("family"))
	rarity := c.svc.Rarity()

	all := c.svc.Catalog().Species()
	out := make([]SpeciesResponse, 0, len(all))
	for _, sp := range all {
		if family != "" && sp.Family != family {
			continue
		}
		out = append(out, speciesResponse(sp, rarity.Tier(sp.Name)))
	}
	return ctx.JSON(http.StatusOK, out)
}

// GetSpecies handles GET /api/v1/species/:name. A failed summary lookup is
// logged and answered without a summary.
func (c *Controller) GetSpecies(ctx echo.Context) error {
	name := ctx.Param("name")
	sp, summary, err := c.svc.Summary(ctx.Request().Context(), name)
	if err != nil {
		if sp == (reference.Species{}) {
			return c.HandleServiceError(ctx, err, "species not found")
		}
		c.log.Warn("species summary unavailable", logger.String("species", sp.Name), logger.Error(err))
	}
	resp := speciesResponse(sp, c.svc.Rarity().Tier(sp.Name))
	resp.Summary = summary
	return ctx.JSON(http.StatusOK, resp)
}

// ListSightings handles GET /api/v1/sightings
func (c *Controller) ListSightings(ctx echo.Context) error {
	list, err := c.svc.Sightings(ctx.Request().Context())
	if err != nil {
		return c.HandleServiceError(ctx, err, "failed to read sightings")
	}
	out := make([]SightingResponse, 0, len(list))
	for _, s := range list {
		out = append(out, sightingResponse(s))
	}
	return ctx.JSON(http.StatusOK, out)
}

// CreateSighting handles POST /api/v1/sightings
func (c *Controller) CreateSighting(ctx echo.Context) error {
	var req CreateSightingRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "invalid request body", http.StatusBadRequest)
	}
	if (req.Lat == nil) != (req.Lon == nil) {
		return c.HandleError(ctx, nil, "lat and lon must be given together", http.StatusBadRequest)
	}

	res, err := c.svc.Save(ctx.Request().Context(), req.toSave())
	if err != nil {
		return c.HandleServiceError(ctx, err, "failed to save sighting")
	}
	return ctx.JSON(http.StatusCreated, CreateSightingResponse{
		Sighting:     sightingResponse(res.Sighting),
		Achievements: nonNil(res.Achievements),
		Unlocked:     nonNil(res.Unlocked),
		Experience:   experienceResponse(res.Experience),
	})
}

// DeleteSightings handles DELETE /api/v1/sightings with a list of names
func (c *Controller) DeleteSightings(ctx echo.Context) error {
	var req DeleteRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "invalid request body", http.StatusBadRequest)
	}
	if len(req.Names) == 0 {
		return c.HandleError(ctx, nil, "names must not be empty", http.StatusBadRequest)
	}
	return c.deleteNames(ctx, req.Names)
}

// DeleteSighting handles DELETE /api/v1/sightings/:name
func (c *Controller) DeleteSighting(ctx echo.Context) error {
	return c.deleteNames(ctx, []string{ctx.Param("name")})
}

func (c *Controller) deleteNames(ctx echo.Context, names []string) error {
	n, err := c.svc.Delete(ctx.Request().Context(), names)
	if err != nil {
		return c.HandleServiceError(ctx, err, "failed to delete sightings")
	}
	return ctx.JSON(http.StatusOK, DeleteResponse{Deleted: n})
}

// GetStats handles GET /api/v1/stats
func (c *Controller) GetStats(ctx echo.Context) error {
	p, err := c.svc.Progress(ctx.Request().Context())
	if err != nil {
		return c.HandleServiceError(ctx, err, "failed to compute statistics")
	}
	return ctx.JSON(http.StatusOK, statsResponse(p, c.svc.Catalog().Families()))
}

// GetDex handles GET /api/v1/dex
func (c *Controller) GetDex(ctx echo.Context) error {
	entries, err := c.svc.Dex(ctx.Request().Context())
	if err != nil {
		return c.HandleServiceError(ctx, err, "failed to build collection")
	}
	out := make([]DexEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, dexEntryResponse(e))
	}
	return ctx.JSON(http.StatusOK, out)
}

// GetMap handles GET /api/v1/map
func (c *Controller) GetMap(ctx echo.Context) error {
	points, err := c.svc.MapPoints(ctx.Request().Context())
	if err != nil {
		return c.HandleServiceError(ctx, err, "failed to read sightings")
	}
	out := make([]MapPointResponse, 0, len(points))
	for _, p := range points {
		out = append(out, MapPointResponse{
			Species:    p.Species,
			Ordinal:    p.Ordinal,
			Lat:        p.Lat,
			Lon:        p.Lon,
			Place:      p.Place,
			RecordedAt: p.RecordedAt,
		})
	}
	return ctx.JSON(http.StatusOK, out)
}

// Identify handles POST /api/v1/identify. The multipart form carries one or
// more "images" files and an optional "followup" objection.
func (c *Controller) Identify(ctx echo.Context) error {
	form, err := ctx.MultipartForm()
	if err != nil {
		return c.HandleError(ctx, err, "expected a multipart form", http.StatusBadRequest)
	}
	files := form.File["images"]
	switch {
	case len(files) == 0:
		return c.HandleError(ctx, nil, "at least one image is required", http.StatusBadRequest)
	case len(files) > MaxImages:
		return c.HandleError(ctx, nil, "too many images", http.StatusBadRequest)
	}

	images := make([]identify.Image, 0, len(files))
	for _, fh := range files {
		img, err := readUpload(fh)
		if err != nil {
			return c.HandleError(ctx, err, "failed to read image "+fh.Filename, http.StatusBadRequest)
		}
		images = append(images, img)
	}

	followup := strings.TrimSpace(ctx.FormValue("followup"))
	results, err := c.svc.Identify(ctx.Request().Context(), images, followup)
	if err != nil {
		return c.HandleServiceError(ctx, err, "identification unavailable")
	}
	out := make([]IdentifyResult, 0, len(results))
	for i, r := range results {
		out = append(out, identifyResult(images[i], r))
	}
	return ctx.JSON(http.StatusOK, out)
}

func readUpload(fh *multipart.FileHeader) (identify.Image, error) {
	if fh.Size > MaxImageBytes {
		return identify.Image{}, errors.ValidationError("image is larger than 10MB")
	}
	f, err := fh.Open()
	if err != nil {
		return identify.Image{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxImageBytes+1))
	if err != nil {
		return identify.Image{}, err
	}
	if len(data) > MaxImageBytes {
		return identify.Image{}, errors.ValidationError("image is larger than 10MB")
	}
	img := identify.Image{Name: fh.Filename, Data: data}
	if ct := img.ContentType(); !strings.HasPrefix(ct, "image/") {
		return identify.Image{}, errors.ValidationError("not an image: " + ct)
	}
	return img, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
