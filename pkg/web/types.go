package web

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/ebrains-prov/provenance-api/pkg/kg"
	"github.com/ebrains-prov/provenance-api/pkg/models"
	"github.com/ebrains-prov/provenance-api/pkg/services"
	"github.com/gofiber/fiber/v3"
)

const (
	defaultPageSize = 100
	maxPageSize     = 10000
)

// page is the paging and space selection shared by every listing.
type page struct {
	Space string
	Size  int
	From  int
}

func parsePage(c fiber.Ctx) (page, error) {
	p := page{Space: c.Query("space", kg.MySpace), Size: defaultPageSize}

	if s := c.Query("size"); s != "" {
		size, err := strconv.Atoi(s)
		if err != nil || size < 1 || size > maxPageSize {
			return p, fmt.Errorf("size must be an integer between 1 and %d", maxPageSize)
		}

		p.Size = size
	}

	if s := c.Query("from_index"); s != "" {
		from, err := strconv.Atoi(s)
		if err != nil || from < 0 {
			return p, fmt.Errorf("from_index must be a non-negative integer")
		}

		p.From = from
	}

	return p, nil
}

func parseComputationFilter(c fiber.Ctx) (services.ComputationFilter, error) {
	p, err := parsePage(c)
	if err != nil {
		return services.ComputationFilter{}, err
	}

	filter := services.ComputationFilter{
		Software:     c.Query("software"),
		Platform:     c.Query("platform"),
		Tags:         queryValues(c, "tags"),
		ModelVersion: c.Query("model_version"),
		Dataset:      c.Query("dataset"),
		InputData:    c.Query("input_data"),
		Space:        p.Space,
		Size:         p.Size,
		From:         p.From,
	}

	if s := c.Query("status"); s != "" {
		status := models.Status(s)
		if !slices.Contains(models.Statuses, status) {
			return filter, fmt.Errorf("unknown status %q", s)
		}

		filter.Status = &status
	}

	return filter, nil
}

// queryValues returns every value of a repeated query parameter.
func queryValues(c fiber.Ctx, key string) []string {
	raw := c.Request().URI().QueryArgs().PeekMulti(key)

	values := make([]string, 0, len(raw))
	for _, v := range raw {
		values = append(values, string(v))
	}

	return values
}
