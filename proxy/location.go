package proxy

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/llmgateway/pkg/metrics"
)

// Visitor location headers added by Cloudflare when the gateway runs
// behind it.
const (
	cfCountry   = "cf-ipcountry"
	cfCity      = "cf-ipcity"
	cfContinent = "cf-ipcontinent"
	cfLatitude  = "cf-iplatitude"
	cfLongitude = "cf-iplongitude"
	cfTimezone  = "cf-timezone"
	cfRegion    = "cf-region"
)

// clientLocation returns the client location from edge headers, or nil
// when none are present.
func clientLocation(c *fiber.Ctx) *metrics.Location {
	loc := metrics.Location{
		Country:   c.Get(cfCountry),
		City:      c.Get(cfCity),
		Continent: c.Get(cfContinent),
		Timezone:  c.Get(cfTimezone),
		Region:    c.Get(cfRegion),
	}
	loc.Latitude, _ = strconv.ParseFloat(c.Get(cfLatitude), 64)
	loc.Longitude, _ = strconv.ParseFloat(c.Get(cfLongitude), 64)

	if loc == (metrics.Location{}) {
		return nil
	}
	return &loc
}
